package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"music-brief-scheduler/internal/llm"
	"music-brief-scheduler/internal/prompts"
	"music-brief-scheduler/pkg/logging"
)

const (
	maxResearchQueries = 4
	maxLookupOptions   = 5
)

// runSideTools executes research_venue and lookup_existing_client calls
// concurrently and returns one tool_result block per call, in call order.
// Side tools never fail the turn; every outcome becomes a directive the
// model can act on.
func (e *Engine) runSideTools(ctx context.Context, calls []llm.Block) []llm.Block {
	results := make([]llm.Block, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.Block) {
			defer wg.Done()
			var content string
			switch call.Name {
			case toolResearchVenue:
				content = e.execResearch(ctx, call)
			case toolLookupClient:
				content = e.execLookup(ctx, call)
			default:
				content = "Unknown tool. Continue the consultation."
			}
			results[i] = llm.ToolResultBlock(call.ID, content)
		}(i, call)
	}
	wg.Wait()
	return results
}

// execResearch runs up to four web searches and wraps the snippets in the
// research-conclusion instruction. Any failure collapses to a directive to
// continue without research.
func (e *Engine) execResearch(ctx context.Context, call llm.Block) string {
	var in researchInput
	if err := unmarshalInput(call, &in); err != nil || in.VenueName == "" {
		return "Research unavailable. Continue the consultation without external research and do not mention the attempt."
	}

	queries := in.Queries
	if len(queries) == 0 {
		queries = defaultQueries(in.VenueName, in.Location)
	}
	if len(queries) > maxResearchQueries {
		queries = queries[:maxResearchQueries]
	}

	var lines []string
	for _, q := range queries {
		snippets, err := e.search.Snippets(ctx, q)
		if err != nil {
			e.log.Warn("venue research query failed", logging.Venue(in.VenueName), logging.Error(err))
			continue
		}
		lines = append(lines, snippets...)
	}
	if len(lines) == 0 {
		return "Research unavailable. Continue the consultation without external research and do not mention the attempt."
	}

	rendered, err := e.prompts.Render(prompts.ResearchConclusion, map[string]string{
		"VenueName": in.VenueName,
		"Summary":   strings.Join(lines, "\n"),
	})
	if err != nil {
		e.log.Error("render research conclusion", err, logging.Venue(in.VenueName))
		return "Research unavailable. Continue the consultation without external research and do not mention the attempt."
	}
	return rendered
}

func defaultQueries(venue, location string) []string {
	base := strings.TrimSpace(venue + " " + location)
	return []string{
		base,
		base + " reviews atmosphere",
		base + " music style clientele",
	}
}

// execLookup matches the venue name against the platform account cache and
// returns a directive for the model. Match-count bands:
// one match confirms the account, a handful get a disambiguation mapping,
// too many ask for the exact name, none fall back to local venue history.
func (e *Engine) execLookup(ctx context.Context, call llm.Block) string {
	var in lookupInput
	if err := unmarshalInput(call, &in); err != nil || strings.TrimSpace(in.VenueName) == "" {
		return "No account lookup possible. This appears to be a new client; continue the consultation without mentioning this lookup."
	}

	if e.accounts == nil {
		return e.localHistory(ctx, in.VenueName)
	}
	matches, err := e.accounts.Search(ctx, in.VenueName)
	if err != nil {
		e.log.Warn("account lookup failed", logging.Venue(in.VenueName), logging.Error(err))
		return e.localHistory(ctx, in.VenueName)
	}

	switch {
	case len(matches) == 0:
		return e.localHistory(ctx, in.VenueName)

	case len(matches) == 1:
		acct := matches[0]
		zoneNames := e.zoneNames(ctx, acct.ID)
		msg := fmt.Sprintf("Existing client found: %q (account ID %s).", acct.BusinessName, acct.ID)
		if len(zoneNames) > 0 {
			msg += " Sound zones: " + strings.Join(zoneNames, ", ") + "."
		}
		return msg + " Welcome them back by name, confirm this is their venue, and reuse what is already known instead of re-asking."

	case len(matches) <= maxLookupOptions:
		var sb strings.Builder
		sb.WriteString("Multiple possible accounts found. ACCOUNT ID MAPPING:\n")
		for _, m := range matches {
			fmt.Fprintf(&sb, "- %s => %s\n", m.BusinessName, m.ID)
		}
		sb.WriteString("Present the business names to the customer as a structured question and, once they pick one, treat the mapped account ID as confirmed.")
		return sb.String()

	default:
		return fmt.Sprintf("Found %d accounts matching %q, too many to disambiguate. Ask the customer to type the exact business name as registered.", len(matches), in.VenueName)
	}
}

// localHistory checks our own venue records when no platform account matches.
func (e *Engine) localHistory(ctx context.Context, venueName string) string {
	const newClient = "New client, no prior records. Continue the consultation without mentioning this lookup."
	if e.repo == nil {
		return newClient
	}

	venue, err := e.repo.GetVenueByName(ctx, venueName)
	if err != nil || venue == nil {
		return newClient
	}
	briefs, err := e.repo.RecentBriefsByVenue(ctx, venueName, 3)
	if err != nil || len(briefs) == 0 {
		return fmt.Sprintf("Returning client: we have worked with %q before (%s in %s). Welcome them back and confirm whether anything has changed.",
			venue.VenueName, venue.VenueType, venue.Location)
	}

	last := briefs[0]
	return fmt.Sprintf("Returning client: %q last submitted a brief on %s (status %s). Welcome them back, mention we remember their venue, and ask what has changed since.",
		venue.VenueName, last.CreatedAt.Format("2 Jan 2006"), last.Status)
}

func (e *Engine) zoneNames(ctx context.Context, accountID string) []string {
	if e.syb == nil {
		return nil
	}
	zones, err := e.syb.Zones(ctx, accountID)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(zones))
	for _, z := range zones {
		names = append(names, z.Name)
	}
	return names
}
