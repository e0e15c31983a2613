// Package matcher scores the playlist catalog against a brief and returns
// ranked per-daypart picks. It is fully deterministic: same brief and catalog
// in, same picks out.
package matcher

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"music-brief-scheduler/internal/catalog"
	"music-brief-scheduler/internal/models"
)

const (
	scoreFloor   = 55
	scoreCeiling = 95
	// Picks across all dayparts are capped at ~12; each daypart gets its
	// even share, rounded up.
	totalPickBudget = 12
)

var (
	instrumentalRe       = regexp.MustCompile(`instrumental|piano|ambient|nature`)
	mostlyInstrumentalRe = regexp.MustCompile(`instrumental|piano|acoustic`)
	avoidSplitRe         = regexp.MustCompile(`[,;]|\band\b|\bor\b`)
)

// fillerTerms are tokens in avoid lists that carry no matching signal.
var fillerTerms = map[string]bool{"no": true, "hits": true, "mainstream": true, "": true}

// Matcher scores catalog playlists against briefs.
type Matcher struct {
	catalog *catalog.Catalog
	tables  *catalog.Tables
}

// New creates a matcher over the given catalog and lookup tables.
func New(c *catalog.Catalog, t *catalog.Tables) *Matcher {
	return &Matcher{catalog: c, tables: t}
}

// Result is one matcher run: a flat pick list plus a designer note.
type Result struct {
	Recommendations []models.Recommendation
	DesignerNotes   string
}

// scored carries a playlist's base score and the signals that produced it,
// kept for reason authoring.
type scored struct {
	playlist     models.Playlist
	index        int // catalog order, used as the tiebreaker
	base         float64
	venueMatched bool
	matchedVibes []string
}

// Match runs the full scoring pipeline for one zone: base scores, per-daypart
// energy adjustment, ranked picks and score normalization.
func (m *Matcher) Match(in models.MatchInput, parts []models.Daypart) Result {
	scoredAll := m.scoreAll(in)

	perDaypart := int(math.Ceil(float64(totalPickBudget) / float64(max(len(parts), 1))))
	picked := make(map[string]bool)

	type pick struct {
		rec     models.Recommendation
		dpScore float64
	}
	var picks []pick
	var maxDpScore float64

	for _, dp := range parts {
		energyCats := energyCategories(dp.Energy)

		ranked := make([]scored, len(scoredAll))
		copy(ranked, scoredAll)
		dpScores := make(map[string]float64, len(ranked))
		for _, s := range ranked {
			dpScore := s.base
			if intersects(s.playlist.Categories, energyCats) {
				dpScore++
			}
			dpScores[s.playlist.ID] = dpScore
		}
		sort.SliceStable(ranked, func(i, j int) bool {
			si, sj := dpScores[ranked[i].playlist.ID], dpScores[ranked[j].playlist.ID]
			if si != sj {
				return si > sj
			}
			return ranked[i].index < ranked[j].index
		})

		taken := 0
		for _, s := range ranked {
			if taken >= perDaypart {
				break
			}
			dpScore := dpScores[s.playlist.ID]
			if dpScore <= 0 || picked[s.playlist.ID] {
				continue
			}
			picked[s.playlist.ID] = true
			taken++
			if dpScore > maxDpScore {
				maxDpScore = dpScore
			}
			picks = append(picks, pick{
				rec: models.Recommendation{
					PlaylistID:   s.playlist.ID,
					PlaylistName: s.playlist.Name,
					SybID:        s.playlist.SybID,
					Daypart:      dp.Key,
					Reason:       m.reason(s, in),
				},
				dpScore: dpScore,
			})
		}
	}

	recs := make([]models.Recommendation, 0, len(picks))
	for _, p := range picks {
		p.rec.MatchScore = normalize(p.dpScore, maxDpScore)
		recs = append(recs, p.rec)
	}
	return Result{Recommendations: recs, DesignerNotes: m.designerNotes(in, parts)}
}

// scoreAll computes daypart-independent base scores for every catalog entry.
func (m *Matcher) scoreAll(in models.MatchInput) []scored {
	targetCats := m.tables.CategoriesFor(in.VenueType)
	avoidTerms := parseAvoidList(in.AvoidList)

	out := make([]scored, 0, m.catalog.Size())
	for i, p := range m.catalog.All() {
		text := strings.ToLower(p.Name + " " + p.Description)
		s := scored{playlist: p, index: i}

		if n := intersectionSize(p.Categories, targetCats); n > 0 {
			s.base += 2 + float64(n)
			s.venueMatched = true
		}

		for _, vibe := range in.Vibes {
			hit := false
			for _, kw := range m.tables.KeywordsFor(vibe) {
				if strings.Contains(text, kw) {
					s.base += 0.5
					hit = true
				}
			}
			if hit {
				s.matchedVibes = append(s.matchedVibes, vibe)
			}
		}

		// Genre hints are the strongest positive signal.
		for _, hint := range in.GenreHints {
			if strings.Contains(text, strings.ToLower(hint)) {
				s.base += 2.0
			}
		}

		normText := strings.ReplaceAll(text, "-", " ")
		for _, term := range avoidTerms {
			if strings.Contains(normText, term) {
				s.base -= 10.0
			}
		}

		switch in.Vocals {
		case "instrumental":
			if instrumentalRe.MatchString(text) {
				s.base += 1.5
			}
		case "mostly-instrumental":
			if mostlyInstrumentalRe.MatchString(text) {
				s.base += 0.8
			}
		}

		out = append(out, s)
	}
	return out
}

// reason authors the human-readable line attached to each pick.
func (m *Matcher) reason(s scored, in models.MatchInput) string {
	vibeText := strings.Join(s.matchedVibes, ", ")
	if vibeText == "" && len(in.Vibes) > 0 {
		vibeText = in.Vibes[0]
	}
	humanType := catalog.HumanizeVenueType(in.VenueType)
	if s.venueMatched {
		return fmt.Sprintf("%s — fits your %s %s", s.playlist.Description, vibeText, humanType)
	}
	return fmt.Sprintf("%s — complements the %s atmosphere", s.playlist.Description, vibeText)
}

func (m *Matcher) designerNotes(in models.MatchInput, parts []models.Daypart) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Curated for a %s", catalog.HumanizeVenueType(in.VenueType))
	if len(in.Vibes) > 0 {
		fmt.Fprintf(&b, " with a %s feel", strings.Join(in.Vibes, ", "))
	}
	fmt.Fprintf(&b, " at energy %d/10", in.Energy)
	if len(parts) > 0 {
		keys := make([]string, 0, len(parts))
		for _, dp := range parts {
			keys = append(keys, dp.Label)
		}
		fmt.Fprintf(&b, ", programmed across %s", strings.Join(keys, " → "))
	}
	b.WriteString(".")
	return b.String()
}

// energyCategories maps a daypart energy to the platform categories that
// naturally carry that intensity.
func energyCategories(energy int) []string {
	switch {
	case energy <= 3:
		return []string{"spa", "lounge"}
	case energy <= 6:
		return []string{"cafe", "restaurant", "hotel", "lounge"}
	default:
		return []string{"bar", "store", "lounge"}
	}
}

// parseAvoidList tokenizes a free-text avoid list into normalized terms.
// "no hip-hop or rap" yields ["hip hop", "rap"].
func parseAvoidList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var terms []string
	for _, raw := range avoidSplitRe.Split(strings.ToLower(list), -1) {
		term := strings.TrimSpace(strings.ReplaceAll(raw, "-", " "))
		// Drop leading filler tokens ("no edm" -> "edm").
		words := strings.Fields(term)
		kept := words[:0]
		for _, w := range words {
			if !fillerTerms[w] {
				kept = append(kept, w)
			}
		}
		term = strings.Join(kept, " ")
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func normalize(dpScore, maxDpScore float64) int {
	if maxDpScore <= 0 {
		return scoreFloor
	}
	score := int(math.Round(scoreFloor + dpScore/maxDpScore*40))
	if score < scoreFloor {
		return scoreFloor
	}
	if score > scoreCeiling {
		return scoreCeiling
	}
	return score
}

func intersects(a, b []string) bool { return intersectionSize(a, b) > 0 }

func intersectionSize(a, b []string) int {
	n := 0
	for _, x := range a {
		for _, y := range b {
			if x == y {
				n++
				break
			}
		}
	}
	return n
}

