// Package engine runs the tool-calling consultation loop. Each chat turn is
// one call to Chat: the prior transcript comes in, SSE events go out, and the
// turn ends on a structured question, a recommendation set, or plain text.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"music-brief-scheduler/internal/llm"
	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/internal/prompts"
	"music-brief-scheduler/internal/recommend"
	"music-brief-scheduler/internal/search"
	"music-brief-scheduler/internal/syb"
	"music-brief-scheduler/pkg/logging"
)

const (
	// maxLoopIterations bounds tool round-trips within one turn.
	maxLoopIterations = 8
	maxTokens         = 4096
)

// venueHistory is the slice of the repository the lookup fallback needs.
// Nil in degraded mode.
type venueHistory interface {
	GetVenueByName(ctx context.Context, venueName string) (*models.Venue, error)
	RecentBriefsByVenue(ctx context.Context, venueName string, limit int) ([]models.Brief, error)
}

// Engine drives a consultation against the model.
type Engine struct {
	llm      llm.Client
	rec      *recommend.Service
	search   *search.Client
	syb      *syb.Client
	accounts *syb.AccountCache
	repo     venueHistory
	prompts  *prompts.Manager
	log      *logging.ComponentLogger
}

func New(client llm.Client, rec *recommend.Service, searchClient *search.Client,
	sybClient *syb.Client, accounts *syb.AccountCache, repo venueHistory,
	pm *prompts.Manager, logger *logging.Logger) *Engine {
	return &Engine{
		llm:      client,
		rec:      rec,
		search:   searchClient,
		syb:      sybClient,
		accounts: accounts,
		repo:     repo,
		prompts:  pm,
		log:      logger.WithComponent("engine"),
	}
}

// Chat runs one turn. Every path ends with a done event; errors surface as an
// error event first. The returned error is for transport problems only, so
// the handler can stop writing.
func (e *Engine) Chat(ctx context.Context, req ChatRequest, emit Emitter) error {
	product := req.Product
	if product == "" {
		product = models.ProductSYB
	}
	includeLookup := product == models.ProductSYB

	system, err := e.prompts.Render(prompts.ConsultationSystem, map[string]interface{}{
		"SYBProduct": includeLookup,
		"Product":    product,
	})
	if err != nil {
		return e.fail(emit, "The consultation is unavailable right now. Please try again.", err)
	}

	messages, err := buildMessages(req)
	if err != nil {
		return e.fail(emit, "Your message could not be read. Please refresh and try again.", err)
	}
	tools := toolset(includeLookup)

	for i := 0; i < maxLoopIterations; i++ {
		resp, err := e.llm.Complete(ctx, llm.Request{
			System:    system,
			Messages:  messages,
			Tools:     tools,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return e.fail(emit, "The music consultant is overloaded right now. Please try again in a moment.", err)
		}

		for _, b := range resp.Content {
			if b.Type == llm.BlockText && strings.TrimSpace(b.Text) != "" {
				if err := emit.Emit(TextEvent{Type: "text", Content: b.Text}); err != nil {
					return err
				}
			}
		}

		if resp.StopReason != llm.StopToolUse {
			return emit.Emit(DoneEvent{Type: "done"})
		}

		calls := resp.ToolUses()

		// Terminal tools close the turn even when the model batched other
		// calls alongside.
		if q := findCall(calls, toolStructuredQuestion); q != nil {
			return e.emitStructuredQuestion(emit, resp, *q)
		}
		if g := findCall(calls, toolRecommendations); g != nil {
			return e.finishWithRecommendations(ctx, emit, system, tools, messages, resp, calls, *g)
		}

		results := e.runSideTools(ctx, calls)
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
			llm.Message{Role: llm.RoleUser, Content: results},
		)
	}

	return e.fail(emit, "The consultation got stuck. Please rephrase and try again.",
		fmt.Errorf("tool loop exceeded %d iterations", maxLoopIterations))
}

// buildMessages converts the client transcript and, when present, closes the
// pending structured question by replaying the assistant blob followed by the
// customer's selection as its tool result.
func buildMessages(req ChatRequest) ([]llm.Message, error) {
	var messages []llm.Message
	for _, m := range req.Messages {
		role := m.Role
		if role != llm.RoleAssistant {
			role = llm.RoleUser
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, llm.Message{Role: role, Content: []llm.Block{llm.TextBlock(m.Content)}})
	}

	if p := req.PendingToolUse; p != nil {
		if p.ToolUseID == "" || len(p.AssistantContent) == 0 {
			return nil, fmt.Errorf("pendingToolUse missing toolUseId or assistantContent")
		}
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: p.AssistantContent},
			llm.Message{Role: llm.RoleUser, Content: []llm.Block{
				llm.ToolResultBlock(p.ToolUseID, fmt.Sprintf("The customer selected: %q", p.Answer)),
			}},
		)
	}

	if len(messages) == 0 {
		return nil, fmt.Errorf("empty conversation")
	}
	return messages, nil
}

func (e *Engine) emitStructuredQuestion(emit Emitter, resp *llm.Response, call llm.Block) error {
	var in structuredQuestionInput
	if err := unmarshalInput(call, &in); err != nil {
		return e.fail(emit, "The consultant asked a malformed question. Please try again.", err)
	}
	if err := emit.Emit(StructuredQuestionEvent{
		Type:             "structured_question",
		ToolUseID:        call.ID,
		AssistantContent: resp.Content,
		Question:         in.Question,
		Options:          in.Options,
		AllowCustom:      in.AllowCustom,
		AllowSkip:        in.AllowSkip,
		AllowMultiple:    in.AllowMultiple,
		QuestionIndex:    in.QuestionIndex,
		TotalQuestions:   in.TotalQuestions,
	}); err != nil {
		return err
	}
	return emit.Emit(DoneEvent{Type: "done"})
}

// finishWithRecommendations runs the deterministic pipeline, emits the
// recommendations event, then streams one closing message with every batched
// tool call answered.
func (e *Engine) finishWithRecommendations(ctx context.Context, emit Emitter, system string,
	tools []llm.Tool, messages []llm.Message, resp *llm.Response, calls []llm.Block, gen llm.Block) error {

	var in recommendationsInput
	if err := unmarshalInput(gen, &in); err != nil {
		return e.fail(emit, "The brief could not be assembled. Please try again.", err)
	}

	out := e.rec.Run(in.ExtractedBrief)
	if err := emit.Emit(RecommendationsEvent{Type: "recommendations", Output: out}); err != nil {
		return err
	}

	results := make([]llm.Block, 0, len(calls))
	for _, call := range calls {
		switch call.Name {
		case toolRecommendations:
			results = append(results, llm.ToolResultBlock(call.ID, recommendationSummary(out)))
		case toolResearchVenue:
			results = append(results, llm.ToolResultBlock(call.ID, e.execResearch(ctx, call)))
		case toolLookupClient:
			results = append(results, llm.ToolResultBlock(call.ID, e.execLookup(ctx, call)))
		default:
			results = append(results, llm.ToolResultBlock(call.ID, "Done."))
		}
	}
	messages = append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: resp.Content},
		llm.Message{Role: llm.RoleUser, Content: results},
	)

	_, err := e.llm.Stream(ctx, llm.Request{
		System:    system,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: maxTokens,
	}, func(text string) {
		// A lost client here is harmless; recommendations already went out.
		_ = emit.Emit(DeltaEvent{Type: "text_delta", Content: text})
	})
	if err != nil {
		e.log.Warn("closing message failed after recommendations", logging.Error(err))
	}
	return emit.Emit(DoneEvent{Type: "done"})
}

// recommendationSummary is the tool result handed back to the model so the
// closing message can reference concrete picks.
func recommendationSummary(out recommend.Output) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generated %d recommendations", len(out.Recommendations))
	if len(out.ZoneNames) > 0 {
		fmt.Fprintf(&sb, " across zones %s", strings.Join(out.ZoneNames, ", "))
	}
	sb.WriteString(".\n")
	for _, r := range out.Recommendations {
		fmt.Fprintf(&sb, "- %s (%s, score %d)\n", r.PlaylistName, r.Daypart, r.MatchScore)
	}
	if len(out.WeekendRecs) > 0 {
		fmt.Fprintf(&sb, "Plus %d weekend-variant picks.\n", len(out.WeekendRecs))
	}
	sb.WriteString("The customer can already see these as cards. Write a short, warm closing: " +
		"point out one or two highlights and invite them to adjust anything before submitting. Do not relist every playlist.")
	return sb.String()
}

func (e *Engine) fail(emit Emitter, userMsg string, err error) error {
	e.log.Error("chat turn failed", err)
	if emitErr := emit.Emit(ErrorEvent{Type: "error", Content: userMsg}); emitErr != nil {
		return emitErr
	}
	return emit.Emit(DoneEvent{Type: "done"})
}

func findCall(calls []llm.Block, name string) *llm.Block {
	for i := range calls {
		if calls[i].Name == name {
			return &calls[i]
		}
	}
	return nil
}

func unmarshalInput(call llm.Block, v interface{}) error {
	if len(call.Input) == 0 {
		return fmt.Errorf("tool %s: empty input", call.Name)
	}
	if err := json.Unmarshal(call.Input, v); err != nil {
		return fmt.Errorf("tool %s: %w", call.Name, err)
	}
	return nil
}
