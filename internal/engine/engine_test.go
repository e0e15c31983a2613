package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"music-brief-scheduler/internal/brief"
	"music-brief-scheduler/internal/catalog"
	"music-brief-scheduler/internal/llm"
	"music-brief-scheduler/internal/matcher"
	"music-brief-scheduler/internal/prompts"
	"music-brief-scheduler/internal/recommend"
	"music-brief-scheduler/internal/search"
	"music-brief-scheduler/pkg/logging"
)

const testCatalog = `[
  {"id": "jazz-lounge", "name": "Jazz Lounge Classics", "description": "Elegant jazz for a sophisticated lounge evening", "categories": ["hotel", "lounge"], "sybId": "syb-1"},
  {"id": "deep-house", "name": "Deep House Sessions", "description": "Stylish deep house grooves for a trendy bar", "categories": ["bar", "lounge"], "sybId": "syb-2"}
]`

// scriptedClient replays canned responses and records the requests it saw.
type scriptedClient struct {
	responses []*llm.Response
	requests  []llm.Request
	streamed  string
}

func (s *scriptedClient) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedClient) Stream(_ context.Context, req llm.Request, onDelta func(string)) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	for _, chunk := range []string{"Sounds ", "great!"} {
		onDelta(chunk)
		s.streamed += chunk
	}
	return &llm.Response{Content: []llm.Block{llm.TextBlock(s.streamed)}, StopReason: llm.StopEndTurn}, nil
}

// collector gathers emitted events as raw JSON objects.
type collector struct {
	events []map[string]interface{}
}

func (c *collector) Emit(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	c.events = append(c.events, m)
	return nil
}

func (c *collector) types() []string {
	var out []string
	for _, e := range c.events {
		out = append(out, e["type"].(string))
	}
	return out
}

func newTestEngine(t *testing.T, client llm.Client) *Engine {
	t.Helper()
	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatal(err)
	}
	tables := catalog.DefaultTables()
	rec := recommend.NewService(matcher.New(cat, tables), brief.New(tables))
	pm, err := prompts.NewManager()
	if err != nil {
		t.Fatal(err)
	}
	logger, err := logging.NewLogger(logging.LogConfig{Level: logging.LevelError, Format: "text", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return New(client, rec, search.NewClient("", ""), nil, nil, nil, pm, logger)
}

func TestChat_PlainTextTurn(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: []llm.Block{llm.TextBlock("Tell me about your venue.")}, StopReason: llm.StopEndTurn},
	}}
	eng := newTestEngine(t, client)

	var sink collector
	err := eng.Chat(context.Background(), ChatRequest{
		Messages: []ClientMessage{{Role: "user", Content: "hi"}},
	}, &sink)
	if err != nil {
		t.Fatal(err)
	}

	got := sink.types()
	if len(got) != 2 || got[0] != "text" || got[1] != "done" {
		t.Fatalf("unexpected event sequence: %v", got)
	}
}

func TestChat_StructuredQuestionTerminates(t *testing.T) {
	input, _ := json.Marshal(map[string]interface{}{
		"question": "What energy level fits?",
		"options":  []string{"Low", "Medium", "High"},
	})
	client := &scriptedClient{responses: []*llm.Response{
		{
			Content: []llm.Block{
				llm.TextBlock("Let me ask you this."),
				{Type: llm.BlockToolUse, ID: "tu_1", Name: toolStructuredQuestion, Input: input},
			},
			StopReason: llm.StopToolUse,
		},
	}}
	eng := newTestEngine(t, client)

	var sink collector
	if err := eng.Chat(context.Background(), ChatRequest{
		Messages: []ClientMessage{{Role: "user", Content: "hi"}},
	}, &sink); err != nil {
		t.Fatal(err)
	}

	got := sink.types()
	if len(got) != 3 || got[1] != "structured_question" || got[2] != "done" {
		t.Fatalf("unexpected event sequence: %v", got)
	}
	q := sink.events[1]
	if q["toolUseId"] != "tu_1" {
		t.Fatalf("missing toolUseId: %v", q)
	}
	if q["question"] != "What energy level fits?" {
		t.Fatalf("missing question: %v", q)
	}
	if q["assistantContent"] == nil {
		t.Fatal("assistantContent blob must round-trip to the client")
	}
}

func TestChat_PendingToolUseClosesQuestion(t *testing.T) {
	client := &scriptedClient{responses: []*llm.Response{
		{Content: []llm.Block{llm.TextBlock("Great choice.")}, StopReason: llm.StopEndTurn},
	}}
	eng := newTestEngine(t, client)

	assistantContent := []llm.Block{
		llm.TextBlock("Let me ask you this."),
		{Type: llm.BlockToolUse, ID: "tu_1", Name: toolStructuredQuestion, Input: json.RawMessage(`{"question":"?","options":[]}`)},
	}
	var sink collector
	if err := eng.Chat(context.Background(), ChatRequest{
		Messages: []ClientMessage{{Role: "user", Content: "hi"}},
		PendingToolUse: &PendingToolUse{
			ToolUseID:        "tu_1",
			AssistantContent: assistantContent,
			Answer:           "High",
		},
	}, &sink); err != nil {
		t.Fatal(err)
	}

	req := client.requests[0]
	if len(req.Messages) != 3 {
		t.Fatalf("expected user + assistant blob + tool result, got %d messages", len(req.Messages))
	}
	last := req.Messages[2]
	if last.Role != llm.RoleUser || last.Content[0].Type != llm.BlockToolResult {
		t.Fatalf("last message must be the tool result: %+v", last)
	}
	if !strings.Contains(last.Content[0].Content, `"High"`) {
		t.Fatalf("tool result must quote the answer: %s", last.Content[0].Content)
	}
	if last.Content[0].ToolUseID != "tu_1" {
		t.Fatalf("tool result must reference the pending id: %+v", last.Content[0])
	}
}

func TestChat_RecommendationsFlow(t *testing.T) {
	input, _ := json.Marshal(map[string]interface{}{
		"venueType": "hotel-lobby",
		"vibes":     []string{"sophisticated"},
		"energy":    5,
		"hours":     "7:00-23:00",
	})
	client := &scriptedClient{responses: []*llm.Response{
		{
			Content: []llm.Block{
				{Type: llm.BlockToolUse, ID: "tu_gen", Name: toolRecommendations, Input: input},
			},
			StopReason: llm.StopToolUse,
		},
	}}
	eng := newTestEngine(t, client)

	var sink collector
	if err := eng.Chat(context.Background(), ChatRequest{
		Messages: []ClientMessage{{Role: "user", Content: "build it"}},
	}, &sink); err != nil {
		t.Fatal(err)
	}

	got := sink.types()
	if got[0] != "recommendations" {
		t.Fatalf("expected recommendations first, got %v", got)
	}
	if got[len(got)-1] != "done" {
		t.Fatalf("stream must end with done: %v", got)
	}
	deltas := 0
	for _, typ := range got {
		if typ == "text_delta" {
			deltas++
		}
	}
	if deltas == 0 {
		t.Fatal("closing message must stream as text_delta events")
	}

	recEvent := sink.events[0]
	if recEvent["recommendations"] == nil {
		t.Fatalf("recommendations payload missing: %v", recEvent)
	}
	if recEvent["extractedBrief"] == nil {
		t.Fatal("extractedBrief must be echoed in the payload")
	}

	// The follow-up request must answer the tool call.
	followUp := client.requests[1]
	lastMsg := followUp.Messages[len(followUp.Messages)-1]
	if lastMsg.Content[0].Type != llm.BlockToolResult || lastMsg.Content[0].ToolUseID != "tu_gen" {
		t.Fatalf("follow-up must carry the tool result: %+v", lastMsg.Content[0])
	}
}

func TestChat_EmptyConversationFails(t *testing.T) {
	eng := newTestEngine(t, &scriptedClient{})
	var sink collector
	if err := eng.Chat(context.Background(), ChatRequest{}, &sink); err != nil {
		t.Fatal(err)
	}
	got := sink.types()
	if len(got) != 2 || got[0] != "error" || got[1] != "done" {
		t.Fatalf("expected error then done, got %v", got)
	}
}
