package engine

import (
	"music-brief-scheduler/internal/llm"
	"music-brief-scheduler/internal/recommend"
)

// Emitter is the SSE sink for one chat turn. Emit marshals the value as one
// event frame; write errors mean the client went away and unwind the turn.
type Emitter interface {
	Emit(v interface{}) error
}

// TextEvent carries one complete text block.
type TextEvent struct {
	Type    string `json:"type"` // "text"
	Content string `json:"content"`
}

// DeltaEvent carries one streamed token.
type DeltaEvent struct {
	Type    string `json:"type"` // "text_delta"
	Content string `json:"content"`
}

// StructuredQuestionEvent relays an ask_structured_question tool call. The
// assistant content travels as an opaque blob the client must echo back via
// pendingToolUse on its next request.
type StructuredQuestionEvent struct {
	Type             string      `json:"type"` // "structured_question"
	ToolUseID        string      `json:"toolUseId"`
	AssistantContent []llm.Block `json:"assistantContent"`
	Question         string      `json:"question"`
	Options          []string    `json:"options"`
	AllowCustom      bool        `json:"allowCustom"`
	AllowSkip        bool        `json:"allowSkip"`
	AllowMultiple    bool        `json:"allowMultiple"`
	QuestionIndex    *int        `json:"questionIndex,omitempty"`
	TotalQuestions   *int        `json:"totalQuestions,omitempty"`
}

// RecommendationsEvent carries the full recommendation payload.
type RecommendationsEvent struct {
	Type string `json:"type"` // "recommendations"
	recommend.Output
}

// ErrorEvent carries one user-visible error line.
type ErrorEvent struct {
	Type    string `json:"type"` // "error"
	Content string `json:"content"`
}

// DoneEvent terminates every stream, success or error.
type DoneEvent struct {
	Type string `json:"type"` // "done"
}

// ChatRequest is the POST /api/chat payload.
type ChatRequest struct {
	Messages       []ClientMessage `json:"messages"`
	PendingToolUse *PendingToolUse `json:"pendingToolUse,omitempty"`
	Product        string          `json:"product,omitempty"`
}

// ClientMessage is one prior turn as the client stores it.
type ClientMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PendingToolUse closes a structured question: the assistant blob from the
// structured_question event plus the customer's answer.
type PendingToolUse struct {
	ToolUseID        string      `json:"toolUseId"`
	AssistantContent []llm.Block `json:"assistantContent"`
	Answer           string      `json:"answer"`
}
