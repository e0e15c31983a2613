// Package llm wraps the model provider behind a small block-based API. The
// engine and recommendation paths speak these types; only the adapter file
// touches the provider SDK.
package llm

import (
	"context"
	"encoding/json"
	"time"
)

// Roles in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Block kinds.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Stop reasons.
const (
	StopToolUse = "tool_use"
	StopEndTurn = "end_turn"
)

// Block is one content block. The JSON shape matches the provider's wire
// format so assistant content can round-trip through the client opaquely.
type Block struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// TextBlock builds a text block.
func TextBlock(text string) Block { return Block{Type: BlockText, Text: text} }

// ToolResultBlock builds a tool_result block answering the given tool use.
func ToolResultBlock(toolUseID, content string) Block {
	return Block{Type: BlockToolResult, ToolUseID: toolUseID, Content: content}
}

// Message is one conversation turn.
type Message struct {
	Role    string  `json:"role"`
	Content []Block `json:"content"`
}

// UserText is shorthand for a single-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []Block{TextBlock(text)}}
}

// Tool describes one callable tool.
type Tool struct {
	Name        string
	Description string
	// InputSchema is a JSON-schema "properties" map.
	InputSchema map[string]interface{}
	Required    []string
}

// Request is one model invocation.
type Request struct {
	System    string
	Messages  []Message
	Tools     []Tool
	MaxTokens int
}

// Response is the assistant's reply.
type Response struct {
	Content    []Block
	StopReason string
}

// FirstText returns the concatenation of all text blocks.
func (r *Response) FirstText() string {
	var out string
	for _, b := range r.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolUses returns all tool_use blocks in order.
func (r *Response) ToolUses() []Block {
	var out []Block
	for _, b := range r.Content {
		if b.Type == BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

// Client is the provider interface. Stream invokes onDelta per text token
// and still returns the fully accumulated response.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request, onDelta func(text string)) (*Response, error)
}

// retrySchedule is the backoff for overloaded responses.
var retrySchedule = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
