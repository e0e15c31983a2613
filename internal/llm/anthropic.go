package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "music-brief-scheduler/pkg/errors"
	"music-brief-scheduler/pkg/logging"
)

// AnthropicClient adapts the Anthropic Messages API to the Client interface.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
	log    *logging.ComponentLogger
}

var _ Client = (*AnthropicClient)(nil)

func NewAnthropicClient(apiKey, model string, timeout time.Duration, log *logging.Logger) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithRequestTimeout(timeout),
		),
		model: anthropic.Model(model),
		log:   log.WithComponent("llm"),
	}
}

func (a *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	params := a.toParams(req)

	var msg *anthropic.Message
	err := a.withOverloadRetry(ctx, func() error {
		var callErr error
		msg, callErr = a.client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, apperrors.NewExternal("llm.Complete", "anthropic", "messages call failed", err)
	}
	return fromMessage(msg), nil
}

func (a *AnthropicClient) Stream(ctx context.Context, req Request, onDelta func(text string)) (*Response, error) {
	params := a.toParams(req)

	var acc anthropic.Message
	err := a.withOverloadRetry(ctx, func() error {
		acc = anthropic.Message{}
		stream := a.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				return err
			}
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && onDelta != nil {
					onDelta(delta.Text)
				}
			}
		}
		return stream.Err()
	})
	if err != nil {
		return nil, apperrors.NewExternal("llm.Stream", "anthropic", "streaming call failed", err)
	}
	return fromMessage(&acc), nil
}

// withOverloadRetry retries on HTTP 529 with 1s/2s/4s/8s backoff, up to
// three retries. Everything else fails immediately.
func (a *AnthropicClient) withOverloadRetry(ctx context.Context, call func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = call()
		if err == nil || attempt >= 3 || !isOverloaded(err) {
			return err
		}
		wait := retrySchedule[min(attempt, len(retrySchedule)-1)]
		a.log.Warn("model overloaded, backing off",
			logging.Int("attempt", attempt+1), logging.Duration("wait", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func isOverloaded(err error) bool {
	var apierr *anthropic.Error
	return errors.As(err, &apierr) && apierr.StatusCode == 529
}

func (a *AnthropicClient) toParams(req Request) anthropic.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(maxTokens),
		Messages:  toMessageParams(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema,
					Required:   t.Required,
				},
			},
		})
	}
	return params
}

func toMessageParams(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		role := anthropic.MessageParamRoleUser
		if m.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    b.ID,
						Name:  b.Name,
						Input: json.RawMessage(b.Input),
					},
				})
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Content, false))
			}
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
}

func fromMessage(msg *anthropic.Message) *Response {
	resp := &Response{StopReason: string(msg.StopReason)}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, Block{Type: BlockText, Text: v.Text})
		case anthropic.ToolUseBlock:
			resp.Content = append(resp.Content, Block{
				Type:  BlockToolUse,
				ID:    v.ID,
				Name:  v.Name,
				Input: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}
	return resp
}
