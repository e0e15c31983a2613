package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"music-brief-scheduler/internal/models"
	"music-brief-scheduler/pkg/logging"
)

// LLMFirst wraps the deterministic Service with an optional model-curated
// pass for POST /api/recommend. The model must return a strict JSON envelope
// choosing among catalog picks; anything that fails to parse or validate
// falls back to the deterministic output.
type LLMFirst struct {
	service *Service
	client  *openai.Client
	model   string
	log     *logging.ComponentLogger
}

func NewLLMFirst(service *Service, apiKey, model string, log *logging.Logger) *LLMFirst {
	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}
	return &LLMFirst{
		service: service,
		client:  client,
		model:   model,
		log:     log.WithComponent("recommend"),
	}
}

// envelope is the strict JSON contract for the model's answer. It reorders
// and annotates the deterministic picks; it may not invent playlists.
type envelope struct {
	Picks []struct {
		PlaylistID string `json:"playlistId"`
		Daypart    string `json:"daypart"`
		Reason     string `json:"reason"`
	} `json:"picks"`
	DesignerNotes string `json:"designerNotes"`
}

// Run returns the model-curated output when possible, otherwise the
// deterministic one. Never returns an error: the fallback always succeeds.
func (l *LLMFirst) Run(ctx context.Context, in models.ExtractedBrief) Output {
	out := l.service.Run(in)
	if l.client == nil || len(out.Recommendations) == 0 {
		return out
	}

	curated, err := l.curate(ctx, in, out)
	if err != nil {
		l.log.Warn("llm-first pass failed, using deterministic output", logging.Error(err))
		return out
	}
	return curated
}

func (l *LLMFirst) curate(ctx context.Context, in models.ExtractedBrief, out Output) (Output, error) {
	briefJSON, _ := json.Marshal(in)
	picksJSON, _ := json.Marshal(out.Recommendations)

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are a music design reviewer. You receive a venue brief and a list of " +
					"candidate playlist picks. Respond with ONLY a JSON object of the form " +
					`{"picks":[{"playlistId":"...","daypart":"...","reason":"..."}],"designerNotes":"..."}` +
					". Keep only picks from the candidate list, in your preferred order. No prose, no markdown.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Brief:\n%s\n\nCandidates:\n%s", briefJSON, picksJSON),
			},
		},
	})
	if err != nil {
		return Output{}, err
	}
	if len(resp.Choices) == 0 {
		return Output{}, fmt.Errorf("empty completion")
	}

	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Output{}, fmt.Errorf("parse envelope: %w", err)
	}
	if len(env.Picks) == 0 {
		return Output{}, fmt.Errorf("envelope has no picks")
	}

	// Reproject onto the deterministic picks; unknown playlist ids void
	// the whole envelope.
	byID := make(map[string]models.Recommendation, len(out.Recommendations))
	for _, r := range out.Recommendations {
		byID[r.PlaylistID+"/"+r.Daypart] = r
	}
	curated := make([]models.Recommendation, 0, len(env.Picks))
	for _, p := range env.Picks {
		rec, ok := byID[p.PlaylistID+"/"+p.Daypart]
		if !ok {
			return Output{}, fmt.Errorf("envelope references unknown pick %s/%s", p.PlaylistID, p.Daypart)
		}
		if strings.TrimSpace(p.Reason) != "" {
			rec.Reason = p.Reason
		}
		curated = append(curated, rec)
	}

	out.Recommendations = curated
	if strings.TrimSpace(env.DesignerNotes) != "" {
		out.DesignerNotes = env.DesignerNotes
	}
	return out, nil
}
