package engine

import (
	"music-brief-scheduler/internal/llm"
	"music-brief-scheduler/internal/models"
)

// Tool names the model can call.
const (
	toolStructuredQuestion = "ask_structured_question"
	toolResearchVenue      = "research_venue"
	toolLookupClient       = "lookup_existing_client"
	toolRecommendations    = "generate_recommendations"
)

// structuredQuestionInput mirrors the ask_structured_question schema.
type structuredQuestionInput struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	AllowCustom    bool     `json:"allowCustom"`
	AllowSkip      bool     `json:"allowSkip"`
	AllowMultiple  bool     `json:"allowMultiple"`
	QuestionIndex  *int     `json:"questionIndex,omitempty"`
	TotalQuestions *int     `json:"totalQuestions,omitempty"`
}

type researchInput struct {
	VenueName string   `json:"venueName"`
	Location  string   `json:"location"`
	Queries   []string `json:"queries,omitempty"`
}

type lookupInput struct {
	VenueName string `json:"venueName"`
}

// recommendationsInput is the generate_recommendations schema: the extracted
// brief plus an optional model-written summary of the conversation.
type recommendationsInput struct {
	models.ExtractedBrief
	ConversationSummary string `json:"conversationSummary,omitempty"`
}

// toolset returns the tools offered for a consultation. lookup_existing_client
// only exists for the platform product, where accounts can be matched.
func toolset(includeLookup bool) []llm.Tool {
	zoneProps := map[string]interface{}{
		"name":       map[string]interface{}{"type": "string"},
		"energy":     map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 10},
		"vibes":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"hours":      map[string]interface{}{"type": "string", "description": "Operating hours, e.g. \"7:00-23:00\""},
		"genreHints": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
	}

	tools := []llm.Tool{
		{
			Name: toolStructuredQuestion,
			Description: "Present one question as a clickable card with predefined options. " +
				"Use for any question with a small fixed answer set. The card shows the question; " +
				"do not repeat it in your text.",
			InputSchema: map[string]interface{}{
				"question":       map[string]interface{}{"type": "string"},
				"options":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"allowCustom":    map[string]interface{}{"type": "boolean", "description": "Show a free-text option"},
				"allowSkip":      map[string]interface{}{"type": "boolean"},
				"allowMultiple":  map[string]interface{}{"type": "boolean", "description": "Allow selecting several options"},
				"questionIndex":  map[string]interface{}{"type": "integer"},
				"totalQuestions": map[string]interface{}{"type": "integer"},
			},
			Required: []string{"question", "options"},
		},
		{
			Name: toolResearchVenue,
			Description: "Research a venue on the web to learn its style and clientele. " +
				"Use once, when the venue name and location are known but the atmosphere is unclear.",
			InputSchema: map[string]interface{}{
				"venueName": map[string]interface{}{"type": "string"},
				"location":  map[string]interface{}{"type": "string"},
				"queries": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Up to 4 search queries; omit to use defaults",
				},
			},
			Required: []string{"venueName"},
		},
		{
			Name: toolRecommendations,
			Description: "Generate playlist recommendations once the brief is complete. " +
				"Pass everything learned in the consultation.",
			InputSchema: map[string]interface{}{
				"venueName":  map[string]interface{}{"type": "string"},
				"venueType":  map[string]interface{}{"type": "string"},
				"location":   map[string]interface{}{"type": "string"},
				"vibes":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"energy":     map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 10},
				"hours":      map[string]interface{}{"type": "string"},
				"vocals":     map[string]interface{}{"type": "string", "enum": []string{"instrumental", "mostly-instrumental", "mix", "vocals"}},
				"avoidList":  map[string]interface{}{"type": "string"},
				"genreHints": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"zones": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "object", "properties": zoneProps},
					"description": "Per-zone overrides for multi-zone venues",
				},
				"weekendMode": map[string]interface{}{
					"type":        "object",
					"properties":  zoneProps,
					"description": "Overrides applied on weekends when they differ",
				},
				"conversationSummary": map[string]interface{}{"type": "string", "description": "2-3 sentence summary of the consultation"},
			},
			Required: []string{"venueType", "vibes", "energy"},
		},
	}

	if includeLookup {
		tools = append(tools, llm.Tool{
			Name: toolLookupClient,
			Description: "Check whether the venue already has a platform account. " +
				"Call early, as soon as the venue name is known, and follow the directive in the result.",
			InputSchema: map[string]interface{}{
				"venueName": map[string]interface{}{"type": "string"},
			},
			Required: []string{"venueName"},
		})
	}
	return tools
}
