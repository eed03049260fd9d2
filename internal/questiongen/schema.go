package questiongen

import "github.com/abhisek/masterypath/internal/llm"

// QuestionSchema is the structured output requested from the model.
var QuestionSchema = &llm.Schema{
	Name:        "mcq-question",
	Description: "One multiple-choice question with exactly one correct option",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The question shown to the learner",
			},
			"difficulty": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "Estimated share of learners who get it wrong, from 0 (trivial) to 1 (very hard)",
			},
			"options": map[string]any{
				"type":     "array",
				"minItems": 2,
				"maxItems": 6,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":       map[string]any{"type": "string"},
						"is_correct": map[string]any{"type": "boolean"},
					},
					"required":             []any{"text", "is_correct"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"text", "difficulty", "options"},
		"additionalProperties": false,
	},
}
