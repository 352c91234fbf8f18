package personas

// JSON schemas for the structured completions. OpenAI strict json_schema
// requires additionalProperties=false and every property listed in required.

func StringArraySchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

func RatingSchema() map[string]any {
	return map[string]any{"type": "integer", "minimum": 1, "maximum": 10}
}

// StageSummarySchema shapes the finish completion of a sequential stage.
func StageSummarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key_points":     StringArraySchema(),
			"score":          map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
			"blocking_risks": StringArraySchema(),
		},
		"required":             []string{"key_points", "score", "blocking_risks"},
		"additionalProperties": false,
	}
}

// PersonaRatingSchema shapes one batch persona's structured verdict.
func PersonaRatingSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"market_potential": RatingSchema(),
			"feasibility":      RatingSchema(),
			"innovation":       RatingSchema(),
			"competitiveness":  RatingSchema(),
			"profit_potential": RatingSchema(),
			"opinion":          map[string]any{"type": "string"},
			"likes":            StringArraySchema(),
			"dislikes":         StringArraySchema(),
			"suggestions":      StringArraySchema(),
			"summary":          map[string]any{"type": "string"},
		},
		"required": []string{
			"market_potential", "feasibility", "innovation", "competitiveness",
			"profit_potential", "opinion", "likes", "dislikes", "suggestions", "summary",
		},
		"additionalProperties": false,
	}
}

// SaturationSchema shapes the typed market-saturation extraction.
func SaturationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"market_saturation_score": map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
		},
		"required":             []string{"market_saturation_score"},
		"additionalProperties": false,
	}
}
