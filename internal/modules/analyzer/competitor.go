package analyzer

import (
	"context"
	"strings"

	"github.com/pitchpanel/pitchpanel-backend/internal/personas"
)

// competitorInsight runs the premium enrichment pair: a web-search completion
// for the competitor narrative, then a schema-constrained call that turns the
// narrative into a typed saturation score. The whole thing is best-effort.
func (a *Analyzer) competitorInsight(ctx context.Context, brief string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	narrative, err := a.ai.GenerateTextWithSearch(ctx, personas.CompetitorSystemPrompt, brief)
	if err != nil {
		return "", 0, err
	}
	return narrative, a.saturationScore(ctx, narrative), nil
}

// saturationScore prefers the structured call; the keyword heuristic is the
// fallback only when that call fails or returns an out-of-range value.
func (a *Analyzer) saturationScore(ctx context.Context, narrative string) int {
	obj, err := a.ai.GenerateJSON(ctx, personas.SaturationSystemPrompt, narrative, "market_saturation", personas.SaturationSchema())
	if err == nil {
		if v, ok := obj["market_saturation_score"].(float64); ok {
			n := int(v)
			if n >= 1 && n <= 100 {
				return n
			}
		}
	}
	a.log.Warn("saturation scoring fell back to keyword heuristic", "error", err)
	return keywordSaturation(narrative)
}

func keywordSaturation(text string) int {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "crowded") || strings.Contains(t, "high saturation") || strings.Contains(t, "highly saturated"):
		return 85
	case strings.Contains(t, "moderate"):
		return 50
	case strings.Contains(t, "low saturation") || strings.Contains(t, "few competitors"):
		return 25
	default:
		return 50
	}
}
