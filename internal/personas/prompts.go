package personas

import (
	"fmt"
	"strings"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
)

// IdeaBrief serializes the Idea's structured fields so evaluator replies are
// grounded in the specific submission rather than a generic pitch.
func IdeaBrief(idea *domain.Idea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Idea: %s\n", idea.Title)
	fmt.Fprintf(&b, "Description: %s\n", idea.Description)
	if idea.TargetCustomer != "" {
		fmt.Fprintf(&b, "Target customer: %s\n", idea.TargetCustomer)
	}
	if idea.Problem != "" {
		fmt.Fprintf(&b, "Problem: %s\n", idea.Problem)
	}
	if idea.Alternatives != "" {
		fmt.Fprintf(&b, "Current alternatives: %s\n", idea.Alternatives)
	}
	if idea.ValueProposition != "" {
		fmt.Fprintf(&b, "Value proposition: %s\n", idea.ValueProposition)
	}
	return b.String()
}

// StageSystemPrompt builds the system instruction for one sequential-pipeline
// conversation turn. The trailing marker instruction is a best-effort early
// exit; the engine enforces the turn bound itself.
func StageSystemPrompt(p Persona, idea *domain.Idea, maxExchanges int) string {
	return fmt.Sprintf(`%s

You are conversing with the founder about the following idea:

%s
Stay in character. Keep replies under 120 words and end each reply with one probing question,
unless you are concluding.

Conclude after at most %d total exchanges. When you conclude, append this JSON marker on its own
line after your prose, with a score from 0 to 10:
{"stage_complete": true, "score": <0-10>, "takeaways": ["..."]}`,
		strings.TrimSpace(p.Prompt), IdeaBrief(idea), maxExchanges)
}

// StageFinishSystemPrompt instructs the summary completion for a finished stage.
func StageFinishSystemPrompt(p Persona) string {
	return fmt.Sprintf(`%s

The conversation below is your completed evaluation session with the founder.
Summarize it from your viewpoint. Score the idea 0-10 as discussed in the session.
Return JSON only.`, strings.TrimSpace(p.Prompt))
}

// Transcript renders a stage's message history for the finish completion.
func Transcript(msgs []*domain.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		role := "Founder"
		if m.Role == domain.MessageRoleEvaluator {
			role = "Evaluator"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	return b.String()
}

// BatchSystemPrompt builds the one-shot rating instruction for a batch persona.
func BatchSystemPrompt(p Persona) string {
	return fmt.Sprintf(`%s

Rate the business idea you are given on five dimensions, each an integer from 1 (poor) to 10
(excellent): market_potential, feasibility, innovation, competitiveness, profit_potential.
Also give your candid opinion, what you like, what you dislike, concrete suggestions, and a
two-sentence summary. Stay strictly in character. Return JSON only.`, strings.TrimSpace(p.Prompt))
}

// CompetitorSystemPrompt drives the premium web-search market lookup.
const CompetitorSystemPrompt = `You are a market research analyst with web search access.
Identify the closest existing competitors to the idea you are given, how crowded the space is,
and any recent funding or shutdown signals. Be specific: name products and companies.
Keep it under 300 words.`

// SaturationSystemPrompt converts a competitor narrative into a typed score.
const SaturationSystemPrompt = `You are scoring market saturation. Given a competitor-landscape
narrative, return an integer market_saturation_score from 1 (wide open) to 100 (fully saturated).
Return JSON only.`

// ExecutiveSummarySystemPrompt drives the final narrative of a batch report.
const ExecutiveSummarySystemPrompt = `You are writing the executive summary of a multi-evaluator
analysis of a business idea. You are given the aggregate scores, each evaluator's view, and
optionally a competitor landscape. Synthesize the strongest agreements and disagreements into a
crisp narrative with a clear verdict. Do not invent scores.`
