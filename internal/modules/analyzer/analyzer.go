package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/personas"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/envutil"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/openai"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
	"github.com/pitchpanel/pitchpanel-backend/internal/services"
)

type Config struct {
	// Concurrency bounds the number of in-flight persona calls.
	Concurrency int
	// CallTimeout caps each individual upstream call, not the whole batch.
	CallTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency: envutil.Int("ANALYZER_CONCURRENCY", 4),
		CallTimeout: time.Duration(envutil.Int("ANALYZER_CALL_TIMEOUT_SECONDS", 90)) * time.Second,
	}
}

// Analyzer fans one idea out to a tier-gated persona roster in parallel and
// folds the structured ratings into a single report. Nothing it produces is
// persisted; the report lives only in the response.
type Analyzer struct {
	log  *logger.Logger
	cfg  Config
	ai   openai.Client
	set  personas.Set
	gate services.EntitlementService
}

func NewAnalyzer(log *logger.Logger, cfg Config, ai openai.Client, set personas.Set, gate services.EntitlementService) *Analyzer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	return &Analyzer{
		log:  log.With("module", "Analyzer"),
		cfg:  cfg,
		ai:   ai,
		set:  set,
		gate: gate,
	}
}

type Input struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	TargetCustomer   string `json:"target_customer"`
	Problem          string `json:"problem"`
	Alternatives     string `json:"alternatives"`
	ValueProposition string `json:"value_proposition"`
}

// Ratings are the five 1-10 dimensions every persona scores.
type Ratings struct {
	MarketPotential int `json:"market_potential"`
	Feasibility     int `json:"feasibility"`
	Innovation      int `json:"innovation"`
	Competitiveness int `json:"competitiveness"`
	ProfitPotential int `json:"profit_potential"`
}

// PersonaResult is one settled fan-out entry. Exactly one of Ratings or Error
// is set; failed personas stay in the list so the caller can see who dropped.
type PersonaResult struct {
	Persona     string   `json:"persona"`
	Ratings     *Ratings `json:"ratings,omitempty"`
	Opinion     string   `json:"opinion,omitempty"`
	Likes       []string `json:"likes,omitempty"`
	Dislikes    []string `json:"dislikes,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// AggregateRatings are per-dimension means over succeeding personas. They stay
// fractional; rounding happens only on the overall score.
type AggregateRatings struct {
	MarketPotential float64 `json:"market_potential"`
	Feasibility     float64 `json:"feasibility"`
	Innovation      float64 `json:"innovation"`
	Competitiveness float64 `json:"competitiveness"`
	ProfitPotential float64 `json:"profit_potential"`
}

type Report struct {
	IdeaSummary           string           `json:"idea_summary"`
	ExecutiveSummary      string           `json:"executive_summary"`
	CompetitorAnalysis    string           `json:"competitor_analysis,omitempty"`
	MarketSaturationScore *int             `json:"market_saturation_score,omitempty"`
	Personas              []PersonaResult  `json:"personas"`
	AggregateRatings      AggregateRatings `json:"aggregate_ratings"`
	// OverallScore is 0-100. Succeeded distinguishes a genuine zero from a
	// run where every persona failed.
	OverallScore  int `json:"overall_score"`
	Succeeded     int `json:"succeeded"`
	RemainingRuns int `json:"remaining_runs"`
}

// Analyze runs the full batch: entitlement check, parallel persona fan-out,
// aggregation, premium enrichment, executive summary, then the credit
// decrement. The decrement happens last and only when at least one persona
// succeeded, so a fully failed batch costs the user nothing.
func (a *Analyzer) Analyze(dbc dbctx.Context, rd *requestdata.RequestData, in Input) (*Report, error) {
	user, err := a.gate.Authorize(dbc, rd)
	if err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, apierr.MissingRequiredField("title")
	}
	if in.Description == "" {
		return nil, apierr.MissingRequiredField("description")
	}

	roster := a.set.BatchRoster(user.Premium)
	if len(roster) == 0 {
		return nil, apierr.NoServicesConfigured()
	}

	idea := &domain.Idea{
		Title:            in.Title,
		Description:      in.Description,
		TargetCustomer:   in.TargetCustomer,
		Problem:          in.Problem,
		Alternatives:     in.Alternatives,
		ValueProposition: in.ValueProposition,
	}
	brief := personas.IdeaBrief(idea)

	results := make([]PersonaResult, len(roster))
	g, gctx := errgroup.WithContext(dbc.Ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, p := range roster {
		i, p := i, p
		g.Go(func() error {
			results[i] = a.evaluatePersona(gctx, p, brief)
			return nil
		})
	}
	// Every persona settles into its slot; failures are markers, not errors.
	_ = g.Wait()

	agg, overall, succeeded := aggregate(results)

	report := &Report{
		IdeaSummary:      fmt.Sprintf("%s: %s", in.Title, in.Description),
		Personas:         results,
		AggregateRatings: agg,
		OverallScore:     overall,
		Succeeded:        succeeded,
	}

	if user.Premium {
		narrative, saturation, err := a.competitorInsight(dbc.Ctx, brief)
		if err != nil {
			a.log.Warn("competitor lookup failed, report continues without it", "error", err)
		} else {
			report.CompetitorAnalysis = narrative
			report.MarketSaturationScore = &saturation
		}
	}

	report.ExecutiveSummary = a.executiveSummary(dbc.Ctx, in, report, user.Premium)

	remaining := user.RemainingRuns
	if succeeded > 0 {
		if err := a.gate.Consume(dbc, user.ID); err != nil {
			return nil, err
		}
		remaining--
	} else {
		a.log.Warn("batch produced zero successes, credit not consumed", "personas", len(roster))
	}
	report.RemainingRuns = remaining

	a.log.Info("batch analysis complete",
		"personas", len(roster), "succeeded", succeeded, "overall", overall, "premium", user.Premium)
	return report, nil
}

func (a *Analyzer) evaluatePersona(ctx context.Context, p personas.Persona, brief string) PersonaResult {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	obj, err := a.ai.GenerateJSON(ctx, personas.BatchSystemPrompt(p), brief, "persona_rating", personas.PersonaRatingSchema())
	if err != nil {
		a.log.Warn("persona call failed", "persona", p.Name, "error", err)
		return PersonaResult{Persona: p.Name, Error: err.Error()}
	}
	res, ok := decodePersonaResult(p.Name, obj)
	if !ok {
		a.log.Warn("persona output failed schema decode", "persona", p.Name)
		return PersonaResult{Persona: p.Name, Error: "malformed structured output"}
	}
	return res
}

func decodePersonaResult(name string, obj map[string]any) (PersonaResult, bool) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return PersonaResult{}, false
	}
	var decoded struct {
		Ratings
		Opinion     string   `json:"opinion"`
		Likes       []string `json:"likes"`
		Dislikes    []string `json:"dislikes"`
		Suggestions []string `json:"suggestions"`
		Summary     string   `json:"summary"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return PersonaResult{}, false
	}
	for _, v := range []int{
		decoded.MarketPotential, decoded.Feasibility, decoded.Innovation,
		decoded.Competitiveness, decoded.ProfitPotential,
	} {
		if v < 1 || v > 10 {
			return PersonaResult{}, false
		}
	}
	r := decoded.Ratings
	return PersonaResult{
		Persona:     name,
		Ratings:     &r,
		Opinion:     decoded.Opinion,
		Likes:       decoded.Likes,
		Dislikes:    decoded.Dislikes,
		Suggestions: decoded.Suggestions,
		Summary:     decoded.Summary,
	}, true
}

// aggregate folds succeeding personas into per-dimension means and the 0-100
// overall score. The overall score is computed from the unrounded means so
// per-dimension rounding cannot skew it.
func aggregate(results []PersonaResult) (AggregateRatings, int, int) {
	var sums [5]float64
	succeeded := 0
	for _, r := range results {
		if r.Ratings == nil {
			continue
		}
		succeeded++
		sums[0] += float64(r.Ratings.MarketPotential)
		sums[1] += float64(r.Ratings.Feasibility)
		sums[2] += float64(r.Ratings.Innovation)
		sums[3] += float64(r.Ratings.Competitiveness)
		sums[4] += float64(r.Ratings.ProfitPotential)
	}
	if succeeded == 0 {
		return AggregateRatings{}, 0, 0
	}
	n := float64(succeeded)
	agg := AggregateRatings{
		MarketPotential: sums[0] / n,
		Feasibility:     sums[1] / n,
		Innovation:      sums[2] / n,
		Competitiveness: sums[3] / n,
		ProfitPotential: sums[4] / n,
	}
	total := agg.MarketPotential + agg.Feasibility + agg.Innovation + agg.Competitiveness + agg.ProfitPotential
	overall := int(math.Round(total / 50.0 * 100.0))
	return agg, overall, succeeded
}

// executiveSummary is best-effort: a failed completion degrades to a one-line
// summary built from the aggregate instead of failing the batch.
func (a *Analyzer) executiveSummary(ctx context.Context, in Input, report *Report, premium bool) string {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.CallTimeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Idea: %s\n%s\n\n", in.Title, in.Description)
	fmt.Fprintf(&b, "Overall score: %d/100 (%d of %d personas reporting)\n", report.OverallScore, report.Succeeded, len(report.Personas))
	fmt.Fprintf(&b, "Aggregate ratings: market %.1f, feasibility %.1f, innovation %.1f, competitiveness %.1f, profit %.1f\n\n",
		report.AggregateRatings.MarketPotential, report.AggregateRatings.Feasibility,
		report.AggregateRatings.Innovation, report.AggregateRatings.Competitiveness,
		report.AggregateRatings.ProfitPotential)
	for _, r := range report.Personas {
		if r.Error != "" {
			fmt.Fprintf(&b, "%s: unavailable\n", r.Persona)
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", r.Persona, r.Summary)
	}
	if report.CompetitorAnalysis != "" {
		fmt.Fprintf(&b, "\nCompetitor landscape:\n%s\n", report.CompetitorAnalysis)
	}
	if !premium {
		b.WriteString("\nKeep the summary to three sentences.")
	}

	text, err := a.ai.GenerateText(ctx, personas.ExecutiveSummarySystemPrompt, b.String())
	if err != nil {
		a.log.Warn("executive summary call failed, using fallback", "error", err)
		text = fmt.Sprintf("Scored %d/100 across %d personas.", report.OverallScore, report.Succeeded)
	}
	if !premium {
		text += "\n\nUpgrade to premium for the full persona panel and competitor analysis."
	}
	return text
}
