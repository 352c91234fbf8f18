package evaluation

import (
	"math"

	"github.com/google/uuid"

	"github.com/pitchpanel/pitchpanel-backend/internal/data/repos"
	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/personas"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/openai"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
	"github.com/pitchpanel/pitchpanel-backend/internal/services"
)

type Config struct {
	// MaxEvaluatorTurns is the engine-enforced turn bound: once the evaluator
	// has replied this many times the stage is finished automatically.
	MaxEvaluatorTurns int
	// MaxExchanges is what the persona prompt asks the model to respect; the
	// embedded completion marker is a best-effort early exit below the hard
	// bound above.
	MaxExchanges int
}

func DefaultConfig() Config {
	return Config{MaxEvaluatorTurns: 3, MaxExchanges: 6}
}

// Engine owns the sequential idea pipeline: idea submission, the per-persona
// stage state machine, aggregation and transactional deletion.
type Engine struct {
	log  *logger.Logger
	cfg  Config
	txr  dbctx.TxRunner
	ai   openai.Client
	set  personas.Set
	gate services.EntitlementService

	ideas    repos.IdeaRepo
	stages   repos.StageRepo
	messages repos.MessageRepo
}

func NewEngine(
	log *logger.Logger,
	cfg Config,
	txr dbctx.TxRunner,
	ai openai.Client,
	set personas.Set,
	gate services.EntitlementService,
	ideas repos.IdeaRepo,
	stages repos.StageRepo,
	messages repos.MessageRepo,
) *Engine {
	if cfg.MaxEvaluatorTurns <= 0 {
		cfg.MaxEvaluatorTurns = DefaultConfig().MaxEvaluatorTurns
	}
	if cfg.MaxExchanges <= 0 {
		cfg.MaxExchanges = DefaultConfig().MaxExchanges
	}
	return &Engine{
		log:      log.With("module", "EvaluationEngine"),
		cfg:      cfg,
		txr:      txr,
		ai:       ai,
		set:      set,
		gate:     gate,
		ideas:    ideas,
		stages:   stages,
		messages: messages,
	}
}

type SubmitIdeaInput struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	TargetCustomer   string `json:"target_customer"`
	Problem          string `json:"problem"`
	Alternatives     string `json:"alternatives"`
	ValueProposition string `json:"value_proposition"`
}

// SubmitIdea creates an Idea and consumes one run credit, both in one
// transaction so a lost credit race rolls back the row.
func (e *Engine) SubmitIdea(dbc dbctx.Context, rd *requestdata.RequestData, in SubmitIdeaInput) (*domain.Idea, error) {
	user, err := e.gate.Authorize(dbc, rd)
	if err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, apierr.MissingRequiredField("title")
	}
	if in.Description == "" {
		return nil, apierr.MissingRequiredField("description")
	}

	var idea *domain.Idea
	err = e.txr.InTx(dbc.Ctx, func(txc dbctx.Context) error {
		row := &domain.Idea{
			ID:               uuid.New(),
			UserID:           user.ID,
			Title:            in.Title,
			Description:      in.Description,
			TargetCustomer:   in.TargetCustomer,
			Problem:          in.Problem,
			Alternatives:     in.Alternatives,
			ValueProposition: in.ValueProposition,
		}
		created, err := e.ideas.Create(txc, row)
		if err != nil {
			return err
		}
		if err := e.gate.Consume(txc, user.ID); err != nil {
			return err
		}
		idea = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idea, nil
}

// ownedIdea loads an idea and verifies ownership. Non-owners get not_found so
// idea ids are not probeable.
func (e *Engine) ownedIdea(dbc dbctx.Context, rd *requestdata.RequestData, ideaID uuid.UUID) (*domain.Idea, error) {
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthenticated(nil)
	}
	idea, err := e.ideas.GetByID(dbc, ideaID)
	if err != nil {
		return nil, err
	}
	if idea == nil || idea.UserID != rd.UserID {
		return nil, apierr.NotFound("idea")
	}
	return idea, nil
}

type Progress struct {
	Idea            *domain.Idea    `json:"idea"`
	Stages          []*domain.Stage `json:"stages"`
	NextStage       *string         `json:"next_stage"`
	CompletedStages int             `json:"completed_stages"`
	TotalStages     int             `json:"total_stages"`
	// AggregateScore is the rounded mean over completed stages only; it is
	// meaningful as a final verdict only when CompletedStages == TotalStages.
	AggregateScore *int `json:"aggregate_score"`
}

// GetProgress reports per-stage state and the running aggregate.
func (e *Engine) GetProgress(dbc dbctx.Context, rd *requestdata.RequestData, ideaID uuid.UUID) (*Progress, error) {
	idea, err := e.ownedIdea(dbc, rd, ideaID)
	if err != nil {
		return nil, err
	}
	stages, err := e.stages.ListByIdea(dbc, ideaID)
	if err != nil {
		return nil, err
	}

	byPersona := map[string]*domain.Stage{}
	for _, st := range stages {
		byPersona[st.Persona] = st
	}

	out := &Progress{Idea: idea, Stages: stages, TotalStages: len(domain.StageOrder)}
	sum := 0
	for _, persona := range domain.StageOrder {
		st := byPersona[persona]
		if st.Completed() {
			out.CompletedStages++
			if st.Score != nil {
				sum += *st.Score
			}
			continue
		}
		if out.NextStage == nil {
			p := persona
			out.NextStage = &p
		}
	}
	if out.CompletedStages > 0 {
		avg := int(math.Round(float64(sum) / float64(out.CompletedStages)))
		out.AggregateScore = &avg
	}
	return out, nil
}

// DeleteIdea removes the idea and everything under it in one transaction:
// messages first, then stages, then the idea row. Partial deletion would
// orphan messages, so any failure rolls the whole cascade back.
func (e *Engine) DeleteIdea(dbc dbctx.Context, rd *requestdata.RequestData, ideaID uuid.UUID) error {
	if _, err := e.ownedIdea(dbc, rd, ideaID); err != nil {
		return err
	}
	return e.txr.InTx(dbc.Ctx, func(txc dbctx.Context) error {
		if err := e.messages.DeleteByIdea(txc, ideaID); err != nil {
			return err
		}
		if err := e.stages.DeleteByIdea(txc, ideaID); err != nil {
			return err
		}
		return e.ideas.Delete(txc, ideaID)
	})
}

// nextPersonaAfter returns the next stage name in pipeline order, or nil when
// persona is the last stage.
func nextPersonaAfter(persona string) *string {
	for i, name := range domain.StageOrder {
		if name == persona && i+1 < len(domain.StageOrder) {
			next := domain.StageOrder[i+1]
			return &next
		}
	}
	return nil
}
