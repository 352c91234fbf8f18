package evaluation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/personas"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
)

type StageSession struct {
	Stage    *domain.Stage     `json:"stage"`
	Messages []*domain.Message `json:"messages"`
	Resumed  bool              `json:"resumed"`
}

// StartStage activates the (idea, persona) stage, or resumes it when one
// already exists: the existing row and its messages come back unchanged, so a
// crashed client re-requesting a stage never duplicates it.
func (e *Engine) StartStage(dbc dbctx.Context, rd *requestdata.RequestData, ideaID uuid.UUID, persona string) (*StageSession, error) {
	if _, err := e.ownedIdea(dbc, rd, ideaID); err != nil {
		return nil, err
	}
	if _, ok := e.set.SequentialByName(persona); !ok {
		return nil, apierr.NotFound("persona")
	}

	if err := e.requireInOrder(dbc, ideaID, persona); err != nil {
		return nil, err
	}

	existing, err := e.stages.GetByIdeaAndPersona(dbc, ideaID, persona)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		msgs, err := e.messages.ListByStage(dbc, existing.ID)
		if err != nil {
			return nil, err
		}
		return &StageSession{Stage: existing, Messages: msgs, Resumed: true}, nil
	}

	created, err := e.stages.Create(dbc, &domain.Stage{
		ID:      uuid.New(),
		IdeaID:  ideaID,
		Persona: persona,
	})
	if err != nil {
		return nil, err
	}
	return &StageSession{Stage: created, Messages: []*domain.Message{}}, nil
}

// requireInOrder rejects activation of a stage whose predecessors are not all
// completed. Out-of-order requests are caller errors, never reordered.
func (e *Engine) requireInOrder(dbc dbctx.Context, ideaID uuid.UUID, persona string) error {
	for _, prior := range domain.StageOrder {
		if prior == persona {
			return nil
		}
		st, err := e.stages.GetByIdeaAndPersona(dbc, ideaID, prior)
		if err != nil {
			return err
		}
		if !st.Completed() {
			return apierr.OutOfOrderStage(persona, prior)
		}
	}
	return apierr.NotFound("persona")
}

type TurnResult struct {
	UserMessage      *domain.Message `json:"user_message"`
	EvaluatorMessage *domain.Message `json:"evaluator_message"`
	// Completable is set when the evaluator embedded a completion marker in
	// its reply; the stage may be finished without further turns.
	Completable bool          `json:"completable"`
	Marker      *StageMarker  `json:"marker,omitempty"`
	AutoFinish  *FinishResult `json:"auto_finish,omitempty"`
}

// SendMessage runs one conversation turn: append the user message, stream the
// evaluator reply, then persist it. The stream feeds two consumers from one
// delta source: the caller's sink and the persistence buffer. The evaluator
// message is written only after the stream fully drains; a mid-stream failure
// persists nothing.
//
// Callers must serialize SendMessage per stage; concurrent turns on one stage
// may interleave message order.
func (e *Engine) SendMessage(dbc dbctx.Context, rd *requestdata.RequestData, ideaID uuid.UUID, persona string, content string, onDelta func(delta string)) (*TurnResult, error) {
	idea, err := e.ownedIdea(dbc, rd, ideaID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, apierr.MissingRequiredField("content")
	}
	p, ok := e.set.SequentialByName(persona)
	if !ok {
		return nil, apierr.NotFound("persona")
	}
	stage, err := e.stages.GetByIdeaAndPersona(dbc, ideaID, persona)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, apierr.NotFound("stage")
	}
	if stage.Completed() {
		return nil, apierr.StageAlreadyCompleted(persona)
	}

	userMsg, err := e.messages.Create(dbc, &domain.Message{
		ID:      uuid.New(),
		StageID: stage.ID,
		Role:    domain.MessageRoleUser,
		Content: content,
	})
	if err != nil {
		return nil, err
	}

	history, err := e.messages.ListByStage(dbc, stage.ID)
	if err != nil {
		return nil, err
	}

	system := personas.StageSystemPrompt(p, idea, e.cfg.MaxExchanges)
	var buffered strings.Builder
	reply, err := e.ai.StreamText(dbc.Ctx, system, personas.Transcript(history), func(delta string) {
		buffered.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	})
	if err != nil {
		e.log.Warn("evaluator stream failed", "stage_id", stage.ID, "persona", persona, "error", err)
		return nil, apierr.New(502, apierr.CodeUpstreamModelFailure, err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = buffered.String()
	}

	evalMsg, err := e.messages.Create(dbc, &domain.Message{
		ID:      uuid.New(),
		StageID: stage.ID,
		Role:    domain.MessageRoleEvaluator,
		Content: reply,
	})
	if err != nil {
		return nil, err
	}

	out := &TurnResult{UserMessage: userMsg, EvaluatorMessage: evalMsg}
	if marker, ok := ExtractStageMarker(reply); ok {
		out.Completable = true
		out.Marker = marker
	}

	turns, err := e.messages.CountByStageAndRole(dbc, stage.ID, domain.MessageRoleEvaluator)
	if err != nil {
		return nil, err
	}
	if int(turns) >= e.cfg.MaxEvaluatorTurns {
		fin, err := e.FinishStage(dbc, rd, ideaID, persona)
		if err != nil {
			return nil, err
		}
		out.AutoFinish = fin
	}
	return out, nil
}

type FinishResult struct {
	Stage     *domain.Stage        `json:"stage"`
	Summary   *domain.StageSummary `json:"summary"`
	Score     int                  `json:"score"`
	NextStage *string              `json:"next_stage"`
}

// FinishStage summarizes the stage's history with one structured completion
// and writes summary, score and completion timestamp exactly once. Malformed
// structured output degrades to a zero score wrapping the raw text; a second
// finish is an error, not a silent no-op.
func (e *Engine) FinishStage(dbc dbctx.Context, rd *requestdata.RequestData, ideaID uuid.UUID, persona string) (*FinishResult, error) {
	if _, err := e.ownedIdea(dbc, rd, ideaID); err != nil {
		return nil, err
	}
	p, ok := e.set.SequentialByName(persona)
	if !ok {
		return nil, apierr.NotFound("persona")
	}
	stage, err := e.stages.GetByIdeaAndPersona(dbc, ideaID, persona)
	if err != nil {
		return nil, err
	}
	if stage == nil {
		return nil, apierr.NotFound("stage")
	}
	if stage.Completed() {
		return nil, apierr.StageAlreadyCompleted(persona)
	}

	history, err := e.messages.ListByStage(dbc, stage.ID)
	if err != nil {
		return nil, err
	}

	summary := e.summarize(dbc, p, history)

	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	applied, err := e.stages.Complete(dbc, stage.ID, datatypes.JSON(raw), summary.Score, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, apierr.StageAlreadyCompleted(persona)
	}

	stage.Summary = datatypes.JSON(raw)
	stage.Score = &summary.Score
	stage.CompletedAt = &now

	return &FinishResult{
		Stage:     stage,
		Summary:   summary,
		Score:     summary.Score,
		NextStage: nextPersonaAfter(persona),
	}, nil
}

// summarize runs the structured summary call and never fails: any transport
// error or schema violation falls back to score 0 with the raw text (or error
// text) as the single key point.
func (e *Engine) summarize(dbc dbctx.Context, p personas.Persona, history []*domain.Message) *domain.StageSummary {
	system := personas.StageFinishSystemPrompt(p)
	obj, err := e.ai.GenerateJSON(dbc.Ctx, system, personas.Transcript(history), "stage_summary", personas.StageSummarySchema())
	if err != nil {
		e.log.Warn("stage summary call failed, using fallback", "persona", p.Name, "error", err)
		return &domain.StageSummary{Score: 0, KeyPoints: []string{err.Error()}, BlockingRisks: []string{}}
	}

	summary, ok := decodeStageSummary(obj)
	if !ok {
		raw, _ := json.Marshal(obj)
		e.log.Warn("stage summary failed schema decode, using fallback", "persona", p.Name)
		return &domain.StageSummary{Score: 0, KeyPoints: []string{string(raw)}, BlockingRisks: []string{}}
	}
	return summary
}

func decodeStageSummary(obj map[string]any) (*domain.StageSummary, bool) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, false
	}
	var s domain.StageSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	if s.Score < 0 || s.Score > 10 {
		return nil, false
	}
	if s.KeyPoints == nil {
		s.KeyPoints = []string{}
	}
	if s.BlockingRisks == nil {
		s.BlockingRisks = []string{}
	}
	return &s, true
}
