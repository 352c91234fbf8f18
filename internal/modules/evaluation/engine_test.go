package evaluation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/personas"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
	"github.com/pitchpanel/pitchpanel-backend/internal/services"
)

type testEnv struct {
	engine   *Engine
	users    *fakeUserRepo
	ideas    *fakeIdeaRepo
	stages   *fakeStageRepo
	messages *fakeMessageRepo
	ai       *fakeAI
	rd       *requestdata.RequestData
	dbc      dbctx.Context
}

func newTestEnv(t *testing.T, cfg Config, ai *fakeAI) *testEnv {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	users := newFakeUserRepo()
	uid := uuid.New()
	users.users[uid] = &domain.User{ID: uid, Email: "founder@example.com", Verified: true, RemainingRuns: 5}

	stages := newFakeStageRepo()
	env := &testEnv{
		users:    users,
		ideas:    newFakeIdeaRepo(),
		stages:   stages,
		messages: newFakeMessageRepo(stages),
		ai:       ai,
		rd:       &requestdata.RequestData{UserID: uid, Verified: true},
		dbc:      dbctx.Context{Ctx: context.Background()},
	}
	env.engine = NewEngine(
		log, cfg, fakeTxRunner{}, ai, personas.DefaultSet(),
		services.NewEntitlementService(users, log),
		env.ideas, env.stages, env.messages,
	)
	return env
}

func (env *testEnv) submitIdea(t *testing.T) *domain.Idea {
	t.Helper()
	idea, err := env.engine.SubmitIdea(env.dbc, env.rd, SubmitIdeaInput{
		Title:       "Meal-kit vending",
		Description: "Refrigerated vending machines selling chef-designed meal kits",
	})
	if err != nil {
		t.Fatalf("SubmitIdea: %v", err)
	}
	return idea
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("want *apierr.Error with code %q, got %v", code, err)
	}
	if ae.Code != code {
		t.Fatalf("want code %q, got %q (err=%v)", code, ae.Code, err)
	}
}

func validSummaryObj() map[string]any {
	return map[string]any{
		"key_points":     []any{"strong demand signal"},
		"score":          float64(7),
		"blocking_risks": []any{},
	}
}

func TestSubmitIdeaConsumesCredit(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{})
	idea := env.submitIdea(t)

	if got := env.users.users[env.rd.UserID].RemainingRuns; got != 4 {
		t.Fatalf("remaining runs after submit = %d, want 4", got)
	}
	if stored, _ := env.ideas.GetByID(env.dbc, idea.ID); stored == nil {
		t.Fatal("idea was not persisted")
	}
}

func TestSubmitIdeaValidatesRequiredFields(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{})

	_, err := env.engine.SubmitIdea(env.dbc, env.rd, SubmitIdeaInput{Description: "no title"})
	wantCode(t, err, apierr.CodeMissingRequiredField)

	_, err = env.engine.SubmitIdea(env.dbc, env.rd, SubmitIdeaInput{Title: "no description"})
	wantCode(t, err, apierr.CodeMissingRequiredField)
}

func TestSubmitIdeaRejectsUnverifiedAndBroke(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{})
	in := SubmitIdeaInput{Title: "t", Description: "d"}

	env.users.users[env.rd.UserID].Verified = false
	_, err := env.engine.SubmitIdea(env.dbc, env.rd, in)
	wantCode(t, err, apierr.CodeUnverified)

	env.users.users[env.rd.UserID].Verified = true
	env.users.users[env.rd.UserID].RemainingRuns = 0
	_, err = env.engine.SubmitIdea(env.dbc, env.rd, in)
	wantCode(t, err, apierr.CodeNoCreditsRemaining)

	_, err = env.engine.SubmitIdea(env.dbc, nil, in)
	wantCode(t, err, apierr.CodeUnauthenticated)
}

func TestStartStageEnforcesPipelineOrder(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{})
	idea := env.submitIdea(t)

	_, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaDesigner)
	wantCode(t, err, apierr.CodeOutOfOrderStage)

	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage customer: %v", err)
	}

	// Customer started but not completed still blocks the designer.
	_, err = env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaDesigner)
	wantCode(t, err, apierr.CodeOutOfOrderStage)
}

func TestStartStageResumesExistingSession(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{streamReplies: []string{"tell me more"}})
	idea := env.submitIdea(t)

	first, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	if err != nil {
		t.Fatalf("StartStage: %v", err)
	}
	if first.Resumed {
		t.Fatal("first StartStage reported Resumed")
	}

	if _, err := env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "hi", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	second, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	if err != nil {
		t.Fatalf("StartStage resume: %v", err)
	}
	if !second.Resumed {
		t.Fatal("second StartStage did not report Resumed")
	}
	if second.Stage.ID != first.Stage.ID {
		t.Fatal("resume created a new stage row")
	}
	if len(second.Messages) != 2 {
		t.Fatalf("resumed session has %d messages, want 2", len(second.Messages))
	}
}

func TestStartStageHidesForeignIdeas(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{})
	idea := env.submitIdea(t)

	other := uuid.New()
	env.users.users[other] = &domain.User{ID: other, Verified: true, RemainingRuns: 1}
	stranger := &requestdata.RequestData{UserID: other, Verified: true}

	_, err := env.engine.StartStage(env.dbc, stranger, idea.ID, domain.PersonaCustomer)
	wantCode(t, err, apierr.CodeNotFound)
}

func TestSendMessageStreamsAndPersistsTurn(t *testing.T) {
	reply := "What would make you pay for this today?"
	env := newTestEnv(t, DefaultConfig(), &fakeAI{streamReplies: []string{reply}})
	idea := env.submitIdea(t)
	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage: %v", err)
	}

	var sink strings.Builder
	res, err := env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "it saves time", func(d string) {
		sink.WriteString(d)
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if sink.String() != reply {
		t.Fatalf("sink got %q, want %q", sink.String(), reply)
	}
	if res.EvaluatorMessage == nil || res.EvaluatorMessage.Content != reply {
		t.Fatalf("evaluator message = %+v, want content %q", res.EvaluatorMessage, reply)
	}
	if res.Completable {
		t.Fatal("plain reply marked completable")
	}
	n, _ := env.messages.CountByStageAndRole(env.dbc, res.EvaluatorMessage.StageID, domain.MessageRoleEvaluator)
	if n != 1 {
		t.Fatalf("persisted %d evaluator messages, want 1", n)
	}
}

func TestSendMessageStreamFailurePersistsNoReply(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{streamErr: errors.New("upstream reset")})
	idea := env.submitIdea(t)
	sess, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	if err != nil {
		t.Fatalf("StartStage: %v", err)
	}

	_, err = env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "hello", nil)
	wantCode(t, err, apierr.CodeUpstreamModelFailure)

	n, _ := env.messages.CountByStageAndRole(env.dbc, sess.Stage.ID, domain.MessageRoleEvaluator)
	if n != 0 {
		t.Fatalf("stream failure persisted %d evaluator messages, want 0", n)
	}
}

func TestSendMessageDetectsCompletionMarker(t *testing.T) {
	reply := `I'm convinced. {"stage_complete": true, "score": 8, "takeaways": ["clear pain point"]}`
	env := newTestEnv(t, DefaultConfig(), &fakeAI{streamReplies: []string{reply}})
	idea := env.submitIdea(t)
	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage: %v", err)
	}

	res, err := env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "pitch", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !res.Completable || res.Marker == nil {
		t.Fatalf("marker not detected: %+v", res)
	}
	if res.Marker.Score != 8 {
		t.Fatalf("marker score = %d, want 8", res.Marker.Score)
	}
}

func TestSendMessageAutoFinishesAtTurnBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEvaluatorTurns = 2
	ai := &fakeAI{streamReplies: []string{"first probe", "second probe"}, jsonObj: validSummaryObj()}
	env := newTestEnv(t, cfg, ai)
	idea := env.submitIdea(t)
	sess, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	if err != nil {
		t.Fatalf("StartStage: %v", err)
	}

	first, err := env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "turn one", nil)
	if err != nil {
		t.Fatalf("SendMessage 1: %v", err)
	}
	if first.AutoFinish != nil {
		t.Fatal("auto-finished before the turn bound")
	}

	second, err := env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "turn two", nil)
	if err != nil {
		t.Fatalf("SendMessage 2: %v", err)
	}
	if second.AutoFinish == nil {
		t.Fatal("turn bound reached but stage not auto-finished")
	}
	if second.AutoFinish.Score != 7 {
		t.Fatalf("auto-finish score = %d, want 7", second.AutoFinish.Score)
	}
	st, _ := env.stages.GetByID(env.dbc, sess.Stage.ID)
	if !st.Completed() {
		t.Fatal("stage not marked completed after auto-finish")
	}
}

func TestFinishStageIsWriteOnce(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{jsonObj: validSummaryObj()})
	idea := env.submitIdea(t)
	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage: %v", err)
	}

	fin, err := env.engine.FinishStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	if err != nil {
		t.Fatalf("FinishStage: %v", err)
	}
	if fin.Score != 7 {
		t.Fatalf("score = %d, want 7", fin.Score)
	}
	if fin.NextStage == nil || *fin.NextStage != domain.PersonaDesigner {
		t.Fatalf("next stage = %v, want designer", fin.NextStage)
	}

	_, err = env.engine.FinishStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	wantCode(t, err, apierr.CodeStageAlreadyComplete)

	_, err = env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "late", nil)
	wantCode(t, err, apierr.CodeStageAlreadyComplete)
}

func TestFinishStageFallsBackOnBadSummary(t *testing.T) {
	// Out-of-range score violates the schema contract; the stage still
	// completes with a zero score wrapping the raw output.
	env := newTestEnv(t, DefaultConfig(), &fakeAI{jsonObj: map[string]any{
		"key_points":     []any{"x"},
		"score":          float64(42),
		"blocking_risks": []any{},
	}})
	idea := env.submitIdea(t)
	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage: %v", err)
	}

	fin, err := env.engine.FinishStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	if err != nil {
		t.Fatalf("FinishStage: %v", err)
	}
	if fin.Score != 0 {
		t.Fatalf("fallback score = %d, want 0", fin.Score)
	}
	if len(fin.Summary.KeyPoints) != 1 || !strings.Contains(fin.Summary.KeyPoints[0], "42") {
		t.Fatalf("fallback key points = %v, want raw output", fin.Summary.KeyPoints)
	}
}

func TestFinishStageFallsBackOnModelError(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{jsonErr: errors.New("503 from upstream")})
	idea := env.submitIdea(t)
	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage: %v", err)
	}

	fin, err := env.engine.FinishStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer)
	if err != nil {
		t.Fatalf("FinishStage: %v", err)
	}
	if fin.Score != 0 {
		t.Fatalf("fallback score = %d, want 0", fin.Score)
	}
	if !strings.Contains(fin.Summary.KeyPoints[0], "503") {
		t.Fatalf("fallback key points = %v, want upstream error text", fin.Summary.KeyPoints)
	}
}

func TestGetProgressAggregatesCompletedStages(t *testing.T) {
	ai := &fakeAI{jsonObj: validSummaryObj()}
	env := newTestEnv(t, DefaultConfig(), ai)
	idea := env.submitIdea(t)

	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage customer: %v", err)
	}
	if _, err := env.engine.FinishStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("FinishStage customer: %v", err)
	}

	ai.jsonObj = map[string]any{"key_points": []any{"y"}, "score": float64(8), "blocking_risks": []any{}}
	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaDesigner); err != nil {
		t.Fatalf("StartStage designer: %v", err)
	}
	if _, err := env.engine.FinishStage(env.dbc, env.rd, idea.ID, domain.PersonaDesigner); err != nil {
		t.Fatalf("FinishStage designer: %v", err)
	}

	p, err := env.engine.GetProgress(env.dbc, env.rd, idea.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p.CompletedStages != 2 || p.TotalStages != 4 {
		t.Fatalf("completed/total = %d/%d, want 2/4", p.CompletedStages, p.TotalStages)
	}
	if p.NextStage == nil || *p.NextStage != domain.PersonaMarketer {
		t.Fatalf("next stage = %v, want marketer", p.NextStage)
	}
	// Scores 7 and 8 average to 7.5, rounded up.
	if p.AggregateScore == nil || *p.AggregateScore != 8 {
		t.Fatalf("aggregate score = %v, want 8", p.AggregateScore)
	}
}

func TestDeleteIdeaCascades(t *testing.T) {
	env := newTestEnv(t, DefaultConfig(), &fakeAI{streamReplies: []string{"noted"}})
	idea := env.submitIdea(t)
	if _, err := env.engine.StartStage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer); err != nil {
		t.Fatalf("StartStage: %v", err)
	}
	if _, err := env.engine.SendMessage(env.dbc, env.rd, idea.ID, domain.PersonaCustomer, "hi", nil); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if err := env.engine.DeleteIdea(env.dbc, env.rd, idea.ID); err != nil {
		t.Fatalf("DeleteIdea: %v", err)
	}
	if n, _ := env.messages.CountByIdea(env.dbc, idea.ID); n != 0 {
		t.Fatalf("%d messages survived deletion", n)
	}
	if sts, _ := env.stages.ListByIdea(env.dbc, idea.ID); len(sts) != 0 {
		t.Fatalf("%d stages survived deletion", len(sts))
	}
	if row, _ := env.ideas.GetByID(env.dbc, idea.ID); row != nil {
		t.Fatal("idea row survived deletion")
	}
}
