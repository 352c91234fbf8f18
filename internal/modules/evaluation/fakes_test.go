package evaluation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
)

type fakeTxRunner struct{}

func (fakeTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (r *fakeUserRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.User, error) {
	return r.users[id], nil
}

func (r *fakeUserRepo) ConsumeRun(_ dbctx.Context, id uuid.UUID) (bool, error) {
	u := r.users[id]
	if u == nil || u.RemainingRuns <= 0 {
		return false, nil
	}
	u.RemainingRuns--
	return true, nil
}

type fakeIdeaRepo struct {
	ideas map[uuid.UUID]*domain.Idea
}

func newFakeIdeaRepo() *fakeIdeaRepo {
	return &fakeIdeaRepo{ideas: map[uuid.UUID]*domain.Idea{}}
}

func (r *fakeIdeaRepo) Create(_ dbctx.Context, row *domain.Idea) (*domain.Idea, error) {
	r.ideas[row.ID] = row
	return row, nil
}

func (r *fakeIdeaRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Idea, error) {
	return r.ideas[id], nil
}

func (r *fakeIdeaRepo) Delete(_ dbctx.Context, id uuid.UUID) error {
	delete(r.ideas, id)
	return nil
}

type fakeStageRepo struct {
	stages map[uuid.UUID]*domain.Stage
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{stages: map[uuid.UUID]*domain.Stage{}}
}

func (r *fakeStageRepo) Create(_ dbctx.Context, row *domain.Stage) (*domain.Stage, error) {
	row.CreatedAt = time.Now().UTC()
	r.stages[row.ID] = row
	return row, nil
}

func (r *fakeStageRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Stage, error) {
	return r.stages[id], nil
}

func (r *fakeStageRepo) GetByIdeaAndPersona(_ dbctx.Context, ideaID uuid.UUID, persona string) (*domain.Stage, error) {
	for _, st := range r.stages {
		if st.IdeaID == ideaID && st.Persona == persona {
			return st, nil
		}
	}
	return nil, nil
}

func (r *fakeStageRepo) ListByIdea(_ dbctx.Context, ideaID uuid.UUID) ([]*domain.Stage, error) {
	var out []*domain.Stage
	for _, persona := range domain.StageOrder {
		for _, st := range r.stages {
			if st.IdeaID == ideaID && st.Persona == persona {
				out = append(out, st)
			}
		}
	}
	return out, nil
}

func (r *fakeStageRepo) Complete(_ dbctx.Context, id uuid.UUID, summary datatypes.JSON, score int, at time.Time) (bool, error) {
	st := r.stages[id]
	if st == nil {
		return false, errors.New("stage not found")
	}
	if st.CompletedAt != nil {
		return false, nil
	}
	st.Summary = summary
	st.Score = &score
	st.CompletedAt = &at
	return true, nil
}

func (r *fakeStageRepo) DeleteByIdea(_ dbctx.Context, ideaID uuid.UUID) error {
	for id, st := range r.stages {
		if st.IdeaID == ideaID {
			delete(r.stages, id)
		}
	}
	return nil
}

type fakeMessageRepo struct {
	stages   *fakeStageRepo
	messages []*domain.Message
}

func newFakeMessageRepo(stages *fakeStageRepo) *fakeMessageRepo {
	return &fakeMessageRepo{stages: stages}
}

func (r *fakeMessageRepo) Create(_ dbctx.Context, row *domain.Message) (*domain.Message, error) {
	row.CreatedAt = time.Now().UTC()
	r.messages = append(r.messages, row)
	return row, nil
}

func (r *fakeMessageRepo) ListByStage(_ dbctx.Context, stageID uuid.UUID) ([]*domain.Message, error) {
	var out []*domain.Message
	for _, m := range r.messages {
		if m.StageID == stageID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) CountByStageAndRole(_ dbctx.Context, stageID uuid.UUID, role string) (int64, error) {
	var n int64
	for _, m := range r.messages {
		if m.StageID == stageID && m.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *fakeMessageRepo) DeleteByIdea(dbc dbctx.Context, ideaID uuid.UUID) error {
	kept := r.messages[:0]
	for _, m := range r.messages {
		st, _ := r.stages.GetByID(dbc, m.StageID)
		if st == nil || st.IdeaID != ideaID {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

func (r *fakeMessageRepo) CountByIdea(dbc dbctx.Context, ideaID uuid.UUID) (int64, error) {
	var n int64
	for _, m := range r.messages {
		st, _ := r.stages.GetByID(dbc, m.StageID)
		if st != nil && st.IdeaID == ideaID {
			n++
		}
	}
	return n, nil
}

// fakeAI scripts gateway behavior per test.
type fakeAI struct {
	streamReplies []string
	streamErr     error
	streamCalls   int

	jsonObj   map[string]any
	jsonErr   error
	jsonCalls int

	textReply string
	textErr   error

	searchReply string
	searchErr   error
}

func (f *fakeAI) GenerateText(_ context.Context, _, _ string) (string, error) {
	return f.textReply, f.textErr
}

func (f *fakeAI) GenerateTextWithSearch(_ context.Context, _, _ string) (string, error) {
	return f.searchReply, f.searchErr
}

func (f *fakeAI) GenerateJSON(_ context.Context, _, _, _ string, _ map[string]any) (map[string]any, error) {
	f.jsonCalls++
	return f.jsonObj, f.jsonErr
}

func (f *fakeAI) StreamText(_ context.Context, _, _ string, onDelta func(string)) (string, error) {
	if f.streamErr != nil {
		// Simulate a mid-stream failure: some deltas already left.
		if onDelta != nil {
			onDelta("partial ")
		}
		return "", f.streamErr
	}
	reply := "ok"
	if f.streamCalls < len(f.streamReplies) {
		reply = f.streamReplies[f.streamCalls]
	} else if len(f.streamReplies) > 0 {
		reply = f.streamReplies[len(f.streamReplies)-1]
	}
	f.streamCalls++
	if onDelta != nil {
		for _, r := range []rune(reply) {
			onDelta(string(r))
		}
	}
	return reply, nil
}
