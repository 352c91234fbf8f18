package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/pitchpanel/pitchpanel-backend/internal/data/repos/testutil"
	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
)

func TestUserRepo_ConsumeRun(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	u := testutil.SeedUser(t, ctx, tx, "consume@example.com", 1)

	repo := NewUserRepo(gdb, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	ok, err := repo.ConsumeRun(dbc, u.ID)
	if err != nil {
		t.Fatalf("ConsumeRun: %v", err)
	}
	if !ok {
		t.Fatalf("expected first decrement to succeed")
	}

	ok, err = repo.ConsumeRun(dbc, u.ID)
	if err != nil {
		t.Fatalf("ConsumeRun: %v", err)
	}
	if ok {
		t.Fatalf("expected decrement with zero credits to fail")
	}

	var got domain.User
	if err := tx.WithContext(ctx).Where("id = ?", u.ID).First(&got).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if got.RemainingRuns != 0 {
		t.Fatalf("remaining_runs went negative: %d", got.RemainingRuns)
	}
}

func TestStageRepo_CompleteIsWriteOnce(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	u := testutil.SeedUser(t, ctx, tx, "stage@example.com", 1)
	idea := testutil.SeedIdea(t, ctx, tx, u.ID)
	st := testutil.SeedStage(t, ctx, tx, idea.ID, domain.PersonaCustomer)

	repo := NewStageRepo(gdb, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	now := time.Now().UTC()
	ok, err := repo.Complete(dbc, st.ID, datatypes.JSON([]byte(`{"key_points":["a"],"score":7,"blocking_risks":[]}`)), 7, now)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !ok {
		t.Fatalf("expected first completion to apply")
	}

	ok, err = repo.Complete(dbc, st.ID, datatypes.JSON([]byte(`{"score":9}`)), 9, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Complete (second): %v", err)
	}
	if ok {
		t.Fatalf("expected second completion to be rejected")
	}

	got, err := repo.GetByID(dbc, st.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Score == nil || *got.Score != 7 {
		t.Fatalf("first completion was overwritten: %+v", got)
	}
}

func TestMessageRepo_DeleteByIdeaRemovesAll(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	u := testutil.SeedUser(t, ctx, tx, "delete@example.com", 1)
	idea := testutil.SeedIdea(t, ctx, tx, u.ID)
	s1 := testutil.SeedStage(t, ctx, tx, idea.ID, domain.PersonaCustomer)
	s2 := testutil.SeedStage(t, ctx, tx, idea.ID, domain.PersonaDesigner)
	testutil.SeedMessage(t, ctx, tx, s1.ID, domain.MessageRoleUser, "hi")
	testutil.SeedMessage(t, ctx, tx, s1.ID, domain.MessageRoleEvaluator, "hello")
	testutil.SeedMessage(t, ctx, tx, s2.ID, domain.MessageRoleUser, "next")

	repo := NewMessageRepo(gdb, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	if err := repo.DeleteByIdea(dbc, idea.ID); err != nil {
		t.Fatalf("DeleteByIdea: %v", err)
	}

	n, err := repo.CountByIdea(dbc, idea.ID)
	if err != nil {
		t.Fatalf("CountByIdea: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected zero messages after cascade delete, got %d", n)
	}
}

func TestMessageRepo_ListByStageOrdersByCreation(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()

	u := testutil.SeedUser(t, ctx, tx, "order@example.com", 1)
	idea := testutil.SeedIdea(t, ctx, tx, u.ID)
	st := testutil.SeedStage(t, ctx, tx, idea.ID, domain.PersonaCustomer)

	repo := NewMessageRepo(gdb, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	for _, content := range []string{"one", "two", "three"} {
		if _, err := repo.Create(dbc, &domain.Message{
			ID:      uuid.New(),
			StageID: st.ID,
			Role:    domain.MessageRoleUser,
			Content: content,
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	msgs, err := repo.ListByStage(dbc, st.ID)
	if err != nil {
		t.Fatalf("ListByStage: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "one" || msgs[2].Content != "three" {
		t.Fatalf("messages out of order: %q, %q, %q", msgs[0].Content, msgs[1].Content, msgs[2].Content)
	}
}
