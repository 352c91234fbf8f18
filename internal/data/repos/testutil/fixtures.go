package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, runs int) *domain.User {
	tb.Helper()
	u := &domain.User{
		ID:            uuid.New(),
		Email:         email,
		Verified:      true,
		RemainingRuns: runs,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedIdea(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID) *domain.Idea {
	tb.Helper()
	idea := &domain.Idea{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       "idea",
		Description: "an idea under evaluation",
	}
	if err := tx.WithContext(ctx).Create(idea).Error; err != nil {
		tb.Fatalf("seed idea: %v", err)
	}
	return idea
}

func SeedStage(tb testing.TB, ctx context.Context, tx *gorm.DB, ideaID uuid.UUID, persona string) *domain.Stage {
	tb.Helper()
	st := &domain.Stage{
		ID:      uuid.New(),
		IdeaID:  ideaID,
		Persona: persona,
	}
	if err := tx.WithContext(ctx).Create(st).Error; err != nil {
		tb.Fatalf("seed stage: %v", err)
	}
	return st
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, stageID uuid.UUID, role, content string) *domain.Message {
	tb.Helper()
	m := &domain.Message{
		ID:      uuid.New(),
		StageID: stageID,
		Role:    role,
		Content: content,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}
