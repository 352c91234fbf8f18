package repos

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
)

type IdeaRepo interface {
	Create(dbc dbctx.Context, row *domain.Idea) (*domain.Idea, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Idea, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type ideaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdeaRepo(db *gorm.DB, log *logger.Logger) IdeaRepo {
	return &ideaRepo{db: db, log: log.With("repo", "IdeaRepo")}
}

func (r *ideaRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *ideaRepo) Create(dbc dbctx.Context, row *domain.Idea) (*domain.Idea, error) {
	if row == nil {
		return nil, fmt.Errorf("missing idea")
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *ideaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Idea, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing idea_id")
	}
	var row domain.Idea
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *ideaRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing idea_id")
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.Idea{}).Error
}
