package repos

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
)

type StageRepo interface {
	Create(dbc dbctx.Context, row *domain.Stage) (*domain.Stage, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Stage, error)
	GetByIdeaAndPersona(dbc dbctx.Context, ideaID uuid.UUID, persona string) (*domain.Stage, error)
	ListByIdea(dbc dbctx.Context, ideaID uuid.UUID) ([]*domain.Stage, error)
	// Complete writes summary, score and completed_at exactly once. Returns
	// false when the stage was already completed (no row matched).
	Complete(dbc dbctx.Context, id uuid.UUID, summary datatypes.JSON, score int, at time.Time) (bool, error)
	DeleteByIdea(dbc dbctx.Context, ideaID uuid.UUID) error
}

type stageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageRepo(db *gorm.DB, log *logger.Logger) StageRepo {
	return &stageRepo{db: db, log: log.With("repo", "StageRepo")}
}

func (r *stageRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *stageRepo) Create(dbc dbctx.Context, row *domain.Stage) (*domain.Stage, error) {
	if row == nil {
		return nil, fmt.Errorf("missing stage")
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *stageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Stage, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing stage_id")
	}
	var row domain.Stage
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

func (r *stageRepo) GetByIdeaAndPersona(dbc dbctx.Context, ideaID uuid.UUID, persona string) (*domain.Stage, error) {
	if ideaID == uuid.Nil {
		return nil, fmt.Errorf("missing idea_id")
	}
	if persona == "" {
		return nil, fmt.Errorf("missing persona")
	}
	var row domain.Stage
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("idea_id = ? AND persona = ?", ideaID, persona).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *stageRepo) ListByIdea(dbc dbctx.Context, ideaID uuid.UUID) ([]*domain.Stage, error) {
	if ideaID == uuid.Nil {
		return nil, fmt.Errorf("missing idea_id")
	}
	var out []*domain.Stage
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("idea_id = ?", ideaID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stageRepo) Complete(dbc dbctx.Context, id uuid.UUID, summary datatypes.JSON, score int, at time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, fmt.Errorf("missing stage_id")
	}
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Stage{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"summary":      summary,
			"score":        score,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *stageRepo) DeleteByIdea(dbc dbctx.Context, ideaID uuid.UUID) error {
	if ideaID == uuid.Nil {
		return fmt.Errorf("missing idea_id")
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Where("idea_id = ?", ideaID).
		Delete(&domain.Stage{}).Error
}
