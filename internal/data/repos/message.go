package repos

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, row *domain.Message) (*domain.Message, error)
	ListByStage(dbc dbctx.Context, stageID uuid.UUID) ([]*domain.Message, error)
	CountByStageAndRole(dbc dbctx.Context, stageID uuid.UUID, role string) (int64, error)
	DeleteByIdea(dbc dbctx.Context, ideaID uuid.UUID) error
	CountByIdea(dbc dbctx.Context, ideaID uuid.UUID) (int64, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *messageRepo) Create(dbc dbctx.Context, row *domain.Message) (*domain.Message, error) {
	if row == nil {
		return nil, fmt.Errorf("missing message")
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *messageRepo) ListByStage(dbc dbctx.Context, stageID uuid.UUID) ([]*domain.Message, error) {
	if stageID == uuid.Nil {
		return nil, fmt.Errorf("missing stage_id")
	}
	var out []*domain.Message
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("stage_id = ?", stageID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) CountByStageAndRole(dbc dbctx.Context, stageID uuid.UUID, role string) (int64, error) {
	if stageID == uuid.Nil {
		return 0, fmt.Errorf("missing stage_id")
	}
	var n int64
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Message{}).
		Where("stage_id = ? AND role = ?", stageID, role).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *messageRepo) DeleteByIdea(dbc dbctx.Context, ideaID uuid.UUID) error {
	if ideaID == uuid.Nil {
		return fmt.Errorf("missing idea_id")
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Where("stage_id IN (?)",
			r.handle(dbc).Model(&domain.Stage{}).Select("id").Where("idea_id = ?", ideaID),
		).
		Delete(&domain.Message{}).Error
}

func (r *messageRepo) CountByIdea(dbc dbctx.Context, ideaID uuid.UUID) (int64, error) {
	if ideaID == uuid.Nil {
		return 0, fmt.Errorf("missing idea_id")
	}
	var n int64
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.Message{}).
		Where("stage_id IN (?)",
			r.handle(dbc).Model(&domain.Stage{}).Select("id").Where("idea_id = ?", ideaID),
		).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}
