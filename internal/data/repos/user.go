package repos

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
)

type UserRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error)
	// ConsumeRun decrements remaining_runs by one iff any remain. Returns false
	// when no credit was available; the conditional UPDATE makes the decrement
	// atomic under concurrent runs.
	ConsumeRun(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, log *logger.Logger) UserRepo {
	return &userRepo{db: db, log: log.With("repo", "UserRepo")}
}

func (r *userRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var row domain.User
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

func (r *userRepo) ConsumeRun(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, fmt.Errorf("missing user_id")
	}
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&domain.User{}).
		Where("id = ? AND remaining_runs > 0", id).
		UpdateColumn("remaining_runs", gorm.Expr("remaining_runs - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
