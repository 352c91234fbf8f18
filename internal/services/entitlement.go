package services

import (
	"github.com/google/uuid"

	"github.com/pitchpanel/pitchpanel-backend/internal/data/repos"
	"github.com/pitchpanel/pitchpanel-backend/internal/domain"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/apierr"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/dbctx"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
	"github.com/pitchpanel/pitchpanel-backend/internal/requestdata"
)

// EntitlementService gates pipeline execution on verification state and
// remaining run credits, and owns the credit decrement. Checks run before any
// upstream model call so unauthorized requests never spend paid completions.
type EntitlementService interface {
	// Authorize verifies the caller may start a run and returns their user row.
	Authorize(dbc dbctx.Context, rd *requestdata.RequestData) (*domain.User, error)
	// Consume decrements one run credit atomically. Returns
	// no_credits_remaining when another run already took the last credit.
	Consume(dbc dbctx.Context, userID uuid.UUID) error
}

type entitlementService struct {
	users repos.UserRepo
	log   *logger.Logger
}

func NewEntitlementService(users repos.UserRepo, log *logger.Logger) EntitlementService {
	return &entitlementService{users: users, log: log.With("service", "EntitlementService")}
}

func (s *entitlementService) Authorize(dbc dbctx.Context, rd *requestdata.RequestData) (*domain.User, error) {
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthenticated(nil)
	}
	user, err := s.users.GetByID(dbc, rd.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierr.Unauthenticated(nil)
	}
	if !user.Verified {
		return nil, apierr.Unverified()
	}
	if user.RemainingRuns <= 0 {
		return nil, apierr.NoCreditsRemaining()
	}
	return user, nil
}

func (s *entitlementService) Consume(dbc dbctx.Context, userID uuid.UUID) error {
	ok, err := s.users.ConsumeRun(dbc, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NoCreditsRemaining()
	}
	s.log.Debug("run credit consumed", "user_id", userID)
	return nil
}
