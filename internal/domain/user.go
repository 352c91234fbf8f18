package domain

import (
	"time"

	"github.com/google/uuid"
)

// User carries the entitlement attributes the engine gates on. Account
// creation and verification flows live in the external auth subsystem; this
// row is read for gating and mutated only by the credit decrement.
type User struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Verified      bool      `gorm:"not null;default:false;column:verified" json:"verified"`
	Premium       bool      `gorm:"not null;default:false;column:premium" json:"premium"`
	RemainingRuns int       `gorm:"not null;default:0;column:remaining_runs" json:"remaining_runs"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }
