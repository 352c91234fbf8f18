package domain

import (
	"time"

	"github.com/google/uuid"
)

// Idea is a user-submitted concept. Rows are immutable after creation and
// removed only by the cascading delete in the evaluation orchestrator.
type Idea struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`

	Title       string `gorm:"not null;column:title" json:"title"`
	Description string `gorm:"type:text;not null;column:description" json:"description"`

	TargetCustomer   string `gorm:"type:text;column:target_customer" json:"target_customer"`
	Problem          string `gorm:"type:text;column:problem" json:"problem"`
	Alternatives     string `gorm:"type:text;column:alternatives" json:"alternatives"`
	ValueProposition string `gorm:"type:text;column:value_proposition" json:"value_proposition"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Idea) TableName() string { return "ideas" }
