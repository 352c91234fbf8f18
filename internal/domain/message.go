package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageRoleUser      = "user"
	MessageRoleEvaluator = "evaluator"
)

// Message is one turn within a Stage conversation. Append-only; deleted only
// in bulk when the owning Idea is deleted.
type Message struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StageID uuid.UUID `gorm:"type:uuid;not null;index;column:stage_id" json:"stage_id"`

	Role    string `gorm:"not null;column:role" json:"role"`
	Content string `gorm:"type:text;not null;column:content" json:"content"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }
