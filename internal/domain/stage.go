package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Stage personas, in pipeline order.
const (
	PersonaCustomer = "customer"
	PersonaDesigner = "designer"
	PersonaMarketer = "marketer"
	PersonaInvestor = "investor"
)

// StageOrder is the fixed total order of the sequential pipeline.
var StageOrder = []string{PersonaCustomer, PersonaDesigner, PersonaMarketer, PersonaInvestor}

// Stage is one persona's conversational evaluation of one Idea. Summary,
// Score and CompletedAt are written exactly once by the finish step; a stage
// with non-nil CompletedAt is terminal.
type Stage struct {
	ID      uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	IdeaID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stage_idea_persona;column:idea_id" json:"idea_id"`
	Persona string    `gorm:"not null;uniqueIndex:idx_stage_idea_persona;column:persona" json:"persona"`

	Summary     datatypes.JSON `gorm:"type:jsonb;column:summary" json:"summary,omitempty"`
	Score       *int           `gorm:"column:score" json:"score,omitempty"`
	CompletedAt *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Stage) TableName() string { return "stages" }

func (s *Stage) Completed() bool {
	return s != nil && s.CompletedAt != nil
}

// StageSummary is the structured result of the finish completion call.
type StageSummary struct {
	KeyPoints     []string `json:"key_points"`
	Score         int      `json:"score"`
	BlockingRisks []string `json:"blocking_risks"`
}
