package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Run outcomes for the ledger. Observational only; correctness never
// depends on a row existing.
const (
	RunOutcomeValidated  = "validated"
	RunOutcomeRolledBack = "rolled_back"
	RunOutcomeFailed     = "failed"
	RunOutcomePublished  = "published"
	RunOutcomeTimedOut   = "timed_out"
)

// RunRecord is one lifecycle or publish attempt against a notebook.
type RunRecord struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	NotebookName string         `gorm:"column:notebook_name;not null;index" json:"notebook_name"`
	Operation    string         `gorm:"column:operation;not null" json:"operation"`
	Outcome      string         `gorm:"column:outcome;not null;index" json:"outcome"`
	Diagnostic   string         `gorm:"column:diagnostic" json:"diagnostic,omitempty"`
	Result       datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
}

func (RunRecord) TableName() string { return "run_record" }
