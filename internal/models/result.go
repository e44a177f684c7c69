package models

import (
	"time"

	"github.com/google/uuid"
)

// Result is the terminal artifact of a completed Job. It is written once, in
// the same transaction that marks the job completed, and never mutated.
type Result struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"job_id"`
	CVMatchRate     float64   `json:"cv_match_rate"` // 0..100
	ProjectScore    float64   `json:"project_score"` // 1..5
	CVFeedback      string    `gorm:"type:text" json:"cv_feedback"`
	ProjectFeedback string    `gorm:"type:text" json:"project_feedback"`
	OverallSummary  string    `gorm:"type:text" json:"overall_summary"`
	DetailScores    JSONMap   `gorm:"type:jsonb" json:"detail_scores"`
	CreatedAt       time.Time `gorm:"type:timestamptz;default:now()" json:"created_at"`
}

func (Result) TableName() string {
	return "results"
}
