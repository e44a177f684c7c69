package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job is one evaluation request. Status is mutated by the pipeline only;
// Error is set if and only if the status is failed.
type Job struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UploadID uuid.UUID `gorm:"type:uuid;not null" json:"upload_id"`
	Status   JobStatus `gorm:"not null;default:'queued';index:ix_jobs_status_created,priority:1" json:"status"`
	Error    *string   `gorm:"type:text" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;default:now();index:ix_jobs_status_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;default:now()" json:"updated_at"`

	// Relations
	Upload Upload  `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
	Result *Result `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Job) TableName() string {
	return "jobs"
}
