package models

import (
	"time"

	"github.com/google/uuid"
)

// Upload holds the stored files and extracted plain text for one candidate
// submission. Rows are immutable after creation.
type Upload struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CVPath      string    `gorm:"type:text;not null" json:"cv_path"`
	ReportPath  string    `gorm:"type:text;not null" json:"report_path"`
	CVText      string    `gorm:"type:text" json:"cv_text"`
	ProjectText string    `gorm:"type:text" json:"project_text"`
	CreatedAt   time.Time `gorm:"type:timestamptz;default:now();index:ix_uploads_created" json:"created_at"`

	// Relations
	Jobs []Job `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Upload) TableName() string {
	return "uploads"
}
