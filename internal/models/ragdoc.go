package models

import (
	"time"

	"github.com/google/uuid"
)

type RagDocType string

const (
	DocTypeJobDesc RagDocType = "job_desc"
	DocTypeRubric  RagDocType = "rubric"
)

// TagCurrent marks the active document within a (type, tags) group. After a
// promote-current upsert at most one document per group carries it.
const TagCurrent = "current"

// RagDoc is a rubric or job-description document used to ground scoring.
// The embedding also lives in the vector index keyed by the row id.
type RagDoc struct {
	ID        uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Type      RagDocType  `gorm:"type:text;not null;index:ix_rag_docs_type" json:"type"`
	Title     string      `gorm:"type:varchar(255);not null" json:"title"`
	Body      string      `gorm:"type:text;not null" json:"body"`
	Tags      StringArray `gorm:"type:jsonb" json:"tags"`
	Embedding Vector      `gorm:"type:jsonb" json:"-"`
	CreatedAt time.Time   `gorm:"type:timestamptz;default:now()" json:"created_at"`
	UpdatedAt time.Time   `gorm:"type:timestamptz;default:now()" json:"updated_at"`
}

func (RagDoc) TableName() string {
	return "rag_docs"
}

// IsCurrent reports whether the document carries the current tag.
func (d *RagDoc) IsCurrent() bool {
	return d.Tags.Has(TagCurrent)
}
