package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hafizramadhan/cv-scoring/internal/models"
)

type RagDocRepository interface {
	Create(doc *models.RagDoc) error
	FindByID(id uuid.UUID) (*models.RagDoc, error)
	// List returns documents, optionally filtered by type. Ranking happens in
	// the retrieval layer, not here.
	List(docType *models.RagDocType) ([]models.RagDoc, error)
	// PromoteCurrent strips the current tag from every other document of the
	// same type with overlapping tags and adds it to the given document, in a
	// single transaction.
	PromoteCurrent(id uuid.UUID, docType models.RagDocType, tags []string) error
}

type ragDocRepository struct {
	db *gorm.DB
}

func NewRagDocRepository(db *gorm.DB) RagDocRepository {
	return &ragDocRepository{db: db}
}

func (r *ragDocRepository) Create(doc *models.RagDoc) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("failed to create rag doc: %w", err)
	}
	return nil
}

func (r *ragDocRepository) FindByID(id uuid.UUID) (*models.RagDoc, error) {
	var doc models.RagDoc
	if err := r.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("rag doc not found")
		}
		return nil, fmt.Errorf("failed to find rag doc: %w", err)
	}
	return &doc, nil
}

func (r *ragDocRepository) List(docType *models.RagDocType) ([]models.RagDoc, error) {
	var docs []models.RagDoc
	query := r.db
	if docType != nil {
		query = query.Where("type = ?", *docType)
	}
	if err := query.Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to list rag docs: %w", err)
	}
	return docs, nil
}

func (r *ragDocRepository) PromoteCurrent(id uuid.UUID, docType models.RagDocType, tags []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var docs []models.RagDoc
		if err := tx.Where("type = ?", docType).Find(&docs).Error; err != nil {
			return fmt.Errorf("failed to load rag docs: %w", err)
		}

		for _, doc := range demoteOnPromotion(docs, id, tags) {
			if err := tx.Model(&models.RagDoc{}).
				Where("id = ?", doc.ID).
				Update("tags", doc.Tags).Error; err != nil {
				return fmt.Errorf("failed to strip current tag: %w", err)
			}
		}

		var target models.RagDoc
		if err := tx.Where("id = ?", id).First(&target).Error; err != nil {
			return fmt.Errorf("failed to load promoted doc: %w", err)
		}
		if !target.Tags.Has(models.TagCurrent) {
			target.Tags = append(target.Tags, models.TagCurrent)
			if err := tx.Model(&models.RagDoc{}).
				Where("id = ?", id).
				Update("tags", target.Tags).Error; err != nil {
				return fmt.Errorf("failed to tag promoted doc: %w", err)
			}
		}

		return nil
	})
}

// demoteOnPromotion returns the documents whose current tag must be removed
// when promotedID becomes current, with their tag sets already stripped. When
// tags is empty every same-type holder is demoted; otherwise only holders with
// at least one overlapping tag.
func demoteOnPromotion(docs []models.RagDoc, promotedID uuid.UUID, tags []string) []models.RagDoc {
	var out []models.RagDoc
	for _, doc := range docs {
		if doc.ID == promotedID || !doc.IsCurrent() {
			continue
		}
		if len(tags) > 0 && !doc.Tags.Overlaps(tags) {
			continue
		}

		kept := make(models.StringArray, 0, len(doc.Tags))
		for _, t := range doc.Tags {
			if t != models.TagCurrent {
				kept = append(kept, t)
			}
		}
		doc.Tags = kept
		out = append(out, doc)
	}
	return out
}
