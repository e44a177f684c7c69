package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hafizramadhan/cv-scoring/internal/models"
)

type UploadRepository interface {
	Create(upload *models.Upload) error
	FindByID(id uuid.UUID) (*models.Upload, error)
}

type uploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(upload *models.Upload) error {
	if err := r.db.Create(upload).Error; err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	return nil
}

func (r *uploadRepository) FindByID(id uuid.UUID) (*models.Upload, error) {
	var upload models.Upload
	if err := r.db.Where("id = ?", id).First(&upload).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("upload not found")
		}
		return nil, fmt.Errorf("failed to find upload: %w", err)
	}
	return &upload, nil
}
