package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hafizramadhan/cv-scoring/internal/models"
)

type ResultRepository interface {
	FindByJobID(jobID uuid.UUID) (*models.Result, error)
}

type resultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) FindByJobID(jobID uuid.UUID) (*models.Result, error) {
	var result models.Result
	if err := r.db.Where("job_id = ?", jobID).First(&result).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("result not found")
		}
		return nil, fmt.Errorf("failed to find result: %w", err)
	}
	return &result, nil
}
