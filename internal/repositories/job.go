package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hafizramadhan/cv-scoring/internal/models"
)

type JobRepository interface {
	Create(job *models.Job) error
	FindByID(id uuid.UUID) (*models.Job, error)
	// MarkProcessing transitions queued -> processing. It reports false when
	// the job is in any other state, which guards against a duplicate pickup.
	MarkProcessing(id uuid.UUID) (bool, error)
	MarkFailed(id uuid.UUID, errorPayload string) error
	// Complete inserts the result and marks the job completed in one
	// transaction, so the terminal checkpoint is all-or-nothing.
	Complete(id uuid.UUID, result *models.Result) error
	FindQueued(limit int) ([]models.Job, error)
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(job *models.Job) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByID(id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("job not found")
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

func (r *jobRepository) MarkProcessing(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.StatusQueued).
		Updates(map[string]interface{}{
			"status":     models.StatusProcessing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to mark job processing: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

func (r *jobRepository) MarkFailed(id uuid.UUID, errorPayload string) error {
	result := r.db.Model(&models.Job{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.StatusFailed,
			"error":      errorPayload,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to mark job failed: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("job not found")
	}

	return nil
}

func (r *jobRepository) Complete(id uuid.UUID, res *models.Result) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res.JobID = id
		if err := tx.Create(res).Error; err != nil {
			return fmt.Errorf("failed to create result: %w", err)
		}

		update := tx.Model(&models.Job{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     models.StatusCompleted,
				"updated_at": time.Now(),
			})
		if update.Error != nil {
			return fmt.Errorf("failed to mark job completed: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return fmt.Errorf("job not found")
		}

		return nil
	})
}

func (r *jobRepository) FindQueued(limit int) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("status = ?", models.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find queued jobs: %w", err)
	}

	return jobs, nil
}
