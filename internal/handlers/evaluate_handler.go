package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hafizramadhan/cv-scoring/internal/models"
	"hafizramadhan/cv-scoring/internal/repositories"
	"hafizramadhan/cv-scoring/internal/services"
)

type EvaluateHandler struct {
	jobRepo    repositories.JobRepository
	uploadRepo repositories.UploadRepository
	worker     services.Worker
}

func NewEvaluateHandler(
	jobRepo repositories.JobRepository,
	uploadRepo repositories.UploadRepository,
	worker services.Worker,
) *EvaluateHandler {
	return &EvaluateHandler{
		jobRepo:    jobRepo,
		uploadRepo: uploadRepo,
		worker:     worker,
	}
}

// HandleEvaluate handles POST /evaluate: creates the job in queued state and
// hands it to the worker pool, returning immediately.
func (h *EvaluateHandler) HandleEvaluate(c *fiber.Ctx) error {
	var req models.EvaluateRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.UploadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "upload_id is required",
		})
	}

	uploadID, err := uuid.Parse(req.UploadID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid upload_id format",
		})
	}

	if _, err := h.uploadRepo.FindByID(uploadID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Upload not found",
		})
	}

	job := &models.Job{
		ID:        uuid.New(),
		UploadID:  uploadID,
		Status:    models.StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.jobRepo.Create(job); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create evaluation job",
		})
	}

	h.worker.EnqueueJob(job.ID)

	return c.Status(fiber.StatusAccepted).JSON(models.EvaluateResponse{
		ID:     job.ID.String(),
		Status: string(models.StatusQueued),
	})
}
