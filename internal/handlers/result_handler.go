package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hafizramadhan/cv-scoring/internal/models"
	"hafizramadhan/cv-scoring/internal/repositories"
)

type ResultHandler struct {
	jobRepo    repositories.JobRepository
	resultRepo repositories.ResultRepository
}

func NewResultHandler(jobRepo repositories.JobRepository, resultRepo repositories.ResultRepository) *ResultHandler {
	return &ResultHandler{
		jobRepo:    jobRepo,
		resultRepo: resultRepo,
	}
}

func (h *ResultHandler) HandleGetResult(c *fiber.Ctx) error {
	idParam := c.Params("id")
	jobID, err := uuid.Parse(idParam)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job ID format",
		})
	}

	job, err := h.jobRepo.FindByID(jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
		})
	}

	response := models.ResultResponse{
		ID:     job.ID.String(),
		Status: string(job.Status),
	}

	if job.Status == models.StatusFailed {
		response.Error = job.Error
	}

	if job.Status == models.StatusCompleted {
		result, err := h.resultRepo.FindByJobID(job.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Result record missing for completed job",
			})
		}
		response.Result = &models.EvaluationData{
			CVMatchRate:     result.CVMatchRate,
			CVFeedback:      result.CVFeedback,
			ProjectScore:    result.ProjectScore,
			ProjectFeedback: result.ProjectFeedback,
			OverallSummary:  result.OverallSummary,
		}
		if c.QueryBool("debug") {
			response.DetailScores = result.DetailScores
		}
	}

	return c.JSON(response)
}
