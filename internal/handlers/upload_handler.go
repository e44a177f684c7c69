package handlers

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"hafizramadhan/cv-scoring/internal/models"
	"hafizramadhan/cv-scoring/internal/repositories"
	"hafizramadhan/cv-scoring/internal/services"
)

type UploadHandler struct {
	uploadRepo     repositories.UploadRepository
	storageService services.StorageService
	extractor      services.TextExtractor
	maxFileSize    int64
	log            *slog.Logger
}

func NewUploadHandler(
	uploadRepo repositories.UploadRepository,
	storageService services.StorageService,
	extractor services.TextExtractor,
	maxFileSize int64,
	log *slog.Logger,
) *UploadHandler {
	return &UploadHandler{
		uploadRepo:     uploadRepo,
		storageService: storageService,
		extractor:      extractor,
		maxFileSize:    maxFileSize,
		log:            log,
	}
}

// HandleUpload handles POST /upload. Both files are required; text
// extraction failures degrade to empty text so the evaluation can still run.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	cvFile, err := h.formFile(c, "cv")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	projectFile, err := h.formFile(c, "project_report")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	cvName, cvPath, err := h.storageService.SaveFile(cvFile, "cv")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save CV file: %v", err),
		})
	}

	reportName, reportPath, err := h.storageService.SaveFile(projectFile, "report")
	if err != nil {
		h.storageService.DeleteFile(cvName)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save project report file: %v", err),
		})
	}

	upload := &models.Upload{
		ID:          uuid.New(),
		CVPath:      cvPath,
		ReportPath:  reportPath,
		CVText:      h.extractText(cvPath),
		ProjectText: h.extractText(reportPath),
		CreatedAt:   time.Now(),
	}

	if err := h.uploadRepo.Create(upload); err != nil {
		h.storageService.DeleteFile(cvName)
		h.storageService.DeleteFile(reportName)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to save upload record",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		UploadID:   upload.ID.String(),
		CVPath:     cvName,
		ReportPath: reportName,
	})
}

func (h *UploadHandler) formFile(c *fiber.Ctx, field string) (*multipart.FileHeader, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s file is required", field)
	}
	if file.Size > h.maxFileSize {
		return nil, fmt.Errorf("%s file too large. Max size: %d bytes", field, h.maxFileSize)
	}
	return file, nil
}

func (h *UploadHandler) extractText(filePath string) string {
	text, err := h.extractor.Extract(filePath)
	if err != nil {
		h.log.Warn("text extraction failed, storing empty text", "path", filePath, "error", err)
		return ""
	}
	return text
}
