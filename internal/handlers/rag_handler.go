package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"hafizramadhan/cv-scoring/internal/models"
	"hafizramadhan/cv-scoring/internal/repositories"
	"hafizramadhan/cv-scoring/internal/services"
)

type RagHandler struct {
	docRepo   repositories.RagDocRepository
	retriever services.Retriever
	storage   services.StorageService
	extractor services.TextExtractor
	log       *slog.Logger
}

func NewRagHandler(
	docRepo repositories.RagDocRepository,
	retriever services.Retriever,
	storage services.StorageService,
	extractor services.TextExtractor,
	log *slog.Logger,
) *RagHandler {
	return &RagHandler{
		docRepo:   docRepo,
		retriever: retriever,
		storage:   storage,
		extractor: extractor,
		log:       log,
	}
}

// HandleRagUpload handles POST /rag/upload: ingests a rubric or job
// description document, embeds it, and optionally promotes it to current.
func (h *RagHandler) HandleRagUpload(c *fiber.Ctx) error {
	docType := models.RagDocType(strings.TrimSpace(c.FormValue("doc_type")))
	if docType != models.DocTypeRubric && docType != models.DocTypeJobDesc {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "doc_type must be 'rubric' or 'job_desc'",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required",
		})
	}

	name, path, err := h.storage.SaveFile(file, "rag")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	body, err := h.extractor.Extract(path)
	if err != nil {
		h.storage.DeleteFile(name)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Failed to extract text from document",
		})
	}

	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		title = file.Filename
	}

	var tags []string
	for _, t := range strings.Split(c.FormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	doc, err := h.retriever.AddDocument(c.UserContext(), docType, title, body, tags)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store document",
		})
	}

	makeCurrent := true
	if v := c.FormValue("make_current"); v != "" {
		makeCurrent = strings.EqualFold(v, "true") || v == "1"
	}
	if makeCurrent {
		if err := h.docRepo.PromoteCurrent(doc.ID, docType, tags); err != nil {
			h.log.Error("failed to promote document", "id", doc.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Document stored but promotion failed",
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(models.RagUploadResponse{
		ID:      doc.ID.String(),
		Type:    string(docType),
		Title:   title,
		Tags:    tags,
		Stored:  true,
		Current: makeCurrent,
	})
}
