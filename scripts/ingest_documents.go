package main

import (
	"context"
	"os"

	"hafizramadhan/cv-scoring/internal/config"
	"hafizramadhan/cv-scoring/internal/logger"
	"hafizramadhan/cv-scoring/internal/models"
	"hafizramadhan/cv-scoring/internal/repositories"
	"hafizramadhan/cv-scoring/internal/services"
)

// Seeds the retrieval store with the reference rubric and job description
// documents, promoting each to the current version for its role.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Server.Env)

	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	docRepo := repositories.NewRagDocRepository(db)

	embedder, err := services.NewEmbedder(cfg)
	if err != nil {
		log.Error("failed to initialize embedder", "error", err)
		os.Exit(1)
	}

	vectorIndex, err := services.NewQdrantIndex(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		cfg.Embed.Dim,
		cfg.Embed.Ops,
	)
	if err != nil {
		log.Error("failed to initialize Qdrant", "error", err)
		os.Exit(1)
	}
	if err := vectorIndex.InitCollection(); err != nil {
		log.Error("failed to initialize collection", "error", err)
		os.Exit(1)
	}

	retriever := services.NewRetriever(docRepo, embedder, vectorIndex, cfg.Embed.Ops, log)
	extractor := services.NewTextExtractor()

	documents := []struct {
		Path  string
		Type  models.RagDocType
		Title string
		Tags  []string
	}{
		{
			Path:  "./reference_docs/job_description.pdf",
			Type:  models.DocTypeJobDesc,
			Title: "Job Description - Product Engineer (Backend)",
			Tags:  []string{"backend"},
		},
		{
			Path:  "./reference_docs/cv_scoring_rubric.pdf",
			Type:  models.DocTypeRubric,
			Title: "CV Scoring Rubric",
			Tags:  []string{"cv"},
		},
		{
			Path:  "./reference_docs/project_scoring_rubric.pdf",
			Type:  models.DocTypeRubric,
			Title: "Project Scoring Rubric",
			Tags:  []string{"project"},
		},
	}

	ctx := context.Background()
	failed := 0

	for _, d := range documents {
		log.Info("processing document", "title", d.Title, "path", d.Path)

		if _, err := os.Stat(d.Path); os.IsNotExist(err) {
			log.Warn("file not found, skipping", "path", d.Path)
			failed++
			continue
		}

		body, err := extractor.Extract(d.Path)
		if err != nil {
			log.Error("failed to extract text", "path", d.Path, "error", err)
			failed++
			continue
		}

		doc, err := retriever.AddDocument(ctx, d.Type, d.Title, body, d.Tags)
		if err != nil {
			log.Error("failed to store document", "title", d.Title, "error", err)
			failed++
			continue
		}

		if err := docRepo.PromoteCurrent(doc.ID, d.Type, d.Tags); err != nil {
			log.Error("failed to promote document", "id", doc.ID, "error", err)
			failed++
			continue
		}

		log.Info("document ingested", "id", doc.ID, "chars", len(body))
	}

	if failed > 0 {
		log.Warn("ingestion finished with failures", "failed", failed)
		os.Exit(1)
	}
	log.Info("all documents ingested")
}
