package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"hafizramadhan/cv-scoring/internal/config"
	"hafizramadhan/cv-scoring/internal/handlers"
	"hafizramadhan/cv-scoring/internal/logger"
	"hafizramadhan/cv-scoring/internal/repositories"
	"hafizramadhan/cv-scoring/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.Server.Env)
	log.Info("config loaded", "env", cfg.Server.Env)

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	uploadRepo := repositories.NewUploadRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	resultRepo := repositories.NewResultRepository(db)
	docRepo := repositories.NewRagDocRepository(db)

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Error("failed to create upload directory", "error", err)
		os.Exit(1)
	}
	extractor := services.NewTextExtractor()

	// Embeddings + vector index
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
		log.Error("failed to initialize Qdrant collection", "error", err)
		os.Exit(1)
	}

	retriever := services.NewRetriever(docRepo, embedder, vectorIndex, cfg.Embed.Ops, log)

	// Scoring core: model-backed when enabled, deterministic otherwise
	var scorer services.Scorer
	if cfg.LLM.UseLLM {
		client, err := services.NewModelClient(cfg, log)
		if err != nil {
			log.Error("failed to initialize model client", "error", err)
			os.Exit(1)
		}
		scorer = services.NewModelScorer(client)
	} else {
		scorer = services.NewHeuristicScorer()
	}
	log.Info("scorer initialized", "mode", scorer.Mode())

	pipeline := services.NewPipelineService(jobRepo, uploadRepo, retriever, scorer, log)

	// Start worker pool
	worker := services.NewWorker(jobRepo, pipeline, cfg.Worker.Concurrency, cfg.Worker.PollInterval, log)
	worker.Start(context.Background())
	log.Info("worker started", "concurrency", cfg.Worker.Concurrency)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(uploadRepo, storageService, extractor, cfg.Storage.MaxFileSize, log)
	evaluateHandler := handlers.NewEvaluateHandler(jobRepo, uploadRepo, worker)
	resultHandler := handlers.NewResultHandler(jobRepo, resultRepo)
	ragHandler := handlers.NewRagHandler(docRepo, retriever, storageService, extractor, log)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "CV Scoring API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 2,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"mode":   scorer.Mode(),
			"time":   time.Now(),
		})
	})

	api.Post("/upload", uploadHandler.HandleUpload)
	api.Post("/evaluate", evaluateHandler.HandleEvaluate)
	api.Get("/result/:id", resultHandler.HandleGetResult)
	api.Post("/rag/upload", ragHandler.HandleRagUpload)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "CV Scoring API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/upload",
				"POST /api/v1/evaluate",
				"GET /api/v1/result/:id",
				"POST /api/v1/rag/upload",
				"GET /api/v1/health",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", "addr", addr)

	if err := app.Listen(addr); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
