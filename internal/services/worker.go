package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hafizramadhan/cv-scoring/internal/repositories"
)

// Worker runs the pipeline on a bounded pool of goroutines. The enqueue
// boundary is fire-and-forget; a periodic poller re-enqueues queued jobs that
// missed their in-process handoff.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(jobID uuid.UUID)
}

type worker struct {
	jobs         repositories.JobRepository
	pipeline     PipelineService
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	log          *slog.Logger
	wg           sync.WaitGroup
	stopChan     chan struct{}
}

func NewWorker(
	jobs repositories.JobRepository,
	pipeline PipelineService,
	concurrency int,
	pollInterval time.Duration,
	log *slog.Logger,
) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		jobs:         jobs,
		pipeline:     pipeline,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		log:          log,
		stopChan:     make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting worker pool", "concurrency", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollQueuedJobs(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.log.Info("stopping worker pool")
	close(w.stopChan)
	w.wg.Wait()
	w.log.Info("worker pool stopped")
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(jobID uuid.UUID) {
	select {
	case w.jobQueue <- jobID:
		w.log.Debug("job enqueued", "job_id", jobID)
	case <-w.stopChan:
		w.log.Warn("worker stopped, cannot enqueue job", "job_id", jobID)
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debug("worker stopped", "worker", workerID)
			return
		case jobID := <-w.jobQueue:
			w.log.Info("processing job", "worker", workerID, "job_id", jobID)
			if err := w.pipeline.Run(ctx, jobID); err != nil {
				w.log.Error("job failed", "worker", workerID, "job_id", jobID, "error", err)
			}
		}
	}
}

func (w *worker) pollQueuedJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			queued, err := w.jobs.FindQueued(10)
			if err != nil {
				w.log.Warn("failed to fetch queued jobs", "error", err)
				continue
			}

			for _, job := range queued {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
