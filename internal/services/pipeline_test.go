package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hafizramadhan/cv-scoring/internal/models"
)

type fakeJobRepo struct {
	jobs    map[uuid.UUID]*models.Job
	results map[uuid.UUID]*models.Result
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{
		jobs:    make(map[uuid.UUID]*models.Job),
		results: make(map[uuid.UUID]*models.Result),
	}
}

func (f *fakeJobRepo) Create(job *models.Job) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeJobRepo) FindByID(id uuid.UUID) (*models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

func (f *fakeJobRepo) MarkProcessing(id uuid.UUID) (bool, error) {
	job, ok := f.jobs[id]
	if !ok || job.Status != models.StatusQueued {
		return false, nil
	}
	job.Status = models.StatusProcessing
	job.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeJobRepo) MarkFailed(id uuid.UUID, errorPayload string) error {
	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job not found")
	}
	job.Status = models.StatusFailed
	job.Error = &errorPayload
	return nil
}

func (f *fakeJobRepo) Complete(id uuid.UUID, result *models.Result) error {
	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job not found")
	}
	result.JobID = id
	f.results[id] = result
	job.Status = models.StatusCompleted
	return nil
}

func (f *fakeJobRepo) FindQueued(limit int) ([]models.Job, error) {
	var out []models.Job
	for _, job := range f.jobs {
		if job.Status == models.StatusQueued && len(out) < limit {
			out = append(out, *job)
		}
	}
	return out, nil
}

type fakeUploadRepo struct {
	uploads map[uuid.UUID]*models.Upload
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: make(map[uuid.UUID]*models.Upload)}
}

func (f *fakeUploadRepo) Create(upload *models.Upload) error {
	f.uploads[upload.ID] = upload
	return nil
}

func (f *fakeUploadRepo) FindByID(id uuid.UUID) (*models.Upload, error) {
	upload, ok := f.uploads[id]
	if !ok {
		return nil, fmt.Errorf("upload not found")
	}
	return upload, nil
}

// garbageModelClient answers every prompt with unparsable prose.
type garbageModelClient struct{}

const garbageReply = "I am sorry, I cannot answer that in JSON."

func (garbageModelClient) GenerateJSON(context.Context, string, float32, int32) (map[string]interface{}, string) {
	return ParseJSONObject(garbageReply), garbageReply
}

func (garbageModelClient) Generate(context.Context, string, float32) (string, error) {
	return garbageReply, nil
}

// failingScorer errors on CV scoring; everything else delegates to the
// model-backed path.
type failingScorer struct {
	Scorer
}

func (failingScorer) Mode() string { return ModeLLM }

func (failingScorer) ScoreCV(context.Context, CVExtract, string, string, *ScoreTrace) (CVScores, error) {
	return CVScores{}, fmt.Errorf("provider exploded")
}

func emptyRetriever() Retriever {
	return NewRetriever(&fakeDocRepo{}, &fakeEmbedder{}, &fakeIndex{}, "l2", testLogger())
}

func seedJob(t *testing.T, jobs *fakeJobRepo, uploads *fakeUploadRepo, cvText, projectText string) uuid.UUID {
	t.Helper()

	upload := &models.Upload{ID: uuid.New(), CVText: cvText, ProjectText: projectText}
	require.NoError(t, uploads.Create(upload))

	job := &models.Job{ID: uuid.New(), UploadID: upload.ID, Status: models.StatusQueued}
	require.NoError(t, jobs.Create(job))
	return job.ID
}

func TestPipelineHeuristicMode(t *testing.T) {
	jobs := newFakeJobRepo()
	uploads := newFakeUploadRepo()
	jobID := seedJob(t, jobs, uploads,
		"Engineer with 4 years experience in Go, PostgreSQL and Docker",
		"Backend API service with unit tests and a README")

	p := NewPipelineService(jobs, uploads, emptyRetriever(), NewHeuristicScorer(), testLogger())
	require.NoError(t, p.Run(context.Background(), jobID))

	job, err := jobs.FindByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)

	result := jobs.results[jobID]
	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.CVMatchRate, 20.0)
	assert.LessOrEqual(t, result.CVMatchRate, 100.0)
	assert.GreaterOrEqual(t, result.ProjectScore, 1.0)
	assert.LessOrEqual(t, result.ProjectScore, 5.0)
	assert.NotEmpty(t, result.OverallSummary)
	assert.Equal(t, ModeHeuristic, result.DetailScores["mode"])
}

func TestPipelineHeuristicModeEmptyTexts(t *testing.T) {
	jobs := newFakeJobRepo()
	uploads := newFakeUploadRepo()
	jobID := seedJob(t, jobs, uploads, "", "")

	p := NewPipelineService(jobs, uploads, emptyRetriever(), NewHeuristicScorer(), testLogger())
	require.NoError(t, p.Run(context.Background(), jobID))

	job, err := jobs.FindByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)

	result := jobs.results[jobID]
	require.NotNil(t, result)
	// Low but still inside the valid bands.
	assert.GreaterOrEqual(t, result.CVMatchRate, 20.0)
	assert.GreaterOrEqual(t, result.ProjectScore, 1.0)
}

func TestPipelineModelModeGarbageOutput(t *testing.T) {
	jobs := newFakeJobRepo()
	uploads := newFakeUploadRepo()
	jobID := seedJob(t, jobs, uploads, "some cv", "some report")

	p := NewPipelineService(jobs, uploads, emptyRetriever(), NewModelScorer(garbageModelClient{}), testLogger())
	require.NoError(t, p.Run(context.Background(), jobID))

	job, err := jobs.FindByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)

	// Every sub-score coerces to the neutral midpoint.
	result := jobs.results[jobID]
	require.NotNil(t, result)
	assert.InDelta(t, 60.0, result.CVMatchRate, 1e-9)
	assert.InDelta(t, 3.0, result.ProjectScore, 1e-9)
	assert.Equal(t, ModeLLM, result.DetailScores["mode"])
	assert.NotEmpty(t, result.OverallSummary)

	// Each unparsable response leaves a warning and its raw text behind.
	warnings, ok := result.DetailScores["warnings"].([]string)
	require.True(t, ok)
	assert.NotEmpty(t, warnings)
	assert.Contains(t, warnings, "p1_extract: unparsable model output")
	assert.Contains(t, warnings, "p4_summary: unparsable model output")

	llmRaw, ok := result.DetailScores["llm_raw"].(map[string]string)
	require.True(t, ok)
	for _, key := range []string{"p1", "p2", "p3", "p4"} {
		assert.Equal(t, garbageReply, llmRaw[key])
	}
}

func TestPipelineHeuristicModeHasNoModelTrace(t *testing.T) {
	jobs := newFakeJobRepo()
	uploads := newFakeUploadRepo()
	jobID := seedJob(t, jobs, uploads, "cv", "report")

	p := NewPipelineService(jobs, uploads, emptyRetriever(), NewHeuristicScorer(), testLogger())
	require.NoError(t, p.Run(context.Background(), jobID))

	result := jobs.results[jobID]
	require.NotNil(t, result)
	assert.NotContains(t, result.DetailScores, "llm_raw")
	assert.Empty(t, result.DetailScores["warnings"])
}

func TestPipelineDuplicateRunIsNoop(t *testing.T) {
	jobs := newFakeJobRepo()
	uploads := newFakeUploadRepo()
	jobID := seedJob(t, jobs, uploads, "cv", "report")

	p := NewPipelineService(jobs, uploads, emptyRetriever(), NewHeuristicScorer(), testLogger())
	require.NoError(t, p.Run(context.Background(), jobID))
	require.NoError(t, p.Run(context.Background(), jobID))

	job, err := jobs.FindByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, job.Status)
}

func TestPipelineStepFailureRecordsStep(t *testing.T) {
	jobs := newFakeJobRepo()
	uploads := newFakeUploadRepo()
	jobID := seedJob(t, jobs, uploads, "cv", "report")

	scorer := failingScorer{Scorer: NewModelScorer(garbageModelClient{})}
	p := NewPipelineService(jobs, uploads, emptyRetriever(), scorer, testLogger())

	err := p.Run(context.Background(), jobID)
	require.Error(t, err)

	job, findErr := jobs.FindByID(jobID)
	require.NoError(t, findErr)
	assert.Equal(t, models.StatusFailed, job.Status)
	require.NotNil(t, job.Error)

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*job.Error), &record))
	assert.Equal(t, StepP2CVScore, record["step"])
	assert.Contains(t, record["message"], "provider exploded")
}

func TestPipelineMissingUploadFailsAtInit(t *testing.T) {
	jobs := newFakeJobRepo()
	job := &models.Job{ID: uuid.New(), UploadID: uuid.New(), Status: models.StatusQueued}
	require.NoError(t, jobs.Create(job))

	p := NewPipelineService(jobs, newFakeUploadRepo(), emptyRetriever(), NewHeuristicScorer(), testLogger())

	err := p.Run(context.Background(), job.ID)
	require.Error(t, err)

	stored, findErr := jobs.FindByID(job.ID)
	require.NoError(t, findErr)
	assert.Equal(t, models.StatusFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, StepInit)
}
