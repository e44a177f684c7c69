package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"

	"hafizramadhan/cv-scoring/internal/models"
	"hafizramadhan/cv-scoring/internal/repositories"
)

// Pipeline step names, recorded in the failure payload so an error is
// attributable to a single step.
const (
	StepInit        = "init"
	StepRagContexts = "rag_contexts"
	StepAggregate   = "aggregate"
	StepSaveResult  = "save_result"

	StepP1Extract      = "p1_extract"
	StepP2CVScore      = "p2_cv_score"
	StepP3ProjectScore = "p3_project_score"
	StepP4Summary      = "p4_summary"

	StepHxExtract   = "hx_extract"
	StepHxCVScore   = "hx_cv_score"
	StepHxProjScore = "hx_proj_score"
	StepHxSummary   = "hx_summary"
)

const defaultJobTitle = "General Role"

// failureRecord is the structured diagnostic persisted on a failed job.
type failureRecord struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Step      string `json:"step"`
	Traceback string `json:"traceback"`
}

// PipelineService drives one job through extraction, scoring, aggregation,
// summarization and persistence.
type PipelineService interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

type pipelineService struct {
	jobs      repositories.JobRepository
	uploads   repositories.UploadRepository
	retriever Retriever
	scorer    Scorer
	log       *slog.Logger
}

func NewPipelineService(
	jobs repositories.JobRepository,
	uploads repositories.UploadRepository,
	retriever Retriever,
	scorer Scorer,
	log *slog.Logger,
) PipelineService {
	return &pipelineService{
		jobs:      jobs,
		uploads:   uploads,
		retriever: retriever,
		scorer:    scorer,
		log:       log,
	}
}

// pipelineState accumulates outputs across steps within one run. Nothing in
// it is shared between runs.
type pipelineState struct {
	jobID       uuid.UUID
	cvText      string
	projectText string

	cvCtx      string
	projectCtx string
	jobTitle   string
	warnings   []string
	trace      ScoreTrace

	extract    CVExtract
	cvScores   CVScores
	projScores ProjectScores

	cvMatch   float64
	projScore float64

	summary       string
	summaryDetail map[string]interface{}
}

type pipelineStep struct {
	name string
	run  func(ctx context.Context, st *pipelineState) error
}

func (p *pipelineService) steps() []pipelineStep {
	extractName, cvScoreName, projScoreName, summaryName :=
		StepHxExtract, StepHxCVScore, StepHxProjScore, StepHxSummary
	if p.scorer.Mode() == ModeLLM {
		extractName, cvScoreName, projScoreName, summaryName =
			StepP1Extract, StepP2CVScore, StepP3ProjectScore, StepP4Summary
	}

	return []pipelineStep{
		{StepRagContexts, p.runContexts},
		{extractName, p.runExtract},
		{cvScoreName, p.runCVScore},
		{projScoreName, p.runProjectScore},
		{StepAggregate, p.runAggregate},
		{summaryName, p.runSummary},
		{StepSaveResult, p.runSave},
	}
}

// Run executes the full pipeline for one job. The queued->processing
// transition is committed before any scoring work; a crash mid-run leaves the
// job visibly stuck in processing rather than silently lost.
func (p *pipelineService) Run(ctx context.Context, jobID uuid.UUID) (err error) {
	currentStep := StepInit
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.fail(jobID, currentStep, err)
		}
	}()

	picked, err := p.jobs.MarkProcessing(jobID)
	if err != nil {
		return err
	}
	if !picked {
		// Already picked up, finished, or unknown. Duplicate enqueues land
		// here and are dropped.
		p.log.Warn("job not in queued state, skipping", "job_id", jobID)
		return nil
	}

	p.log.Info("pipeline started", "job_id", jobID, "mode", p.scorer.Mode())

	st := &pipelineState{
		jobID:    jobID,
		jobTitle: defaultJobTitle,
	}

	job, err := p.jobs.FindByID(jobID)
	if err != nil {
		p.fail(jobID, currentStep, err)
		return err
	}
	upload, err := p.uploads.FindByID(job.UploadID)
	if err != nil {
		p.fail(jobID, currentStep, err)
		return err
	}
	st.cvText = upload.CVText
	st.projectText = upload.ProjectText

	for _, step := range p.steps() {
		currentStep = step.name
		if err := step.run(ctx, st); err != nil {
			p.fail(jobID, step.name, err)
			return err
		}
	}

	p.log.Info("pipeline completed", "job_id", jobID,
		"cv_match_rate", st.cvMatch, "project_score", st.projScore)
	return nil
}

// runContexts builds both retrieval contexts and infers the job title. All
// three are non-fatal: failures degrade to defaults and become warnings
// persisted inside detail_scores.
func (p *pipelineService) runContexts(ctx context.Context, st *pipelineState) error {
	if cvCtx, err := p.retriever.BuildCVContext(ctx, ContextOptions{}); err != nil {
		st.warnings = append(st.warnings, fmt.Sprintf("build_cv_context: %v", err))
	} else {
		st.cvCtx = cvCtx
	}

	if projectCtx, err := p.retriever.BuildProjectContext(ctx, ContextOptions{}); err != nil {
		st.warnings = append(st.warnings, fmt.Sprintf("build_project_context: %v", err))
	} else {
		st.projectCtx = projectCtx
	}

	if title, err := p.retriever.InferJobTitle(ctx, ContextOptions{}, defaultJobTitle); err != nil {
		st.warnings = append(st.warnings, fmt.Sprintf("infer_job_title: %v", err))
	} else {
		st.jobTitle = title
	}

	return nil
}

func (p *pipelineService) runExtract(ctx context.Context, st *pipelineState) error {
	extract, err := p.scorer.ExtractCV(ctx, st.cvText, &st.trace)
	if err != nil {
		return err
	}
	st.extract = extract
	return nil
}

func (p *pipelineService) runCVScore(ctx context.Context, st *pipelineState) error {
	scores, err := p.scorer.ScoreCV(ctx, st.extract, st.cvCtx, st.jobTitle, &st.trace)
	if err != nil {
		return err
	}
	st.cvScores = scores
	return nil
}

func (p *pipelineService) runProjectScore(ctx context.Context, st *pipelineState) error {
	scores, err := p.scorer.ScoreProject(ctx, st.projectText, st.projectCtx, st.jobTitle, &st.trace)
	if err != nil {
		return err
	}
	st.projScores = scores
	return nil
}

func (p *pipelineService) runAggregate(_ context.Context, st *pipelineState) error {
	st.cvMatch = CVMatchRate(st.cvScores)
	st.projScore = AggregateProject(st.projScores)
	return nil
}

func (p *pipelineService) runSummary(ctx context.Context, st *pipelineState) error {
	summary, detail, err := p.scorer.Summarize(ctx, SummaryInput{
		JobTitle:       st.jobTitle,
		CVScores:       st.cvScores,
		ProjectScores:  st.projScores,
		CVContext:      st.cvCtx,
		ProjectContext: st.projectCtx,
		CVMatchRate:    st.cvMatch,
		ProjectScore:   st.projScore,
	}, &st.trace)
	if err != nil {
		return err
	}
	st.summary = summary
	st.summaryDetail = detail
	return nil
}

func (p *pipelineService) runSave(_ context.Context, st *pipelineState) error {
	warnings := append([]string{}, st.warnings...)
	warnings = append(warnings, st.trace.Warnings...)

	detail := models.JSONMap{
		"mode":       p.scorer.Mode(),
		"cv":         st.cvScores,
		"project":    st.projScores,
		"cv_extract": st.extract,
		"warnings":   warnings,
		"job_title":  st.jobTitle,
	}
	if st.summaryDetail != nil {
		detail["summary"] = st.summaryDetail
	}
	if st.trace.Raw != nil {
		detail["llm_raw"] = st.trace.Raw
	}

	result := &models.Result{
		ID:              uuid.New(),
		JobID:           st.jobID,
		CVMatchRate:     st.cvMatch,
		ProjectScore:    st.projScore,
		CVFeedback:      st.cvScores.Feedback,
		ProjectFeedback: st.projScores.Feedback,
		OverallSummary:  st.summary,
		DetailScores:    detail,
	}

	return p.jobs.Complete(st.jobID, result)
}

// fail marks the job failed with a structured diagnostic naming the step.
func (p *pipelineService) fail(jobID uuid.UUID, step string, cause error) {
	record := failureRecord{
		Type:      fmt.Sprintf("%T", rootError(cause)),
		Message:   cause.Error(),
		Step:      step,
		Traceback: boundedTrace(),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"message":%q,"step":%q}`, cause.Error(), step))
	}

	if err := p.jobs.MarkFailed(jobID, string(payload)); err != nil {
		p.log.Error("failed to persist job failure", "job_id", jobID, "error", err)
	}

	p.log.Error("pipeline failed", "job_id", jobID, "step", step, "error", cause)
}

func rootError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

const maxTraceBytes = 2048

func boundedTrace() string {
	trace := debug.Stack()
	if len(trace) > maxTraceBytes {
		trace = trace[:maxTraceBytes]
	}
	return string(trace)
}
