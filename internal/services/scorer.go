package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	ModeHeuristic = "heuristic"
	ModeLLM       = "llm"
)

// SummaryInput carries everything the summary step may need; the heuristic
// variant ignores the contexts and aggregates.
type SummaryInput struct {
	JobTitle       string
	CVScores       CVScores
	ProjectScores  ProjectScores
	CVContext      string
	ProjectContext string
	CVMatchRate    float64
	ProjectScore   float64
}

// ScoreTrace accumulates per-call diagnostics across one pipeline run: the
// raw model response per prompt and a warning for every response that did not
// parse. Both end up inside detail_scores. The heuristic scorer leaves it
// untouched.
type ScoreTrace struct {
	Warnings []string
	Raw      map[string]string
}

// record stores the raw response under key and flags an unparsable payload.
func (t *ScoreTrace) record(key, step, raw string, parsed map[string]interface{}) {
	if t == nil {
		return
	}
	if t.Raw == nil {
		t.Raw = make(map[string]string)
	}
	t.Raw[key] = raw
	if len(parsed) == 0 {
		t.Warnings = append(t.Warnings, step+": unparsable model output")
	}
}

// Scorer is the mode-agnostic capability the pipeline drives: extraction, the
// two score sets and the summary. The detail map from Summarize is extra
// payload for detail_scores (nil in heuristic mode). Each run passes one
// ScoreTrace, so diagnostics never leak between concurrent jobs.
type Scorer interface {
	Mode() string
	ExtractCV(ctx context.Context, cvText string, trace *ScoreTrace) (CVExtract, error)
	ScoreCV(ctx context.Context, extract CVExtract, cvCtx, jobTitle string, trace *ScoreTrace) (CVScores, error)
	ScoreProject(ctx context.Context, projectText, projectCtx, jobTitle string, trace *ScoreTrace) (ProjectScores, error)
	Summarize(ctx context.Context, in SummaryInput, trace *ScoreTrace) (string, map[string]interface{}, error)
}

// heuristicScorer needs no external model and never fails.
type heuristicScorer struct{}

func NewHeuristicScorer() Scorer {
	return &heuristicScorer{}
}

func (s *heuristicScorer) Mode() string {
	return ModeHeuristic
}

func (s *heuristicScorer) ExtractCV(_ context.Context, cvText string, _ *ScoreTrace) (CVExtract, error) {
	return ExtractCVHeuristic(cvText), nil
}

func (s *heuristicScorer) ScoreCV(_ context.Context, extract CVExtract, cvCtx, _ string, _ *ScoreTrace) (CVScores, error) {
	return ScoreCVHeuristic(extract, cvCtx), nil
}

func (s *heuristicScorer) ScoreProject(_ context.Context, projectText, projectCtx, _ string, _ *ScoreTrace) (ProjectScores, error) {
	return ScoreProjectHeuristic(projectText, projectCtx), nil
}

func (s *heuristicScorer) Summarize(_ context.Context, in SummaryInput, _ *ScoreTrace) (string, map[string]interface{}, error) {
	return SummarizeHeuristic(in.CVScores, in.ProjectScores), nil, nil
}

// modelScorer drives the four prompts against the model client; every output
// passes through the coercion layer, so malformed responses become neutral
// defaults instead of failures.
type modelScorer struct {
	client  ModelClient
	prompts *PromptBuilder
}

func NewModelScorer(client ModelClient) Scorer {
	return &modelScorer{
		client:  client,
		prompts: NewPromptBuilder(),
	}
}

func (s *modelScorer) Mode() string {
	return ModeLLM
}

func (s *modelScorer) ExtractCV(ctx context.Context, cvText string, trace *ScoreTrace) (CVExtract, error) {
	prompt := s.prompts.BuildExtractPrompt(cvText)
	parsed, rawText := s.client.GenerateJSON(ctx, prompt, 0.0, 512)
	trace.record("p1", StepP1Extract, rawText, parsed)
	return CoerceCVExtract(parsed), nil
}

func (s *modelScorer) ScoreCV(ctx context.Context, extract CVExtract, cvCtx, jobTitle string, trace *ScoreTrace) (CVScores, error) {
	extractedJSON, err := json.Marshal(extract)
	if err != nil {
		return CVScores{}, fmt.Errorf("failed to marshal extraction: %w", err)
	}

	prompt := s.prompts.BuildCVScorePrompt(jobTitle, string(extractedJSON), cvCtx)
	parsed, rawText := s.client.GenerateJSON(ctx, prompt, 0.1, 256)
	trace.record("p2", StepP2CVScore, rawText, parsed)
	return CoerceCVScores(parsed), nil
}

func (s *modelScorer) ScoreProject(ctx context.Context, projectText, projectCtx, jobTitle string, trace *ScoreTrace) (ProjectScores, error) {
	prompt := s.prompts.BuildProjectScorePrompt(jobTitle, projectText, projectCtx)
	parsed, rawText := s.client.GenerateJSON(ctx, prompt, 0.1, 256)
	trace.record("p3", StepP3ProjectScore, rawText, parsed)
	return CoerceProjectScores(parsed), nil
}

func (s *modelScorer) Summarize(ctx context.Context, in SummaryInput, trace *ScoreTrace) (string, map[string]interface{}, error) {
	cvJSON, err := json.Marshal(in.CVScores)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal cv scores: %w", err)
	}
	projJSON, err := json.Marshal(in.ProjectScores)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal project scores: %w", err)
	}

	prompt := s.prompts.BuildSummaryPrompt(
		in.JobTitle, string(cvJSON), string(projJSON), in.CVContext, in.ProjectContext,
	)
	raw, rawText := s.client.GenerateJSON(ctx, prompt, 0.2, 256)
	trace.record("p4", StepP4Summary, rawText, raw)

	summary := strings.TrimSpace(asString(raw["overall_summary"]))
	if summary == "" {
		summary = strings.TrimSpace(fmt.Sprintf(
			"CV match %.0f%% and project score %.1f/5. %s %s",
			in.CVMatchRate, in.ProjectScore,
			strings.TrimSpace(in.CVScores.Feedback),
			strings.TrimSpace(in.ProjectScores.Feedback),
		))
	}

	return summary, raw, nil
}
