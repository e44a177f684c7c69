package services

import (
	"fmt"
	"unicode/utf8"
)

// Hard input caps applied before any prompt is assembled, so a pathological
// document cannot blow the prompt budget.
const (
	maxPromptInput = 20000
	maxSummaryCtx  = 4000
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// truncate caps text at limit bytes, backing off to the previous rune
// boundary so the cut never produces invalid UTF-8.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

// BuildExtractPrompt creates the P1 structured-extraction prompt.
func (pb *PromptBuilder) BuildExtractPrompt(cvText string) string {
	return fmt.Sprintf(`You are an information extractor. Read the CV text and return a STRICT JSON object only.
Fields (all required):
- skills_backend: string[]  (e.g. ["python","fastapi","golang"])
- skills_db: string[]       (e.g. ["postgresql","mysql","redis"])
- skills_api: string[]      (e.g. ["rest","graphql","grpc"])
- skills_cloud: string[]    (e.g. ["aws","gcp","azure"])
- skills_ai: string[]       (e.g. ["rag","vector db","llm","ml"])
- experience_years: number  (total experience in years, can be decimal)
- projects: array of objects {name: string, role: string, tech_stack: string[], impact: string}

Return ONLY a valid JSON object. Do not include any extra text, explanations, or markdown.
CV:
---
%s
---
`, truncate(cvText, maxPromptInput))
}

// BuildCVScorePrompt creates the P2 CV-scoring prompt.
func (pb *PromptBuilder) BuildCVScorePrompt(jobTitle, extractedJSON, cvCtx string) string {
	return fmt.Sprintf(`You are a strict evaluator for the role: %s.
Score the candidate's CV against the job description and the CV rubric.
Return ONLY a JSON with:
- skills: 1..5
- exp: 1..5
- ach: 1..5
- culture: 1..5
- feedback: string (1 paragraph)
Return ONLY a valid JSON object. Do not include any extra text, explanations, or markdown.

Guidelines:
- Use the extracted CV data (JSON) as the main source of truth.
- Use Job Description and CV Rubric as criteria.
- Clamp each score 1..5 (integer only).

INPUT:
[EXTRACTED_CV_JSON]
%s

[JOB_DESCRIPTION_AND_CV_RUBRIC_CONTEXT]
%s
`, jobTitle, extractedJSON, truncate(cvCtx, maxPromptInput))
}

// BuildProjectScorePrompt creates the P3 project-scoring prompt.
func (pb *PromptBuilder) BuildProjectScorePrompt(jobTitle, projectText, projectCtx string) string {
	return fmt.Sprintf(`You are a strict evaluator for the role: %s.
Score the candidate's project report against the project rubric and job description.
Return ONLY a JSON with:
- corr: 1..5   (problem/requirement fit)
- code: 1..5   (code quality/structure)
- res:  1..5   (results/measurement)
- docs: 1..5   (docs/readability)
- bonus:1..5   (tests, reliability, retries, etc.)
- feedback: string (1 paragraph)
Return ONLY a valid JSON object. Do not include any extra text, explanations, or markdown.

Guidelines:
- Focus on the provided Project Text (not CV).
- Use Rubric + JD context.
- Clamp each score 1..5 (integer only).

INPUT:
[PROJECT_TEXT]
%s

[PROJECT_RUBRIC_AND_JD_CONTEXT]
%s
`, jobTitle, truncate(projectText, maxPromptInput), truncate(projectCtx, maxPromptInput))
}

// BuildSummaryPrompt creates the P4 overall-summary prompt.
func (pb *PromptBuilder) BuildSummaryPrompt(jobTitle, cvScoresJSON, projScoresJSON, cvCtx, projectCtx string) string {
	return fmt.Sprintf(`You are a hiring reviewer for the role: %s.
Use the JSON scores and short contexts to craft a concise, evidence-based summary.

CV SCORES (JSON):
%s

PROJECT SCORES (JSON):
%s

EXCERPTS (may be empty):
- CV/JD context:
%s

- Project context:
%s

Return JSON ONLY with this exact schema:
{
  "overall_summary": "<max 3 sentences, concise but specific>",
  "recommendation": "strong_yes|yes|weak_yes|hold|no",
  "strengths": ["...", "..."],
  "gaps": ["...", "..."],
  "next_steps": ["...", "..."]
}
`, jobTitle, cvScoresJSON, projScoresJSON, truncate(cvCtx, maxSummaryCtx), truncate(projectCtx, maxSummaryCtx))
}
