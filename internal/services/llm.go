package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"hafizramadhan/cv-scoring/internal/config"
)

// ModelClient is the narrow contract the scorer needs from a text generator.
// GenerateJSON never fails: provider or parse errors fail open to an empty
// object, which the normalization layer turns into neutral defaults. The raw
// response text is returned alongside so callers can persist it.
type ModelClient interface {
	GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int32) (map[string]interface{}, string)
	Generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

// NewModelClient picks the provider from config, falling back to the mock
// when the gemini key is missing.
func NewModelClient(cfg *config.Config, log *slog.Logger) (ModelClient, error) {
	if cfg.LLM.Provider == "gemini" && cfg.Gemini.APIKey != "" {
		return NewGeminiClient(cfg.Gemini.APIKey, cfg.LLM.Model, cfg.LLM.Retries, log)
	}
	return NewMockModelClient(), nil
}

type geminiClient struct {
	client     *genai.Client
	model      string
	maxRetries int
	log        *slog.Logger
}

func NewGeminiClient(apiKey, model string, maxRetries int, log *slog.Logger) (ModelClient, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if maxRetries < 1 {
		maxRetries = 1
	}
	return &geminiClient{
		client:     client,
		model:      model,
		maxRetries: maxRetries,
		log:        log,
	}, nil
}

func (g *geminiClient) generateOnce(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}

func (g *geminiClient) generateWithRetry(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		result, err := g.generateOnce(ctx, prompt, temperature, maxTokens)
		if err == nil {
			return result, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if attempt < g.maxRetries {
			g.log.Warn("model call failed, retrying", "attempt", attempt, "error", err)
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", g.maxRetries, lastErr)
}

func (g *geminiClient) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	return g.generateWithRetry(ctx, prompt, temperature, 4096)
}

func (g *geminiClient) GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int32) (map[string]interface{}, string) {
	text, err := g.generateWithRetry(ctx, prompt, temperature, maxTokens)
	if err != nil {
		g.log.Error("model call failed after retries, failing open", "error", err)
		return map[string]interface{}{}, ""
	}
	return ParseJSONObject(text), text
}

// ParseJSONObject extracts and parses the first JSON object in a model
// response, tolerating markdown fences and surrounding prose. Parse failure
// yields an empty object.
func ParseJSONObject(text string) map[string]interface{} {
	candidate := ExtractJSONBlock(text)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &out); err != nil || out == nil {
		return map[string]interface{}{}
	}
	return out
}

// ExtractJSONBlock strips markdown code fences and cuts the text down to the
// outermost {...} or [...] span.
func ExtractJSONBlock(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	endObj := strings.LastIndex(text, "}")
	if startObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	}

	startArr := strings.Index(text, "[")
	endArr := strings.LastIndex(text, "]")
	if startArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

// mockModelClient answers prompts with canned payloads keyed on prompt
// markers, used when no provider is configured and in tests.
type mockModelClient struct{}

func NewMockModelClient() ModelClient {
	return &mockModelClient{}
}

func containsAny(s string, keys ...string) bool {
	s = strings.ToLower(s)
	for _, k := range keys {
		if strings.Contains(s, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func (m *mockModelClient) GenerateJSON(ctx context.Context, prompt string, temperature float32, maxTokens int32) (map[string]interface{}, string) {
	out := m.cannedReply(ctx, prompt, temperature, maxTokens)
	raw, err := json.Marshal(out)
	if err != nil {
		return out, ""
	}
	return out, string(raw)
}

func (m *mockModelClient) cannedReply(_ context.Context, prompt string, _ float32, _ int32) map[string]interface{} {
	switch {
	case containsAny(prompt, "overall_summary", "return json only with this exact schema"):
		return map[string]interface{}{
			"overall_summary": "Mock summary without a live model.",
			"recommendation":  "hold",
			"strengths":       []interface{}{"stable mock path"},
			"gaps":            []interface{}{"no model reasoning"},
			"next_steps":      []interface{}{"enable the model or review manually"},
		}
	case containsAny(prompt, "project scorer", "[project_text]", "project rubric"):
		return map[string]interface{}{
			"corr": 3, "code": 3, "res": 3, "docs": 3, "bonus": 3,
			"feedback": "Mock project feedback.",
		}
	case containsAny(prompt, "cv scorer", "score the candidate's cv", "[extracted_cv_json]"):
		return map[string]interface{}{
			"skills": 3, "exp": 3, "ach": 3, "culture": 3,
			"feedback": "Mock CV feedback.",
		}
	case containsAny(prompt, "information extractor", "fields (all required)"):
		return map[string]interface{}{
			"skills_backend": []interface{}{}, "skills_db": []interface{}{},
			"skills_api": []interface{}{}, "skills_cloud": []interface{}{},
			"skills_ai": []interface{}{}, "experience_years": 0.0,
			"projects": []interface{}{},
		}
	default:
		return map[string]interface{}{}
	}
}

func (m *mockModelClient) Generate(_ context.Context, _ string, _ float32) (string, error) {
	return "ok", nil
}
