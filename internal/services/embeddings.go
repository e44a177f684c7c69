package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"google.golang.org/genai"

	"hafizramadhan/cv-scoring/internal/config"
)

const maxEmbedInput = 8000

// Embedder turns text into a fixed-dimension, L2-normalized vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// NewEmbedder picks the provider from config. Unknown providers and a missing
// API key both resolve to the deterministic hash embedder.
func NewEmbedder(cfg *config.Config) (Embedder, error) {
	if cfg.Embed.Provider == "gemini" && cfg.Gemini.APIKey != "" {
		return NewGeminiEmbedder(cfg.Gemini.APIKey, cfg.Embed.Model, cfg.Embed.Dim)
	}
	return NewHashEmbedder(cfg.Embed.Dim), nil
}

// hashEmbedder expands a SHA-256 digest of the text into a pseudo-random but
// deterministic vector. It needs no external service, which is what the
// retrieval fallback path relies on.
type hashEmbedder struct {
	dim int
}

func NewHashEmbedder(dim int) Embedder {
	if dim <= 0 {
		dim = 768
	}
	return &hashEmbedder{dim: dim}
}

func (h *hashEmbedder) Dim() int {
	return h.dim
}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return hashEmbed(text, h.dim), nil
}

func hashEmbed(text string, dim int) []float32 {
	if len(text) > maxEmbedInput {
		text = text[:maxEmbedInput]
	}

	seed := sha256.Sum256([]byte(text))
	vec := make([]float32, 0, dim)

	var counter uint32
	for len(vec) < dim {
		var block [36]byte
		copy(block[:], seed[:])
		binary.LittleEndian.PutUint32(block[32:], counter)
		digest := sha256.Sum256(block[:])

		for i := 0; i+4 <= len(digest) && len(vec) < dim; i += 4 {
			n := binary.LittleEndian.Uint32(digest[i : i+4])
			vec = append(vec, float32(float64(n)/(1<<32)*2.0-1.0))
		}
		counter++
	}

	l2Normalize(vec)
	return vec
}

func l2Normalize(vec []float32) {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}

type geminiEmbedder struct {
	client   *genai.Client
	model    string
	dim      int
	fallback Embedder
}

func NewGeminiEmbedder(apiKey, model string, dim int) (Embedder, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if dim <= 0 {
		dim = 768
	}
	return &geminiEmbedder{
		client:   client,
		model:    model,
		dim:      dim,
		fallback: NewHashEmbedder(dim),
	}, nil
}

func (g *geminiEmbedder) Dim() int {
	return g.dim
}

// Embed calls the provider and fails open to the hash embedder, so retrieval
// keeps working when the embedding service is down.
func (g *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncate(text, maxEmbedInput)

	result, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), nil)
	if err != nil || result == nil || len(result.Embeddings) == 0 {
		return g.fallback.Embed(ctx, text)
	}

	vec := result.Embeddings[0].Values
	vec = fitDimension(vec, g.dim, text)
	l2Normalize(vec)
	return vec, nil
}

// fitDimension truncates or pads a provider vector to the configured size.
func fitDimension(vec []float32, dim int, text string) []float32 {
	if len(vec) == dim {
		return vec
	}
	if len(vec) > dim {
		return vec[:dim]
	}
	pad := hashEmbed(text+"|pad", dim-len(vec))
	return append(vec, pad...)
}
