package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"hafizramadhan/cv-scoring/internal/models"
	"hafizramadhan/cv-scoring/internal/repositories"
)

const (
	defaultTopK      = 4
	fallbackScore    = 0.5
	contextSeparator = "\n\n---\n\n"

	// Qdrant only returns its top hits, so ask for more than topK and let the
	// priority/recency sort decide locally.
	indexSearchLimit = 64
)

// RagHit is one ranked excerpt with a score in [0,1].
type RagHit struct {
	Title string
	Body  string
	Score float64
}

type SearchParams struct {
	QueryText string
	TopK      int
	DocType   *models.RagDocType
	Tags      []string
}

// ContextOptions tune context building. All fields are optional.
type ContextOptions struct {
	RoleTag     string
	ExtraQuery  string
	Tags        []string
	JobDescText string // inline JD, prepended verbatim when present
	TopK        int
}

// Retriever builds grounding context for scoring out of the stored rubric and
// job-description documents.
type Retriever interface {
	Search(ctx context.Context, params SearchParams) ([]RagHit, error)
	BuildCVContext(ctx context.Context, opts ContextOptions) (string, error)
	BuildProjectContext(ctx context.Context, opts ContextOptions) (string, error)
	InferJobTitle(ctx context.Context, opts ContextOptions, defaultTitle string) (string, error)
	AddDocument(ctx context.Context, docType models.RagDocType, title, body string, tags []string) (*models.RagDoc, error)
}

type retriever struct {
	docs     repositories.RagDocRepository
	embedder Embedder
	index    VectorIndex
	metric   string // "l2" | "cosine"
	log      *slog.Logger
}

func NewRetriever(
	docs repositories.RagDocRepository,
	embedder Embedder,
	index VectorIndex,
	metric string,
	log *slog.Logger,
) Retriever {
	if metric != "cosine" {
		metric = "l2"
	}
	return &retriever{
		docs:     docs,
		embedder: embedder,
		index:    index,
		metric:   metric,
		log:      log,
	}
}

// AddDocument embeds title+body, stores the row and upserts the vector.
func (r *retriever) AddDocument(ctx context.Context, docType models.RagDocType, title, body string, tags []string) (*models.RagDoc, error) {
	vec, err := r.embedder.Embed(ctx, title+"\n\n"+body)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document: %w", err)
	}

	doc := &models.RagDoc{
		ID:        uuid.New(),
		Type:      docType,
		Title:     title,
		Body:      body,
		Tags:      models.StringArray(tags),
		Embedding: models.Vector(vec),
	}
	if err := r.docs.Create(doc); err != nil {
		return nil, err
	}

	if err := r.index.UpsertDoc(ctx, doc.ID, docType, vec); err != nil {
		// Row is still usable through the non-vector fallback.
		r.log.Warn("vector upsert failed", "doc_id", doc.ID, "error", err)
	}

	return doc, nil
}

// Search ranks documents current-first, then by distance to the query
// embedding, then by recency. It returns an error only when the document
// store itself is unavailable; embedding or vector failures degrade to a
// non-vector ranking with a placeholder score.
func (r *retriever) Search(ctx context.Context, params SearchParams) ([]RagHit, error) {
	topK := params.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	rows, err := r.docs.List(params.DocType)
	if err != nil {
		return nil, err
	}

	distances, vectorOK := r.queryDistances(ctx, params)
	if !vectorOK {
		return fallbackRank(rows, params.Tags, topK), nil
	}

	// Vector path filters by tag containment.
	var candidates []models.RagDoc
	for _, doc := range rows {
		if doc.Tags.ContainsAll(params.Tags) {
			candidates = append(candidates, doc)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if pa, pb := priority(a), priority(b); pa != pb {
			return pa < pb
		}
		da, db := docDistance(distances, a.ID), docDistance(distances, b.ID)
		if da != db {
			return da < db
		}
		return moreRecent(a, b)
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	hits := make([]RagHit, 0, len(candidates))
	for i := range candidates {
		doc := &candidates[i]
		hits = append(hits, RagHit{
			Title: doc.Title,
			Body:  doc.Body,
			Score: distanceToScore(r.metric, docDistance(distances, doc.ID)),
		})
	}
	return hits, nil
}

// queryDistances embeds the query and asks the vector index for distances.
// Any failure flips the caller to the fallback ranking.
func (r *retriever) queryDistances(ctx context.Context, params SearchParams) (map[uuid.UUID]float64, bool) {
	qvec, err := r.embedder.Embed(ctx, params.QueryText)
	if err != nil {
		r.log.Warn("query embedding failed, using non-vector ranking", "error", err)
		return nil, false
	}

	vhits, err := r.index.Search(ctx, qvec, params.DocType, indexSearchLimit)
	if err != nil {
		r.log.Warn("vector search failed, using non-vector ranking", "error", err)
		return nil, false
	}

	distances := make(map[uuid.UUID]float64, len(vhits))
	for _, h := range vhits {
		distances[h.ID] = h.Distance
	}
	return distances, true
}

// fallbackRank orders by (current-priority, recency) with a relaxed tag
// overlap filter and a constant placeholder score.
func fallbackRank(rows []models.RagDoc, tags []string, topK int) []RagHit {
	var candidates []models.RagDoc
	for _, doc := range rows {
		if len(tags) > 0 && !doc.Tags.Overlaps(tags) {
			continue
		}
		candidates = append(candidates, doc)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if pa, pb := priority(a), priority(b); pa != pb {
			return pa < pb
		}
		return moreRecent(a, b)
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	hits := make([]RagHit, 0, len(candidates))
	for i := range candidates {
		hits = append(hits, RagHit{
			Title: candidates[i].Title,
			Body:  candidates[i].Body,
			Score: fallbackScore,
		})
	}
	return hits
}

func priority(doc *models.RagDoc) int {
	if doc.IsCurrent() {
		return 0
	}
	return 1
}

func docDistance(distances map[uuid.UUID]float64, id uuid.UUID) float64 {
	if d, ok := distances[id]; ok {
		return d
	}
	// Not in the index's top hits: rank after everything with a distance.
	return math.Inf(1)
}

func moreRecent(a, b *models.RagDoc) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// distanceToScore maps distance 0 to score 1 and decays monotonically.
func distanceToScore(metric string, distance float64) float64 {
	if math.IsInf(distance, 1) {
		return 0
	}
	if metric == "cosine" {
		return math.Max(0, 1.0-distance/2.0)
	}
	return 1.0 / (1.0 + distance)
}

func (r *retriever) BuildCVContext(ctx context.Context, opts ContextOptions) (string, error) {
	return r.buildContext(ctx, opts, "cv", "cv scoring rubric")
}

func (r *retriever) BuildProjectContext(ctx context.Context, opts ContextOptions) (string, error) {
	return r.buildContext(ctx, opts, "project", "project scoring rubric")
}

// buildContext takes up to two rubric hits then fills the remaining budget
// with job-description hits; an inline JD is prepended and only reduces the
// remaining budget.
func (r *retriever) buildContext(ctx context.Context, opts ContextOptions, kindTag, rubricQuery string) (string, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	var parts []string
	inlineJD := strings.TrimSpace(opts.JobDescText)
	if inlineJD != "" {
		parts = append(parts, inlineJD)
	}

	rubricBudget := topK
	if inlineJD != "" {
		rubricBudget--
	}
	rubricBudget = min(2, max(1, rubricBudget))

	query := opts.ExtraQuery
	if query == "" {
		query = opts.RoleTag
	}
	if query == "" {
		query = rubricQuery
	}

	rubricType := models.DocTypeRubric
	rubric, err := r.Search(ctx, SearchParams{
		QueryText: query,
		TopK:      rubricBudget,
		DocType:   &rubricType,
		Tags:      dedup(append(append([]string{}, opts.Tags...), kindTag), opts.RoleTag),
	})
	if err != nil {
		return "", err
	}

	var jd []RagHit
	if inlineJD == "" && topK > len(rubric) {
		jdQuery := opts.RoleTag
		if jdQuery == "" {
			jdQuery = "job description"
		}
		jdType := models.DocTypeJobDesc
		jd, err = r.Search(ctx, SearchParams{
			QueryText: jdQuery,
			TopK:      topK - len(rubric),
			DocType:   &jdType,
			Tags:      dedup(append([]string{}, opts.Tags...), opts.RoleTag),
		})
		if err != nil {
			return "", err
		}
	}

	for _, hit := range append(rubric, jd...) {
		if body := strings.TrimSpace(hit.Body); body != "" {
			parts = append(parts, body)
		}
	}

	return strings.Join(parts, contextSeparator), nil
}

// InferJobTitle prefers the inline JD's first line, then the closest
// job-description document's title, then the supplied default.
func (r *retriever) InferJobTitle(ctx context.Context, opts ContextOptions, defaultTitle string) (string, error) {
	if jd := strings.TrimSpace(opts.JobDescText); jd != "" {
		firstLine := strings.TrimSpace(strings.SplitN(jd, "\n", 2)[0])
		if len(firstLine) >= 3 && len(firstLine) <= 120 {
			return firstLine, nil
		}
	}

	query := opts.RoleTag
	if query == "" {
		query = "job description"
	}
	jdType := models.DocTypeJobDesc
	hits, err := r.Search(ctx, SearchParams{
		QueryText: query,
		TopK:      1,
		DocType:   &jdType,
		Tags:      dedup(append([]string{}, opts.Tags...), opts.RoleTag),
	})
	if err != nil {
		return "", err
	}

	if len(hits) > 0 && strings.TrimSpace(hits[0].Title) != "" {
		return strings.TrimSpace(hits[0].Title), nil
	}

	return defaultTitle, nil
}

// dedup keeps first occurrences, dropping empties. extra is appended last.
func dedup(tags []string, extra string) []string {
	if extra != "" {
		tags = append(tags, extra)
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
