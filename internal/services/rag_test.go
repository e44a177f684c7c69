package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hafizramadhan/cv-scoring/internal/models"
)

type fakeDocRepo struct {
	docs    []models.RagDoc
	listErr error
}

func (f *fakeDocRepo) Create(doc *models.RagDoc) error {
	f.docs = append(f.docs, *doc)
	return nil
}

func (f *fakeDocRepo) FindByID(id uuid.UUID) (*models.RagDoc, error) {
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, fmt.Errorf("rag doc not found")
}

func (f *fakeDocRepo) List(docType *models.RagDocType) ([]models.RagDoc, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.RagDoc
	for _, d := range f.docs {
		if docType == nil || d.Type == *docType {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocRepo) PromoteCurrent(uuid.UUID, models.RagDocType, []string) error {
	return nil
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Dim() int { return 3 }

type fakeIndex struct {
	distances map[uuid.UUID]float64
	searchErr error
	upserted  int
}

func (f *fakeIndex) InitCollection() error { return nil }

func (f *fakeIndex) UpsertDoc(context.Context, uuid.UUID, models.RagDocType, []float32) error {
	f.upserted++
	return nil
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, _ *models.RagDocType, _ int) ([]VectorHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var hits []VectorHit
	for id, d := range f.distances {
		hits = append(hits, VectorHit{ID: id, Distance: d})
	}
	return hits, nil
}

func (f *fakeIndex) DeleteDoc(context.Context, uuid.UUID) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rubricDoc(title string, tags []string, age time.Duration) models.RagDoc {
	return models.RagDoc{
		ID:        uuid.New(),
		Type:      models.DocTypeRubric,
		Title:     title,
		Body:      title + " body",
		Tags:      models.StringArray(tags),
		UpdatedAt: time.Now().Add(-age),
	}
}

func TestSearchCurrentDocRanksFirst(t *testing.T) {
	current := rubricDoc("current rubric", []string{"cv", models.TagCurrent}, time.Hour)
	closer := rubricDoc("closer rubric", []string{"cv"}, time.Minute)

	repo := &fakeDocRepo{docs: []models.RagDoc{closer, current}}
	// The non-current doc is strictly closer to the query.
	index := &fakeIndex{distances: map[uuid.UUID]float64{
		current.ID: 0.9,
		closer.ID:  0.1,
	}}

	r := NewRetriever(repo, &fakeEmbedder{}, index, "l2", testLogger())

	rubricType := models.DocTypeRubric
	hits, err := r.Search(context.Background(), SearchParams{
		QueryText: "cv scoring rubric",
		TopK:      2,
		DocType:   &rubricType,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "current rubric", hits[0].Title)
	assert.Equal(t, "closer rubric", hits[1].Title)
	assert.Greater(t, hits[1].Score, hits[0].Score)
}

func TestSearchTagContainmentFilters(t *testing.T) {
	cvDoc := rubricDoc("cv rubric", []string{"cv", "backend"}, time.Hour)
	projDoc := rubricDoc("project rubric", []string{"project"}, time.Hour)

	repo := &fakeDocRepo{docs: []models.RagDoc{cvDoc, projDoc}}
	index := &fakeIndex{distances: map[uuid.UUID]float64{
		cvDoc.ID:   0.2,
		projDoc.ID: 0.1,
	}}

	r := NewRetriever(repo, &fakeEmbedder{}, index, "l2", testLogger())

	hits, err := r.Search(context.Background(), SearchParams{
		QueryText: "rubric",
		Tags:      []string{"cv"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "cv rubric", hits[0].Title)
}

func TestSearchFallsBackWhenEmbeddingFails(t *testing.T) {
	current := rubricDoc("current rubric", []string{"cv", models.TagCurrent}, time.Hour)
	newer := rubricDoc("newer rubric", []string{"cv"}, time.Minute)
	older := rubricDoc("older rubric", []string{"cv"}, 48*time.Hour)

	repo := &fakeDocRepo{docs: []models.RagDoc{older, newer, current}}

	r := NewRetriever(repo, &fakeEmbedder{err: fmt.Errorf("provider down")}, &fakeIndex{}, "l2", testLogger())

	hits, err := r.Search(context.Background(), SearchParams{
		QueryText: "rubric",
		Tags:      []string{"cv"},
		TopK:      3,
	})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "current rubric", hits[0].Title)
	assert.Equal(t, "newer rubric", hits[1].Title)
	assert.Equal(t, "older rubric", hits[2].Title)
	for _, h := range hits {
		assert.Equal(t, 0.5, h.Score)
	}
}

func TestSearchFallsBackWhenIndexFails(t *testing.T) {
	doc := rubricDoc("rubric", []string{"cv"}, time.Hour)
	repo := &fakeDocRepo{docs: []models.RagDoc{doc}}
	index := &fakeIndex{searchErr: fmt.Errorf("qdrant unavailable")}

	r := NewRetriever(repo, &fakeEmbedder{}, index, "l2", testLogger())

	hits, err := r.Search(context.Background(), SearchParams{QueryText: "rubric"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.5, hits[0].Score)
}

func TestDistanceToScore(t *testing.T) {
	assert.Equal(t, 1.0, distanceToScore("l2", 0))
	assert.Equal(t, 0.5, distanceToScore("l2", 1))
	assert.Equal(t, 1.0, distanceToScore("cosine", 0))
	assert.Equal(t, 0.0, distanceToScore("cosine", 2))
	assert.InDelta(t, 0.75, distanceToScore("cosine", 0.5), 1e-9)
}

func TestBuildCVContextJoinsWithSeparator(t *testing.T) {
	rubric := rubricDoc("cv rubric", []string{"cv", models.TagCurrent}, time.Hour)
	jd := models.RagDoc{
		ID:        uuid.New(),
		Type:      models.DocTypeJobDesc,
		Title:     "Backend Engineer",
		Body:      "Backend Engineer jd body",
		Tags:      models.StringArray{models.TagCurrent},
		UpdatedAt: time.Now(),
	}

	repo := &fakeDocRepo{docs: []models.RagDoc{rubric, jd}}
	index := &fakeIndex{distances: map[uuid.UUID]float64{
		rubric.ID: 0.1,
		jd.ID:     0.2,
	}}

	r := NewRetriever(repo, &fakeEmbedder{}, index, "l2", testLogger())

	ctx, err := r.BuildCVContext(context.Background(), ContextOptions{TopK: 2})
	require.NoError(t, err)

	assert.Contains(t, ctx, "cv rubric body")
	assert.Contains(t, ctx, "Backend Engineer jd body")
	assert.Contains(t, ctx, contextSeparator)
}

func TestBuildCVContextInlineJDComesFirst(t *testing.T) {
	rubric := rubricDoc("cv rubric", []string{"cv", models.TagCurrent}, time.Hour)
	repo := &fakeDocRepo{docs: []models.RagDoc{rubric}}
	index := &fakeIndex{distances: map[uuid.UUID]float64{rubric.ID: 0.1}}

	r := NewRetriever(repo, &fakeEmbedder{}, index, "l2", testLogger())

	ctx, err := r.BuildCVContext(context.Background(), ContextOptions{
		JobDescText: "Senior Backend Engineer\nWe build APIs.",
		TopK:        2,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ctx, "Senior Backend Engineer"))
	assert.Contains(t, ctx, "cv rubric body")
}

func TestInferJobTitle(t *testing.T) {
	jd := models.RagDoc{
		ID:        uuid.New(),
		Type:      models.DocTypeJobDesc,
		Title:     "Product Engineer (Backend)",
		Body:      "jd body",
		Tags:      models.StringArray{models.TagCurrent},
		UpdatedAt: time.Now(),
	}
	repo := &fakeDocRepo{docs: []models.RagDoc{jd}}
	index := &fakeIndex{distances: map[uuid.UUID]float64{jd.ID: 0.1}}

	r := NewRetriever(repo, &fakeEmbedder{}, index, "l2", testLogger())
	ctx := context.Background()

	t.Run("inline JD first line wins", func(t *testing.T) {
		title, err := r.InferJobTitle(ctx, ContextOptions{
			JobDescText: "Staff Engineer\nrest of the posting",
		}, "General Role")
		require.NoError(t, err)
		assert.Equal(t, "Staff Engineer", title)
	})

	t.Run("too short first line falls through to stored JD", func(t *testing.T) {
		title, err := r.InferJobTitle(ctx, ContextOptions{
			JobDescText: "x\nrest of the posting",
		}, "General Role")
		require.NoError(t, err)
		assert.Equal(t, "Product Engineer (Backend)", title)
	})

	t.Run("default when nothing is stored", func(t *testing.T) {
		empty := NewRetriever(&fakeDocRepo{}, &fakeEmbedder{}, &fakeIndex{}, "l2", testLogger())
		title, err := empty.InferJobTitle(ctx, ContextOptions{}, "General Role")
		require.NoError(t, err)
		assert.Equal(t, "General Role", title)
	})
}

func TestAddDocumentStoresRowAndVector(t *testing.T) {
	repo := &fakeDocRepo{}
	index := &fakeIndex{}

	r := NewRetriever(repo, &fakeEmbedder{}, index, "l2", testLogger())

	doc, err := r.AddDocument(context.Background(), models.DocTypeRubric, "rubric", "body", []string{"cv"})
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Len(t, repo.docs, 1)
	assert.Equal(t, 1, index.upserted)
	assert.Equal(t, models.DocTypeRubric, repo.docs[0].Type)
}
