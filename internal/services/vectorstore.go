package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"hafizramadhan/cv-scoring/internal/models"
)

// VectorHit is one ranked row from the vector index. Distance follows the
// configured metric: euclidean distance for l2, 1-similarity for cosine.
type VectorHit struct {
	ID       uuid.UUID
	Distance float64
}

// VectorIndex stores document embeddings keyed by the rag_docs row id.
type VectorIndex interface {
	InitCollection() error
	UpsertDoc(ctx context.Context, id uuid.UUID, docType models.RagDocType, vector []float32) error
	Search(ctx context.Context, vector []float32, docType *models.RagDocType, limit int) ([]VectorHit, error)
	DeleteDoc(ctx context.Context, id uuid.UUID) error
}

type qdrantIndex struct {
	client     *qdrant.Client
	collection string
	vectorSize uint64
	metric     string // "l2" | "cosine"
}

func NewQdrantIndex(urlStr, apiKey, collection string, dim int, metric string) (VectorIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port, unlike the 6333 REST default
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if metric != "cosine" {
		metric = "l2"
	}

	return &qdrantIndex{
		client:     client,
		collection: collection,
		vectorSize: uint64(dim),
		metric:     metric,
	}, nil
}

func (q *qdrantIndex) InitCollection() error {
	ctx := context.Background()

	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	distance := qdrant.Distance_Euclid
	if q.metric == "cosine" {
		distance = qdrant.Distance_Cosine
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

func (q *qdrantIndex) UpsertDoc(ctx context.Context, id uuid.UUID, docType models.RagDocType, vector []float32) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(id.String()),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]interface{}{
			"doc_type": string(docType),
		}),
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}

	return nil
}

func (q *qdrantIndex) Search(ctx context.Context, vector []float32, docType *models.RagDocType, limit int) ([]VectorHit, error) {
	var filter *qdrant.Filter
	if docType != nil {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("doc_type", string(*docType)),
			},
		}
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]VectorHit, 0, len(points))
	for _, point := range points {
		id, err := uuid.Parse(point.Id.GetUuid())
		if err != nil {
			continue
		}

		// Qdrant scores cosine as similarity (higher better) and euclid as
		// distance (lower better); normalize both to a distance.
		distance := float64(point.Score)
		if q.metric == "cosine" {
			distance = 1.0 - float64(point.Score)
		}

		hits = append(hits, VectorHit{ID: id, Distance: distance})
	}

	return hits, nil
}

func (q *qdrantIndex) DeleteDoc(ctx context.Context, id uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewIDUUID(id.String())},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete point: %w", err)
	}

	return nil
}
