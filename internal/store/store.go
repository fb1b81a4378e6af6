// Package store persists chunk embeddings and answers nearest-neighbor
// queries by cosine similarity.
package store

import (
	"context"

	"rag-chatbot/internal/models"
)

// RelevanceFloor is the absolute similarity below which candidates are
// excluded before truncation, so the fetch budget is never spent on
// near-orthogonal vectors.
const RelevanceFloor = 0.1

// VectorStore is the gateway to the vector database. Upsert is a no-op when
// a record with the same chunk id already exists; Query returns candidates
// ordered by descending similarity, floor-filtered and truncated to
// fetchCount.
type VectorStore interface {
	Upsert(ctx context.Context, rec models.EmbeddedChunk) error
	Has(ctx context.Context, id string) (bool, error)
	Query(ctx context.Context, embedding []float32, fetchCount int) ([]models.SearchResult, error)
	Close() error
}
