package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/models"
)

func chunkRec(id, content, fileName string, embedding []float32) models.EmbeddedChunk {
	return models.EmbeddedChunk{
		Chunk: models.Chunk{
			ID:         id,
			Content:    content,
			SourcePath: "data/" + fileName,
		},
		Embedding: embedding,
		FileName:  fileName,
	}
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore("", "test_collection")
	require.NoError(t, err)
	return s
}

func TestUpsertAndHas(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.Has(ctx, "doc.txt:0:0")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Upsert(ctx, chunkRec("doc.txt:0:0", "content", "doc.txt", []float32{1, 0, 0})))

	ok, err = s.Has(ctx, "doc.txt:0:0")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsertExistingIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Upsert(ctx, chunkRec("doc.txt:0:0", "original", "doc.txt", []float32{1, 0, 0})))
	require.NoError(t, s.Upsert(ctx, chunkRec("doc.txt:0:0", "changed", "doc.txt", []float32{0, 1, 0})))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "original", results[0].Content)
}

func TestQueryOrdersBySimilarity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Upsert(ctx, chunkRec("a.txt:0:0", "close match", "a.txt", []float32{0.8, 0.6, 0})))
	require.NoError(t, s.Upsert(ctx, chunkRec("b.txt:0:0", "exact match", "b.txt", []float32{1, 0, 0})))
	require.NoError(t, s.Upsert(ctx, chunkRec("c.txt:0:0", "weak match", "c.txt", []float32{0.6, 0.8, 0})))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact match", results[0].Content)
	assert.Equal(t, "close match", results[1].Content)
	assert.Equal(t, "weak match", results[2].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
	assert.InDelta(t, 0.8, results[1].Similarity, 1e-4)
}

func TestQueryAppliesRelevanceFloor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Upsert(ctx, chunkRec("a.txt:0:0", "relevant", "a.txt", []float32{1, 0, 0})))
	require.NoError(t, s.Upsert(ctx, chunkRec("b.txt:0:0", "orthogonal", "b.txt", []float32{0, 1, 0})))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "relevant", results[0].Content)
}

func TestQueryTruncatesToFetchCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Upsert(ctx, chunkRec("a.txt:0:0", "one", "a.txt", []float32{1, 0, 0})))
	require.NoError(t, s.Upsert(ctx, chunkRec("a.txt:0:1", "two", "a.txt", []float32{0.9, 0.43589, 0})))
	require.NoError(t, s.Upsert(ctx, chunkRec("a.txt:0:2", "three", "a.txt", []float32{0.8, 0.6, 0})))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQueryEmptyStore(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryCarriesFileNameMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := chunkRec("manual.pdf:3:1", "page text", "manual.pdf", []float32{1, 0, 0})
	rec.Chunk.PageNumber = 3
	require.NoError(t, s.Upsert(ctx, rec))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "manual.pdf", results[0].FileName)
	assert.Equal(t, "data/manual.pdf", results[0].Metadata[models.MetaSourcePath])
	assert.Equal(t, "3", results[0].Metadata[models.MetaPageNumber])
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[1,0,-0.5]", vectorLiteral([]float32{1, 0, -0.5}))
	assert.Equal(t, "[]", vectorLiteral(nil))
}
