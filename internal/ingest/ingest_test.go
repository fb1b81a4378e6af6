package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-chatbot/internal/models"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	return []float32{float32(len(text)), 1, 0}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]models.EmbeddedChunk
	failOn  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]models.EmbeddedChunk{}}
}

func (f *fakeStore) Upsert(_ context.Context, rec models.EmbeddedChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && rec.Chunk.ID == f.failOn {
		return errors.New("store unavailable")
	}
	if _, ok := f.records[rec.Chunk.ID]; ok {
		return nil
	}
	f.records[rec.Chunk.ID] = rec
	return nil
}

func (f *fakeStore) Has(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	return ok, nil
}

func (f *fakeStore) Query(_ context.Context, _ []float32, _ int) ([]models.SearchResult, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestChunkIDsDeterministic(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 60)
	path := writeDoc(t, dir, "doc.txt", content)

	g := New(&fakeEmbedder{}, newFakeStore(), 1000, 200)

	first, err := g.Chunks(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := g.Chunks(path)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestChunkIDFormat(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("some words here to fill the page with text. ", 80)
	path := writeDoc(t, dir, "doc.txt", content)

	g := New(&fakeEmbedder{}, newFakeStore(), 500, 100)
	chunks, err := g.Chunks(path)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.Equal(t, fmt.Sprintf("%s:%d:%d", path, c.PageNumber, c.SequenceIndex), c.ID)
		assert.Equal(t, i, c.SequenceIndex, "single-page doc sequence increments per chunk")
	}
}

func TestSequenceResetsOnPageChange(t *testing.T) {
	chunks := assignIDs([]models.Chunk{
		{SourcePath: "a.pdf", PageNumber: 1},
		{SourcePath: "a.pdf", PageNumber: 1},
		{SourcePath: "a.pdf", PageNumber: 2},
		{SourcePath: "a.pdf", PageNumber: 2},
		{SourcePath: "a.pdf", PageNumber: 2},
	})

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"a.pdf:1:0", "a.pdf:1:1", "a.pdf:2:0", "a.pdf:2:1", "a.pdf:2:2"}, ids)
}

func TestIngestIdempotent(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("all work and no play makes jack a dull boy. ", 60)
	path := writeDoc(t, dir, "doc.txt", content)

	embedder := &fakeEmbedder{}
	st := newFakeStore()
	g := New(embedder, st, 500, 100)

	stored, err := g.Ingest(context.Background(), path)
	require.NoError(t, err)
	require.Greater(t, stored, 0)
	embedCalls := embedder.calls

	stored, err = g.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, stored, "second ingestion stores nothing")
	assert.Equal(t, embedCalls, embedder.calls, "existing chunks are not re-embedded")
}

func TestIngestAbortsBatchOnStoreError(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("several sentences of sample text for chunking purposes. ", 60)
	path := writeDoc(t, dir, "doc.txt", content)

	g := New(&fakeEmbedder{}, newFakeStore(), 500, 100)
	chunks, err := g.Chunks(path)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	st := newFakeStore()
	st.failOn = chunks[2].ID
	g = New(&fakeEmbedder{}, st, 500, 100)

	stored, err := g.Ingest(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, 2, stored, "chunks committed before the failure remain")

	// Re-running completes the document: the two committed chunks are
	// skipped, the rest are stored.
	st.failOn = ""
	stored, err = g.Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, len(chunks)-2, stored)
	assert.Len(t, st.records, len(chunks))
}

func TestConcurrentIngestNoDuplicates(t *testing.T) {
	dir := t.TempDir()
	content := strings.Repeat("concurrency is not parallelism but both apply here. ", 60)
	path := writeDoc(t, dir, "doc.txt", content)

	st := newFakeStore()
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := New(&fakeEmbedder{}, st, 500, 100)
			_, err := g.Ingest(context.Background(), path)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	g := New(&fakeEmbedder{}, newFakeStore(), 500, 100)
	chunks, err := g.Chunks(path)
	require.NoError(t, err)
	assert.Len(t, st.records, len(chunks), "exactly one record per logical chunk id")
}

func TestIngestEmbedErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.txt", "short document")

	g := New(&fakeEmbedder{err: errors.New("embedding service down")}, newFakeStore(), 1000, 200)
	_, err := g.Ingest(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service down")
}

func TestIngestUnreadableFile(t *testing.T) {
	g := New(&fakeEmbedder{}, newFakeStore(), 1000, 200)
	_, err := g.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
