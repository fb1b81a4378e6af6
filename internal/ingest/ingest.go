// Package ingest populates the vector store from source documents. Chunk
// ids are derived from content position, so re-running ingestion over an
// unchanged document is a no-op.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/embedding"
	"rag-chatbot/internal/models"
	"rag-chatbot/internal/parser"
	"rag-chatbot/internal/splitter"
	"rag-chatbot/internal/store"
)

// Ingester splits documents, assigns deterministic chunk ids, and stores
// embeddings for chunks not already present.
type Ingester struct {
	embedder     embedding.Embedder
	store        store.VectorStore
	chunkSize    int
	chunkOverlap int
}

func New(embedder embedding.Embedder, st store.VectorStore, chunkSize, chunkOverlap int) *Ingester {
	if chunkSize <= 0 {
		chunkSize = splitter.DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = splitter.DefaultChunkOverlap
	}
	return &Ingester{
		embedder:     embedder,
		store:        st,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunks loads and splits the document, returning its chunks with ids
// assigned. Splitting the same unchanged document with the same parameters
// reproduces identical ids in identical order.
func (g *Ingester) Chunks(documentPath string) ([]models.Chunk, error) {
	pages, err := parser.Parse(documentPath)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentPath, err)
	}

	var chunks []models.Chunk
	for _, page := range pages {
		for _, piece := range splitter.Split(page.Text, g.chunkSize, g.chunkOverlap) {
			chunks = append(chunks, models.Chunk{
				Content:     piece.Text,
				SourcePath:  documentPath,
				PageNumber:  page.Number,
				StartOffset: piece.StartOffset,
			})
		}
	}
	return assignIDs(chunks), nil
}

// assignIDs walks chunks in document order tracking the (source, page) key:
// the sequence index increments while the key repeats and resets to 0 when
// it changes. The id is "sourcePath:pageNumber:sequenceIndex".
func assignIDs(chunks []models.Chunk) []models.Chunk {
	lastPageKey := ""
	seq := 0
	for i := range chunks {
		pageKey := fmt.Sprintf("%s:%d", chunks[i].SourcePath, chunks[i].PageNumber)
		if pageKey == lastPageKey {
			seq++
		} else {
			seq = 0
		}
		chunks[i].SequenceIndex = seq
		chunks[i].ID = fmt.Sprintf("%s:%d", pageKey, seq)
		lastPageKey = pageKey
	}
	return chunks
}

// Ingest processes one document and returns the count of newly stored
// chunks. Already-stored chunks are skipped without re-embedding, so Ingest
// is safe to re-run at any time, including on partially-ingested documents.
// An embedding or store error aborts the remaining batch for this document;
// chunks committed before the error remain valid.
func (g *Ingester) Ingest(ctx context.Context, documentPath string) (int, error) {
	chunks, err := g.Chunks(documentPath)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		log.Info().Str("path", documentPath).Msg("No chunks generated from document")
		return 0, nil
	}

	fileName := filepath.Base(documentPath)
	stored := 0
	for _, chunk := range chunks {
		exists, err := g.store.Has(ctx, chunk.ID)
		if err != nil {
			return stored, fmt.Errorf("check chunk %s: %w", chunk.ID, err)
		}
		if exists {
			log.Debug().Str("chunk_id", chunk.ID).Msg("Skipping existing chunk")
			continue
		}

		vector, err := g.embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return stored, fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}

		rec := models.EmbeddedChunk{
			Chunk:     chunk,
			Embedding: vector,
			FileName:  fileName,
		}
		if err := g.store.Upsert(ctx, rec); err != nil {
			return stored, fmt.Errorf("store chunk %s: %w", chunk.ID, err)
		}
		stored++
	}

	log.Info().Str("path", documentPath).Int("total", len(chunks)).Int("stored", stored).Msg("Document ingested")
	return stored, nil
}

// SyncDir ingests every supported file directly under dir. Per-file errors
// are logged and do not stop the sync.
func (g *Ingester) SyncDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !parser.Supported(path) {
			continue
		}
		if _, err := g.Ingest(ctx, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Error processing file")
		}
	}
	return nil
}
