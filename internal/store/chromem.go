package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/models"
)

const chromemCompress = false

// ChromemStore is the embedded vector store backend built on chromem-go.
// Documents persist under a directory, one gob per record, so chunk-level
// upserts are individually atomic.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dbPath     string
	floor      float64
}

// NewChromemStore opens (or creates) a persistent chromem database and
// collection. An empty dbPath yields an in-memory store.
func NewChromemStore(dbPath, collectionName string) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, chromemCompress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	c, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: c,
		dbPath:     dbPath,
		floor:      RelevanceFloor,
	}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, rec models.EmbeddedChunk) error {
	exists, err := s.Has(ctx, rec.Chunk.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	meta := map[string]string{
		models.MetaFileName:   rec.FileName,
		models.MetaSourcePath: rec.Chunk.SourcePath,
		models.MetaPageNumber: strconv.Itoa(rec.Chunk.PageNumber),
	}
	for k, v := range rec.Metadata {
		meta[k] = v
	}

	doc := chromem.Document{
		ID:        rec.Chunk.ID,
		Content:   rec.Chunk.Content,
		Metadata:  meta,
		Embedding: rec.Embedding,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

func (s *ChromemStore) Has(ctx context.Context, id string) (bool, error) {
	if _, err := s.collection.GetByID(ctx, id); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *ChromemStore) Query(ctx context.Context, embedding []float32, fetchCount int) ([]models.SearchResult, error) {
	count := s.collection.Count()
	if count == 0 || fetchCount <= 0 {
		return nil, nil
	}

	// chromem scans the whole collection regardless of nResults, so rank
	// everything and apply the floor before truncating. That way the fetch
	// budget is spent on candidates above the floor, not near-orthogonal
	// vectors that happen to rank inside the naive limit.
	found, err := s.collection.QueryEmbedding(ctx, embedding, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	results := make([]models.SearchResult, 0, fetchCount)
	for _, r := range found {
		sim := float64(r.Similarity)
		if sim <= s.floor {
			continue
		}
		results = append(results, models.SearchResult{
			Content:    r.Content,
			FileName:   r.Metadata[models.MetaFileName],
			Metadata:   r.Metadata,
			Similarity: sim,
		})
		if len(results) == fetchCount {
			break
		}
	}
	return results, nil
}

func (s *ChromemStore) Close() error { return nil }

// Export writes an encrypted snapshot of the collection next to the
// database directory. Used by maintenance tooling, not the request path.
func (s *ChromemStore) Export(ctx context.Context, encryptionKey string) error {
	if encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	target := s.dbPath + "/" + s.collection.Name + ".chromem"
	log.Debug().Str("collection", s.collection.Name).Str("path", target).Msg("Exporting collection")
	if err := s.db.ExportToFile(target, chromemCompress, encryptionKey, s.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import restores a previously exported snapshot.
func (s *ChromemStore) Import(ctx context.Context, path, encryptionKey string) error {
	if err := s.db.ImportFromFile(path, encryptionKey, s.collection.Name); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}
