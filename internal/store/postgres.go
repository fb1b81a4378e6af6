package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"rag-chatbot/internal/models"
)

// DocumentRecord is the persisted shape of an embedded chunk.
type DocumentRecord struct {
	bun.BaseModel `bun:"table:document_chunks,alias:dc"`

	ID            int64             `bun:"id,pk,autoincrement"`
	ChunkID       string            `bun:"chunk_id,notnull,unique"`
	Content       string            `bun:"content,notnull"`
	Embedding     []float32         `bun:"embedding,notnull,type:vector(768)"`
	FileName      string            `bun:"file_name,notnull"`
	SourcePath    string            `bun:"source_path,notnull"`
	PageNumber    int               `bun:"page_number"`
	SequenceIndex int               `bun:"sequence_index"`
	StartOffset   int               `bun:"start_offset"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
}

// searchRow adds the computed similarity column to a query result.
type searchRow struct {
	DocumentRecord `bun:",extend"`
	Similarity     float64 `bun:"similarity"`
}

// PostgresStore is the pgvector-backed store, the deployment shape the
// service originally ran against.
type PostgresStore struct {
	db    *bun.DB
	floor float64
}

// ConnectDB opens a Postgres connection via the bun pgdriver.
func ConnectDB(dsn, password string) *sql.DB {
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if password != "" {
		opts = append(opts, pgdriver.WithPassword(password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...))
}

// NewPostgresStore wraps an open connection with the bun ORM. When debug is
// set every query is logged verbosely.
func NewPostgresStore(sqldb *sql.DB, debug bool) *PostgresStore {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &PostgresStore{db: db, floor: RelevanceFloor}
}

// InitSchema creates the pgvector extension and the chunk table if absent.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}
	_, err := s.db.NewCreateTable().
		Model((*DocumentRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec models.EmbeddedChunk) error {
	row := &DocumentRecord{
		ChunkID:       rec.Chunk.ID,
		Content:       rec.Chunk.Content,
		Embedding:     rec.Embedding,
		FileName:      rec.FileName,
		SourcePath:    rec.Chunk.SourcePath,
		PageNumber:    rec.Chunk.PageNumber,
		SequenceIndex: rec.Chunk.SequenceIndex,
		StartOffset:   rec.Chunk.StartOffset,
		Metadata:      rec.Metadata,
	}
	// Concurrent ingestion runs may race on the same chunk id; the conflict
	// target makes the second writer a no-op instead of an error.
	_, err := s.db.NewInsert().
		Model(row).
		Value("embedding", "?::vector", vectorLiteral(rec.Embedding)).
		On("CONFLICT (chunk_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert chunk %s: %w", rec.Chunk.ID, err)
	}
	return nil
}

func (s *PostgresStore) Has(ctx context.Context, id string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*DocumentRecord)(nil)).
		Where("chunk_id = ?", id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check chunk %s: %w", id, err)
	}
	return exists, nil
}

func (s *PostgresStore) Query(ctx context.Context, embedding []float32, fetchCount int) ([]models.SearchResult, error) {
	if fetchCount <= 0 {
		return nil, nil
	}
	vec := vectorLiteral(embedding)

	var rows []searchRow
	err := s.db.NewSelect().
		Model((*DocumentRecord)(nil)).
		Column("content", "file_name", "metadata").
		ColumnExpr("1 - (embedding <=> ?::vector) AS similarity", vec).
		Where("1 - (embedding <=> ?::vector) > ?", vec, s.floor).
		OrderExpr("embedding <=> ?::vector", vec).
		Limit(fetchCount).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}

	results := make([]models.SearchResult, 0, len(rows))
	for _, r := range rows {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		meta[models.MetaFileName] = r.FileName
		results = append(results, models.SearchResult{
			Content:    r.Content,
			FileName:   r.FileName,
			Metadata:   meta,
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// vectorLiteral renders an embedding in pgvector's input syntax.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
