package models

// Chunk represents a contiguous span of a source document after splitting.
// The ID is computed during ingestion and never supplied externally.
type Chunk struct {
	ID            string
	Content       string
	SourcePath    string
	PageNumber    int
	SequenceIndex int
	StartOffset   int
}

// EmbeddedChunk pairs a chunk with its vector and storage metadata.
type EmbeddedChunk struct {
	Chunk     Chunk
	Embedding []float32
	FileName  string
	Metadata  map[string]string
}

// SearchResult pairs retrieved chunk content with its cosine similarity,
// where 1 means identical direction (1 - cosineDistance).
type SearchResult struct {
	Content    string
	FileName   string
	Metadata   map[string]string
	Similarity float64
}

// Answer is the structured outcome of one pipeline call.
type Answer struct {
	Text        string
	ContextUsed bool
	Sources     []string
}
