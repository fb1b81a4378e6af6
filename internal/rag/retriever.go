package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/embedding"
	"rag-chatbot/internal/models"
	"rag-chatbot/internal/store"
)

// RetrieverOptions carries the ranking constants. The defaults come from
// the reference deployment; they are configurable but should not be changed
// without measurement.
type RetrieverOptions struct {
	OverFetchFactor  int     // candidates requested per result wanted
	SimilarityWeight float64 // weight of vector similarity in the rerank score
	LexicalWeight    float64 // weight of lexical term overlap in the rerank score
}

func DefaultRetrieverOptions() RetrieverOptions {
	return RetrieverOptions{
		OverFetchFactor:  2,
		SimilarityWeight: 0.7,
		LexicalWeight:    0.3,
	}
}

// Retriever answers free-text queries with the best-matching chunks. It
// over-fetches candidates from the store and, when there is material beyond
// k, reorders the top set by a blended similarity + lexical-overlap score.
// The blended score is a selection tool only; reported scores are always
// the original similarities.
type Retriever struct {
	embedder embedding.Embedder
	store    store.VectorStore
	opts     RetrieverOptions
}

func NewRetriever(embedder embedding.Embedder, st store.VectorStore, opts RetrieverOptions) *Retriever {
	if opts.OverFetchFactor <= 0 {
		opts.OverFetchFactor = DefaultRetrieverOptions().OverFetchFactor
	}
	return &Retriever{embedder: embedder, store: st, opts: opts}
}

// Search returns up to k results ordered best-first.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	embedStart := time.Now()
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	log.Debug().Dur("took", time.Since(embedStart)).Msg("Query embedding generated")

	results, err := r.store.Query(ctx, vector, k*r.opts.OverFetchFactor)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	log.Debug().Int("candidates", len(results)).Msg("Candidates retrieved")

	if len(results) <= k {
		return results, nil
	}
	return r.rerank(results, query, k), nil
}

// rerank orders candidates by combined score and keeps the top k.
func (r *Retriever) rerank(results []models.SearchResult, query string, k int) []models.SearchResult {
	queryTerms := termSet(query)

	type scored struct {
		result   models.SearchResult
		combined float64
	}
	ranked := make([]scored, len(results))
	for i, res := range results {
		overlap := lexicalOverlap(queryTerms, res.Content)
		ranked[i] = scored{
			result:   res,
			combined: r.opts.SimilarityWeight*res.Similarity + r.opts.LexicalWeight*overlap,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].combined > ranked[j].combined
	})

	out := make([]models.SearchResult, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].result
	}
	return out
}

// lexicalOverlap is |queryTerms ∩ contentTerms| / |queryTerms|, or 0 when
// the query has no terms at all.
func lexicalOverlap(queryTerms map[string]struct{}, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	contentTerms := termSet(content)
	matched := 0
	for term := range queryTerms {
		if _, ok := contentTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

func termSet(text string) map[string]struct{} {
	terms := map[string]struct{}{}
	for _, f := range strings.Fields(strings.ToLower(text)) {
		terms[f] = struct{}{}
	}
	return terms
}
