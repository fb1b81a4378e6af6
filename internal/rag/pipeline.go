// Package rag composes retrieval, policy, and generation into the
// end-to-end answering pipeline.
package rag

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"rag-chatbot/internal/config"
	"rag-chatbot/internal/history"
	"rag-chatbot/internal/llmservice"
	"rag-chatbot/internal/models"
)

// Searcher is the retrieval side of the pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// PromptSource serves the current prompt and policy configuration.
type PromptSource interface {
	Get() config.PromptConfig
}

// Pipeline answers queries by retrieving context, deciding whether it is
// trustworthy enough to use, and conditioning the model on it. There is one
// process-wide conversation; Answer calls are serialized so concurrent
// exchanges cannot interleave their history appends.
type Pipeline struct {
	searcher     Searcher
	generator    llmservice.Generator
	conversation *history.Conversation
	prompts      PromptSource

	mu sync.Mutex
}

func NewPipeline(searcher Searcher, generator llmservice.Generator, conversation *history.Conversation, prompts PromptSource) *Pipeline {
	return &Pipeline{
		searcher:     searcher,
		generator:    generator,
		conversation: conversation,
		prompts:      prompts,
	}
}

// Answer runs one full exchange. The conversation is mutated only after a
// successful generation call; any dependency error propagates with the
// history untouched.
func (p *Pipeline) Answer(ctx context.Context, query string) (models.Answer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	totalStart := time.Now()
	cfg := p.prompts.Get()

	log.Info().Str("query", query).Int("history_turns", p.conversation.Len()).Msg("New chat request")

	searchStart := time.Now()
	results, err := p.searcher.Search(ctx, query, cfg.TopKResults)
	if err != nil {
		return models.Answer{}, err
	}
	searchTime := time.Since(searchStart)
	log.Info().Dur("took", searchTime).Int("results", len(results)).Msg("Similarity search completed")

	var messages []llms.MessageContent
	var sources []string
	contextUsed := false

	if len(results) == 0 || results[0].Similarity < cfg.SimilarityThreshold {
		if len(results) == 0 {
			log.Info().Msg("Strategy: general knowledge (no results)")
		} else {
			log.Info().
				Float64("best_similarity", results[0].Similarity).
				Float64("threshold", cfg.SimilarityThreshold).
				Msg("Strategy: general knowledge (low relevance)")
		}
		messages = p.buildMessages(cfg.SystemMessage, query)
	} else {
		log.Info().Float64("best_similarity", results[0].Similarity).Msg("Strategy: RAG context")

		contents := make([]string, len(results))
		for i, res := range results {
			contents[i] = res.Content
		}
		contextText := strings.Join(contents, models.ContextSeparator)

		prompt := renderTemplate(cfg.PromptTemplate, contextText, query)
		log.Debug().Int("context_chars", len(contextText)).Int("prompt_chars", len(prompt)).Msg("Context prepared")

		messages = p.buildMessages(cfg.SystemMessage, prompt)
		contextUsed = true
	}

	if len(results) > 0 {
		sources = make([]string, len(results))
		for i, res := range results {
			sources[i] = res.FileName
		}
	}

	llmStart := time.Now()
	reply, err := p.generator.Generate(ctx, messages)
	if err != nil {
		return models.Answer{}, err
	}
	llmTime := time.Since(llmStart)

	p.conversation.Append(
		history.Turn{Role: history.RoleUser, Content: query},
		history.Turn{Role: history.RoleAssistant, Content: reply},
	)

	log.Info().
		Dur("total", time.Since(totalStart)).
		Dur("search", searchTime).
		Dur("llm", llmTime).
		Bool("context_used", contextUsed).
		Strs("sources", sources).
		Msg("Request completed")

	return models.Answer{
		Text:        reply,
		ContextUsed: contextUsed,
		Sources:     sources,
	}, nil
}

// ResetConversation clears the transcript. The vector store is unaffected.
func (p *Pipeline) ResetConversation() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversation.Reset()
	log.Info().Msg("Chat history cleared")
}

// buildMessages assembles system message, full conversation history, and
// the final user content, in that order.
func (p *Pipeline) buildMessages(systemMessage, userContent string) []llms.MessageContent {
	turns := p.conversation.Snapshot()
	messages := make([]llms.MessageContent, 0, len(turns)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemMessage))
	for _, turn := range turns {
		role := llms.ChatMessageTypeHuman
		if turn.Role == history.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userContent))
	return messages
}

func renderTemplate(template, contextText, question string) string {
	out := strings.ReplaceAll(template, "{context}", contextText)
	return strings.ReplaceAll(out, "{question}", question)
}
