// Package llmservice is the generation gateway: it sends an ordered message
// sequence to the model and returns its reply.
package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator produces a reply for an ordered, role-tagged message sequence.
type Generator interface {
	Generate(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Client holds one long-lived model handle, constructed at startup and
// injected into the pipeline rather than rebuilt per call.
type Client struct {
	llm         llms.Model
	temperature float64
}

// NewOllamaClient builds a generation client backed by a local Ollama server.
func NewOllamaClient(serverURL, model string, temperature float64) (*Client, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &Client{llm: llm, temperature: temperature}, nil
}

// NewOpenAIClient builds a generation client for an OpenAI-compatible API.
func NewOpenAIClient(baseURL, apiKey, model string, temperature float64) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	return &Client{llm: llm, temperature: temperature}, nil
}

func (c *Client) Generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	log.Debug().Int("messages", len(messages)).Msg("Invoking LLM")

	res, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("generate content: empty response")
	}

	reply := res.Choices[0].Content
	log.Debug().Int("reply_chars", len(reply)).Msg("LLM response received")
	return reply, nil
}
