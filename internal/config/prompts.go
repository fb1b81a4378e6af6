package config

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// PromptConfig is the operator-editable part of the pipeline: the prompt
// wording and the retrieval policy knobs. It is reloaded from disk whenever
// the file changes, so edits take effect without a restart.
type PromptConfig struct {
	PromptTemplate      string  `yaml:"prompt_template"`
	SystemMessage       string  `yaml:"system_message"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopKResults         int     `yaml:"top_k_results"`
}

// DefaultPromptConfig returns the compiled-in fallback used whenever the
// config file is missing or malformed.
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		PromptTemplate: "Answer the question based on the following context:\n\n{context}\n\n---\n\nQuestion: {question}\n\n" +
			"If the answer is in the context, use it. If the context doesn't contain the answer, you may use your own knowledge to help answer the question.",
		SystemMessage: "You are a helpful assistant. Prioritize using the provided context to answer questions. " +
			"If the context doesn't contain the answer, you can use your general knowledge to provide a helpful response.",
		SimilarityThreshold: 0.2,
		TopKResults:         3,
	}
}

// PromptProvider serves the current PromptConfig, re-reading the backing
// file only when its modification time changes. Read or parse failures are
// recovered by serving defaults; they never fail a request.
type PromptProvider struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	cached  PromptConfig
	loaded  bool
}

func NewPromptProvider(path string) *PromptProvider {
	p := &PromptProvider{path: path}
	p.ensureExists()
	return p
}

// ensureExists materializes the default config file so operators have
// something to edit.
func (p *PromptProvider) ensureExists() {
	if _, err := os.Stat(p.path); err == nil {
		return
	}
	data, err := yaml.Marshal(DefaultPromptConfig())
	if err != nil {
		return
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", p.path).Msg("Could not write default prompt config")
	}
}

// Get returns the current configuration.
func (p *PromptProvider) Get() PromptConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	if err != nil {
		log.Warn().Err(err).Str("path", p.path).Msg("Prompt config not found, using defaults")
		return DefaultPromptConfig()
	}
	if p.loaded && info.ModTime().Equal(p.modTime) {
		return p.cached
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		log.Warn().Err(err).Str("path", p.path).Msg("Prompt config unreadable, using defaults")
		return DefaultPromptConfig()
	}

	cfg := DefaultPromptConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Error().Err(err).Str("path", p.path).Msg("Invalid prompt config, using defaults")
		return DefaultPromptConfig()
	}
	if cfg.TopKResults <= 0 {
		cfg.TopKResults = DefaultPromptConfig().TopKResults
	}

	p.modTime = info.ModTime()
	p.cached = cfg
	p.loaded = true
	log.Debug().Str("path", p.path).Msg("Prompt config reloaded")
	return cfg
}
