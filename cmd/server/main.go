package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/config"
	"rag-chatbot/internal/embedding"
	"rag-chatbot/internal/history"
	"rag-chatbot/internal/llmservice"
	"rag-chatbot/internal/rag"
	"rag-chatbot/internal/server"
	"rag-chatbot/internal/store"
)

const collectionName = "document_chunks"

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	cfg := config.LoadSettings()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	vectorStore := buildStore(cfg)
	defer vectorStore.Close()

	embedder := buildEmbedder(cfg)

	generator, err := buildGenerator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	prompts := config.NewPromptProvider(cfg.PromptConfig)
	conversation := history.NewConversation()
	retriever := rag.NewRetriever(embedder, vectorStore, rag.DefaultRetrieverOptions())
	pipeline := rag.NewPipeline(retriever, generator, conversation, prompts)

	e := server.New(pipeline, cfg.CORSOrigins)

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Starting server")
		if err := e.Start(cfg.ListenAddr); err != nil {
			log.Info().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

func buildStore(cfg *config.Settings) store.VectorStore {
	switch cfg.StoreBackend {
	case "postgres":
		sqldb := store.ConnectDB(cfg.DatabaseURL, cfg.DBPassword)
		pg := store.NewPostgresStore(sqldb, cfg.DBDebug)
		if err := pg.InitSchema(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database schema")
		}
		return pg
	default:
		s, err := store.NewChromemStore(cfg.ChromemPath, collectionName)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening vector database")
		}
		return s
	}
}

func buildEmbedder(cfg *config.Settings) embedding.Embedder {
	if cfg.OpenAIKey != "" && cfg.OpenAIBaseURL != "" {
		embedder, err := embedding.NewOpenAIEmbedder(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing embedder")
		}
		return embedder
	}
	embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	return embedder
}

func buildGenerator(cfg *config.Settings) (llmservice.Generator, error) {
	if cfg.OpenAIKey != "" && cfg.OpenAIBaseURL != "" {
		return llmservice.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.InferenceModel, cfg.LLMTemperature)
	}
	return llmservice.NewOllamaClient(cfg.OllamaBaseURL, cfg.InferenceModel, cfg.LLMTemperature)
}
