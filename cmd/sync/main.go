// Command sync performs an initial ingestion pass over the data directory
// and then watches it for new documents.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/config"
	"rag-chatbot/internal/embedding"
	"rag-chatbot/internal/helper"
	"rag-chatbot/internal/ingest"
	"rag-chatbot/internal/store"
)

const collectionName = "document_chunks"

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Ingest a single document and exit")
	dryRun := flag.Bool("dry-run", false, "Print the chunks a document would produce, do not store")
	export := flag.Bool("export", false, "Export an encrypted snapshot of the chromem collection and exit")
	importPath := flag.String("import", "", "Import a chromem snapshot from the given file and exit")
	flag.Parse()

	cfg := config.LoadSettings()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *dryRun {
		if *filePath == "" {
			log.Fatal().Msg("-dry-run requires -file")
		}
		ingester := ingest.New(nil, nil, cfg.ChunkSize, cfg.ChunkOverlap)
		chunks, err := ingester.Chunks(*filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error parsing document")
		}
		helper.PrettyPrint(chunks)
		return
	}

	vectorStore := buildStore(ctx, cfg)
	defer vectorStore.Close()

	if *export || *importPath != "" {
		cs, ok := vectorStore.(*store.ChromemStore)
		if !ok {
			log.Fatal().Msg("-export/-import require the chromem backend")
		}
		var err error
		if *export {
			err = cs.Export(ctx, cfg.ChromemKey)
		} else {
			err = cs.Import(ctx, *importPath, cfg.ChromemKey)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Snapshot operation failed")
		}
		return
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.OllamaBaseURL, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	ingester := ingest.New(embedder, vectorStore, cfg.ChunkSize, cfg.ChunkOverlap)

	if *filePath != "" {
		stored, err := ingester.Ingest(ctx, *filePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Error ingesting document")
		}
		log.Info().Int("stored", stored).Msg("Done")
		return
	}

	if err := helper.CreateFolder(cfg.DataPath); err != nil {
		log.Fatal().Err(err).Msg("Error creating data directory")
	}

	log.Info().Str("dir", cfg.DataPath).Msg("Performing initial sync")
	if err := ingester.SyncDir(ctx, cfg.DataPath); err != nil {
		log.Fatal().Err(err).Msg("Error syncing data directory")
	}

	watcher := ingest.NewWatcher(ingester, cfg.DataPath)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Watcher failed")
	}
	log.Info().Msg("Stopping file watcher")
}

func buildStore(ctx context.Context, cfg *config.Settings) store.VectorStore {
	switch cfg.StoreBackend {
	case "postgres":
		sqldb := store.ConnectDB(cfg.DatabaseURL, cfg.DBPassword)
		pg := store.NewPostgresStore(sqldb, cfg.DBDebug)
		if err := pg.InitSchema(ctx); err != nil {
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
