package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"rag-chatbot/internal/parser"
)

const (
	fileRetryCount = 5
	fileRetryDelay = time.Second
)

// Watcher ingests supported files as they appear in a directory. A freshly
// created file may still be locked by its writer, so processing waits for
// the file to become readable with a bounded retry before giving up.
type Watcher struct {
	ingester *Ingester
	dir      string
}

func NewWatcher(ingester *Ingester, dir string) *Watcher {
	return &Watcher{ingester: ingester, dir: dir}
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	log.Info().Str("dir", w.dir).Msg("Watching for new files")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if !parser.Supported(event.Name) {
				continue
			}
			log.Info().Str("path", event.Name).Msg("New file detected")
			w.waitAndProcess(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}

// waitAndProcess waits for the file to be released before ingesting it.
// Per-file failures are logged, never fatal to the watch loop.
func (w *Watcher) waitAndProcess(ctx context.Context, path string) {
	for attempt := 1; ; attempt++ {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			break
		}
		if attempt >= fileRetryCount {
			log.Error().Err(err).Str("path", path).Int("retries", fileRetryCount).Msg("Could not access file, giving up")
			return
		}
		log.Warn().Str("path", path).Int("attempt", attempt).Msg("File locked, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(fileRetryDelay):
		}
	}

	if _, err := w.ingester.Ingest(ctx, path); err != nil {
		log.Error().Err(err).Str("path", path).Msg("Error processing file")
	}
}
