package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ratefence/ratefence/pkg/ratefence"
)

const debounceInterval = 100 * time.Millisecond

// watchTrackedClients reloads the tracked client list whenever the
// config file changes, so an operator can fence off a noisy client
// without restarting the server.
//
// The tracker's tracked set is add-only: a reload can introduce new
// tracked clients but never untrack one. Removing a client requires a
// restart.
func watchTrackedClients(ctx context.Context, path string, limiter ratefence.Limiter, logger *slog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create file watcher", "error", err)
		return
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors and config
	// management tools usually replace the file instead of writing it
	// in place, which would drop a watch on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.Error("failed to watch config directory", "dir", dir, "error", err)
		return
	}

	target, err := filepath.Abs(path)
	if err != nil {
		logger.Error("failed to resolve config path", "path", path, "error", err)
		return
	}

	// Debounce rapid event bursts into a single reload.
	debounce := time.NewTimer(debounceInterval)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	logger.Info("watching config for tracked client changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(debounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("file watcher error", "error", err)

		case <-debounce.C:
			reloadTrackedClients(path, limiter, logger)
		}
	}
}

func reloadTrackedClients(path string, limiter ratefence.Limiter, logger *slog.Logger) {
	config, err := ratefence.LoadConfigFromFile(path)
	if err != nil {
		logger.Error("config reload failed", "path", path, "error", err)
		return
	}

	ids, err := config.TrackedClientIDs()
	if err != nil {
		logger.Error("config reload failed", "path", path, "error", err)
		return
	}

	for _, id := range ids {
		limiter.AddTrackedClient(id)
	}
	logger.Info("tracked clients reloaded", "count", len(ids))
}
