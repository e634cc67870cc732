package queue

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"obslog/internal/logbook"
)

// Watch calls fn whenever a request file appears in dir, until ctx is done.
// Errors returned by fn are logged and watching continues.
func Watch(ctx context.Context, dir string, logger logbook.Logger, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating queue watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	logger.Info("watching import queue", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if _, ok := recordIDOf(filepath.Base(event.Name)); !ok {
				continue
			}
			logger.Debug("import request queued", "file", event.Name)
			if err := fn(); err != nil {
				logger.Error("processing import queue", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("queue watcher error", "error", err)
		}
	}
}
