package source

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is invoked with the collection name whose fixture
// file changed on disk.
type ChangeCallback func(table string)

// Watch runs an fsnotify watcher over the fixture directory until ctx
// is cancelled, calling cb for every created, written, or removed
// `<table>.json`. The caller uses it to invalidate cache entries so
// edited fixtures show up on the next read.
func Watch(ctx context.Context, dir string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("fixture watcher: started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("fixture watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			table := strings.TrimSuffix(name, ".json")
			logger.Debug("fixture watcher: changed",
				slog.String("table", table),
				slog.String("op", ev.Op.String()))
			if cb != nil {
				cb(table)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("fixture watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
