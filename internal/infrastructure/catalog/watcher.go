package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/mercai/backend/internal/logging"
)

// FixtureWatcher reloads a MemoryCatalog whenever its fixture file changes
type FixtureWatcher struct {
	watcher *fsnotify.Watcher
	catalog *MemoryCatalog
	path    string
	logger  *log.Logger
	reloads chan error
}

// NewFixtureWatcher creates a watcher for the fixture at path
func NewFixtureWatcher(catalog *MemoryCatalog, path string) (*FixtureWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to resolve fixture path: %w", err)
	}

	return &FixtureWatcher{
		watcher: w,
		catalog: catalog,
		path:    abs,
		logger:  logging.WithPrefix("fixture"),
	}, nil
}

// Reloads returns a channel receiving the outcome of every reload attempt.
// Must be called before Run; sends are dropped when nobody is reading.
func (w *FixtureWatcher) Reloads() <-chan error {
	if w.reloads == nil {
		w.reloads = make(chan error, 1)
	}
	return w.reloads
}

// Run watches the fixture until ctx is done. The parent directory is watched
// so that editors replacing the file via rename are picked up.
func (w *FixtureWatcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

func (w *FixtureWatcher) reload() {
	err := w.catalog.LoadFile(w.path)
	if err != nil {
		w.logger.Error("fixture reload failed, keeping previous data", "path", w.path, "err", err)
	} else {
		w.logger.Info("fixture reloaded", "path", w.path)
	}

	if w.reloads != nil {
		select {
		case w.reloads <- err:
		default:
		}
	}
}

// Stop stops the watcher
func (w *FixtureWatcher) Stop() error {
	return w.watcher.Close()
}
