package planserver

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
)

// DefaultDebounce is how long the Watcher waits after the last change before
// reloading.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Registry from a catalog directory whenever catalog files
// in it change. A reload that fails leaves the previous catalogs in place.
type Watcher struct {
	dir      string
	registry *planner.Registry
	logger   *zap.Logger
	debounce time.Duration
	reloaded chan struct{}
}

// NewWatcher constructs a Watcher. debounce <= 0 uses DefaultDebounce.
//
// Precondition: registry and logger must not be nil.
func NewWatcher(dir string, registry *planner.Registry, logger *zap.Logger, debounce time.Duration) *Watcher {
	if registry == nil || logger == nil {
		panic("planserver.NewWatcher: registry and logger must not be nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		registry: registry,
		logger:   logger,
		debounce: debounce,
		reloaded: make(chan struct{}, 1),
	}
}

// Reloaded receives a value after each reload attempt.
func (w *Watcher) Reloaded() <-chan struct{} { return w.reloaded }

// Reload loads every catalog in the directory and replaces the registry
// contents with them.
func (w *Watcher) Reload() error {
	cs, err := catalog.LoadDir(w.dir)
	if err == nil {
		err = w.registry.Replace(cs)
	}
	select {
	case w.reloaded <- struct{}{}:
	default:
	}
	if err != nil {
		return err
	}
	w.logger.Info("catalogs reloaded",
		zap.String("dir", w.dir),
		zap.Strings("catalogs", w.registry.IDs()),
	)
	return nil
}

// Run watches the directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !catalog.IsCatalogFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("catalog change",
				zap.String("file", filepath.Base(ev.Name)),
				zap.String("op", ev.Op.String()),
			)
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		case <-timer.C:
			if err := w.Reload(); err != nil {
				w.logger.Warn("catalog reload failed; keeping previous catalogs",
					zap.String("dir", w.dir),
					zap.Error(err),
				)
			}
		}
	}
}
