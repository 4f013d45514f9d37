// Package watcher reloads a hand-edited topology file whenever it changes.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	logger   *zap.Logger
}

// New creates a new file watcher
func New(path string, onChange func(), logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		logger:   logger.Named("watcher"),
	}
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file
	// This handles cases where the file is replaced (e.g., by editors)
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return err
	}

	w.logger.Info("watching file", zap.String("path", w.path))

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stopTimer := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Base(event.Name) != filename {
				continue
			}

			// Handle write, create and rename-into-place events
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				w.logger.Info("file changed", zap.String("path", w.path))
				w.onChange()
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			stopTimer()
			return ctx.Err()
		}
	}
}
