// Package watcher reruns a callback when watched files change.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/yourorg/routegen/internal/logger"
)

// DefaultDebounce is the quiet period after the last change before the
// callback runs.
const DefaultDebounce = 300 * time.Millisecond

// Callback is invoked after a burst of changes. Errors are logged.
type Callback func(ctx context.Context) error

// Watcher watches a set of files. Parent directories are watched so that
// editors replacing a file by rename are still seen.
type Watcher struct {
	files    map[string]struct{}
	fsw      *fsnotify.Watcher
	callback Callback
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer

	// runMu serializes callbacks and guards stopped.
	runMu   sync.Mutex
	stopped bool
}

// New watches files and runs callback after each debounced change.
func New(files []string, debounce time.Duration, callback Callback) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	w := &Watcher{
		files:    make(map[string]struct{}, len(files)),
		fsw:      fsw,
		callback: callback,
		debounce: debounce,
	}
	dirs := make(map[string]struct{})
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fsw.Close()
			return nil, errors.Wrapf(err, "resolve %s", f)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}
	return w, nil
}

// Run blocks until ctx is cancelled, then stops the watcher. It returns
// only after a callback already in flight has finished.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := w.files[abs]; !ok {
				continue
			}
			logger.Debugw("watched file changed", "file", event.Name, "op", event.Op.String())
			w.schedule(ctx)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.runMu.Lock()
		defer w.runMu.Unlock()
		if w.stopped {
			return
		}
		if err := w.callback(ctx); err != nil {
			logger.Errorw("regeneration failed", "error", err)
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.runMu.Lock()
	w.stopped = true
	w.runMu.Unlock()
	_ = w.fsw.Close()
}
