// Package watch reports on-disk edits to the open source file.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle coalesces the burst of events a single editor save produces.
const DefaultSettle = 100 * time.Millisecond

// Watcher follows one file. It watches the file's directory rather than the
// file itself because many editors save by writing a temp file and renaming
// it over the original.
type Watcher struct {
	fsw    *fsnotify.Watcher
	settle time.Duration
	logger *slog.Logger

	mu   sync.Mutex
	file string
	dir  string
}

// New creates a Watcher that is not yet following any file.
func New(logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{fsw: fsw, settle: DefaultSettle, logger: logger}, nil
}

// Follow switches the watched file. An empty path stops following.
func (w *Watcher) Follow(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := ""
	if path != "" {
		dir = filepath.Dir(path)
	}

	if dir != w.dir {
		if w.dir != "" {
			_ = w.fsw.Remove(w.dir)
		}
		if dir != "" {
			if err := w.fsw.Add(dir); err != nil {
				w.file, w.dir = "", ""
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
		}
	}

	w.file, w.dir = path, dir
	w.logger.Debug("watching file", slog.String("path", path))
	return nil
}

func (w *Watcher) following() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file
}

// Run calls onChange, from its own goroutine, after the followed file is
// written, created or renamed into place. It returns when ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer func() { _ = w.fsw.Close() }()

	var settleTimer *time.Timer
	defer func() {
		if settleTimer != nil {
			settleTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			file := w.following()
			if file == "" || filepath.Clean(event.Name) != file {
				continue
			}

			if settleTimer != nil {
				settleTimer.Stop()
			}
			settleTimer = time.AfterFunc(w.settle, func() {
				w.logger.Debug("file changed", "file", file)
				onChange(file)
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
