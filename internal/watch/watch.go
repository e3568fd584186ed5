// Package watch re-runs a build whenever files under the slipbox root change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is how long the watcher waits for a burst of events to settle.
const DefaultDelay = 200 * time.Millisecond

// Func is invoked after changes settle.
type Func func(ctx context.Context) error

// Options configures Run.
type Options struct {
	// Skip reports whether a path relative to the root should be ignored.
	// Skipped directories are not watched.
	Skip   func(rel string) bool
	Delay  time.Duration
	Logger *slog.Logger
}

// Run watches root recursively and calls fn once per settled burst of
// changes until ctx is cancelled. Errors from fn are logged, not returned.
//
// New directories created at runtime are added to the watch list.
func Run(ctx context.Context, root string, opts Options, fn Func) error {
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	skip := func(abs string) bool {
		if opts.Skip == nil {
			return false
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return true
		}
		return rel != "." && opts.Skip(filepath.ToSlash(rel))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, skip); err != nil {
		return err
	}
	logger.Info("watch: started", slog.String("root", root))

	// Debounce timer, armed by the first event of a burst.
	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(opts.Delay)
			fire = timer.C
			return
		}
		timer.Reset(opts.Delay)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-fire:
			timer, fire = nil, nil
			logger.Debug("watch: rebuilding")
			if err := fn(ctx); err != nil {
				logger.Warn("watch: rebuild failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if skip(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, skip); addErr != nil {
						logger.Warn("watch: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
				}
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watch: event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its non-skipped subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, skip func(string) bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skip(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
