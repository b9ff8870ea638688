// Package watch provides a debounced recursive filesystem watcher used by
// the CLI watch command to trigger rebuilds on source changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/util/sets"
)

// Watcher monitors a source tree and invokes a callback with the batch of
// paths that changed, after a debounce window absorbs rapid successive
// events (editors often fire several per save).
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(paths []string)
	logger   *slog.Logger
}

// New creates a watcher for root. onChange runs on the watcher goroutine;
// it must not block for long.
func New(root string, debounce time.Duration, onChange func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}

	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		root:     absRoot,
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		logger:   slog.Default(),
	}, nil
}

// WithLogger sets a custom logger.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	w.logger = logger
	return w
}

// Start registers the directory tree and begins watching until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	w.logger.Info("Watching for changes", logfields.Root(w.root))
	go w.loop(ctx)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git", ".docsite", "node_modules":
			if path != root {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	pending := sets.New[string]()
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need explicit registration.
			if event.Op&fsnotify.Create != 0 {
				if err := w.addRecursive(event.Name); err != nil {
					// Not a directory, or already gone again.
					w.logger.Debug("Skipped watch registration",
						logfields.Path(event.Name), logfields.Error(err))
				}
			}
			pending.Add(event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", logfields.Error(err))

		case <-timer.C:
			if pending.Len() == 0 {
				continue
			}
			batch := sets.SortedValues(pending)
			pending = sets.New[string]()
			w.onChange(batch)
		}
	}
}
