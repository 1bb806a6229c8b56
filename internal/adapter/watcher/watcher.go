// Package watcher reports changes to dataset files so that watch mode can
// rebuild.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 300 * time.Millisecond

// Batch is the set of files touched during one quiet period.
type Batch struct {
	Paths []string
}

// Watcher coalesces fsnotify events on dataset files into batches.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	debounce   time.Duration
	logger     *slog.Logger
}

func New(extensions []string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = []string{".txt"}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{watcher: w, extensions: extensions, debounce: debounce, logger: logger}, nil
}

// Watch monitors dirs until ctx is done. A batch is emitted once no new
// event has arrived for the debounce interval.
func (w *Watcher) Watch(ctx context.Context, dirs []string) (<-chan Batch, error) {
	seen := make(map[string]struct{})
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if err := w.watcher.Add(abs); err != nil {
			return nil, err
		}
	}

	batches := make(chan Batch, 1)

	go func() {
		defer close(batches)

		pending := make(map[string]struct{})
		timer := time.NewTimer(w.debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				pending[event.Name] = struct{}{}
				timer.Reset(w.debounce)
			case <-timer.C:
				if len(pending) == 0 {
					continue
				}
				b := Batch{Paths: make([]string, 0, len(pending))}
				for p := range pending {
					b.Paths = append(b.Paths, p)
				}
				sort.Strings(b.Paths)
				pending = make(map[string]struct{})

				select {
				case batches <- b:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", "error", err)
			}
		}
	}()

	return batches, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) isWatchedExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
