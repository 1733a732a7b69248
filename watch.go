package codegen

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs a build function whenever one of a project's schema or
// template files changes on disk. It has no notion of the directive
// grammar or the Compiler itself: compilation stays single-threaded
// and non-reentrant, so every triggered rebuild runs
// synchronously on the watcher's own goroutine rather than overlapping
// with a previous run.
type Watcher struct {
	Debounce time.Duration

	fsw *fsnotify.Watcher
}

// NewWatcher builds a Watcher with a sensible debounce window for
// coalescing the several write events most editors emit per save.
func NewWatcher() (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{Debounce: 200 * time.Millisecond, fsw: fsw}, nil
}

// Close releases the underlying OS watch handles.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// AddPaths registers the directories containing each of paths (fsnotify
// watches directories, not individual files, so renames-then-recreate
// saves are still seen).
func (w *Watcher) AddPaths(paths []string) error {
	seen := map[string]bool{}
	for _, p := range paths {
		dir := filepath.Dir(p)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := w.fsw.Add(dir); err != nil {
			return err
		}
	}
	return nil
}

// Run blocks, invoking rebuild once per debounced burst of write events,
// until stop is closed.
func (w *Watcher) Run(stop <-chan struct{}, rebuild func()) {
	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-stop:
			if pending != nil {
				pending.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(w.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			rebuild()
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}
