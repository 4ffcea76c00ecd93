// Package watcher monitors library roots for sidecar changes and feeds
// them to the sync dispatcher.
//
// It can be used standalone via `libri watch` or embedded in the web
// server process.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nbelyaev/libri/internal/bnf"
	"github.com/nbelyaev/libri/internal/syncer"
)

// Watcher watches one or more library roots recursively and turns sidecar
// file events into synchronization tasks. Everything that is not a sidecar
// file is ignored; directory events only matter for extending the watch.
type Watcher struct {
	dispatcher *syncer.Dispatcher
	sync       *syncer.Syncer
	debug      bool

	mu    sync.Mutex
	roots []string
	fsw   *fsnotify.Watcher
}

// Config holds configuration options for the Watcher.
type Config struct {
	Roots      []string
	Dispatcher *syncer.Dispatcher
	Syncer     *syncer.Syncer
	Debug      bool
}

// New creates a new Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Roots) == 0 {
		return nil, fmt.Errorf("at least one library root is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.Syncer == nil {
		return nil, fmt.Errorf("syncer is required")
	}
	return &Watcher{
		dispatcher: cfg.Dispatcher,
		sync:       cfg.Syncer,
		roots:      append([]string(nil), cfg.Roots...),
		debug:      cfg.Debug,
	}, nil
}

// Start begins watching. It blocks until the context is cancelled. The
// caller is responsible for running the dispatcher; Start only produces
// tasks.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	w.mu.Lock()
	w.fsw = fsw
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()

	for _, root := range roots {
		if err := w.addWatchRecursive(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
		w.logDebug("watching root: %s", root)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logDebug("watcher error: %v", err)
		}
	}
}

// AddRoot starts watching an additional root at runtime and sweeps it so
// its existing sidecars are imported immediately. The CLI always watches a
// single library; AddRoot is for callers embedding the watcher over
// several roots.
func (w *Watcher) AddRoot(root string) error {
	w.mu.Lock()
	w.roots = append(w.roots, root)
	started := w.fsw != nil
	w.mu.Unlock()

	if started {
		if err := w.addWatchRecursive(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	if _, err := w.sync.Sweep([]string{root}); err != nil {
		return err
	}
	return nil
}

// handleEvent translates a single filesystem event into a task.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if !bnf.IsSidecar(path) {
		// New directories extend the watch; everything else is noise.
		if event.Op&fsnotify.Create != 0 {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := w.addWatchRecursive(path); err != nil {
					w.logDebug("failed to extend watch to %s: %v", path, err)
				}
			}
		}
		return
	}

	if shouldIgnore(path) {
		return
	}

	w.logDebug("event: %s %s", event.Op, path)

	switch {
	case event.Op&fsnotify.Create != 0, event.Op&fsnotify.Write != 0:
		w.dispatcher.Enqueue(syncer.Task{Op: syncer.OpUpsert, Path: path})
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.dispatcher.Enqueue(syncer.Task{Op: syncer.OpDelete, Path: path})
	}
}

// addWatchRecursive adds a directory and all subdirectories to the watch.
func (w *Watcher) addWatchRecursive(root string) error {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return nil
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if info.IsDir() {
			if shouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			if err := fsw.Add(path); err != nil {
				w.logDebug("failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}

func shouldIgnore(path string) bool {
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if isIgnoredName(part) {
			return true
		}
	}
	return false
}

func shouldIgnoreDir(path string) bool {
	return isIgnoredName(filepath.Base(path))
}

func isIgnoredName(name string) bool {
	return name == ".libri" || name == ".git" || name == ".trash"
}

func (w *Watcher) logDebug(format string, args ...any) {
	if w.debug {
		fmt.Fprintf(os.Stderr, "[libri-watcher] "+format+"\n", args...)
	}
}
