// Package watcher surfaces raw OS filesystem events for one or more roots,
// supporting a hot-swappable watched directory (spec.md §4.D).
package watcher

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// EventKind classifies a raw filesystem event.
type EventKind int

const (
	Created EventKind = iota
	Changed
	Renamed
	Deleted
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Changed:
		return "changed"
	case Renamed:
		return "renamed"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileEvent is one raw event surfaced to a consumer.
type FileEvent struct {
	Path string
	Kind EventKind
}

// OnFileEvent is the consumer callback. Consumers must not block — the
// watcher invokes this on its own internal goroutine (spec.md §4.D).
type OnFileEvent func(FileEvent)

// Watcher wraps fsnotify with directory-add/remove bookkeeping and an
// atomic hot-swap of the watched root, grounded on CineVault's
// internal/watcher/watcher.go.
type Watcher struct {
	callback OnFileEvent

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	root    string
	recurse bool
	running bool
	stop    chan struct{}
}

// New creates a Watcher that invokes callback for every raw event it sees.
func New(callback OnFileEvent) *Watcher {
	return &Watcher{callback: callback}
}

// AddDirectory sets the watched root. If the watcher is already running for
// a different root, call Stop first or use UpdateDirectory for a hot-swap.
func (w *Watcher) AddDirectory(path string, recursive bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fsw != nil {
		return fmt.Errorf("watcher: already watching %q, call Stop or UpdateDirectory", w.root)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watcher: root %q does not exist: %w", path, err)
	}
	w.root = path
	w.recurse = recursive
	return nil
}

// Start begins emitting events for the configured root.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.startLocked()
}

// startLocked assumes w.mu is held.
func (w *Watcher) startLocked() error {
	if w.root == "" {
		return fmt.Errorf("watcher: no directory configured, call AddDirectory first")
	}
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: create fsnotify watcher: %w", err)
	}
	if err := addRecursive(fsw, w.root, w.recurse); err != nil {
		fsw.Close()
		return fmt.Errorf("watcher: register root %q: %w", w.root, err)
	}

	w.fsw = fsw
	w.stop = make(chan struct{})
	w.running = true

	go w.eventLoop(fsw, w.stop)
	return nil
}

// Stop releases all OS watch resources and halts event delivery.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

// stopLocked assumes w.mu is held.
func (w *Watcher) stopLocked() {
	if !w.running {
		return
	}
	close(w.stop)
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	w.running = false
}

// UpdateDirectory atomically swaps the watched root: it stops the current
// watch, releases OS resources, and starts a new one at path. If the
// watcher was running before the call, it resumes running on the new root.
// If path does not exist, the previous watch is left undisturbed and an
// error is returned (spec.md §4.D).
func (w *Watcher) UpdateDirectory(path string, recursive bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watcher: new root %q does not exist, previous watch left in place: %w", path, err)
	}

	wasRunning := w.running
	w.stopLocked()

	w.root = path
	w.recurse = recursive

	if !wasRunning {
		return nil
	}
	return w.startLocked()
}

// addRecursive registers path (and, if recursive, every descendant
// directory) with fsw.
func addRecursive(fsw *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return fsw.Add(root)
	}
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
}

// eventLoop runs on its own goroutine until stop is closed, translating raw
// fsnotify events into the watcher's own vocabulary and invoking callback.
func (w *Watcher) eventLoop(fsw *fsnotify.Watcher, stop chan struct{}) {
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher: fsnotify error: %v", err)
		case <-stop:
			return
		}
	}
}

// handleEvent classifies a raw fsnotify event, re-registers newly created
// directories when watching recursively, and invokes the consumer callback.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if isIgnorable(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			recurse := w.recurse
			w.mu.Unlock()
			if recurse {
				fsw.Add(event.Name)
			}
			return
		}
		w.callback(FileEvent{Path: event.Name, Kind: Created})
	case event.Has(fsnotify.Write):
		w.callback(FileEvent{Path: event.Name, Kind: Changed})
	case event.Has(fsnotify.Rename):
		w.callback(FileEvent{Path: event.Name, Kind: Renamed})
	case event.Has(fsnotify.Remove):
		w.callback(FileEvent{Path: event.Name, Kind: Deleted})
	}
}

// isIgnorable filters out hidden files and partial-write temp files, the
// same convention CineVault's watcher applies before classifying an event.
func isIgnorable(path string) bool {
	base := filepath.Base(path)
	if base == "" {
		return true
	}
	if base[0] == '.' {
		return true
	}
	switch filepath.Ext(base) {
	case ".tmp", ".part", ".crdownload":
		return true
	}
	return false
}
