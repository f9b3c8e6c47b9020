// Package debounce coalesces bursts of raw filesystem events for the same
// path into one stable event (spec.md §4.E).
package debounce

import (
	"sync"
	"time"

	"github.com/tanaste-io/tanaste/internal/watcher"
)

// DefaultWindow is the debounce window applied after the last raw event for
// a path, absent configuration.
const DefaultWindow = 2 * time.Second

// StableEvent is emitted once per coalesced burst.
type StableEvent struct {
	Path           string
	Kind           watcher.EventKind
	CoalescedCount int
}

// OnStableEvent is invoked once per path per burst, after the debounce
// window elapses (or immediately, for a Delete).
type OnStableEvent func(StableEvent)

type pending struct {
	kind    watcher.EventKind
	count   int
	timer   *time.Timer
}

// Queue coalesces raw events keyed by path. Stable events for different
// paths may interleave freely; stable events for the same path are totally
// ordered, since every mutation of that path's entry happens under mu.
type Queue struct {
	window   time.Duration
	callback OnStableEvent

	mu      sync.Mutex
	pending map[string]*pending
}

// New creates a Queue with the given debounce window (DefaultWindow if
// zero) that invokes callback for each stable event.
func New(window time.Duration, callback OnStableEvent) *Queue {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Queue{
		window:   window,
		callback: callback,
		pending:  make(map[string]*pending),
	}
}

// Push feeds one raw event into the queue.
func (q *Queue) Push(ev watcher.FileEvent) {
	if ev.Kind == watcher.Deleted {
		q.flushDelete(ev.Path)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.pending[ev.Path]
	if !ok {
		p = &pending{}
		q.pending[ev.Path] = p
	}
	p.kind = ev.Kind
	p.count++

	if p.timer != nil {
		p.timer.Stop()
	}
	path := ev.Path
	p.timer = time.AfterFunc(q.window, func() { q.fire(path) })
}

// fire emits the stable event for path and removes its pending entry. It is
// a no-op if the entry was already removed (e.g. by a concurrent Delete).
func (q *Queue) fire(path string) {
	q.mu.Lock()
	p, ok := q.pending[path]
	if !ok {
		q.mu.Unlock()
		return
	}
	delete(q.pending, path)
	kind, count := p.kind, p.count
	q.mu.Unlock()

	q.callback(StableEvent{Path: path, Kind: kind, CoalescedCount: count})
}

// flushDelete short-circuits the debounce window: any pending event for
// path is suppressed (its timer stopped and discarded) and a Deleted stable
// event is emitted immediately.
func (q *Queue) flushDelete(path string) {
	q.mu.Lock()
	p, ok := q.pending[path]
	count := 1
	if ok {
		p.timer.Stop()
		count = p.count + 1
		delete(q.pending, path)
	}
	q.mu.Unlock()

	q.callback(StableEvent{Path: path, Kind: watcher.Deleted, CoalescedCount: count})
}
