package debounce

import (
	"testing"
	"time"

	"github.com/tanaste-io/tanaste/internal/watcher"
)

func TestQueue_CoalescesBurstIntoOneEvent(t *testing.T) {
	events := make(chan StableEvent, 8)
	q := New(50*time.Millisecond, func(e StableEvent) { events <- e })

	q.Push(watcher.FileEvent{Path: "/a/b.txt", Kind: watcher.Created})
	q.Push(watcher.FileEvent{Path: "/a/b.txt", Kind: watcher.Changed})
	q.Push(watcher.FileEvent{Path: "/a/b.txt", Kind: watcher.Changed})

	select {
	case ev := <-events:
		if ev.Path != "/a/b.txt" {
			t.Fatalf("Path = %q, want /a/b.txt", ev.Path)
		}
		if ev.Kind != watcher.Changed {
			t.Fatalf("Kind = %v, want Changed (latest kind wins)", ev.Kind)
		}
		if ev.CoalescedCount != 3 {
			t.Fatalf("CoalescedCount = %d, want 3", ev.CoalescedCount)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stable event")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected second event: %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestQueue_DeleteShortCircuitsAndSuppressesPending(t *testing.T) {
	events := make(chan StableEvent, 8)
	q := New(5*time.Second, func(e StableEvent) { events <- e })

	q.Push(watcher.FileEvent{Path: "/a/c.txt", Kind: watcher.Created})
	q.Push(watcher.FileEvent{Path: "/a/c.txt", Kind: watcher.Changed})
	q.Push(watcher.FileEvent{Path: "/a/c.txt", Kind: watcher.Deleted})

	select {
	case ev := <-events:
		if ev.Kind != watcher.Deleted {
			t.Fatalf("Kind = %v, want Deleted", ev.Kind)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("delete did not short-circuit the 5s window")
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event after delete: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestQueue_DifferentPathsInterleaveIndependently(t *testing.T) {
	events := make(chan StableEvent, 8)
	q := New(30*time.Millisecond, func(e StableEvent) { events <- e })

	q.Push(watcher.FileEvent{Path: "/a/one.txt", Kind: watcher.Created})
	q.Push(watcher.FileEvent{Path: "/a/two.txt", Kind: watcher.Created})

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			seen[ev.Path] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for both paths to fire")
		}
	}
	if !seen["/a/one.txt"] || !seen["/a/two.txt"] {
		t.Fatalf("expected both paths to emit stable events, got %+v", seen)
	}
}
