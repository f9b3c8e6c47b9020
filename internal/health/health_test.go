package health

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tanaste-io/tanaste/internal/notifications"
)

type capturingSender struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (c *capturingSender) Send(ev notifications.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturingSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestMonitor_EmitsOnFirstObservation(t *testing.T) {
	dir := t.TempDir()
	sender := &capturingSender{}
	dispatcher := notifications.NewDispatcher()
	dispatcher.Register(sender)

	m := New(dispatcher, 0, dir)
	m.tick()

	if sender.count() != 1 {
		t.Fatalf("expected one FolderHealthChanged on first observation, got %d", sender.count())
	}
	if sender.events[0].Type != notifications.FolderHealthChanged {
		t.Fatalf("event type = %v, want FolderHealthChanged", sender.events[0].Type)
	}
}

func TestMonitor_SuppressesRepeatedUnchangedState(t *testing.T) {
	dir := t.TempDir()
	sender := &capturingSender{}
	dispatcher := notifications.NewDispatcher()
	dispatcher.Register(sender)

	m := New(dispatcher, 0, dir)
	m.tick()
	m.tick()
	m.tick()

	if sender.count() != 1 {
		t.Fatalf("expected exactly one event across repeated identical ticks, got %d", sender.count())
	}
}

func TestMonitor_EmitsOnTransition(t *testing.T) {
	dir := t.TempDir()
	removable := filepath.Join(dir, "watched")
	if err := os.Mkdir(removable, 0755); err != nil {
		t.Fatal(err)
	}

	sender := &capturingSender{}
	dispatcher := notifications.NewDispatcher()
	dispatcher.Register(sender)

	m := New(dispatcher, 0, removable)
	m.tick()
	if sender.count() != 1 {
		t.Fatalf("expected 1 event after first tick, got %d", sender.count())
	}

	if err := os.RemoveAll(removable); err != nil {
		t.Fatal(err)
	}
	m.tick()

	if sender.count() != 2 {
		t.Fatalf("expected a second event once the directory disappears, got %d", sender.count())
	}
	last := sender.events[len(sender.events)-1]
	if last.Payload["is_accessible"] != "false" {
		t.Fatalf("expected is_accessible=false after removal, got %+v", last.Payload)
	}
}

func TestMonitor_DefaultIntervalAppliedWhenZero(t *testing.T) {
	m := New(notifications.NewDispatcher(), 0, "/tmp")
	if m.interval != DefaultInterval {
		t.Fatalf("interval = %v, want default %v", m.interval, DefaultInterval)
	}
}

func TestMonitor_StartStopDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	m := New(notifications.NewDispatcher(), 50*time.Millisecond, dir)
	if err := m.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	m.Stop()
}
