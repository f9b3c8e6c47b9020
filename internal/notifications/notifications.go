// Package notifications defines the event types and dispatch boundary the
// rest of the system publishes to; delivery to the dashboard's push channel
// is out of scope (spec.md §1) — this package stops at a Sender interface.
package notifications

import (
	"log"
	"sync"
)

// EventType names one of the notification kinds the system emits.
type EventType string

const (
	IngestionStarted   EventType = "ingestion_started"
	IngestionHashed     EventType = "ingestion_hashed"
	IngestionCompleted EventType = "ingestion_completed"
	IngestionFailed    EventType = "ingestion_failed"
	WatchFolderActive  EventType = "watch_folder_active"
	FolderHealthChanged EventType = "folder_health_changed"
	MetadataHarvested  EventType = "metadata_harvested"
	PersonEnriched     EventType = "person_enriched"
	HubNeedsReview     EventType = "hub_needs_review"
)

// Event is the envelope every notification is published as.
type Event struct {
	Type    EventType
	Path    string
	Reason  string // populated for IngestionFailed: lock_timeout, corruption, ...
	Detail  string // free-form context, e.g. "duplicate-relink"
	Payload map[string]string
}

// Sender is the boundary to a concrete transport (webhook, push channel,
// etc.) — those transports are external collaborators per spec.md §1; this
// package only defines the contract and a simple in-process dispatcher,
// grounded on CineVault's notifications/events.go EventDispatcher.
type Sender interface {
	Send(Event) error
}

// LoggingSender writes every Event to the standard logger. It's the
// always-on fallback sender registered alongside any real transport, so an
// event is never silently dropped before a dashboard push channel exists to
// receive it.
type LoggingSender struct{}

func (LoggingSender) Send(ev Event) error {
	log.Printf("[event] %s path=%q reason=%q detail=%q", ev.Type, ev.Path, ev.Reason, ev.Detail)
	return nil
}

// Dispatcher fans Events out to every registered Sender, logging (not
// propagating) any send failure so one broken transport never blocks
// another or the caller.
type Dispatcher struct {
	mu      sync.RWMutex
	senders []Sender
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a Sender that receives every subsequently dispatched Event.
func (d *Dispatcher) Register(s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders = append(d.senders, s)
}

// Dispatch delivers ev to every registered Sender.
func (d *Dispatcher) Dispatch(ev Event) {
	d.mu.RLock()
	senders := append([]Sender(nil), d.senders...)
	d.mu.RUnlock()

	for _, s := range senders {
		if err := s.Send(ev); err != nil {
			log.Printf("[notifications] sender failed for %s: %v", ev.Type, err)
		}
	}
}
