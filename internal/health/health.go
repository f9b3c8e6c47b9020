// Package health runs the Folder Health Monitor: periodic accessibility
// probes of the watch and library roots, emitting a notification only when
// a path's state actually changes (spec.md §4.K).
package health

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tanaste-io/tanaste/internal/notifications"
	"github.com/tanaste-io/tanaste/internal/pathprobe"
)

// DefaultInterval is the probe cadence spec.md §4.K mandates absent
// configuration.
const DefaultInterval = 30 * time.Second

// Monitor probes a fixed set of paths on a timer, tracking each path's last
// observed state so it can emit FolderHealthChanged only on a transition.
type Monitor struct {
	paths      []string
	dispatcher *notifications.Dispatcher
	interval   time.Duration

	cron    *cron.Cron
	entryID cron.EntryID

	mu    sync.Mutex
	state map[string]pathprobe.Result
}

// New builds a Monitor that probes paths every interval (DefaultInterval if
// zero) and dispatches transitions through dispatcher.
func New(dispatcher *notifications.Dispatcher, interval time.Duration, paths ...string) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		paths:      paths,
		dispatcher: dispatcher,
		interval:   interval,
		state:      make(map[string]pathprobe.Result, len(paths)),
	}
}

// Start begins probing on a background schedule. It never blocks the caller
// beyond scheduling the job.
func (m *Monitor) Start() error {
	m.cron = cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	id, err := m.cron.AddFunc(spec, m.tick)
	if err != nil {
		return fmt.Errorf("health: schedule monitor: %w", err)
	}
	m.entryID = id
	m.cron.Start()

	// First observation happens immediately rather than waiting a full
	// interval, so FolderHealthChanged reflects reality as soon as the
	// process comes up.
	go m.tick()
	return nil
}

// Stop cancels the schedule. Any probe already in flight is allowed to
// finish; Stop does not interrupt it.
func (m *Monitor) Stop() {
	if m.cron != nil {
		ctx := m.cron.Stop()
		<-ctx.Done()
	}
}

// tick probes every configured path once and reports transitions.
func (m *Monitor) tick() {
	for _, path := range m.paths {
		result := pathprobe.Probe(path)
		m.reportIfChanged(path, result)
	}
}

func (m *Monitor) reportIfChanged(path string, result pathprobe.Result) {
	m.mu.Lock()
	prev, seen := m.state[path]
	changed := !seen || prev != result
	m.state[path] = result
	m.mu.Unlock()

	if !changed {
		return
	}

	log.Printf("[health] %s accessible=%t read=%t write=%t", path, result.IsAccessible, result.HasRead, result.HasWrite)
	m.dispatcher.Dispatch(notifications.Event{
		Type: notifications.FolderHealthChanged,
		Path: path,
		Payload: map[string]string{
			"is_accessible": boolString(result.IsAccessible),
			"has_read":      boolString(result.HasRead),
			"has_write":     boolString(result.HasWrite),
		},
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
