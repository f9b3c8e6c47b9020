// Package jobs wraps asynq into the bounded worker pool the ingestion
// pipeline's stages run on (spec.md §5), adapted from CineVault's
// internal/jobs/queue.go.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hibiken/asynq"
)

// Task type constants. TypeHash carries the whole hash->harvest->score->
// arbitrate->organize chain as one task; TypeEnrichPerson runs independently.
const (
	TypeHash         = "ingest:hash"
	TypeEnrichPerson = "ingest:enrich_person"
)

// Queue wraps an asynq client/server pair configured with the priority
// queues and concurrency CineVault's jobs.NewQueue establishes.
type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
}

// NewQueue connects to redis at addr and configures a bounded worker pool.
func NewQueue(addr string) *Queue {
	opt := asynq.RedisClientOpt{Addr: addr}
	return &Queue{
		client: asynq.NewClient(opt),
		server: asynq.NewServer(opt, asynq.Config{
			Concurrency: 8,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		}),
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(opt),
	}
}

// RegisterHandler binds a task type to its handler.
func (q *Queue) RegisterHandler(taskType string, handler func(context.Context, *asynq.Task) error) {
	q.mux.HandleFunc(taskType, handler)
}

// Start begins processing registered handlers; blocks until Stop is called
// or a fatal server error occurs.
func (q *Queue) Start() error {
	return q.server.Run(q.mux)
}

// Stop gracefully shuts the worker pool down.
func (q *Queue) Stop() {
	q.server.Shutdown()
}

// Client exposes the underlying asynq client for callers that need direct
// access (e.g. scheduled one-off tasks).
func (q *Queue) Client() *asynq.Client {
	return q.client
}

// Enqueue submits a task without deduplication.
func (q *Queue) Enqueue(task *asynq.Task, opts ...asynq.Option) error {
	_, err := q.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("jobs: enqueue %s: %w", task.Type(), err)
	}
	return nil
}

// EnqueueUnique submits a task with a deterministic TaskID derived from
// key, so the same (type, key) pair is never processed twice concurrently.
// If a prior task with this id already completed or was archived, it is
// deleted and re-enqueued; if it's still active, the conflict is treated as
// "already in flight, skip" rather than an error.
func (q *Queue) EnqueueUnique(task *asynq.Task, key string, opts ...asynq.Option) error {
	taskID := fmt.Sprintf("%s:%s", task.Type(), key)
	opts = append(opts, asynq.TaskID(taskID))

	_, err := q.client.Enqueue(task, opts...)
	if err == nil {
		return nil
	}
	if !isTaskConflict(err) {
		return fmt.Errorf("jobs: enqueue unique %s: %w", taskID, err)
	}

	if delErr := q.inspector.DeleteTask("default", taskID); delErr == nil {
		_, retryErr := q.client.Enqueue(task, opts...)
		if retryErr != nil {
			return fmt.Errorf("jobs: re-enqueue %s after clearing completed task: %w", taskID, retryErr)
		}
		return nil
	}

	log.Printf("[jobs] task %s already active, skipping duplicate enqueue", taskID)
	return nil
}

// isTaskConflict reports whether err represents a duplicate/already-exists
// conflict rather than a genuine enqueue failure.
func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}
