// Package data provides the in-memory job registry, the single authoritative
// table of job records. The registry is volatile by design: a process restart
// loses all job history.
package data

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

// defaultTTL governs record eviction when no TTL is configured.
const defaultTTL = 24 * time.Hour

// JobRegistryOptions groups dependencies for JobRegistry.
type JobRegistryOptions struct {
	TTL    time.Duration    // Optional: record time-to-live; defaults to 24h
	Logger *slog.Logger     // Optional: structured logger
	Clock  func() time.Time // Optional: time source, injected by tests
}

// JobRegistry is a mutex-guarded map of job records plus a FIFO queue of
// queued ids. One lock covers both structures, so a sweep can never race
// destructively with an in-flight transition on the same record.
type JobRegistry struct {
	mu     sync.Mutex
	jobs   map[string]*model.Job
	queue  []string
	notify chan struct{}

	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ core.JobRegistry = (*JobRegistry)(nil)

// NewJobRegistry constructs a JobRegistry.
func NewJobRegistry(opts JobRegistryOptions) *JobRegistry {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobRegistry{
		jobs:   make(map[string]*model.Job),
		notify: make(chan struct{}, 1),
		ttl:    ttl,
		logger: logger.With("component", "job_registry"),
		now:    now,
	}
}

// Create allocates a fresh unique identifier, inserts a record in queued state,
// and appends it to the executor queue. It never blocks on I/O: the returned
// snapshot is immediately visible to status queries.
func (r *JobRegistry) Create(req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("create request is required")
	}

	createdAt := r.now()
	job := &model.Job{
		ID:         uuid.NewString(),
		Status:     model.JobStatusQueued,
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
		Targets:    req.Targets,
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(r.ttl),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.queue = append(r.queue, job.ID)
	r.mu.Unlock()

	r.wake()

	return job.Clone(), nil
}

// Get returns a read-only snapshot of the record.
func (r *JobRegistry) Get(id string) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	return job.Clone(), nil
}

// Transition applies a state change per the monotonicity invariant
// queued → running → {completed|failed}. A transition against an evicted
// record returns NotFound; callers treat that as a no-op. An edge the state
// machine does not allow returns InvalidTransition.
func (r *JobRegistry) Transition(
	id string,
	status model.JobStatus,
	payload core.TransitionPayload,
) (*model.Job, error) {
	if !status.Valid() {
		return nil, apperrors.InvalidTransitionf("unknown status %q", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}

	if !model.CanTransition(job.Status, status) {
		return nil, apperrors.InvalidTransitionf(
			"job %s: cannot transition %s -> %s", id, job.Status, status)
	}

	job.Status = status
	switch status {
	case model.JobStatusCompleted:
		job.Result = payload.Result
		job.Error = nil
	case model.JobStatusFailed:
		job.Error = payload.Error
		job.Result = nil
	}
	if status.Terminal() {
		finished := r.now()
		job.FinishedAt = &finished
	}

	return job.Clone(), nil
}

// Next blocks until a queued job id is available or ctx is done, removing the
// id from the queue. The calling executor becomes the only writer for that id.
func (r *JobRegistry) Next(ctx context.Context) (string, error) {
	for {
		if id, ok := r.pop(); ok {
			return id, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-r.notify:
			// Another worker may have taken the job; loop and re-check.
		}
	}
}

func (r *JobRegistry) pop() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return "", false
	}
	id := r.queue[0]
	r.queue = r.queue[1:]

	// More work may remain; keep other waiters moving.
	if len(r.queue) > 0 {
		r.wake()
	}
	return id, true
}

func (r *JobRegistry) wake() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Sweep removes every record with ExpiresAt <= now, regardless of status, and
// returns the number of evicted records. An unfinished job past its TTL is
// evicted, not forcibly completed: its executor, if still running, continues
// independently and its late transition becomes a NotFound no-op.
func (r *JobRegistry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, job := range r.jobs {
		if !job.ExpiresAt.After(now) {
			delete(r.jobs, id)
			evicted++
		}
	}
	if evicted == 0 {
		return 0
	}

	// Drop evicted ids still waiting in the queue.
	remaining := r.queue[:0]
	for _, id := range r.queue {
		if _, ok := r.jobs[id]; ok {
			remaining = append(remaining, id)
		}
	}
	r.queue = remaining

	return evicted
}

// Stats returns counts of records per status.
func (r *JobRegistry) Stats() model.JobStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats model.JobStats
	for _, job := range r.jobs {
		switch job.Status {
		case model.JobStatusQueued:
			stats.Queued++
		case model.JobStatusRunning:
			stats.Running++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

// Len returns the number of live records, expired or not.
func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
