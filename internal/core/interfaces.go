// Package core defines the port interfaces between the orchestration services
// and their collaborators (registry, object storage, transcription engine,
// notification sinks). Services depend on these interfaces, never on concrete
// implementations.
package core

import (
	"context"
	"time"

	"github.com/soundscribe/soundscribe/internal/domain/model"
)

// TransitionPayload carries the terminal outcome applied alongside a state change.
// Exactly one of Result/Error is set for terminal transitions; both are nil for
// the queued→running edge.
type TransitionPayload struct {
	Result *model.JobResult
	Error  *model.JobError
}

// JobRegistry is the authoritative table of job records. It owns identity
// allocation, state transitions, and expiry. All implementations must be safe
// for concurrent use; reads return snapshots, never live records.
type JobRegistry interface {
	// Create allocates a fresh id, inserts a queued record, and returns its
	// snapshot. It never blocks on I/O.
	Create(req *model.CreateJobRequest) (*model.Job, error)

	// Get returns a read-only snapshot of the record, or a NotFound error if
	// the id is unknown or already evicted.
	Get(id string) (*model.Job, error)

	// Transition applies a state change per the monotonicity invariant.
	// It returns NotFound if the record is absent and InvalidTransition if the
	// edge is not allowed from the current state.
	Transition(id string, status model.JobStatus, payload TransitionPayload) (*model.Job, error)

	// Next blocks until a queued job id is available or ctx is done, and
	// removes it from the queue. The caller becomes the sole writer for that id.
	Next(ctx context.Context) (string, error)

	// Sweep removes every record with ExpiresAt <= now and returns the number
	// of evicted records.
	Sweep(now time.Time) int

	// Stats returns counts of records per status.
	Stats() model.JobStats
}

// ObjectStore fetches and stores blobs in object storage. Locators are opaque
// "bucket/object" strings. Errors are classified via the internal errors
// package: not_found, access_denied, or transient.
type ObjectStore interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
	Store(ctx context.Context, locator string, data []byte) error
}

// TranscriptionEngine converts an audio byte stream into an ordered list of
// transcript segments. Engine failures are never retried.
type TranscriptionEngine interface {
	Transcribe(ctx context.Context, audio []byte) (model.Transcript, error)
}

// NotificationSink delivers a terminal-job payload to one destination.
// Deliver returns a transient error when the attempt may be retried and a
// permanent error (any other code) when it must not be.
type NotificationSink interface {
	// Kind identifies which notification targets this sink serves.
	Kind() model.TargetKind
	Deliver(ctx context.Context, endpoint string, payload model.TerminalPayload) error
}

// Dispatcher delivers a terminal job's payload to its configured targets.
type Dispatcher interface {
	Deliver(ctx context.Context, job *model.Job)
}
