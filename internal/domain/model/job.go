// Package model defines the core data types used throughout the soundscribe
// transcription job system.
package model

import (
	"errors"
	"strings"
	"time"
)

// JobStatus represents the current status of a transcription job.
type JobStatus string

const (
	// JobStatusQueued indicates a job is waiting for an executor.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates a job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job has finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job has failed to complete.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal returns true if no further transitions may occur from this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition reports whether the job state machine allows moving from one
// status to another. Status is monotonic: queued → running → {completed|failed}.
func CanTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusRunning || to == JobStatusFailed
	case JobStatusRunning:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// TargetKind identifies the type of a notification target.
type TargetKind string

const (
	// TargetWebhook delivers by HTTP POST to a caller-supplied URL.
	TargetWebhook TargetKind = "webhook"
	// TargetConsul delivers by writing a key/value pair to the discovery store.
	TargetConsul TargetKind = "consul"
	// TargetRedis delivers by publishing to a process-wide pub/sub channel.
	TargetRedis TargetKind = "redis"
)

// NotificationTarget is a sink to notify when a job reaches a terminal state.
// Targets are fixed at submission time.
type NotificationTarget struct {
	Kind TargetKind `json:"kind"`
	// Endpoint is the webhook URL, the Consul KV key, or the Redis channel.
	Endpoint string `json:"endpoint"`
}

// JobResult holds the outcome of a completed job.
type JobResult struct {
	// OutputPath is the object-storage locator the transcript was written to.
	OutputPath string `json:"output_s3_path"`
}

// JobError holds the outcome of a failed job.
type JobError struct {
	// Kind is a stable error-kind tag (NotFound, AccessDenied, Transient,
	// EngineError, Timeout, InternalError).
	Kind string `json:"kind"`
	// Message is a human-readable description of the failure.
	Message string `json:"message"`
}

// Job is the unit of work and its observable state. Records are created
// queued, mutated only by the executor that owns the id, read concurrently by
// status queries and the notification dispatcher, and evicted at ExpiresAt.
type Job struct {
	ID         string               `json:"id"`
	Status     JobStatus            `json:"status"`
	InputPath  string               `json:"input_s3_path"`
	OutputPath string               `json:"output_s3_path"`
	Targets    []NotificationTarget `json:"targets,omitempty"`
	Result     *JobResult           `json:"result,omitempty"`
	Error      *JobError            `json:"error,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	FinishedAt *time.Time           `json:"finished_at,omitempty"`
	ExpiresAt  time.Time            `json:"expires_at"`
}

// Clone returns a deep copy of the job so callers can never mutate registry state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.Targets != nil {
		out.Targets = make([]NotificationTarget, len(j.Targets))
		copy(out.Targets, j.Targets)
	}
	if j.Result != nil {
		r := *j.Result
		out.Result = &r
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		out.FinishedAt = &t
	}
	return &out
}

// CreateJobRequest represents a request to insert a new job record.
type CreateJobRequest struct {
	InputPath  string
	OutputPath string
	Targets    []NotificationTarget
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if err := validateLocator(r.InputPath); err != nil {
		return errors.New("input locator: " + err.Error())
	}
	if err := validateLocator(r.OutputPath); err != nil {
		return errors.New("output locator: " + err.Error())
	}
	for _, target := range r.Targets {
		if target.Endpoint == "" {
			return errors.New("notification target endpoint is required")
		}
	}
	return nil
}

// validateLocator checks that a storage locator has the "bucket/object" shape.
func validateLocator(locator string) error {
	bucket, object, ok := strings.Cut(locator, "/")
	if !ok || bucket == "" || object == "" {
		return errors.New("must be of the form bucket/object")
	}
	return nil
}

// SplitLocator splits a "bucket/object" locator into its two parts.
func SplitLocator(locator string) (bucket, object string, err error) {
	bucket, object, ok := strings.Cut(locator, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", errors.New("invalid locator: must be of the form bucket/object")
	}
	return bucket, object, nil
}

// JobStats represents counts of jobs in each state.
type JobStats struct {
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// TerminalPayload is the notification body delivered to every sink when a job
// reaches a terminal state.
type TerminalPayload struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	OutputPath string    `json:"output_s3_path,omitempty"`
	Error      *JobError `json:"error,omitempty"`
}

// NewTerminalPayload builds the notification payload for a terminal job.
func NewTerminalPayload(job *Job) TerminalPayload {
	p := TerminalPayload{
		JobID:  job.ID,
		Status: job.Status,
		Error:  job.Error,
	}
	if job.Result != nil {
		p.OutputPath = job.Result.OutputPath
	}
	return p
}
