package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
	"github.com/soundscribe/soundscribe/internal/observability/metrics"
	"github.com/soundscribe/soundscribe/internal/observability/statsd"
)

// ExecutorServiceOptions groups dependencies for ExecutorService.
type ExecutorServiceOptions struct {
	Registry   core.JobRegistry         // Required: job registry
	Store      core.ObjectStore         // Required: object storage
	Engine     core.TranscriptionEngine // Required: transcription engine
	Dispatcher core.Dispatcher          // Optional: terminal notification dispatcher
	Config     config.ExecutorConfig    // Required: executor configuration
	Logger     *slog.Logger             // Optional: structured logger
	Metrics    statsd.Sink              // Optional: metrics sink (StatsD-compatible)
}

// ExecutorService runs the transcription pipeline: a fixed pool of workers
// pulls queued job ids from the registry and, for each one, fetches the audio,
// transcribes it, renders the transcript, stores the result, and applies the
// terminal transition. Exactly one terminal transition happens per job, and
// the dispatcher is invoked once after it.
type ExecutorService struct {
	registry   core.JobRegistry
	store      core.ObjectStore
	engine     core.TranscriptionEngine
	dispatcher core.Dispatcher
	config     config.ExecutorConfig
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewExecutorService constructs a new ExecutorService.
func NewExecutorService(opts ExecutorServiceOptions) (*ExecutorService, error) {
	if opts.Registry == nil {
		return nil, errors.New("JobRegistry is required")
	}
	if opts.Store == nil {
		return nil, errors.New("ObjectStore is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("TranscriptionEngine is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ExecutorService{
		registry:   opts.Registry,
		store:      opts.Store,
		engine:     opts.Engine,
		dispatcher: opts.Dispatcher,
		config:     opts.Config,
		logger:     logger.With("component", "executor_service"),
		metrics:    opts.Metrics,
	}, nil
}

// Run starts the worker pool and blocks until the context is cancelled and
// all in-flight jobs have finished. Returns nil on graceful shutdown.
func (s *ExecutorService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting executor service",
		"concurrency", s.config.Concurrency,
		"job_timeout", s.config.JobTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			s.workerLoop(ctx, worker)
		}(i)
	}
	wg.Wait()

	s.logger.Info("executor service stopped")
	return nil
}

// workerLoop pulls queued ids until the context is done. A panic while
// processing one job fails that job and the worker keeps going.
func (s *ExecutorService) workerLoop(ctx context.Context, worker int) {
	logger := s.logger.With("worker", worker)
	for {
		id, err := s.registry.Next(ctx)
		if err != nil {
			if isContextCancellation(err) || errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			logger.ErrorContext(ctx, "dequeue failed", "error", err)
			continue
		}
		s.runJob(ctx, logger, id)
	}
}

// runJob drives one job through the pipeline under the per-job deadline.
func (s *ExecutorService) runJob(ctx context.Context, logger *slog.Logger, id string) {
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	job, err := s.registry.Transition(id, model.JobStatusRunning, core.TransitionPayload{})
	if err != nil {
		// The record was swept (or never existed) between dequeue and claim.
		// Late writes against evicted ids are silent no-ops.
		if apperrors.IsNotFound(err) {
			logger.Debug("job evicted before claim", "job_id", id)
			return
		}
		logger.Error("claim failed", "job_id", id, "error", err)
		return
	}

	start := time.Now()
	result, runErr := s.process(jobCtx, logger, job)
	elapsed := time.Since(start)

	var terminal *model.Job
	if runErr != nil {
		terminal = s.fail(logger, job, runErr, elapsed)
	} else {
		terminal = s.complete(logger, job, result, elapsed)
	}

	if terminal != nil && s.dispatcher != nil {
		// Dispatch on the service context, not the expired job context, so
		// notifications for a timed-out job can still be delivered.
		s.dispatcher.Deliver(ctx, terminal)
	}
}

// process runs fetch → transcribe → render → store and returns the result.
// A panic in any step is converted into an internal error.
func (s *ExecutorService) process(
	ctx context.Context,
	logger *slog.Logger,
	job *model.Job,
) (result *model.JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "job_id", job.ID, "panic", r)
			result = nil
			err = apperrors.Internal(fmt.Sprintf("job panicked: %v", r))
		}
	}()

	audio, err := s.fetchWithRetry(ctx, job.InputPath)
	if err != nil {
		return nil, err
	}

	transcript, err := s.engine.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}

	rendered := transcript.Render()

	if err := s.storeWithRetry(ctx, job.OutputPath, []byte(rendered)); err != nil {
		return nil, err
	}

	return &model.JobResult{OutputPath: job.OutputPath}, nil
}

// fetchWithRetry reads the input object, retrying transient failures with
// exponential backoff. NotFound and AccessDenied fail immediately.
func (s *ExecutorService) fetchWithRetry(ctx context.Context, locator string) ([]byte, error) {
	var audio []byte
	err := retryTransient(ctx, retryPolicy{
		Attempts: s.config.RetryLimit,
		Backoff:  s.config.RetryBackoff,
	}, func(ctx context.Context) error {
		var fetchErr error
		audio, fetchErr = s.store.Fetch(ctx, locator)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// storeWithRetry writes the rendered transcript, retrying transient failures.
func (s *ExecutorService) storeWithRetry(ctx context.Context, locator string, data []byte) error {
	return retryTransient(ctx, retryPolicy{
		Attempts: s.config.RetryLimit,
		Backoff:  s.config.RetryBackoff,
	}, func(ctx context.Context) error {
		return s.store.Store(ctx, locator, data)
	})
}

// complete applies the terminal completed transition and returns the terminal
// snapshot, or nil when the record was evicted mid-flight.
func (s *ExecutorService) complete(
	logger *slog.Logger,
	job *model.Job,
	result *model.JobResult,
	elapsed time.Duration,
) *model.Job {
	terminal, err := s.registry.Transition(job.ID, model.JobStatusCompleted, core.TransitionPayload{
		Result: result,
	})
	if err != nil {
		s.logLateWrite(logger, job.ID, err)
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: string(model.JobStatusCompleted),
			Result:     metrics.ResultNoop,
			Duration:   elapsed,
		})
		return nil
	}

	logger.Info("job completed",
		"job_id", job.ID,
		"output", result.OutputPath,
		"duration", elapsed,
	)
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: string(model.JobStatusCompleted),
		Result:     metrics.ResultSuccess,
		Duration:   elapsed,
	})
	return terminal
}

// fail applies the terminal failed transition, recording the error kind and
// message on the record.
func (s *ExecutorService) fail(
	logger *slog.Logger,
	job *model.Job,
	runErr error,
	elapsed time.Duration,
) *model.Job {
	jobErr := &model.JobError{
		Kind:    apperrors.KindLabel(runErr),
		Message: runErr.Error(),
	}

	terminal, err := s.registry.Transition(job.ID, model.JobStatusFailed, core.TransitionPayload{
		Error: jobErr,
	})
	if err != nil {
		s.logLateWrite(logger, job.ID, err)
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Transition: string(model.JobStatusFailed),
			Result:     metrics.ResultNoop,
			Duration:   elapsed,
		})
		return nil
	}

	logger.Warn("job failed",
		"job_id", job.ID,
		"error_kind", jobErr.Kind,
		"error", runErr,
		"duration", elapsed,
	)
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: string(model.JobStatusFailed),
		Result:     metrics.ResultError,
		Duration:   elapsed,
		Err:        runErr,
	})
	return terminal
}

func (s *ExecutorService) logLateWrite(logger *slog.Logger, id string, err error) {
	if apperrors.IsNotFound(err) {
		logger.Debug("job evicted before terminal write", "job_id", id)
		return
	}
	logger.Error("terminal transition failed", "job_id", id, "error", err)
}
