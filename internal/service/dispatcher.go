package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	"github.com/soundscribe/soundscribe/internal/observability/metrics"
	"github.com/soundscribe/soundscribe/internal/observability/statsd"
)

// NotificationService fans a terminal job's payload out to its targets.
// Targets are independent: one failing never blocks or cancels the others,
// and delivery failures never alter the job record.
type NotificationService struct {
	sinks   map[model.TargetKind]core.NotificationSink
	config  config.NotifierConfig
	logger  *slog.Logger
	metrics statsd.Sink

	// consulKeyPrefix resolves consul targets whose key is derived from the
	// job id at delivery time.
	consulKeyPrefix string
}

var _ core.Dispatcher = (*NotificationService)(nil)

// NotificationServiceOptions groups dependencies for NotificationService.
type NotificationServiceOptions struct {
	Sinks   []core.NotificationSink // Required: one sink per configured target kind
	Config  config.NotifierConfig   // Required: delivery retry configuration
	Logger  *slog.Logger            // Optional: structured logger
	Metrics statsd.Sink             // Optional: metrics sink (StatsD-compatible)

	// ConsulKeyPrefix is the KV prefix used to derive per-job consul keys.
	ConsulKeyPrefix string
}

// NewNotificationService constructs a new NotificationService.
func NewNotificationService(opts NotificationServiceOptions) *NotificationService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sinks := make(map[model.TargetKind]core.NotificationSink, len(opts.Sinks))
	for _, sink := range opts.Sinks {
		if sink != nil {
			sinks[sink.Kind()] = sink
		}
	}

	return &NotificationService{
		sinks:           sinks,
		config:          opts.Config,
		logger:          logger.With("component", "notification_service"),
		metrics:         opts.Metrics,
		consulKeyPrefix: opts.ConsulKeyPrefix,
	}
}

// Deliver sends the job's terminal payload to every configured target,
// concurrently. It returns when every target has either succeeded or been
// abandoned after its retry budget.
func (s *NotificationService) Deliver(ctx context.Context, job *model.Job) {
	if len(job.Targets) == 0 {
		return
	}

	payload := model.NewTerminalPayload(job)

	var group errgroup.Group
	for _, target := range job.Targets {
		group.Go(func() error {
			s.deliverTarget(ctx, job, target, payload)
			return nil
		})
	}
	_ = group.Wait()
}

// deliverTarget drives one target through its retry budget. Only transient
// errors are retried; permanent failures and exhausted budgets are logged,
// counted, and dropped.
func (s *NotificationService) deliverTarget(
	ctx context.Context,
	job *model.Job,
	target model.NotificationTarget,
	payload model.TerminalPayload,
) {
	logger := s.logger.With("job_id", job.ID, "target", string(target.Kind))

	sink, ok := s.sinks[target.Kind]
	if !ok {
		logger.Error("no sink configured for target kind")
		metrics.EmitDelivery(s.metrics, metrics.DeliveryMetric{
			Target: string(target.Kind),
			Result: metrics.ResultError,
		})
		return
	}

	endpoint := target.Endpoint
	if endpoint == "" && target.Kind == model.TargetConsul {
		endpoint = s.consulKeyPrefix + "/" + job.ID
	}

	start := time.Now()
	attempts := 0
	err := retryTransient(ctx, retryPolicy{
		Attempts: s.config.RetryLimit,
		Backoff:  s.config.RetryBackoff,
	}, func(ctx context.Context) error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		return sink.Deliver(attemptCtx, endpoint, payload)
	})
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn("notification abandoned",
			"endpoint", endpoint,
			"attempts", attempts,
			"error", err,
		)
		metrics.EmitDelivery(s.metrics, metrics.DeliveryMetric{
			Target:   string(target.Kind),
			Result:   metrics.ResultError,
			Attempts: attempts,
			Duration: elapsed,
		})
		return
	}

	logger.Debug("notification delivered", "endpoint", endpoint, "attempts", attempts)
	metrics.EmitDelivery(s.metrics, metrics.DeliveryMetric{
		Target:   string(target.Kind),
		Result:   metrics.ResultSuccess,
		Attempts: attempts,
		Duration: elapsed,
	})
}
