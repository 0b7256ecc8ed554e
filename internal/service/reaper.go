package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/observability/metrics"
	"github.com/soundscribe/soundscribe/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Registry core.JobRegistry    // Required: job registry
	Config   config.ReaperConfig // Required: reaper configuration
	Logger   *slog.Logger        // Optional: structured logger
	Metrics  statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// ReaperService periodically sweeps the registry, evicting every record past
// its ExpiresAt regardless of status. Eviction is the only way records leave
// the registry; without it the in-memory table grows without bound.
type ReaperService struct {
	registry core.JobRegistry
	config   config.ReaperConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Registry == nil {
		return nil, errors.New("JobRegistry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ReaperService{
		registry: opts.Registry,
		config:   opts.Config,
		logger:   logger.With("component", "reaper_service"),
		metrics:  opts.Metrics,
	}, nil
}

// Run starts the sweep loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service",
		"interval", s.config.Interval,
		"job_ttl", s.config.JobTTL,
	)

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// sweep runs one eviction pass and emits metrics.
func (s *ReaperService) sweep(ctx context.Context) {
	start := time.Now()
	evicted := s.registry.Sweep(start)
	elapsed := time.Since(start)

	if evicted > 0 {
		s.logger.InfoContext(ctx, "evicted expired jobs",
			"count", evicted,
			"job_ttl", s.config.JobTTL,
			"duration", elapsed,
		)
	}

	metrics.EmitSweep(s.metrics, evicted, elapsed)
}
