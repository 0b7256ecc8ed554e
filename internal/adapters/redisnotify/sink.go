// Package redisnotify provides the optional Redis pub/sub notification sink.
// When configured, every terminal job is published to a process-wide channel
// so downstream consumers can follow completions without polling.
package redisnotify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

// publisher is the slice of the Redis client the sink needs; narrowed for tests.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Sink publishes terminal-job payloads to a Redis channel.
type Sink struct {
	client  publisher
	channel string
	logger  *slog.Logger
}

var _ core.NotificationSink = (*Sink)(nil)

// SinkOptions groups dependencies for Sink.
type SinkOptions struct {
	Config config.RedisNotifyConfig
	Logger *slog.Logger

	// Client overrides the Redis client; used by tests.
	Client publisher
}

// NewSink constructs a Redis pub/sub sink.
func NewSink(opts SinkOptions) *Sink {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := opts.Client
	if client == nil {
		client = redis.NewClient(&redis.Options{
			Addr:     opts.Config.Addr,
			Password: opts.Config.Password,
			DB:       opts.Config.DB,
		})
	}

	return &Sink{
		client:  client,
		channel: opts.Config.Channel,
		logger:  logger.With("component", "redis_sink"),
	}
}

// Channel returns the configured pub/sub channel.
func (s *Sink) Channel() string {
	return s.channel
}

// Kind identifies which notification targets this sink serves.
func (s *Sink) Kind() model.TargetKind {
	return model.TargetRedis
}

// Deliver publishes the payload to the endpoint channel. Failures are
// transient and will be retried by the dispatcher.
func (s *Sink) Deliver(ctx context.Context, endpoint string, payload model.TerminalPayload) error {
	message, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal redis payload")
	}

	if err := s.client.Publish(ctx, endpoint, message).Err(); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeTransient, "redis publish %s", endpoint)
	}

	s.logger.DebugContext(ctx, "published redis notification", "channel", endpoint)
	return nil
}
