// Package consul provides the service-discovery notification sink, publishing
// terminal-job payloads as key/value pairs in Consul.
package consul

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hashicorp/consul/api"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

// kv is the slice of the Consul client the sink needs; narrowed for tests.
type kv interface {
	Put(p *api.KVPair, q *api.WriteOptions) (*api.WriteMeta, error)
}

// Sink publishes terminal-job payloads to the Consul KV store.
type Sink struct {
	kv        kv
	keyPrefix string
	logger    *slog.Logger
}

var _ core.NotificationSink = (*Sink)(nil)

// SinkOptions groups dependencies for Sink.
type SinkOptions struct {
	Config config.ConsulConfig
	Logger *slog.Logger

	// KV overrides the Consul KV client; used by tests.
	KV kv
}

// NewSink constructs a Consul sink, dialing the configured agent unless a KV
// client is injected.
func NewSink(opts SinkOptions) (*Sink, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := opts.KV
	if store == nil {
		client, err := api.NewClient(&api.Config{Address: opts.Config.Addr})
		if err != nil {
			return nil, fmt.Errorf("create consul client: %w", err)
		}
		store = client.KV()
	}

	return &Sink{
		kv:        store,
		keyPrefix: opts.Config.KeyPrefix,
		logger:    logger.With("component", "consul_sink"),
	}, nil
}

// Key derives the KV key a job's completion payload is written to.
func (s *Sink) Key(jobID string) string {
	return s.keyPrefix + "/" + jobID
}

// Kind identifies which notification targets this sink serves.
func (s *Sink) Kind() model.TargetKind {
	return model.TargetConsul
}

// Deliver writes the payload under the endpoint key. Transport failures are
// transient and will be retried by the dispatcher.
func (s *Sink) Deliver(ctx context.Context, endpoint string, payload model.TerminalPayload) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal consul payload")
	}

	pair := &api.KVPair{Key: endpoint, Value: value}
	if _, err := s.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx)); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeTransient, "consul kv put %s", endpoint)
	}

	s.logger.DebugContext(ctx, "published consul notification", "key", endpoint)
	return nil
}
