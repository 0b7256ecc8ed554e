package redisnotify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

type stubPublisher struct {
	channel string
	message []byte
	err     error
}

func (s *stubPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	s.channel = channel
	s.message = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if s.err != nil {
		cmd.SetErr(s.err)
	}
	return cmd
}

func newTestSink(client publisher) *Sink {
	return NewSink(SinkOptions{
		Config: config.RedisNotifyConfig{Channel: "soundscribe:jobs"},
		Client: client,
	})
}

func TestDeliverPublishes(t *testing.T) {
	pub := &stubPublisher{}
	sink := newTestSink(pub)

	payload := model.TerminalPayload{
		JobID:  "job-1",
		Status: model.JobStatusFailed,
		Error:  &model.JobError{Kind: "EngineError", Message: "engine returned status 500"},
	}
	require.NoError(t, sink.Deliver(context.Background(), "soundscribe:jobs", payload))

	assert.Equal(t, "soundscribe:jobs", pub.channel)

	var got model.TerminalPayload
	require.NoError(t, json.Unmarshal(pub.message, &got))
	assert.Equal(t, payload, got)
}

func TestDeliverPublishErrorIsTransient(t *testing.T) {
	pub := &stubPublisher{err: errors.New("connection reset")}
	sink := newTestSink(pub)

	err := sink.Deliver(context.Background(), "soundscribe:jobs", model.TerminalPayload{JobID: "job-1"})
	require.Error(t, err)
	assert.True(t, apperrors.Retryable(err))
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "soundscribe:jobs", newTestSink(&stubPublisher{}).Channel())
}
