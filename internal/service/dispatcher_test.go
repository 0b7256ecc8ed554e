package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

func notifierConfig() config.NotifierConfig {
	return config.NotifierConfig{
		RetryLimit:   3,
		RetryBackoff: time.Millisecond,
		Timeout:      time.Second,
	}
}

func terminalJob(targets ...model.NotificationTarget) *model.Job {
	finished := time.Now()
	return &model.Job{
		ID:         "job-1",
		Status:     model.JobStatusCompleted,
		InputPath:  "audio/in.wav",
		OutputPath: "bucket/out.md",
		Targets:    targets,
		Result:     &model.JobResult{OutputPath: "bucket/out.md"},
		FinishedAt: &finished,
	}
}

func newDispatcher(sinks ...core.NotificationSink) *NotificationService {
	return NewNotificationService(NotificationServiceOptions{
		Sinks:           sinks,
		Config:          notifierConfig(),
		ConsulKeyPrefix: "soundscribe/jobs",
	})
}

func TestDispatcherDeliversToWebhook(t *testing.T) {
	sink := &stubSink{kind: model.TargetWebhook}
	d := newDispatcher(sink)

	job := terminalJob(model.NotificationTarget{Kind: model.TargetWebhook, Endpoint: "http://cb.example/hook"})
	d.Deliver(context.Background(), job)

	require.Equal(t, 1, sink.attempts())
	assert.Equal(t, "http://cb.example/hook", sink.lastEndpoint())
	assert.Equal(t, "job-1", sink.payloads[0].JobID)
	assert.Equal(t, model.JobStatusCompleted, sink.payloads[0].Status)
	assert.Equal(t, "bucket/out.md", sink.payloads[0].OutputPath)
}

func TestDispatcherRetriesTransientThenSucceeds(t *testing.T) {
	sink := &stubSink{
		kind: model.TargetWebhook,
		errs: []error{
			apperrors.Transient("webhook returned status 502"),
			apperrors.Transient("webhook returned status 502"),
		},
	}
	d := newDispatcher(sink)

	d.Deliver(context.Background(), terminalJob(
		model.NotificationTarget{Kind: model.TargetWebhook, Endpoint: "http://cb.example/hook"},
	))

	assert.Equal(t, 3, sink.attempts())
}

func TestDispatcherAbandonsAfterRetryBudget(t *testing.T) {
	sink := &stubSink{
		kind: model.TargetWebhook,
		errs: []error{
			apperrors.Transient("connection refused"),
			apperrors.Transient("connection refused"),
			apperrors.Transient("connection refused"),
		},
	}
	d := newDispatcher(sink)

	job := terminalJob(model.NotificationTarget{Kind: model.TargetWebhook, Endpoint: "http://cb.example/hook"})
	d.Deliver(context.Background(), job)

	assert.Equal(t, 3, sink.attempts())
	// Delivery failures never touch the job record.
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.NotNil(t, job.Result)
}

func TestDispatcherPermanentFailureIsNotRetried(t *testing.T) {
	sink := &stubSink{
		kind: model.TargetWebhook,
		errs: []error{apperrors.Internal("webhook returned status 404")},
	}
	d := newDispatcher(sink)

	d.Deliver(context.Background(), terminalJob(
		model.NotificationTarget{Kind: model.TargetWebhook, Endpoint: "http://cb.example/hook"},
	))

	assert.Equal(t, 1, sink.attempts())
}

func TestDispatcherDerivesConsulKey(t *testing.T) {
	sink := &stubSink{kind: model.TargetConsul}
	d := newDispatcher(sink)

	d.Deliver(context.Background(), terminalJob(
		model.NotificationTarget{Kind: model.TargetConsul},
	))

	require.Equal(t, 1, sink.attempts())
	assert.Equal(t, "soundscribe/jobs/job-1", sink.lastEndpoint())
}

func TestDispatcherFansOutIndependently(t *testing.T) {
	webhook := &stubSink{
		kind: model.TargetWebhook,
		errs: []error{
			apperrors.Transient("boom"),
			apperrors.Transient("boom"),
			apperrors.Transient("boom"),
		},
	}
	consul := &stubSink{kind: model.TargetConsul}
	redis := &stubSink{kind: model.TargetRedis}
	d := newDispatcher(webhook, consul, redis)

	d.Deliver(context.Background(), terminalJob(
		model.NotificationTarget{Kind: model.TargetWebhook, Endpoint: "http://cb.example/hook"},
		model.NotificationTarget{Kind: model.TargetConsul},
		model.NotificationTarget{Kind: model.TargetRedis, Endpoint: "soundscribe.jobs"},
	))

	// The failing webhook does not block the other targets.
	assert.Equal(t, 3, webhook.attempts())
	assert.Equal(t, 1, consul.attempts())
	assert.Equal(t, 1, redis.attempts())
	assert.Equal(t, "soundscribe.jobs", redis.lastEndpoint())
}

func TestDispatcherMissingSinkDoesNotPanic(t *testing.T) {
	d := newDispatcher()

	assert.NotPanics(t, func() {
		d.Deliver(context.Background(), terminalJob(
			model.NotificationTarget{Kind: model.TargetWebhook, Endpoint: "http://cb.example/hook"},
		))
	})
}

func TestDispatcherNoTargetsIsNoop(t *testing.T) {
	sink := &stubSink{kind: model.TargetWebhook}
	d := newDispatcher(sink)

	d.Deliver(context.Background(), terminalJob())
	assert.Equal(t, 0, sink.attempts())
}

func TestDispatcherFailedJobPayloadCarriesError(t *testing.T) {
	sink := &stubSink{kind: model.TargetWebhook}
	d := newDispatcher(sink)

	finished := time.Now()
	job := &model.Job{
		ID:         "job-2",
		Status:     model.JobStatusFailed,
		Targets:    []model.NotificationTarget{{Kind: model.TargetWebhook, Endpoint: "http://cb.example/hook"}},
		Error:      &model.JobError{Kind: "EngineError", Message: "engine returned status 500"},
		FinishedAt: &finished,
	}
	d.Deliver(context.Background(), job)

	require.Equal(t, 1, sink.attempts())
	payload := sink.payloads[0]
	assert.Equal(t, model.JobStatusFailed, payload.Status)
	require.NotNil(t, payload.Error)
	assert.Equal(t, "EngineError", payload.Error.Kind)
	assert.Empty(t, payload.OutputPath)
}
