// Package service provides the business logic services for the soundscribe
// transcription job system.
package service

import (
	"errors"
	"log/slog"

	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/domain/model"
	apperrors "github.com/soundscribe/soundscribe/internal/errors"
)

// SubmitParams describes one transcription job submission.
type SubmitParams struct {
	// InputPath is the "bucket/object" locator of the source audio.
	InputPath string
	// OutputPath is the "bucket/object" locator the rendered transcript is
	// written to on success.
	OutputPath string
	// WebhookURL, when set, adds a webhook notification target.
	WebhookURL string
	// ConsulNotification, when set, adds a Consul KV notification target.
	ConsulNotification bool
}

// SubmitReceipt is returned to the caller immediately after a job is accepted.
type SubmitReceipt struct {
	JobID string
	// ConsulKey is the KV key the completion payload will be written to, empty
	// when Consul notification was not requested.
	ConsulKey string
}

// JobService accepts submissions, answers status queries, and reports
// registry statistics. Submission never blocks on executor capacity: the
// record is inserted queued and picked up by the executor pool later.
type JobService struct {
	registry core.JobRegistry
	logger   *slog.Logger

	consulKeyPrefix string
	redisChannel    string
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Registry core.JobRegistry // Required: job registry
	Logger   *slog.Logger     // Optional: structured logger

	// ConsulKeyPrefix is the KV prefix for consul notification targets.
	// Required only when callers may request consul notifications.
	ConsulKeyPrefix string

	// RedisChannel, when non-empty, adds a Redis pub/sub target to every job.
	RedisChannel string
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Registry == nil {
		return nil, errors.New("JobRegistry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobService{
		registry:        opts.Registry,
		logger:          logger.With("component", "job_service"),
		consulKeyPrefix: opts.ConsulKeyPrefix,
		redisChannel:    opts.RedisChannel,
	}, nil
}

// Submit validates the request, inserts a queued record, and returns its id.
// The job runs asynchronously; callers poll Status or wait for a notification.
func (s *JobService) Submit(params SubmitParams) (*SubmitReceipt, error) {
	req := &model.CreateJobRequest{
		InputPath:  params.InputPath,
		OutputPath: params.OutputPath,
	}
	if params.WebhookURL != "" {
		req.Targets = append(req.Targets, model.NotificationTarget{
			Kind:     model.TargetWebhook,
			Endpoint: params.WebhookURL,
		})
	}
	if params.ConsulNotification {
		if s.consulKeyPrefix == "" {
			return nil, apperrors.Validation("consul notification requested but no consul backend is configured")
		}
		// Placeholder resolved to the real key once the id is allocated.
		req.Targets = append(req.Targets, model.NotificationTarget{
			Kind: model.TargetConsul,
		})
	}
	if s.redisChannel != "" {
		req.Targets = append(req.Targets, model.NotificationTarget{
			Kind:     model.TargetRedis,
			Endpoint: s.redisChannel,
		})
	}

	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	job, err := s.registry.Create(req)
	if err != nil {
		return nil, err
	}

	receipt := &SubmitReceipt{JobID: job.ID}
	if params.ConsulNotification {
		receipt.ConsulKey = s.consulKeyPrefix + "/" + job.ID
	}

	s.logger.Info("job accepted",
		"job_id", job.ID,
		"input", job.InputPath,
		"output", job.OutputPath,
		"targets", len(job.Targets),
	)

	return receipt, nil
}

// validateSubmission checks locator shape and target endpoints. Consul targets
// are exempt from the endpoint check because their key is derived from the id
// after creation.
func validateSubmission(req *model.CreateJobRequest) error {
	probe := &model.CreateJobRequest{
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
	}
	for _, target := range req.Targets {
		if target.Kind == model.TargetConsul && target.Endpoint == "" {
			continue
		}
		probe.Targets = append(probe.Targets, target)
	}
	if err := probe.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid submission")
	}
	return nil
}

// Status returns a read-only snapshot of the job, or NotFound when the id is
// unknown or the record has been evicted.
func (s *JobService) Status(id string) (*model.Job, error) {
	return s.registry.Get(id)
}

// Stats returns counts of jobs per status.
func (s *JobService) Stats() model.JobStats {
	return s.registry.Stats()
}

// ConsulKeyPrefix returns the configured consul KV prefix.
func (s *JobService) ConsulKeyPrefix() string {
	return s.consulKeyPrefix
}
