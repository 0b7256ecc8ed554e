package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeExecutor runs the transcription job executor pool.
	ServiceModeExecutor ServiceMode = "executor"
	// ServiceModeReaper runs the registry sweeper that evicts expired records.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeExecutor, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns
// the enabled services. It validates that all service names are valid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeExecutor, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, executor, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ExecutorConfig contains job executor configuration.
type ExecutorConfig struct {
	// Concurrency is the number of worker goroutines running jobs. Submissions
	// beyond the limit queue in the registry; they are never rejected.
	Concurrency int `env:"EXECUTOR_CONCURRENCY" envDefault:"4"`

	// JobTimeout is the hard wall-clock limit per job. Fetch, transcribe, and
	// store all share this deadline; exceeding it fails the job with Timeout.
	JobTimeout time.Duration `env:"EXECUTOR_JOB_TIMEOUT" envDefault:"30m"`

	// RetryLimit is the maximum number of attempts for transient storage errors.
	RetryLimit int `env:"EXECUTOR_RETRY_LIMIT" envDefault:"3"`

	// RetryBackoff is the base delay for exponential backoff between attempts.
	RetryBackoff time.Duration `env:"EXECUTOR_RETRY_BACKOFF" envDefault:"500ms"`
}

// Sanitize applies guardrails to executor configuration values.
func (e *ExecutorConfig) Sanitize() {
	if e.Concurrency < 1 {
		e.Concurrency = 1
	}
	if e.JobTimeout < time.Second {
		e.JobTimeout = time.Second
	}
	if e.RetryLimit < 1 {
		e.RetryLimit = 1
	}
	if e.RetryBackoff <= 0 {
		e.RetryBackoff = 500 * time.Millisecond
	}
}

// ReaperConfig contains registry sweeper configuration.
type ReaperConfig struct {
	// Interval is the sweep tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	// JobTTL is the record time-to-live. Records are evicted at
	// created_at + TTL regardless of status.
	JobTTL time.Duration `env:"JOB_TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < time.Second {
		r.Interval = time.Second
	}
	if r.JobTTL < time.Minute {
		r.JobTTL = time.Minute
	}
}

// NotifierConfig contains notification delivery configuration shared by all sinks.
type NotifierConfig struct {
	// RetryLimit is the maximum number of delivery attempts per target.
	RetryLimit int `env:"NOTIFIER_RETRY_LIMIT" envDefault:"3"`

	// RetryBackoff is the base delay for exponential backoff between attempts.
	RetryBackoff time.Duration `env:"NOTIFIER_RETRY_BACKOFF" envDefault:"1s"`

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `env:"NOTIFIER_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to notifier configuration values.
func (n *NotifierConfig) Sanitize() {
	if n.RetryLimit < 1 {
		n.RetryLimit = 1
	}
	if n.RetryBackoff <= 0 {
		n.RetryBackoff = time.Second
	}
	if n.Timeout <= 0 {
		n.Timeout = 10 * time.Second
	}
}
