package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		services, err := ParseServices("http")
		require.NoError(t, err)
		assert.True(t, services[ServiceModeHTTP])
		assert.False(t, services[ServiceModeExecutor])
	})

	t.Run("all with spaces", func(t *testing.T) {
		services, err := ParseServices("http, executor ,reaper")
		require.NoError(t, err)
		assert.Len(t, services, 3)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := ParseServices("http,scheduler")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid service name")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseServices("")
		assert.Error(t, err)
	})

	t.Run("only commas", func(t *testing.T) {
		_, err := ParseServices(",,")
		assert.Error(t, err)
	})
}

func TestExecutorConfigSanitize(t *testing.T) {
	cfg := ExecutorConfig{Concurrency: 0, JobTimeout: 0, RetryLimit: -1, RetryBackoff: 0}
	cfg.Sanitize()
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, time.Second, cfg.JobTimeout)
	assert.Equal(t, 1, cfg.RetryLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
}

func TestReaperConfigSanitize(t *testing.T) {
	cfg := ReaperConfig{Interval: 0, JobTTL: 0}
	cfg.Sanitize()
	assert.Equal(t, time.Second, cfg.Interval)
	assert.Equal(t, time.Minute, cfg.JobTTL)
}

func TestNotifierConfigSanitize(t *testing.T) {
	cfg := NotifierConfig{}
	cfg.Sanitize()
	assert.Equal(t, 1, cfg.RetryLimit)
	assert.Equal(t, time.Second, cfg.RetryBackoff)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestConsulConfigSanitize(t *testing.T) {
	cfg := ConsulConfig{KeyPrefix: " /jobs/prefix/ "}
	cfg.Sanitize()
	assert.Equal(t, "jobs/prefix", cfg.KeyPrefix)

	empty := ConsulConfig{}
	empty.Sanitize()
	assert.Equal(t, "soundscribe/jobs", empty.KeyPrefix)
}

func TestRedisNotifyConfigSanitize(t *testing.T) {
	cfg := RedisNotifyConfig{Enabled: true, Addr: "", Channel: "jobs"}
	cfg.Sanitize()
	assert.False(t, cfg.Enabled, "sink must disable itself without an address")

	ok := RedisNotifyConfig{Enabled: true, Addr: "localhost:6379", Channel: "jobs"}
	ok.Sanitize()
	assert.True(t, ok.Enabled)
}

func TestAppConfigServiceModeHelpers(t *testing.T) {
	cfg := AppConfig{Services: "http,reaper"}
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsExecutorEnabled())
	assert.True(t, cfg.IsReaperEnabled())

	bad := AppConfig{Services: "nope"}
	assert.False(t, bad.IsHTTPServerEnabled())
}

func TestObservabilityMetricsSanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: "  "}
	cfg.Sanitize()
	assert.False(t, cfg.IsEnabled())
}
