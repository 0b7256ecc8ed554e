package config

import "strings"

// StorageConfig contains object storage (S3-compatible) configuration.
type StorageConfig struct {
	Endpoint  string `env:"ENDPOINT"   envDefault:"s3.amazonaws.com"`
	Region    string `env:"REGION"     envDefault:"us-east-1"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	UseTLS    bool   `env:"USE_TLS"    envDefault:"true"`
}

// EngineConfig contains transcription engine configuration. The engine is an
// external inference server reached over HTTP.
type EngineConfig struct {
	// URL is the base URL of the transcription server.
	URL string `env:"URL" envDefault:"http://localhost:9000"`

	// Model names the model the server should run.
	Model string `env:"MODEL" envDefault:"base"`
}

// ConsulConfig contains the service-discovery notification sink configuration.
type ConsulConfig struct {
	// Addr is the Consul agent address.
	Addr string `env:"ADDR" envDefault:"localhost:8500"`

	// KeyPrefix is the KV prefix under which per-job completion keys are written.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"soundscribe/jobs"`
}

// Sanitize applies guardrails to Consul configuration values.
func (c *ConsulConfig) Sanitize() {
	c.KeyPrefix = strings.Trim(strings.TrimSpace(c.KeyPrefix), "/")
	if c.KeyPrefix == "" {
		c.KeyPrefix = "soundscribe/jobs"
	}
}

// RedisNotifyConfig contains the optional Redis pub/sub notification sink
// configuration. When enabled, every terminal job is published to Channel in
// addition to the per-job targets.
type RedisNotifyConfig struct {
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
	Channel  string `env:"CHANNEL"  envDefault:"soundscribe.jobs"`
}

// Sanitize applies guardrails to Redis notification configuration values.
func (r *RedisNotifyConfig) Sanitize() {
	r.Addr = strings.TrimSpace(r.Addr)
	r.Channel = strings.TrimSpace(r.Channel)
	if r.Addr == "" || r.Channel == "" {
		r.Enabled = false
	}
}
