// Package config holds the application configuration, loaded once at process
// start from environment variables via github.com/caarlos0/env. Each domain
// has its own config struct with a Sanitize method applying guardrails; the
// core treats all values as immutable for the process lifetime.
package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files:
//   - services.go: service modes, executor, reaper, and notifier configuration
//   - http.go: HTTP server configuration
//   - storage.go: object storage, engine, and notification backend endpoints
//   - observability.go: metrics configuration
type AppConfig struct {
	// LogLevel controls slog verbosity: debug, info, warn, or error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Services is a comma-delimited list of enabled services.
	// Valid values: http, executor, reaper.
	Services string `env:"SERVICES" envDefault:"http,executor,reaper"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Executor configuration
	Executor ExecutorConfig

	// Reaper configuration
	Reaper ReaperConfig

	// Notifier configuration
	Notifier NotifierConfig

	// Object storage configuration
	Storage StorageConfig `envPrefix:"S3_"`

	// Transcription engine configuration
	Engine EngineConfig `envPrefix:"ENGINE_"`

	// Consul notification sink configuration
	Consul ConsulConfig `envPrefix:"CONSUL_"`

	// Redis notification sink configuration
	RedisNotify RedisNotifyConfig `envPrefix:"REDIS_NOTIFY_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Executor.Sanitize()
	c.Reaper.Sanitize()
	c.Notifier.Sanitize()
	c.Consul.Sanitize()
	c.RedisNotify.Sanitize()
	c.Observability.Sanitize()
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsExecutorEnabled returns true if the job executor service is enabled.
func (c *AppConfig) IsExecutorEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeExecutor]
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReaper]
}
