package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundscribe/soundscribe/config"
	"github.com/soundscribe/soundscribe/internal/adapters/consul"
	"github.com/soundscribe/soundscribe/internal/adapters/engine"
	"github.com/soundscribe/soundscribe/internal/adapters/redisnotify"
	"github.com/soundscribe/soundscribe/internal/adapters/s3"
	"github.com/soundscribe/soundscribe/internal/adapters/webhook"
	"github.com/soundscribe/soundscribe/internal/core"
	"github.com/soundscribe/soundscribe/internal/data"
	"github.com/soundscribe/soundscribe/internal/observability/statsd"
	"github.com/soundscribe/soundscribe/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Registry   *data.JobRegistry
	Jobs       *service.JobService
	Executor   *service.ExecutorService
	Reaper     *service.ReaperService
	Dispatcher *service.NotificationService

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// buildObservability configures the metrics adapter.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "soundscribe",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// buildSinks constructs one notification sink per configured backend. The
// webhook sink is always available; consul and redis depend on configuration.
func buildSinks(cfg *config.AppConfig, logger *slog.Logger) ([]core.NotificationSink, error) {
	sinks := []core.NotificationSink{
		webhook.NewSink(webhook.SinkOptions{Logger: logger}),
	}

	if cfg.Consul.Addr != "" {
		consulSink, err := consul.NewSink(consul.SinkOptions{
			Config: cfg.Consul,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create consul sink: %w", err)
		}
		sinks = append(sinks, consulSink)
	}

	if cfg.RedisNotify.Enabled {
		sinks = append(sinks, redisnotify.NewSink(redisnotify.SinkOptions{
			Config: cfg.RedisNotify,
			Logger: logger,
		}))
	}

	return sinks, nil
}

// NewServices wires adapters and services for the enabled service modes.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, cfg.Observability)

	registry := data.NewJobRegistry(data.JobRegistryOptions{
		TTL:    cfg.Reaper.JobTTL,
		Logger: logger,
	})

	consulPrefix := ""
	if cfg.Consul.Addr != "" {
		consulPrefix = cfg.Consul.KeyPrefix
	}
	redisChannel := ""
	if cfg.RedisNotify.Enabled {
		redisChannel = cfg.RedisNotify.Channel
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Registry:        registry,
		Logger:          logger,
		ConsulKeyPrefix: consulPrefix,
		RedisChannel:    redisChannel,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	container := ServiceContainer{
		Registry:      registry,
		Jobs:          jobs,
		Observability: observability,
	}

	if cfg.IsExecutorEnabled() {
		sinks, err := buildSinks(cfg, logger)
		if err != nil {
			return ServiceContainer{}, err
		}
		dispatcher := service.NewNotificationService(service.NotificationServiceOptions{
			Sinks:           sinks,
			Config:          cfg.Notifier,
			Logger:          logger,
			Metrics:         observability.MetricsSink,
			ConsulKeyPrefix: consulPrefix,
		})

		store, err := s3.NewStore(s3.StoreOptions{Config: cfg.Storage, Logger: logger})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("create object store: %w", err)
		}

		executor, err := service.NewExecutorService(service.ExecutorServiceOptions{
			Registry:   registry,
			Store:      store,
			Engine:     engine.NewClient(engine.ClientOptions{Config: cfg.Engine, Logger: logger}),
			Dispatcher: dispatcher,
			Config:     cfg.Executor,
			Logger:     logger,
			Metrics:    observability.MetricsSink,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("create executor service: %w", err)
		}

		container.Dispatcher = dispatcher
		container.Executor = executor
	}

	if cfg.IsReaperEnabled() {
		reaper, err := service.NewReaperService(service.ReaperServiceOptions{
			Registry: registry,
			Config:   cfg.Reaper,
			Logger:   logger,
			Metrics:  observability.MetricsSink,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("create reaper service: %w", err)
		}
		container.Reaper = reaper
	}

	return container, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
const shutdownWaitTimeout = 15 * time.Second

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

func launchBackground(deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	ctx := deps.ctx
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg,
				)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started",
		"service", descriptor.name,
		"mode", descriptor.mode,
	)

	return done
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	services := deps.cfg.Services
	return []backgroundService{
		{
			mode: config.ServiceModeExecutor,
			name: "executor",
			start: func(ctx context.Context) error {
				if services.Executor == nil {
					return errors.New("executor service not initialised")
				}
				return services.Executor.Run(ctx)
			},
		},
		{
			mode: config.ServiceModeReaper,
			name: "reaper",
			start: func(ctx context.Context) error {
				if services.Reaper == nil {
					return errors.New("reaper service not initialised")
				}
				return services.Reaper.Run(ctx)
			},
		},
	}
}

func startBackgroundServices(deps *serviceStartupDeps) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}

	descriptors := buildBackgroundServices(deps)
	handles := make([]backgroundServiceHandle, 0, len(descriptors))
	for _, svc := range descriptors {
		done := launchBackground(deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{name: svc.name, done: done})
	}
	return handles
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, len(enabledServices)+1)

	deps := &serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	}

	var httpServer *http.Server
	if enabledServices[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}
	backgrounds := startBackgroundServices(deps)

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		metrics:     cfg.Services.Observability.MetricsSink,
		logger:      logger,
		backgrounds: backgrounds,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	metrics     *statsd.Client
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if cfg.metrics != nil {
		if err := cfg.metrics.Close(); err != nil {
			cfg.logger.Warn("closing metrics sink failed", "error", err)
		}
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
