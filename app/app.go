package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/audiolens/component"
	"github.com/kbukum/audiolens/database"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/observability"
	"github.com/kbukum/audiolens/pipeline"
	"github.com/kbukum/audiolens/redis"
	"github.com/kbukum/audiolens/server"
	"github.com/kbukum/audiolens/storage"
	"github.com/kbukum/audiolens/version"
)

// App owns the configuration, logger and component registry of one process.
type App struct {
	Cfg        *Config
	Log        *logger.Logger
	Components *component.Registry
	Summary    *Summary

	gracefulTimeout time.Duration
	models          *Models

	onConfigure []func(ctx context.Context, a *App) error
	onReady     []Hook
	onStop      []Hook

	telemetry observability.ShutdownFunc

	db     *database.Component
	blobs  *storage.Component
	redis  *redis.Component
	queue  *queueComponent
	server *server.Server
	runner *pipeline.Runner
}

// New applies defaults to cfg, validates it and sets up logging.
func New(cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	log := o.logger
	if log == nil {
		log = logger.Init(cfg.Logging, cfg.Name)
	}

	a := &App{
		Cfg:             cfg,
		Log:             log,
		Components:      component.NewRegistry(log),
		Summary:         NewSummary(cfg.Name, version.Get().Short(), cfg.Environment),
		gracefulTimeout: 15 * time.Second,
		models:          o.models,
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	return a, nil
}

// RegisterComponent adds c to the registry.
func (a *App) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// Run starts the process and blocks until a shutdown signal or ctx ends.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.stop()
		return err
	}
	a.Log.Info("application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts the process, runs task and shuts down when it returns. A
// signal cancels the task's context.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.Start(ctx); err != nil {
		_ = a.stop()
		return err
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Start installs telemetry, starts the registered components, runs the
// configure callbacks and starts what they registered.
func (a *App) Start(ctx context.Context) error {
	start := time.Now()
	a.Log.Info("starting application", logger.Fields(
		"name", a.Cfg.Name,
		"version", version.Get().Short(),
		"environment", a.Cfg.Environment,
	))

	shutdown, err := observability.Setup(ctx, a.Cfg.Observability, observability.ServiceInfo{
		Name:        a.Cfg.Name,
		Version:     version.Version,
		Environment: a.Cfg.Environment,
	}, a.Log)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	a.telemetry = shutdown

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("late start failed: %w", err)
	}

	if err := a.Components.Ready(ctx); err != nil {
		a.Log.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.Summary.Display(a.Components, a.server, a.Log)
	return nil
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx ends.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Log.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Log.Info("context canceled, shutting down")
		return nil
	}
}

// Shutdown stops the process. Use it when driving Start yourself.
func (a *App) Shutdown(context.Context) error {
	return a.stop()
}

// stop runs OnStop hooks, stops components in reverse order and flushes
// telemetry, all within the graceful timeout.
func (a *App) stop() error {
	a.Log.Info("shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Log.Error("OnStop hook error", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Log.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		if shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.telemetry != nil {
		if err := a.telemetry(ctx); err != nil {
			a.Log.Warn("telemetry flush failed", logger.Fields(logger.FieldError, err.Error()))
		}
		a.telemetry = nil
	}
	a.Log.Info("application shutdown complete")
	return shutdownErr
}
