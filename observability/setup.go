package observability

import (
	"context"
	"errors"

	"github.com/kbukum/audiolens/logger"
)

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(ctx context.Context) error

// Setup installs tracing and metrics when cfg.Enabled. Otherwise it returns a
// no-op shutdown and the global no-op providers stay in place.
func Setup(ctx context.Context, cfg Config, info ServiceInfo, log *logger.Logger) (ShutdownFunc, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.WithComponent("observability")
	if !cfg.Enabled {
		log.Debug("telemetry export disabled")
		return func(context.Context) error { return nil }, nil
	}

	tp, err := InitTracer(ctx, cfg, info, log)
	if err != nil {
		return nil, err
	}
	mp, err := InitMeter(ctx, cfg, info, log)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
