package app

import (
	"context"
	"fmt"
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

// OnConfigure registers a callback that runs once infrastructure components
// are started. Use it to build services and register late components.
func (a *App) OnConfigure(fn func(ctx context.Context, a *App) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// OnReady registers hooks that run after the ready check, once every
// component is started.
func (a *App) OnReady(hooks ...Hook) {
	a.onReady = append(a.onReady, hooks...)
}

// OnStop registers hooks that run during shutdown before components stop.
func (a *App) OnStop(hooks ...Hook) {
	a.onStop = append(a.onStop, hooks...)
}

func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}
