// Package app wires audiolens processes together: it loads configuration,
// registers infrastructure components, builds the pipeline runner and the
// intake API on top of them and drives start and graceful shutdown.
//
// A process registers what it needs, then runs:
//
//	a, err := app.New(cfg)
//	a.UseDatabase()
//	a.UseStorage()
//	a.UseQueue(true)
//	a.OnConfigure(func(ctx context.Context, a *app.App) error {
//	    return a.StartWorker(ctx)
//	})
//	err = a.Run(ctx)
//
// Components start in registration order. Configure callbacks run once the
// infrastructure is up; components they register (HTTP server, worker) are
// started right after.
package app
