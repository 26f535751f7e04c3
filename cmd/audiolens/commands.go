package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kbukum/audiolens/app"
	"github.com/kbukum/audiolens/config"
	"github.com/kbukum/audiolens/database/migration"
	"github.com/kbukum/audiolens/jobs"
	"github.com/kbukum/audiolens/jobs/gormstore"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/pipeline"
	"github.com/kbukum/audiolens/version"
)

// newApp loads the configuration named by the global flags and builds the app.
func newApp(cmd *cli.Command) (*app.App, error) {
	var opts []config.LoaderOption
	if p := cmd.String("config"); p != "" {
		opts = append(opts, config.WithConfigFile(p))
	}
	if e := cmd.String("env"); e != "" {
		opts = append(opts, config.WithEnvironment(e))
	}
	if p := cmd.String("env-file"); p != "" {
		opts = append(opts, config.WithEnvFile(p))
	}
	cfg, err := app.Load(opts...)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func jobIDArg(cmd *cli.Command) (string, error) {
	if cmd.NArg() != 1 {
		return "", fmt.Errorf("%s: exactly one job id is required", cmd.Name)
	}
	id := strings.TrimSpace(cmd.Args().First())
	if id == "" {
		return "", fmt.Errorf("%s: job id must not be empty", cmd.Name)
	}
	return id, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	withWorker := cmd.Bool("with-worker")

	a.UseDatabase()
	a.UseStorage()
	a.UseQueue(withWorker)
	a.OnConfigure(func(ctx context.Context, a *app.App) error {
		if withWorker {
			if err := a.StartWorker(ctx); err != nil {
				return err
			}
		}
		return a.MountIntake(ctx)
	})
	return a.Run(ctx)
}

func workerAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	a.UseDatabase()
	a.UseStorage()
	a.UseQueue(true)
	a.OnConfigure(func(ctx context.Context, a *app.App) error {
		return a.StartWorker(ctx)
	})
	return a.Run(ctx)
}

func processAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobIDArg(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	a.Summary.Out = io.Discard
	a.UseDatabase()
	a.UseStorage()

	w := output(cmd)
	return a.RunTask(ctx, func(ctx context.Context) error {
		if cmd.Bool("dry-run") {
			dry, err := a.DryRun(ctx, id)
			if err != nil {
				return err
			}
			printReport(w, dry.Report)
			if dry.Job != nil && dry.Job.Summary != nil {
				fmt.Fprintf(w, "summary:   %s\n", *dry.Job.Summary)
			}
			for _, s := range dry.Segments {
				fmt.Fprintf(w, "  [%d] %-12s %s\n", s.Seq, s.TopicLabel, s.Text)
			}
			return nil
		}

		r, err := a.Runner()
		if err != nil {
			return err
		}
		report, err := r.Execute(ctx, id)
		if err != nil {
			return err
		}
		printReport(w, report)
		return nil
	})
}

func printReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintf(w, "job:       %s\n", r.JobID)
	fmt.Fprintf(w, "status:    %s\n", r.Status)
	if r.Skipped {
		fmt.Fprintln(w, "skipped:   job was already finished")
	}
	if r.Err != nil {
		fmt.Fprintf(w, "failed at: %s (%v)\n", r.Stage, r.Err)
	}
	fmt.Fprintf(w, "segments:  %d\n", r.Segments)
	fmt.Fprintf(w, "duration:  %s\n", r.Duration.Round(time.Millisecond))
}

func enqueueAction(ctx context.Context, cmd *cli.Command) error {
	id, err := jobIDArg(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	a.Summary.Out = io.Discard
	a.UseDatabase()
	a.UseQueue(false)

	return a.RunTask(ctx, func(ctx context.Context) error {
		job, err := a.Store().Get(ctx, id)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			a.Log.Warn("job already finished, the worker will skip it", logger.Fields(logger.FieldJobID, job.ID, logger.FieldStatus, job.Status))
		}
		if err := a.Queue().Enqueue(ctx, job.ID); err != nil {
			return err
		}
		fmt.Fprintf(output(cmd), "enqueued %s (%s)\n", job.ID, job.Status)
		return nil
	})
}

func jobsAction(ctx context.Context, cmd *cli.Command) error {
	status := jobs.Status(cmd.String("status"))
	if status != "" && !status.Valid() {
		return fmt.Errorf("jobs: unknown status %q", status)
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	a.Summary.Out = io.Discard
	a.UseDatabase()

	return a.RunTask(ctx, func(ctx context.Context) error {
		list, err := a.Store().List(ctx, jobs.Filter{Status: status, Limit: int(cmd.Int("limit"))})
		if err != nil {
			return err
		}
		w := output(cmd)
		for _, j := range list {
			fmt.Fprintf(w, "%s  %-10s  %s  %s\n", j.ID, j.Status, j.CreatedAt.Format(time.RFC3339), j.StoragePath)
		}
		if len(list) == 0 {
			fmt.Fprintln(w, "no jobs")
		}
		return nil
	})
}

type migrateFunc func(cmd *cli.Command, m *migration.Migrator) error

func migrateAction(fn migrateFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		a.Summary.Out = io.Discard
		// the schema is owned by the migrations here
		a.Cfg.Database.AutoMigrate = false
		db := a.UseDatabase()

		return a.RunTask(ctx, func(context.Context) error {
			m, err := migration.New(db.DB(), gormstore.Migrations, gormstore.MigrationsDir, a.Log)
			if err != nil {
				return err
			}
			return fn(cmd, m)
		})
	}
}

func migrateUp(_ *cli.Command, m *migration.Migrator) error {
	return m.Up()
}

func migrateDown(cmd *cli.Command, m *migration.Migrator) error {
	steps := int(cmd.Int("steps"))
	if steps < 0 {
		return errors.New("migrate down: steps must not be negative")
	}
	if steps == 0 {
		return m.Down()
	}
	return m.Steps(-steps)
}

func migrateVersion(cmd *cli.Command, m *migration.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(output(cmd), "schema version %d (dirty: %t)\n", v, dirty)
	return nil
}

func versionAction(_ context.Context, cmd *cli.Command) error {
	fmt.Fprintln(output(cmd), version.Get().String())
	return nil
}
