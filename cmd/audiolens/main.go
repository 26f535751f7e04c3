package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/kbukum/audiolens/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "audiolens:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "audiolens",
		Usage:   "audio upload analysis: transcription, summary and topic segments",
		Version: version.Get().Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file (searched for when empty)",
				Sources: cli.EnvVars("AUDIOLENS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "environment overlay, merges config.<env>.yml over the base file",
				Sources: cli.EnvVars("ENVIRONMENT"),
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "path to a .env file loaded before the config",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the upload HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "with-worker",
						Usage: "also consume the job queue in this process",
					},
				},
				Action: serveAction,
			},
			{
				Name:   "worker",
				Usage:  "consume the job queue and run the pipeline",
				Action: workerAction,
			},
			{
				Name:      "process",
				Usage:     "run one job through the pipeline now",
				ArgsUsage: "<job-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "keep status and result writes in memory",
					},
				},
				Action: processAction,
			},
			{
				Name:      "enqueue",
				Usage:     "put an existing job on the queue",
				ArgsUsage: "<job-id>",
				Action:    enqueueAction,
			},
			{
				Name:  "jobs",
				Usage: "list jobs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "filter by status (pending, processing, completed, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum number of jobs",
						Value: 20,
					},
				},
				Action: jobsAction,
			},
			{
				Name:  "migrate",
				Usage: "manage the Postgres schema",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply pending migrations",
						Action: migrateAction(migrateUp),
					},
					{
						Name:  "down",
						Usage: "roll migrations back",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "steps",
								Usage: "number of migrations to roll back, 0 for all",
								Value: 1,
							},
						},
						Action: migrateAction(migrateDown),
					},
					{
						Name:   "version",
						Usage:  "print the applied schema version",
						Action: migrateAction(migrateVersion),
					},
				},
			},
			{
				Name:   "version",
				Usage:  "print build information",
				Action: versionAction,
			},
		},
	}
}
