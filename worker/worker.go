// Package worker pulls job ids off a queue and hands each one to the
// pipeline runner. Concurrency goroutines each run one job at a time.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "github.com/kbukum/audiolens/errors"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/queue"
)

// Runner executes one job attempt. *pipeline.Runner implements it.
type Runner interface {
	Run(ctx context.Context, jobID string) error
}

// Config controls the consumer loops.
type Config struct {
	Concurrency int `mapstructure:"concurrency"`
	// MaxBackoff caps the wait after a queue transport error or a requeue.
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

func (c *Config) ApplyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Concurrency > 64 {
		return fmt.Errorf("worker.concurrency must be <= 64 (got: %d)", c.Concurrency)
	}
	return nil
}

// Worker consumes a queue until its context ends or the queue closes.
type Worker struct {
	q      queue.Queue
	runner Runner
	cfg    Config
	log    *logger.Logger

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(q queue.Queue, runner Runner, cfg Config, log *logger.Logger) *Worker {
	cfg.ApplyDefaults()
	return &Worker{q: q, runner: runner, cfg: cfg, log: log.WithComponent("worker"), sleep: sleepCtx}
}

// Run blocks until ctx is cancelled or the queue is closed. It returns nil
// in both cases.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", logger.Fields("concurrency", w.cfg.Concurrency))
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, slot)
		}(i)
	}
	wg.Wait()
	w.log.Info("worker stopped")
	return nil
}

func (w *Worker) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = w.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	return b
}

func (w *Worker) loop(ctx context.Context, slot int) {
	log := w.log.WithFields(logger.Fields("slot", slot))
	b := w.newBackoff()
	for {
		d, err := w.q.Receive(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil, errors.Is(err, queue.ErrClosed):
			return
		default:
			wait := b.NextBackOff()
			log.Warn("queue receive failed", logger.Fields(logger.FieldError, err.Error(), "retry_in", wait.String()))
			if w.sleep(ctx, wait) != nil {
				return
			}
			continue
		}

		if w.handle(ctx, d, log) {
			b.Reset()
			continue
		}
		if w.sleep(ctx, b.NextBackOff()) != nil {
			return
		}
	}
}

// handle runs one delivery and settles it. It reports false when the id was
// requeued or could not be settled.
func (w *Worker) handle(ctx context.Context, d queue.Delivery, log *logger.Logger) bool {
	jobID := d.JobID()
	log = log.WithFields(logger.Fields(logger.FieldJobID, jobID))
	start := time.Now()

	err := w.runner.Run(ctx, jobID)
	// The delivery is settled even when ctx was cancelled during the run.
	settleCtx := context.WithoutCancel(ctx)
	if err != nil && shouldRequeue(err) {
		log.Warn("job not settled, requeueing", logger.Fields(logger.FieldError, err.Error()))
		if rerr := d.Requeue(settleCtx); rerr != nil {
			log.Error("requeue failed", logger.Fields(logger.FieldError, rerr.Error()))
		}
		return false
	}
	if err != nil {
		// Unknown ids and other permanent errors are acknowledged and dropped.
		log.Error("job dropped", logger.Fields(logger.FieldError, err.Error()))
	} else {
		log.Debug("job handled", logger.Fields(logger.FieldDuration, time.Since(start).Milliseconds()))
	}
	if aerr := d.Ack(settleCtx); aerr != nil {
		log.Error("ack failed", logger.Fields(logger.FieldError, aerr.Error()))
		return false
	}
	return true
}

// shouldRequeue reports whether a run error left the job unsettled. Runs
// that reached a terminal state return nil, so only retryable store errors
// land here.
func shouldRequeue(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	return ok && appErr.Retryable
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
