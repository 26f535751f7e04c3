package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/audiolens/component"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/queue"
	"github.com/kbukum/audiolens/queue/kafkaqueue"
	"github.com/kbukum/audiolens/queue/memqueue"
	"github.com/kbukum/audiolens/queue/redisqueue"
	"github.com/kbukum/audiolens/redis"
	"github.com/kbukum/audiolens/worker"
)

// queueComponent opens the configured queue backend on Start. The Redis
// backend borrows the client of the redis component registered before it.
type queueComponent struct {
	cfg     *Config
	consume bool
	redis   *redis.Component
	log     *logger.Logger

	q queue.Queue
}

var (
	_ component.Component   = (*queueComponent)(nil)
	_ component.Describable = (*queueComponent)(nil)
)

func (c *queueComponent) Name() string { return "queue" }

func (c *queueComponent) Start(_ context.Context) error {
	switch c.cfg.Queue.Backend {
	case queue.BackendMemory:
		c.q = memqueue.New(0)
	case queue.BackendRedis:
		if c.redis == nil || c.redis.Client() == nil {
			return fmt.Errorf("queue: redis backend selected but redis is not started")
		}
		c.q = redisqueue.New(c.redis.Client(), c.cfg.Queue.Key, c.log)
	case queue.BackendKafka:
		q, err := kafkaqueue.Open(c.cfg.Kafka, c.consume, c.log)
		if err != nil {
			return fmt.Errorf("queue: %w", err)
		}
		c.q = q
	default:
		return fmt.Errorf("queue: unknown backend %q", c.cfg.Queue.Backend)
	}
	return nil
}

func (c *queueComponent) Stop(context.Context) error {
	if c.q == nil {
		return nil
	}
	return c.q.Close()
}

func (c *queueComponent) Health(context.Context) component.Health {
	if c.q == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "queue not opened"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *queueComponent) Describe() component.Description {
	details := "backend=" + c.cfg.Queue.Backend
	switch c.cfg.Queue.Backend {
	case queue.BackendRedis:
		details += " key=" + c.cfg.Queue.Key
	case queue.BackendKafka:
		details += " topic=" + c.cfg.Kafka.Topic
	}
	if c.consume {
		details += " consumer=on"
	}
	return component.Description{Name: "Job queue", Type: "queue", Details: details}
}

// workerComponent runs a worker in the background between Start and Stop.
type workerComponent struct {
	w      *worker.Worker
	cfg    worker.Config
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var (
	_ component.Component   = (*workerComponent)(nil)
	_ component.Describable = (*workerComponent)(nil)
)

func (c *workerComponent) Name() string { return "worker" }

// Start launches the worker on a context detached from ctx, which only
// covers startup. Stop cancels it.
func (c *workerComponent) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.w.Run(runCtx)
	}()
	return nil
}

// Stop cancels the worker and waits for in-flight jobs, up to ctx.
func (c *workerComponent) Stop(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker: jobs still running at shutdown: %w", ctx.Err())
	}
}

func (c *workerComponent) Health(context.Context) component.Health {
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *workerComponent) Describe() component.Description {
	return component.Description{Name: "Pipeline worker", Type: "worker", Details: fmt.Sprintf("concurrency=%d", c.cfg.Concurrency)}
}
