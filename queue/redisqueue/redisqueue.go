// Package redisqueue is the Redis list queue. Producers LPUSH job ids onto
// the key and workers BRPOP them, so ids are served oldest first.
package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/queue"
	"github.com/kbukum/audiolens/redis"
)

// pollTimeout bounds each BRPOP so Receive notices cancellation and Close.
const pollTimeout = 2 * time.Second

// Queue is a job id list in Redis.
type Queue struct {
	client *redis.Client
	key    string
	log    *logger.Logger
	closed atomic.Bool
}

var _ queue.Queue = (*Queue)(nil)

func New(client *redis.Client, key string, log *logger.Logger) *Queue {
	if key == "" {
		key = queue.DefaultKey
	}
	return &Queue{client: client, key: key, log: log.WithComponent("queue.redis")}
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if q.closed.Load() {
		return queue.ErrClosed
	}
	if err := q.client.Push(ctx, q.key, jobID); err != nil {
		return fmt.Errorf("redisqueue: enqueue %s: %w", jobID, err)
	}
	q.log.Debug("job enqueued", logger.Fields(logger.FieldJobID, jobID, "key", q.key))
	return nil
}

func (q *Queue) Receive(ctx context.Context) (queue.Delivery, error) {
	for {
		if q.closed.Load() {
			return nil, queue.ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, ok, err := q.client.PopWait(ctx, q.key, pollTimeout)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("redisqueue: receive: %w", err)
		}
		if ok {
			return &delivery{q: q, id: id}, nil
		}
	}
}

// Len returns the number of pending ids.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.Len(ctx, q.key)
}

// Close stops Receive and Enqueue. The Redis client is owned by its component.
func (q *Queue) Close() error {
	q.closed.Store(true)
	return nil
}

type delivery struct {
	q  *Queue
	id string
}

func (d *delivery) JobID() string { return d.id }

// Ack is a no-op: BRPOP already removed the id.
func (d *delivery) Ack(context.Context) error { return nil }

// Requeue pushes the id back to the tail of the list.
func (d *delivery) Requeue(ctx context.Context) error {
	if err := d.q.client.Push(ctx, d.q.key, d.id); err != nil {
		return fmt.Errorf("redisqueue: requeue %s: %w", d.id, err)
	}
	return nil
}
