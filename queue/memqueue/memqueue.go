// Package memqueue is an in-process queue for single-binary runs and tests.
package memqueue

import (
	"context"
	"sync"

	"github.com/kbukum/audiolens/queue"
)

// Queue is a buffered channel of job ids.
type Queue struct {
	ch    chan string
	done  chan struct{}
	once  sync.Once
	mu    sync.Mutex
	acked []string
}

var _ queue.Queue = (*Queue)(nil)

// New returns a queue holding up to size pending ids.
func New(size int) *Queue {
	if size <= 0 {
		size = 1024
	}
	return &Queue{ch: make(chan string, size), done: make(chan struct{})}
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case <-q.done:
		return queue.ErrClosed
	default:
	}
	select {
	case q.ch <- jobID:
		return nil
	case <-q.done:
		return queue.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Receive(ctx context.Context) (queue.Delivery, error) {
	select {
	case id := <-q.ch:
		return &delivery{q: q, id: id}, nil
	case <-q.done:
		return nil, queue.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Acked returns the ids acknowledged so far, in order.
func (q *Queue) Acked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

// Len returns the number of pending ids.
func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

type delivery struct {
	q  *Queue
	id string
}

func (d *delivery) JobID() string { return d.id }

func (d *delivery) Ack(context.Context) error {
	d.q.mu.Lock()
	d.q.acked = append(d.q.acked, d.id)
	d.q.mu.Unlock()
	return nil
}

func (d *delivery) Requeue(ctx context.Context) error {
	return d.q.Enqueue(ctx, d.id)
}
