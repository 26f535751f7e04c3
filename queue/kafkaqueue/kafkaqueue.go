// Package kafkaqueue is the Kafka job queue. Each message is keyed by and
// carries the job id; the group offset is committed once the job is handled.
//
// Deliveries of one partition may be settled out of order by concurrent
// workers. The committed offset only advances past a message once every
// earlier message fetched from its partition is settled too.
package kafkaqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kbukum/audiolens/kafka"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/queue"
)

// Sender publishes keyed messages. *kafka.Producer implements it.
type Sender interface {
	Send(ctx context.Context, key string, value []byte) error
	Close() error
}

// Fetcher reads and commits messages. *kafka.Consumer implements it.
type Fetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Queue pairs a producer with an optional consumer. An enqueue-only process
// (the intake API) passes a nil Fetcher.
type Queue struct {
	sender  Sender
	fetcher Fetcher
	log     *logger.Logger
	closed  atomic.Bool

	mu      sync.Mutex
	pending map[int]*partitionLog
}

// partitionLog holds the fetched, not yet committed messages of a partition
// in offset order.
type partitionLog struct {
	entries []*entry
}

type entry struct {
	msg  kafka.Message
	done bool
}

var _ queue.Queue = (*Queue)(nil)

func New(sender Sender, fetcher Fetcher, log *logger.Logger) *Queue {
	return &Queue{
		sender:  sender,
		fetcher: fetcher,
		log:     log.WithComponent("queue.kafka"),
		pending: make(map[int]*partitionLog),
	}
}

// Open builds the producer and, when consume is set, the group consumer.
func Open(cfg kafka.Config, consume bool, log *logger.Logger) (*Queue, error) {
	p, err := kafka.NewProducer(cfg, log)
	if err != nil {
		return nil, err
	}
	var f Fetcher
	if consume {
		c, err := kafka.NewConsumer(cfg, log)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		f = c
	}
	return New(p, f, log), nil
}

func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if q.closed.Load() {
		return queue.ErrClosed
	}
	if err := q.sender.Send(ctx, jobID, []byte(jobID)); err != nil {
		return fmt.Errorf("kafkaqueue: enqueue %s: %w", jobID, err)
	}
	return nil
}

func (q *Queue) Receive(ctx context.Context) (queue.Delivery, error) {
	if q.closed.Load() {
		return nil, queue.ErrClosed
	}
	if q.fetcher == nil {
		return nil, fmt.Errorf("kafkaqueue: queue opened without a consumer")
	}
	for {
		msg, err := q.fetcher.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("kafkaqueue: receive: %w", err)
		}
		e := q.track(msg)
		id := string(msg.Value)
		if id == "" {
			id = string(msg.Key)
		}
		if id == "" {
			q.log.Warn("dropping message without job id", logger.Fields("partition", msg.Partition, "offset", msg.Offset))
			if err := q.settle(ctx, e); err != nil {
				return nil, fmt.Errorf("kafkaqueue: commit empty message: %w", err)
			}
			continue
		}
		return &delivery{q: q, e: e, id: id}, nil
	}
}

func (q *Queue) track(msg kafka.Message) *entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.pending[msg.Partition]
	if !ok {
		p = &partitionLog{}
		q.pending[msg.Partition] = p
	}
	e := &entry{msg: msg}
	p.entries = append(p.entries, e)
	return e
}

// settle marks e handled and commits the highest message of its partition
// below which everything is handled. Nothing is committed while an earlier
// message is still in flight. The lock is held across the commit so commits
// of one queue never go backwards.
func (q *Queue) settle(ctx context.Context, e *entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	e.done = true
	p := q.pending[e.msg.Partition]
	n := 0
	for n < len(p.entries) && p.entries[n].done {
		n++
	}
	if n == 0 {
		return nil
	}
	if err := q.fetcher.Commit(ctx, p.entries[n-1].msg); err != nil {
		return err
	}
	p.entries = p.entries[n:]
	return nil
}

func (q *Queue) Close() error {
	if q.closed.Swap(true) {
		return nil
	}
	var err error
	if q.fetcher != nil {
		err = q.fetcher.Close()
	}
	if serr := q.sender.Close(); err == nil {
		err = serr
	}
	return err
}

type delivery struct {
	q  *Queue
	e  *entry
	id string
}

func (d *delivery) JobID() string { return d.id }

func (d *delivery) Ack(ctx context.Context) error {
	if err := d.q.settle(ctx, d.e); err != nil {
		return fmt.Errorf("kafkaqueue: commit %s: %w", d.id, err)
	}
	return nil
}

// Requeue republishes the id and then commits the original message, so the
// retry is ordered after anything already queued.
func (d *delivery) Requeue(ctx context.Context) error {
	if err := d.q.sender.Send(ctx, d.id, []byte(d.id)); err != nil {
		return fmt.Errorf("kafkaqueue: requeue %s: %w", d.id, err)
	}
	return d.Ack(ctx)
}
