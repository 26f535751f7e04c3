// Package queue carries job ids from the intake API to workers. Messages
// hold nothing but the id; the job record is the source of truth.
package queue

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by Receive after Close.
var ErrClosed = errors.New("queue: closed")

// Delivery is one received job id. Exactly one of Ack or Requeue should be
// called once the job has been handled.
type Delivery interface {
	JobID() string
	// Ack marks the message handled.
	Ack(ctx context.Context) error
	// Requeue hands the id back to the queue for another attempt.
	Requeue(ctx context.Context) error
}

// Queue is a job id transport.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	// Receive blocks until a delivery is available or ctx ends.
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}

const (
	BackendRedis  = "redis"
	BackendKafka  = "kafka"
	BackendMemory = "memory"
)

// Config selects the backend. Backend settings live in the redis and kafka sections.
type Config struct {
	Backend string `mapstructure:"backend"`
	// Key is the Redis list holding pending ids.
	Key string `mapstructure:"key"`
}

const DefaultKey = "audiolens:jobs"

func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendRedis
	}
	if c.Key == "" {
		c.Key = DefaultKey
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendRedis, BackendKafka, BackendMemory:
		return nil
	}
	return fmt.Errorf("queue.backend must be one of redis, kafka, memory (got: %s)", c.Backend)
}
