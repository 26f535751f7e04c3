// Package kafka wraps kafka-go with audiolens configuration and logging. The
// producer publishes job ids to the job topic and the consumer reads them
// back in a consumer group with explicit commits.
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/audiolens/logger"
)

// Producer writes keyed messages to the configured topic.
type Producer struct {
	writer  *kafkago.Writer
	cfg     Config
	log     *logger.Logger
	mu      sync.RWMutex
	closed  bool
	retries int
}

func NewProducer(cfg Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	transport, err := newTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}
	plog := log.WithComponent("kafka.producer")

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    1,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  resolveCompression(cfg.Compression),
		WriteTimeout: parseDuration(cfg.WriteTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			plog.Error("writer: "+fmt.Sprintf(msg, args...), logger.Fields("topic", cfg.Topic))
		}),
	}
	plog.Info("kafka producer initialized", logger.Fields("brokers", cfg.Brokers, "topic", cfg.Topic))
	return &Producer{writer: w, cfg: cfg, log: plog, retries: cfg.Retries}, nil
}

// Send publishes value under key, retrying transient write failures.
func (p *Producer) Send(ctx context.Context, key string, value []byte) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("producer is closed")
	}

	msg := kafkago.Message{Key: []byte(key), Value: value}
	var lastErr error
	for attempt := 1; attempt <= p.retries; attempt++ {
		if lastErr = p.writer.WriteMessages(ctx, msg); lastErr == nil {
			return nil
		}
		if attempt < p.retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("kafka write after %d attempts: %w", p.retries, lastErr)
}

// Topic returns the topic messages are written to.
func (p *Producer) Topic() string { return p.cfg.Topic }

// Close flushes and closes the writer. Safe to call more than once.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
