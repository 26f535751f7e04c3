package kafka

import (
	"context"
	"fmt"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/audiolens/logger"
)

// Message is one fetched record.
type Message = kafkago.Message

// Consumer reads the job topic as a member of the configured group. Offsets
// are committed only through Commit.
type Consumer struct {
	reader *kafkago.Reader
	cfg    Config
	log    *logger.Logger
	mu     sync.Mutex
}

func NewConsumer(cfg Config, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	dialer, err := newDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}
	clog := log.WithComponent("kafka.consumer")

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          1e6,
		CommitInterval:    0,
		SessionTimeout:    parseDuration(cfg.SessionTimeout),
		HeartbeatInterval: parseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  parseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields("topic", cfg.Topic, "group_id", cfg.GroupID))
		}),
	})
	clog.Info("kafka consumer initialized", logger.Fields("topic", cfg.Topic, "group_id", cfg.GroupID, "brokers", cfg.Brokers))
	return &Consumer{reader: reader, cfg: cfg, log: clog}, nil
}

// Fetch blocks until the next message arrives or ctx ends. Concurrent callers
// are serialized.
func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader.FetchMessage(ctx)
}

// Commit marks msg as handled for the group.
func (c *Consumer) Commit(ctx context.Context, msg Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

// Lag returns the reader's last known lag.
func (c *Consumer) Lag() int64 { return c.reader.Stats().Lag }

func (c *Consumer) Close() error {
	c.log.Info("kafka consumer closing", logger.Fields("topic", c.cfg.Topic))
	return c.reader.Close()
}
