package storage

import (
	"context"
	"fmt"

	"github.com/kbukum/audiolens/component"
	"github.com/kbukum/audiolens/logger"
)

// Component owns the configured backend for the lifetime of the process.
type Component struct {
	cfg     Config
	log     *logger.Logger
	storage Storage
}

var _ component.Component = (*Component)(nil)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

// Storage returns the backend, or nil before Start.
func (c *Component) Storage() Storage { return c.storage }

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(_ context.Context) error {
	s, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("storage start: %w", err)
	}
	c.storage = s
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.storage = nil
	return nil
}

// Health lists the root prefix; an empty bucket is healthy.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.storage == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}
	if _, err := c.storage.Exists(ctx, ".health"); err != nil {
		h.Status = component.StatusUnhealthy
		h.Message = err.Error()
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := "provider=" + c.cfg.Provider
	switch c.cfg.Provider {
	case ProviderLocal:
		details += " path=" + c.cfg.BasePath
	case ProviderS3, ProviderSupabase:
		details += " bucket=" + c.cfg.Bucket
	}
	return component.Description{Name: "Blob storage", Type: "storage", Details: details}
}
