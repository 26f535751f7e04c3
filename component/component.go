// Package component manages the lifecycle of long-lived infrastructure pieces
// (database pool, blob store, queue, HTTP server, telemetry) in a fixed order.
package component

import "context"

// HealthStatus is the coarse state reported by Health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health is one component's health report.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is started once, stopped once and probed for health in between.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what a component reports about itself at startup.
type Description struct {
	Name    string
	Type    string
	Details string
}

// Describable is implemented by components that log a startup summary line.
type Describable interface {
	Describe() Description
}
