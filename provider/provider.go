// Package provider holds the small contract shared by pluggable model
// backends (transcription and LLM) and a manager that picks the first healthy
// backend in a configured order.
package provider

import "context"

// Provider is a named backend that can report whether it is reachable.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}
