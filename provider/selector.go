package provider

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoProvider means no registered provider is available.
var ErrNoProvider = errors.New("provider: none available")

// Selector picks one provider out of the registered set.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector returns the first available provider in Priority order.
type PrioritySelector[T Provider] struct {
	Priority []string
}

func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	for _, name := range s.Priority {
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w (tried %v)", ErrNoProvider, s.Priority)
}

// FirstSelector returns the provider named First without probing it. It fails
// when First is missing from the candidates, either unregistered or left out
// because its circuit is open.
type FirstSelector[T Provider] struct {
	First string
}

func (s *FirstSelector[T]) Select(_ context.Context, providers map[string]T) (T, error) {
	if p, ok := providers[s.First]; ok {
		return p, nil
	}
	var zero T
	return zero, fmt.Errorf("%w: %q is not a candidate", ErrNoProvider, s.First)
}
