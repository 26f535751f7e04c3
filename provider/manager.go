package provider

import (
	"context"
	"sync"

	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/resilience"
)

// Manager resolves a provider per call through its selector.
type Manager[T Provider] struct {
	registry *Registry[T]
	selector Selector[T]
	log      *logger.Logger

	breakerCfg *resilience.Config
	mu         sync.Mutex
	breakers   map[string]*resilience.CircuitBreaker
}

// NewManager uses a FirstSelector on order[0] when order has one entry and a
// PrioritySelector when it lists fallbacks.
func NewManager[T Provider](registry *Registry[T], order []string, log *logger.Logger) *Manager[T] {
	var sel Selector[T]
	if len(order) <= 1 {
		first := ""
		if len(order) == 1 {
			first = order[0]
		}
		sel = &FirstSelector[T]{First: first}
	} else {
		sel = &PrioritySelector[T]{Priority: order}
	}
	return &Manager[T]{registry: registry, selector: sel, log: log.WithComponent("provider")}
}

// WithSelector swaps the selection strategy.
func (m *Manager[T]) WithSelector(s Selector[T]) *Manager[T] {
	m.selector = s
	return m
}

// WithBreakers gives every provider its own circuit breaker built from cfg.
// Providers whose breaker is open are left out of selection, and Do records
// call outcomes on them.
func (m *Manager[T]) WithBreakers(cfg resilience.Config) *Manager[T] {
	log := m.log
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn("provider circuit changed state", logger.Fields(
			logger.FieldProvider, name, "from", from.String(), "to", to.String()))
	}
	m.breakerCfg = &cfg
	m.breakers = make(map[string]*resilience.CircuitBreaker)
	return m
}

func (m *Manager[T]) Get(ctx context.Context) (T, error) {
	candidates := m.registry.snapshot()
	if m.breakerCfg != nil {
		for name := range candidates {
			if m.breaker(name).State() == resilience.StateOpen {
				delete(candidates, name)
			}
		}
	}
	p, err := m.selector.Select(ctx, candidates)
	if err != nil {
		m.log.Warn("provider selection failed", logger.Fields(logger.FieldError, err.Error(), "registered", m.registry.Names()))
		return p, err
	}
	m.log.Debug("provider selected", logger.Fields(logger.FieldProvider, p.Name()))
	return p, nil
}

// Do selects a provider and calls fn with it. fn's error is returned as is;
// with breakers enabled it is also recorded against the provider.
func (m *Manager[T]) Do(ctx context.Context, fn func(T) error) error {
	p, err := m.Get(ctx)
	if err != nil {
		return err
	}
	if m.breakerCfg == nil {
		return fn(p)
	}
	return m.breaker(p.Name()).Execute(func() error { return fn(p) })
}

// Breaker returns the circuit breaker of the named provider, or nil when
// breakers are disabled.
func (m *Manager[T]) Breaker(name string) *resilience.CircuitBreaker {
	if m.breakerCfg == nil {
		return nil
	}
	return m.breaker(name)
}

func (m *Manager[T]) breaker(name string) *resilience.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	cb, ok := m.breakers[name]
	if !ok {
		cfg := *m.breakerCfg
		cfg.Name = name
		cb = resilience.NewCircuitBreaker(cfg)
		m.breakers[name] = cb
	}
	return cb
}

func (m *Manager[T]) Registry() *Registry[T] { return m.registry }
