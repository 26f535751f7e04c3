package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds provider instances by name.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	instances map[string]T
}

func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{instances: make(map[string]T)}
}

// Register adds p under p.Name(). Registering a name twice is an error.
func (r *Registry[T]) Register(p T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, ok := r.instances[name]; ok {
		return fmt.Errorf("provider %q already registered", name)
	}
	r.instances[name] = p
	return nil
}

func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[name]
	return p, ok
}

// Names returns registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry[T]) snapshot() map[string]T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(map[string]T, len(r.instances))
	for k, v := range r.instances {
		cp[k] = v
	}
	return cp
}
