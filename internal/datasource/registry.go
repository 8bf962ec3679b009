package datasource

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps provider classes to factories. It is filled once at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(ClassMT5, NewMT5Terminal)
	_ = r.Register(ClassBybit, NewBybitTerminal)
	return r
}

// Register adds a factory for class. Registering a class twice is an error.
func (r *Registry) Register(class string, factory Factory) error {
	if class == "" {
		return fmt.Errorf("%w: empty provider class", ErrConfiguration)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for provider class %s", ErrConfiguration, class)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[class]; exists {
		return fmt.Errorf("provider class already registered: %s", class)
	}
	r.factories[class] = factory
	return nil
}

// Lookup returns the factory for class.
func (r *Registry) Lookup(class string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, exists := r.factories[class]
	if !exists {
		return nil, fmt.Errorf("%w: unknown provider class: %s", ErrConfiguration, class)
	}
	return factory, nil
}

// Classes returns the registered provider classes, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for class := range r.factories {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}
