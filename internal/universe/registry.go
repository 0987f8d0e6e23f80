package universe

import (
	"fmt"
	"sort"
)

// Builder constructs a fresh universe. Builders are registered in a
// Registry so callers (typically the CLI) can run catalogued universes
// by name. Each call must return an independent universe; runs mutate
// the state they are given.
type Builder func() (*Universe, error)

// Registry is an explicit catalogue of named universes, constructed and
// passed by the caller. There is deliberately no package-level registry:
// keeping the catalogue an ordinary value keeps the engine free of
// global state and trivially testable in isolation.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a named builder. Re-registering a name is a
// configuration error.
func (r *Registry) Register(name string, b Builder) error {
	if name == "" {
		return &ConfigError{Reason: "universe name must not be empty"}
	}
	if b == nil {
		return &ConfigError{Reason: fmt.Sprintf("universe %q has nil builder", name)}
	}
	if _, exists := r.builders[name]; exists {
		return &ConfigError{Reason: fmt.Sprintf("duplicate universe name: %s", name)}
	}
	r.builders[name] = b
	return nil
}

// Build constructs a fresh instance of the named universe.
func (r *Registry) Build(name string) (*Universe, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown universe: %s", name)
	}
	return b()
}

// Names returns the catalogued names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
