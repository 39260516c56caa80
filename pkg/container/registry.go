package container

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ComponentRegistry holds the components of one container
type ComponentRegistry interface {
	Register(component Component) error
	Get(name string) (Component, error)
	Has(name string) bool
	// GetNames returns component names in registration order
	GetNames() []string
	// Components returns components in registration order
	Components() []Component
}

// ordered is a name keyed store that remembers insertion order
type ordered[T any] struct {
	mu     sync.RWMutex
	values map[string]T
	order  []string
}

func newOrdered[T any]() *ordered[T] {
	return &ordered[T]{values: make(map[string]T)}
}

// put stores value and reports whether name was already present
func (o *ordered[T]) put(name string, value T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, exists := o.values[name]
	if !exists {
		o.order = append(o.order, name)
	}
	o.values[name] = value
	return exists
}

// putNew stores value unless name is taken
func (o *ordered[T]) putNew(name string, value T) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.values[name]; exists {
		return false
	}
	o.values[name] = value
	o.order = append(o.order, name)
	return true
}

func (o *ordered[T]) get(name string) (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	v, ok := o.values[name]
	return v, ok
}

func (o *ordered[T]) names() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return slices.Clone(o.order)
}

func (o *ordered[T]) list() []T {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]T, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.values[name])
	}
	return out
}

type componentRegistry struct {
	store  *ordered[Component]
	logger *slog.Logger
}

func newComponentRegistry(logger *slog.Logger) *componentRegistry {
	return &componentRegistry{store: newOrdered[Component](), logger: logger}
}

func (r *componentRegistry) Register(component Component) error {
	if component == nil {
		return ConfigurationError("cannot register nil component", nil)
	}
	name := component.Name()
	if name == "" {
		return ConfigurationError(fmt.Sprintf("component %T has no name", component), nil)
	}

	if !r.store.putNew(name, component) {
		return ComponentAlreadyRegisteredError(name)
	}
	r.logger.Debug("Registered component", "name", name, "type", fmt.Sprintf("%T", component))
	return nil
}

func (r *componentRegistry) Get(name string) (Component, error) {
	comp, ok := r.store.get(name)
	if !ok {
		return nil, ComponentNotFoundError(name)
	}
	return comp, nil
}

func (r *componentRegistry) Has(name string) bool {
	_, ok := r.store.get(name)
	return ok
}

func (r *componentRegistry) GetNames() []string {
	return r.store.names()
}

func (r *componentRegistry) Components() []Component {
	return r.store.list()
}

// variableRegistry holds string variables. Later loaders override earlier ones.
type variableRegistry struct {
	store  *ordered[string]
	logger *slog.Logger
}

func newVariableRegistry(logger *slog.Logger) *variableRegistry {
	return &variableRegistry{store: newOrdered[string](), logger: logger}
}

func (r *variableRegistry) Register(name, value string) {
	if r.store.put(name, value) {
		r.logger.Debug("Variable overridden", "name", name)
	}
}

func (r *variableRegistry) Get(name string) string {
	v, _ := r.store.get(name)
	return v
}

// Names returns variable names sorted
func (r *variableRegistry) Names() []string {
	names := r.store.names()
	slices.Sort(names)
	return names
}
