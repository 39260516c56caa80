package web

import (
	"sort"
	"sync"
)

// Factory creates a fresh instance of a registered type
type Factory func() interface{}

// Loader maps type names to factories. Listener and handler names in a
// Context resolve through its Loader.
type Loader struct {
	mu        sync.RWMutex
	factories map[string]Factory
	parent    *Loader
}

// NewLoader creates a loader that falls back to parent for unknown names
func NewLoader(parent *Loader) *Loader {
	return &Loader{
		factories: make(map[string]Factory),
		parent:    parent,
	}
}

// Register adds a factory under name, replacing any previous one
func (l *Loader) Register(name string, factory Factory) error {
	if name == "" {
		return InvalidArgumentError("type name cannot be empty")
	}
	if factory == nil {
		return InvalidArgumentError("factory for '" + name + "' cannot be nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[name] = factory
	return nil
}

// RegisterType registers a factory returning new(T)
func RegisterType[T any](l *Loader, name string) error {
	return l.Register(name, func() interface{} { return new(T) })
}

// Has reports whether name resolves in this loader or its parents
func (l *Loader) Has(name string) bool {
	_, ok := l.lookup(name)
	return ok
}

// New creates an instance of the type registered as name
func (l *Loader) New(name string) (interface{}, error) {
	factory, ok := l.lookup(name)
	if !ok {
		return nil, TypeNotFoundError(name)
	}
	return factory(), nil
}

// Names lists the names registered directly in this loader
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.factories))
	for name := range l.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Loader) lookup(name string) (Factory, bool) {
	for loader := l; loader != nil; loader = loader.parent {
		loader.mu.RLock()
		factory, ok := loader.factories[name]
		loader.mu.RUnlock()
		if ok {
			return factory, true
		}
	}
	return nil, false
}
