package web

import (
	"sort"
	"sync"
)

// Attributes is the application-wide attribute store shared by everything
// running inside one Context.
type Attributes struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

func NewAttributes() *Attributes {
	return &Attributes{values: make(map[string]interface{})}
}

func (a *Attributes) Get(name string) (interface{}, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[name]
	return v, ok
}

func (a *Attributes) Set(name string, value interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[name] = value
}

func (a *Attributes) Remove(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, name)
}

// Names returns the attribute names in sorted order
func (a *Attributes) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.values))
	for name := range a.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
