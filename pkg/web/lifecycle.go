package web

import "sync"

// Lifecycle event types fired by contexts and pipelines
const (
	BeforeInitEvent     = "before_init"
	AfterInitEvent      = "after_init"
	ConfigureStartEvent = "configure_start"
	ConfigureStopEvent  = "configure_stop"
	BeforeStartEvent    = "before_start"
	StartEvent          = "start"
	AfterStartEvent     = "after_start"
	BeforeStopEvent     = "before_stop"
	StopEvent           = "stop"
	AfterStopEvent      = "after_stop"
)

// LifecycleEvent is delivered to lifecycle listeners. Source is the
// *Context or *Pipeline that fired it.
type LifecycleEvent struct {
	Source interface{}
	Type   string
	Data   interface{}
}

// LifecycleListener receives lifecycle events. A returned error aborts the
// transition that fired the event.
type LifecycleListener interface {
	LifecycleEvent(event LifecycleEvent) error
}

// LifecycleListenerFunc adapts a function to LifecycleListener
type LifecycleListenerFunc func(event LifecycleEvent) error

func (f LifecycleListenerFunc) LifecycleEvent(event LifecycleEvent) error {
	return f(event)
}

// Lifecycle is implemented by structures that fire lifecycle events
type Lifecycle interface {
	AddLifecycleListener(listener LifecycleListener)
	FindLifecycleListeners() []LifecycleListener
}

// Identified is implemented by collaborators that carry a stable identifier.
// Presence checks on listener, valve and instance manager lists compare IDs.
type Identified interface {
	ID() string
}

// HasID reports whether v carries the identifier id
func HasID(v interface{}, id string) bool {
	identified, ok := v.(Identified)
	return ok && identified.ID() == id
}

type lifecycleSupport struct {
	mu        sync.RWMutex
	listeners []LifecycleListener
}

func (l *lifecycleSupport) AddLifecycleListener(listener LifecycleListener) {
	if listener == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
}

func (l *lifecycleSupport) FindLifecycleListeners() []LifecycleListener {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]LifecycleListener, len(l.listeners))
	copy(result, l.listeners)
	return result
}

// fire delivers the event to a snapshot of the listeners, so listeners may
// register further listeners while it runs. The first error stops delivery.
func (l *lifecycleSupport) fire(source interface{}, eventType string, data interface{}) error {
	event := LifecycleEvent{Source: source, Type: eventType, Data: data}
	for _, listener := range l.FindLifecycleListeners() {
		if err := listener.LifecycleEvent(event); err != nil {
			return err
		}
	}
	return nil
}
