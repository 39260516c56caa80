package web

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Valve is one request-processing step of a Pipeline
type Valve interface {
	Invoke(next http.Handler) http.Handler
}

// ValveFunc adapts a middleware function to Valve
type ValveFunc func(next http.Handler) http.Handler

func (f ValveFunc) Invoke(next http.Handler) http.Handler {
	return f(next)
}

// Pipeline is the ordered list of valves requests of one container pass
// through before reaching the basic handler. It fires before_start, start
// and after_start when started; by the start event the owning context has
// its loader, resources and instance manager in place.
type Pipeline struct {
	lifecycleSupport

	container interface{}

	mu      sync.RWMutex
	valves  []Valve
	basic   http.Handler
	started bool
	chain   http.Handler
}

// NewPipeline creates a pipeline owned by container
func NewPipeline(container interface{}) *Pipeline {
	return &Pipeline{container: container}
}

// Container returns the owner of the pipeline
func (p *Pipeline) Container() interface{} {
	return p.container
}

// Valves returns a snapshot of the valves in invocation order
func (p *Pipeline) Valves() []Valve {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]Valve, len(p.valves))
	copy(result, p.valves)
	return result
}

// AddValve appends a valve to the pipeline
func (p *Pipeline) AddValve(valve Valve) error {
	if valve == nil {
		return InvalidArgumentError("valve cannot be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.valves = append(p.valves, valve)
	p.chain = nil
	return nil
}

// SetBasic sets the handler at the end of the pipeline
func (p *Pipeline) SetBasic(h http.Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.basic = h
	p.chain = nil
}

// Started reports whether Start completed
func (p *Pipeline) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

// Start fires the pipeline start events. Starting twice is a no-op.
func (p *Pipeline) Start() error {
	if p.Started() {
		return nil
	}
	if err := p.fire(p, BeforeStartEvent, nil); err != nil {
		return err
	}

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	if err := p.fire(p, StartEvent, nil); err != nil {
		return err
	}
	return p.fire(p, AfterStartEvent, nil)
}

// Stop fires the pipeline stop events
func (p *Pipeline) Stop() error {
	if !p.Started() {
		return nil
	}
	if err := p.fire(p, BeforeStopEvent, nil); err != nil {
		return err
	}

	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	if err := p.fire(p, StopEvent, nil); err != nil {
		return err
	}
	return p.fire(p, AfterStopEvent, nil)
}

// ServeHTTP runs the request through the valves and the basic handler
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler().ServeHTTP(w, r)
}

func (p *Pipeline) handler() http.Handler {
	p.mu.RLock()
	chain := p.chain
	p.mu.RUnlock()
	if chain != nil {
		return chain
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.chain == nil {
		middlewares := make(chi.Middlewares, 0, len(p.valves))
		for _, valve := range p.valves {
			middlewares = append(middlewares, valve.Invoke)
		}
		basic := p.basic
		if basic == nil {
			basic = http.NotFoundHandler()
		}
		p.chain = middlewares.Handler(basic)
	}
	return p.chain
}
