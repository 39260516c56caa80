package container

import (
	"context"
	"sync"
)

type requestScopeKey struct{}

// RequestScope holds request-scoped values for the duration of one request.
// Callbacks registered with OnEnd run in reverse order when the scope ends.
type RequestScope struct {
	container *Container
	mu        sync.Mutex
	values    map[string]interface{}
	onEnd     []func()
	ended     bool
}

// BeginRequest activates a request scope and returns a context carrying it.
// The caller must End the scope once the request is done.
func (c *Container) BeginRequest(ctx context.Context) (context.Context, *RequestScope) {
	scope := &RequestScope{
		container: c,
		values:    make(map[string]interface{}),
	}
	return context.WithValue(ctx, requestScopeKey{}, scope), scope
}

// CurrentRequest returns the request scope active on ctx
func CurrentRequest(ctx context.Context) (*RequestScope, bool) {
	scope, ok := ctx.Value(requestScopeKey{}).(*RequestScope)
	return scope, ok
}

// Container returns the container that opened the scope
func (s *RequestScope) Container() *Container {
	return s.container
}

// Set stores a request-scoped value
func (s *RequestScope) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns a request-scoped value
func (s *RequestScope) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// OnEnd registers fn to run when the scope ends
func (s *RequestScope) OnEnd(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnd = append(s.onEnd, fn)
}

// Active reports whether the scope has not ended yet
func (s *RequestScope) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended
}

// End closes the scope. Ending twice is a no-op.
func (s *RequestScope) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	callbacks := s.onEnd
	s.onEnd = nil
	s.values = make(map[string]interface{})
	s.mu.Unlock()

	for i := len(callbacks) - 1; i >= 0; i-- {
		callbacks[i]()
	}
}
