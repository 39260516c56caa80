package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// State is the lifecycle state of a Context
type State string

const (
	StateNew      State = "NEW"
	StateStarting State = "STARTING"
	StateStarted  State = "STARTED"
	StateStopped  State = "STOPPED"
	StateFailed   State = "FAILED"
)

// ApplicationListener is notified once the application is configured.
// Listeners run in registration order, each created just before it runs.
type ApplicationListener interface {
	ContextInitialized(ctx context.Context, app *Context) error
}

// ApplicationDestroyListener is notified, in reverse order, when the application stops
type ApplicationDestroyListener interface {
	ContextDestroyed(ctx context.Context, app *Context)
}

// ContextConfig describes one deployed web application
type ContextConfig struct {
	// Name of the application
	Name string
	// Path is the URL prefix the application is mounted on
	Path string
	// DocBase holds the application resources (WEB-INF/...)
	DocBase afero.Fs
	// Loader resolves listener and handler names (a fresh one if nil)
	Loader *Loader
	// Listeners are application listener names, in order
	Listeners []string
	// Handlers maps route patterns to registered handler names
	Handlers map[string]string
	// Logger (uses slog.Default if nil)
	Logger *slog.Logger
}

// Context is one deployed web application. The host owns its lifecycle;
// lifecycle listeners may reshape its listeners, pipeline and instance
// manager while it starts.
type Context struct {
	lifecycleSupport

	id         string
	name       string
	path       string
	logger     *slog.Logger
	pipeline   *Pipeline
	loader     *Loader
	resources  *Resources
	attributes *Attributes
	handlers   map[string]string

	mu              sync.RWMutex
	listeners       []string
	instanceManager InstanceManager
	state           State
	liveListeners   []interface{}
	liveHandlers    []interface{}
}

// NewContext creates a context in the NEW state
func NewContext(cfg ContextConfig) (*Context, error) {
	if cfg.Name == "" {
		return nil, InvalidArgumentError("context name cannot be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loader := cfg.Loader
	if loader == nil {
		loader = NewLoader(nil)
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}

	id := uuid.NewString()
	c := &Context{
		id:         id,
		name:       cfg.Name,
		path:       path,
		logger:     logger.With("context", cfg.Name, "context_id", id),
		loader:     loader,
		resources:  NewResources(cfg.Name, cfg.DocBase),
		attributes: NewAttributes(),
		handlers:   make(map[string]string, len(cfg.Handlers)),
		state:      StateNew,
	}
	c.pipeline = NewPipeline(c)
	for pattern, name := range cfg.Handlers {
		c.handlers[pattern] = name
	}
	for _, name := range cfg.Listeners {
		if err := c.AddApplicationListener(name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Context) ID() string              { return c.id }
func (c *Context) Name() string            { return c.name }
func (c *Context) Path() string            { return c.path }
func (c *Context) Logger() *slog.Logger    { return c.logger }
func (c *Context) Pipeline() *Pipeline     { return c.pipeline }
func (c *Context) Loader() *Loader         { return c.loader }
func (c *Context) Attributes() *Attributes { return c.attributes }
func (c *Context) Resources() *Resources   { return c.resources }

// Resource resolves an application resource path, nil if absent
func (c *Context) Resource(path string) (*url.URL, error) {
	return c.resources.Resource(path)
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Context) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Context) listenersMutable() error {
	if c.state != StateNew && c.state != StateStarting {
		return IllegalStateError("change application listeners", c.state)
	}
	return nil
}

// FindApplicationListeners returns the application listener names in order
func (c *Context) FindApplicationListeners() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.listeners))
	copy(result, c.listeners)
	return result
}

// AddApplicationListener appends a listener name
func (c *Context) AddApplicationListener(name string) error {
	if name == "" {
		return InvalidArgumentError("listener name cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.listenersMutable(); err != nil {
		return err
	}
	for _, existing := range c.listeners {
		if existing == name {
			return DuplicateListenerError(name)
		}
	}
	c.listeners = append(c.listeners, name)
	return nil
}

// RemoveApplicationListener removes a listener name; unknown names are ignored
func (c *Context) RemoveApplicationListener(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.listenersMutable(); err != nil {
		return err
	}
	for i, existing := range c.listeners {
		if existing == name {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return nil
		}
	}
	return nil
}

// InstanceManager returns the active instance manager, nil until one is set or created
func (c *Context) InstanceManager() InstanceManager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instanceManager
}

// SetInstanceManager replaces the active instance manager
func (c *Context) SetInstanceManager(im InstanceManager) error {
	if im == nil {
		return InvalidArgumentError("instance manager cannot be nil")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStarted {
		return IllegalStateError("replace the instance manager", c.state)
	}
	c.instanceManager = im
	return nil
}

// CreateInstanceManager builds the default instance manager over the context loader.
// It does not install it.
func (c *Context) CreateInstanceManager() InstanceManager {
	return NewDefaultInstanceManager(c.loader, c.logger)
}

func (c *Context) activeInstanceManager() InstanceManager {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.instanceManager == nil {
		c.instanceManager = NewDefaultInstanceManager(c.loader, c.logger)
	}
	return c.instanceManager
}

// Start runs the startup sequence: init, configure, pipeline start, then
// application listeners and handlers are created through the instance manager.
// Any failure leaves the context FAILED.
func (c *Context) Start(ctx context.Context) (err error) {
	c.mu.Lock()
	if c.state != StateNew {
		state := c.state
		c.mu.Unlock()
		return IllegalStateError("start", state)
	}
	c.state = StateStarting
	c.mu.Unlock()

	defer func() {
		if err != nil {
			c.setState(StateFailed)
			c.logger.Error("Context failed to start", "error", err)
			err = StartupError(c.name, err)
		}
	}()

	for _, eventType := range []string{BeforeInitEvent, AfterInitEvent, ConfigureStartEvent, BeforeStartEvent} {
		if err := c.fire(c, eventType, nil); err != nil {
			return err
		}
	}

	if err := c.pipeline.Start(); err != nil {
		return err
	}
	if err := c.startListeners(ctx); err != nil {
		return err
	}
	router, err := c.buildRouter(ctx)
	if err != nil {
		return err
	}
	c.pipeline.SetBasic(router)

	c.setState(StateStarted)
	if err := c.fire(c, StartEvent, nil); err != nil {
		return err
	}
	if err := c.fire(c, AfterStartEvent, nil); err != nil {
		return err
	}

	c.logger.Info("Context started",
		"path", c.path,
		"listeners", len(c.liveListeners),
		"handlers", len(c.liveHandlers))
	return nil
}

func (c *Context) startListeners(ctx context.Context) error {
	for _, name := range c.FindApplicationListeners() {
		im := c.activeInstanceManager()
		instance, err := im.NewInstance(ctx, name)
		if err != nil {
			return fmt.Errorf("create listener %s: %w", name, err)
		}

		listener, ok := instance.(ApplicationListener)
		if !ok {
			_ = im.DestroyInstance(ctx, instance)
			return ListenerTypeError(name, instance)
		}

		c.mu.Lock()
		c.liveListeners = append(c.liveListeners, instance)
		c.mu.Unlock()

		c.logger.Debug("Initializing application listener", "listener", name)
		if err := listener.ContextInitialized(ctx, c); err != nil {
			return fmt.Errorf("listener %s: %w", name, err)
		}
	}
	return nil
}

func (c *Context) buildRouter(ctx context.Context) (http.Handler, error) {
	router := chi.NewRouter()

	patterns := make([]string, 0, len(c.handlers))
	for pattern := range c.handlers {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)

	im := c.activeInstanceManager()
	for _, pattern := range patterns {
		name := c.handlers[pattern]
		instance, err := im.NewInstance(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("create handler %s: %w", name, err)
		}
		handler, ok := instance.(http.Handler)
		if !ok {
			_ = im.DestroyInstance(ctx, instance)
			return nil, HandlerTypeError(name, instance)
		}

		c.mu.Lock()
		c.liveHandlers = append(c.liveHandlers, instance)
		c.mu.Unlock()

		router.Handle(pattern, handler)
	}
	return router, nil
}

// Stop destroys handlers and listeners in reverse creation order and stops
// the pipeline. A FAILED context releases what its startup created and stays
// FAILED. Stopping a context in any other state is a no-op.
func (c *Context) Stop(ctx context.Context) error {
	switch c.State() {
	case StateStarted:
	case StateFailed:
		err := errors.Join(c.release(ctx), c.pipeline.Stop())
		c.logger.Info("Released failed context")
		return err
	default:
		return nil
	}

	var errs []error
	errs = append(errs, c.fire(c, BeforeStopEvent, nil))
	errs = append(errs, c.release(ctx))
	errs = append(errs, c.pipeline.Stop())
	c.setState(StateStopped)
	errs = append(errs, c.fire(c, ConfigureStopEvent, nil))
	errs = append(errs, c.fire(c, AfterStopEvent, nil))

	c.logger.Info("Context stopped")
	return errors.Join(errs...)
}

// release destroys the live handlers, then the live listeners, newest first
func (c *Context) release(ctx context.Context) error {
	c.mu.Lock()
	handlers, listeners := c.liveHandlers, c.liveListeners
	c.liveHandlers, c.liveListeners = nil, nil
	c.mu.Unlock()

	var errs []error
	im := c.activeInstanceManager()
	for i := len(handlers) - 1; i >= 0; i-- {
		errs = append(errs, im.DestroyInstance(ctx, handlers[i]))
	}
	for i := len(listeners) - 1; i >= 0; i-- {
		if destroyListener, ok := listeners[i].(ApplicationDestroyListener); ok {
			destroyListener.ContextDestroyed(ctx, c)
		}
		errs = append(errs, im.DestroyInstance(ctx, listeners[i]))
	}
	return errors.Join(errs...)
}

// ServeHTTP serves requests through the pipeline once the context is started
func (c *Context) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if c.State() != StateStarted {
		http.Error(w, "application unavailable", http.StatusServiceUnavailable)
		return
	}
	c.pipeline.ServeHTTP(w, r)
}
