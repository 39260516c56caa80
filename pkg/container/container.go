package container

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle state of a Container
type State string

const (
	StateNew     State = "NEW"
	StateStarted State = "STARTED"
	StateStopped State = "STOPPED"
	StateFailed  State = "FAILED"
)

// Container holds the components of one application and injects them into
// objects created outside of it. Builder methods are meant to be called from
// the goroutine that starts the container.
type Container struct {
	config    *Config
	logger    *slog.Logger
	registry  *componentRegistry
	variables *variableRegistry
	loaders   []VariableLoader
	starters  []Starter
	metrics   *defaultMetricsCollector
	lifecycle *defaultLifecycleManager
	initOrder []string

	mu    sync.RWMutex
	state State
}

// New creates a container in the NEW state
func New(config *Config) *Container {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.logger().With("container", config.Name)

	c := &Container{
		config:    config,
		logger:    logger,
		registry:  newComponentRegistry(logger),
		variables: newVariableRegistry(logger),
		metrics:   newMetricsCollector(config.Name, config.EnableMetrics, config.Registerer),
		state:     StateNew,
	}
	c.loaders = append(c.loaders, config.DefaultVariableLoaders...)
	c.starters = append(c.starters, config.DefaultStarters...)
	return c
}

// Start creates a container, lets block register its content and starts it
func Start(ctx context.Context, config *Config, block func(ContextBuilder)) (*Container, error) {
	c := New(config)
	if block != nil {
		block(c)
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Start loads variables, applies starters, initializes components in
// dependency order and starts lifecycle components.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateNew {
		return ContainerStateError("start", string(c.state))
	}

	start := time.Now()
	if err := c.bootstrap(ctx); err != nil {
		c.state = StateFailed
		c.logger.Error("Container failed to start", "error", err)
		return err
	}
	c.state = StateStarted

	c.logger.Info("Container started",
		"components", len(c.initOrder),
		"time_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Container) bootstrap(ctx context.Context) error {
	// Index loops: loaders and starters may register more of themselves.
	for i := 0; i < len(c.loaders); i++ {
		if err := c.loaders[i].Load(c); err != nil {
			return err
		}
	}

	for i := 0; i < len(c.starters); i++ {
		starter := c.starters[i]
		if conditional, ok := starter.(ConditionalStarter); ok && !conditional.ShouldStart(c) {
			c.logger.Debug("Skipping starter, condition not met", "starter", starter.Name())
			continue
		}
		c.logger.Debug("Applying starter", "starter", starter.Name())
		if err := starter.Start(c); err != nil {
			return ConfigurationError("starter "+starter.Name()+" failed", err)
		}
	}

	resolver := newDependencyResolver(c, c.registry, c.metrics, c.logger)
	if err := resolver.DiscoverDependencies(); err != nil {
		return err
	}
	if err := resolver.ValidateDependencies(); err != nil {
		return err
	}

	initializer := newComponentInitializer(c, c.registry, resolver, c.metrics, c.logger)
	if err := initializer.InitializeAll(); err != nil {
		return err
	}
	c.initOrder = initializer.GetInitOrder()

	c.lifecycle = newLifecycleManager(c.registry, c.initOrder, c.metrics, c.logger)
	if err := c.lifecycle.StartAll(ctx); err != nil {
		c.lifecycle.StopAll(ctx)
		return err
	}
	return nil
}

// Stop stops lifecycle components in reverse start order. Stopping a
// container that is not started is a no-op.
func (c *Container) Stop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStarted {
		return
	}
	c.lifecycle.StopAll(ctx)
	c.state = StateStopped
	c.logger.Info("Container stopped")
}

// Name returns the configured container name
func (c *Container) Name() string {
	return c.config.Name
}

// State returns the current lifecycle state
func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// InitOrder returns the names of initialized components in initialization order
func (c *Container) InitOrder() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, len(c.initOrder))
	copy(result, c.initOrder)
	return result
}

// GetMetrics returns metrics for all components
func (c *Container) GetMetrics() map[string]*ComponentMetrics {
	return c.metrics.GetMetrics()
}

func (c *Container) RegisterComponent(component Component) error {
	return c.registry.Register(component)
}

func (c *Container) RegisterVariable(name string, value string) {
	c.variables.Register(name, value)
}

func (c *Container) RegisterVariableLoader(loader VariableLoader) {
	c.loaders = append(c.loaders, loader)
}

func (c *Container) RegisterStarter(starter Starter) {
	c.starters = append(c.starters, starter)
}

func (c *Container) GetComponent(target interface{}) error {
	targetValue, err := targetElem(target)
	if err != nil {
		return err
	}

	_, comp, ok := findByType(c.registry, targetValue.Type())
	if !ok {
		return ErrorWithCode("COMPONENT_TYPE_NOT_FOUND", "no component found matching type %v", targetValue.Type())
	}
	assignComponent(targetValue, comp)
	return nil
}

func (c *Container) GetComponentByName(name string) (Component, error) {
	return c.registry.Get(name)
}

func (c *Container) GetVariable(name string) string {
	return c.variables.Get(name)
}

// GetVariableNames returns the names of all loaded variables, sorted
func (c *Container) GetVariableNames() []string {
	return c.variables.Names()
}

func (c *Container) HasComponent(name string) bool {
	return c.registry.Has(name)
}

func (c *Container) GetComponentNames() []string {
	return c.registry.GetNames()
}

var (
	_ ContextBuilder = (*Container)(nil)
	_ Injector       = (*Container)(nil)
)
