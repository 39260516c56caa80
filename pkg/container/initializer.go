package container

import (
	"log/slog"
	"slices"
	"time"
)

// ComponentInitializer handles component initialization in dependency order
type ComponentInitializer interface {
	InitializeAll() error
	GetInitOrder() []string
}

// defaultComponentInitializer implements ComponentInitializer
type defaultComponentInitializer struct {
	container    ApplicationContext
	registry     ComponentRegistry
	dependencies DependencyResolver
	outcome      map[string]initOutcome
	initOrder    []string
	metrics      MetricsCollector
	logger       *slog.Logger
}

func newComponentInitializer(container ApplicationContext, registry ComponentRegistry, dependencies DependencyResolver, metrics MetricsCollector, logger *slog.Logger) *defaultComponentInitializer {
	return &defaultComponentInitializer{
		container:    container,
		registry:     registry,
		dependencies: dependencies,
		outcome:      make(map[string]initOutcome),
		initOrder:    []string{},
		metrics:      metrics,
		logger:       logger,
	}
}

// initOutcome is what happened to a component during InitializeAll
type initOutcome int

const (
	pending initOutcome = iota
	visiting
	initialized
	skipped
)

func (i *defaultComponentInitializer) initComponent(name string, path []string) error {
	switch i.outcome[name] {
	case initialized, skipped:
		return nil
	case visiting:
		return CircularDependencyError(append(path, name))
	}

	comp, err := i.registry.Get(name)
	if err != nil {
		return err
	}

	i.outcome[name] = visiting
	path = append(path, name)

	for _, depName := range sortedKeys(i.dependencies.GetDependencies(name)) {
		if depName == name {
			continue
		}
		if err := i.initComponent(depName, path); err != nil {
			return err
		}
	}

	if conditional, ok := comp.(ConditionalComponent); ok && !conditional.ShouldInitialize(i.container) {
		i.logger.Debug("Skipping component, condition not met", "name", name)
		i.outcome[name] = skipped
		return nil
	}

	i.logger.Debug("Initializing component", "name", name)
	start := time.Now()
	if err := comp.Init(i.container); err != nil {
		i.outcome[name] = pending
		return ComponentInitializationError(name, err)
	}
	duration := time.Since(start)

	i.metrics.RecordInitDuration(name, duration)

	i.logger.Debug("Component initialized",
		"name", name,
		"time_ms", duration.Milliseconds())

	i.outcome[name] = initialized
	i.initOrder = append(i.initOrder, name)
	return nil
}

func (i *defaultComponentInitializer) InitializeAll() error {
	i.logger.Debug("Initializing components")

	for _, name := range i.registry.GetNames() {
		if err := i.initComponent(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func (i *defaultComponentInitializer) GetInitOrder() []string {
	return slices.Clone(i.initOrder)
}
