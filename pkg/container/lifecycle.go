package container

import (
	"context"
	"log/slog"
	"time"
)

// ComponentLifecycleManager handles component lifecycle (start/stop)
type ComponentLifecycleManager interface {
	StartAll(ctx context.Context) error
	StopAll(ctx context.Context)
}

// defaultLifecycleManager implements ComponentLifecycleManager.
// Components start in init order and stop in reverse, so a component
// never outlives the components it depends on.
type defaultLifecycleManager struct {
	registry  ComponentRegistry
	initOrder []string
	started   []string
	metrics   MetricsCollector
	logger    *slog.Logger
}

func newLifecycleManager(registry ComponentRegistry, initOrder []string, metrics MetricsCollector, logger *slog.Logger) *defaultLifecycleManager {
	return &defaultLifecycleManager{
		registry:  registry,
		initOrder: initOrder,
		metrics:   metrics,
		logger:    logger,
	}
}

func (m *defaultLifecycleManager) StartAll(ctx context.Context) error {
	m.logger.Debug("Starting components", "count", len(m.initOrder))

	for _, name := range m.initOrder {
		component, err := m.registry.Get(name)
		if err != nil {
			return err
		}

		lifecycle, ok := component.(LifecycleComponent)
		if !ok {
			continue
		}

		if err := m.startComponent(ctx, lifecycle, name); err != nil {
			m.logger.Error("Error starting component", "name", name, "error", err)
			return err
		}
		m.started = append(m.started, name)
	}

	return nil
}

func (m *defaultLifecycleManager) startComponent(ctx context.Context, comp LifecycleComponent, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ComponentStartError(name, r)
		}
	}()

	start := time.Now()
	comp.Start(ctx)
	duration := time.Since(start)

	m.metrics.RecordStartDuration(name, duration)
	m.logger.Debug("Component started",
		"name", name,
		"time_ms", duration.Milliseconds())
	return nil
}

func (m *defaultLifecycleManager) StopAll(ctx context.Context) {
	m.logger.Debug("Stopping components", "count", len(m.started))

	for i := len(m.started) - 1; i >= 0; i-- {
		name := m.started[i]
		component, err := m.registry.Get(name)
		if err != nil {
			m.logger.Error("Error getting component during shutdown",
				"name", name,
				"error", err)
			continue
		}

		m.stopComponent(ctx, component.(LifecycleComponent), name)
	}
	m.started = nil
}

func (m *defaultLifecycleManager) stopComponent(ctx context.Context, comp LifecycleComponent, name string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Panic in component shutdown",
				"name", name,
				"error", r)
		}
	}()

	start := time.Now()
	comp.Stop(ctx)
	duration := time.Since(start)

	m.metrics.RecordStopDuration(name, duration)
	m.logger.Debug("Component stopped",
		"name", name,
		"time_ms", duration.Milliseconds())
}
