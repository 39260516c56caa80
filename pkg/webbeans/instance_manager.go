package webbeans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/01fortes/goboot-web/pkg/container"
	"github.com/01fortes/goboot-web/pkg/web"
)

const (
	// InstanceManagerID identifies the injecting instance manager
	InstanceManagerID = "webbeans.InstanceManager"

	// InstanceManagerAttribute is the application attribute the installed
	// InstanceManager is published under
	InstanceManagerAttribute = "web.InstanceManager"

	// ContainerAttribute is the application attribute holding the started
	// application container
	ContainerAttribute = "webbeans.Container"
)

// InstanceManager decorates a web.InstanceManager: every object the delegate
// creates is injected by the application container before it is returned.
type InstanceManager struct {
	delegate   web.InstanceManager
	attributes *web.Attributes
	logger     *slog.Logger
	metrics    *Metrics
}

// NewInstanceManager wraps delegate. The delegate resolves names and the
// container is looked up in attributes on every call.
func NewInstanceManager(delegate web.InstanceManager, attributes *web.Attributes, logger *slog.Logger, metrics *Metrics) *InstanceManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstanceManager{
		delegate:   delegate,
		attributes: attributes,
		logger:     logger,
		metrics:    metrics,
	}
}

func (m *InstanceManager) ID() string {
	return InstanceManagerID
}

// Delegate returns the wrapped instance manager
func (m *InstanceManager) Delegate() web.InstanceManager {
	return m.delegate
}

// NewInstance creates the object through the delegate, then injects it.
// Without a published container the object is returned as created.
func (m *InstanceManager) NewInstance(ctx context.Context, name string) (instance interface{}, err error) {
	defer func() { m.metrics.ObserveInstance("create", err) }()

	instance, err = m.delegate.NewInstance(ctx, name)
	if err != nil {
		return nil, err
	}

	injector := m.injector()
	if injector == nil || !injectable(instance) {
		return instance, nil
	}

	if err := injector.Inject(ctx, instance); err != nil {
		if destroyErr := m.delegate.DestroyInstance(ctx, instance); destroyErr != nil {
			m.logger.Warn("Failed to destroy instance after injection failure", "name", name, "error", destroyErr)
		}
		return nil, fmt.Errorf("inject %s: %w", name, err)
	}

	m.logger.Debug("Injected instance", "name", name, "type", fmt.Sprintf("%T", instance))
	return instance, nil
}

// DestroyInstance releases the object from the container, then destroys it through the delegate
func (m *InstanceManager) DestroyInstance(ctx context.Context, instance interface{}) (err error) {
	defer func() { m.metrics.ObserveInstance("destroy", err) }()

	var releaseErr error
	if injector := m.injector(); injector != nil && injectable(instance) {
		releaseErr = injector.Release(ctx, instance)
	}
	return errors.Join(releaseErr, m.delegate.DestroyInstance(ctx, instance))
}

func (m *InstanceManager) injector() container.Injector {
	if m.attributes == nil {
		return nil
	}
	value, ok := m.attributes.Get(ContainerAttribute)
	if !ok {
		return nil
	}
	injector, _ := value.(container.Injector)
	return injector
}

func injectable(instance interface{}) bool {
	v := reflect.ValueOf(instance)
	return v.Kind() == reflect.Ptr && !v.IsNil()
}

var _ web.InstanceManager = (*InstanceManager)(nil)
