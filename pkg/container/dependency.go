package container

import (
	"log/slog"
	"reflect"
	"sort"
	"time"
)

// DependencyResolver handles component dependency resolution
type DependencyResolver interface {
	DiscoverDependencies() error
	ValidateDependencies() error
	GetDependencies(componentName string) map[string]bool
}

// findByType looks up the component that can fill a value of elemType.
// Exact type matches win over assignable ones; ties go to registration order.
func findByType(registry ComponentRegistry, elemType reflect.Type) (string, Component, bool) {
	components := registry.Components()

	for _, comp := range components {
		compType := reflect.TypeOf(comp)
		if compType == elemType || compType == reflect.PointerTo(elemType) {
			return comp.Name(), comp, true
		}
	}

	for _, comp := range components {
		if reflect.TypeOf(comp).AssignableTo(elemType) {
			return comp.Name(), comp, true
		}
	}

	return "", nil, false
}

// assignComponent stores comp into target, dereferencing pointer components
// when the target holds the pointed-to type.
func assignComponent(target reflect.Value, comp Component) {
	compValue := reflect.ValueOf(comp)
	if compValue.Type() == reflect.PointerTo(target.Type()) {
		target.Set(compValue.Elem())
		return
	}
	target.Set(compValue)
}

func targetElem(target interface{}) (reflect.Value, error) {
	targetType := reflect.TypeOf(target)
	if targetType == nil || targetType.Kind() != reflect.Ptr || reflect.ValueOf(target).IsNil() {
		return reflect.Value{}, ErrorWithCode("TARGET_NOT_POINTER", "target must be a non-nil pointer")
	}
	return reflect.ValueOf(target).Elem(), nil
}

// accessTrackingContext wraps a container to track component access during initialization
type accessTrackingContext struct {
	container     ApplicationContext
	componentName string
	accessedDeps  map[string]bool
	logger        *slog.Logger
	compRegistry  ComponentRegistry
}

func newAccessTrackingContext(container ApplicationContext, componentName string, logger *slog.Logger, registry ComponentRegistry) *accessTrackingContext {
	return &accessTrackingContext{
		container:     container,
		componentName: componentName,
		accessedDeps:  make(map[string]bool),
		logger:        logger,
		compRegistry:  registry,
	}
}

func (a *accessTrackingContext) GetComponent(target interface{}) error {
	targetValue, err := targetElem(target)
	if err != nil {
		return err
	}

	name, comp, ok := findByType(a.compRegistry, targetValue.Type())
	if !ok {
		return ErrorWithCode("COMPONENT_TYPE_NOT_FOUND", "no component found matching type %v", targetValue.Type())
	}

	// Don't allow a component to access itself during dependency discovery
	if name == a.componentName {
		return CircularDependencyError([]string{name, name})
	}

	a.accessedDeps[name] = true
	a.logger.Debug("Component dependency detected by type",
		"component", a.componentName,
		"depends_on", name,
		"type", targetValue.Type().String())

	assignComponent(targetValue, comp)
	return nil
}

func (a *accessTrackingContext) GetComponentByName(name string) (Component, error) {
	if name == a.componentName {
		return nil, CircularDependencyError([]string{name, name})
	}

	a.accessedDeps[name] = true
	a.logger.Debug("Component dependency detected by name",
		"component", a.componentName,
		"depends_on", name)

	comp, err := a.container.GetComponentByName(name)
	if err != nil {
		// Missing components are reported by ValidateDependencies
		return nil, nil
	}

	return comp, nil
}

func (a *accessTrackingContext) GetVariable(name string) string {
	return a.container.GetVariable(name)
}

func (a *accessTrackingContext) HasComponent(name string) bool {
	exists := a.container.HasComponent(name)
	if exists {
		a.accessedDeps[name] = true
	}
	return exists
}

func (a *accessTrackingContext) GetComponentNames() []string {
	return a.container.GetComponentNames()
}

// defaultDependencyResolver implements DependencyResolver
type defaultDependencyResolver struct {
	container    ApplicationContext
	registry     ComponentRegistry
	dependencies map[string]map[string]bool
	metrics      MetricsCollector
	logger       *slog.Logger
}

func newDependencyResolver(container ApplicationContext, registry ComponentRegistry, metrics MetricsCollector, logger *slog.Logger) *defaultDependencyResolver {
	return &defaultDependencyResolver{
		container:    container,
		registry:     registry,
		dependencies: make(map[string]map[string]bool),
		metrics:      metrics,
		logger:       logger,
	}
}

func (r *defaultDependencyResolver) discoverComponentDependencies(name string) (map[string]bool, error) {
	comp, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	if conditional, ok := comp.(ConditionalComponent); ok && !conditional.ShouldInitialize(r.container) {
		return map[string]bool{}, nil
	}

	tracker := newAccessTrackingContext(r.container, name, r.logger, r.registry)

	start := time.Now()
	r.logger.Debug("Discovering dependencies", "component", name)
	_ = comp.Init(tracker) // errors surface again during real initialization

	r.metrics.RecordDependencyCount(name, len(tracker.accessedDeps))

	r.logger.Debug("Dependencies discovered",
		"component", name,
		"dependencies", len(tracker.accessedDeps),
		"time_ms", time.Since(start).Milliseconds())

	return tracker.accessedDeps, nil
}

func (r *defaultDependencyResolver) detectCycle(source, target string, visited map[string]bool, path []string) (bool, []string) {
	if source == target {
		return true, append(path, target)
	}

	if visited[target] {
		return false, nil
	}

	visited[target] = true
	path = append(path, target)

	for _, dep := range sortedKeys(r.dependencies[target]) {
		if hasCycle, cyclePath := r.detectCycle(source, dep, visited, path); hasCycle {
			return true, cyclePath
		}
	}

	return false, nil
}

func (r *defaultDependencyResolver) DiscoverDependencies() error {
	r.logger.Debug("Discovering component dependencies")

	for _, name := range r.registry.GetNames() {
		deps, err := r.discoverComponentDependencies(name)
		if err != nil {
			return err
		}

		r.dependencies[name] = deps

		for _, dep := range sortedKeys(deps) {
			if dep == name {
				continue
			}

			if hasCycle, cycle := r.detectCycle(name, dep, make(map[string]bool), []string{name}); hasCycle {
				return CircularDependencyError(cycle)
			}
		}
	}

	return nil
}

func (r *defaultDependencyResolver) ValidateDependencies() error {
	for _, name := range r.registry.GetNames() {
		for _, dep := range sortedKeys(r.dependencies[name]) {
			if !r.registry.Has(dep) {
				return ComponentNotFoundError(dep)
			}
		}
	}
	return nil
}

func (r *defaultDependencyResolver) GetDependencies(componentName string) map[string]bool {
	deps, exists := r.dependencies[componentName]
	if !exists {
		return nil
	}

	result := make(map[string]bool, len(deps))
	for k, v := range deps {
		result[k] = v
	}
	return result
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
