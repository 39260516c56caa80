package container

import "context"

// Component represents a container-managed component
type Component interface {
	// Init initializes the component with container context.
	// Init runs twice: once against a tracking context that records which
	// components are looked up, then for real in dependency order.
	Init(ApplicationContext) error
	// Name returns the unique identifier for this component
	Name() string
}

// LifecycleComponent extends Component with lifecycle methods
type LifecycleComponent interface {
	Component
	// Start is called when the container starts
	Start(context.Context)
	// Stop is called when the container shuts down
	Stop(context.Context)
}

// ConditionalComponent can decide whether it should be initialized
type ConditionalComponent interface {
	Component
	// ShouldInitialize determines whether this component should be initialized
	ShouldInitialize(ApplicationContext) bool
}

// PostConstructor is implemented by injected objects that need a hook once their fields are set
type PostConstructor interface {
	PostConstruct(ApplicationContext) error
}

// PreDestroyer is implemented by injected objects that release resources before destruction
type PreDestroyer interface {
	PreDestroy()
}

// ComponentBase provides a basic implementation of Component methods
type ComponentBase struct {
	name string
}

// NewComponentBase creates a new ComponentBase with the given name
func NewComponentBase(name string) ComponentBase {
	return ComponentBase{name: name}
}

// Name returns the component name
func (c ComponentBase) Name() string {
	return c.name
}

// Init is a no-op implementation of Init
func (c ComponentBase) Init(ApplicationContext) error {
	return nil
}

// Ensure that ComponentBase implements Component
var _ Component = (*ComponentBase)(nil)
