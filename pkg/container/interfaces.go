package container

import "context"

// ApplicationContext is the interface used by components to access container resources
type ApplicationContext interface {
	// GetComponent returns a component by type using a pointer to a variable of the desired type
	// Example: var logger *LoggerComponent; ctx.GetComponent(&logger)
	GetComponent(target interface{}) error
	// GetComponentByName returns a component by name (generally discouraged - use GetComponent instead)
	GetComponentByName(name string) (Component, error)
	// GetVariable returns a variable by name
	GetVariable(name string) string
	// HasComponent checks if a component exists
	HasComponent(name string) bool
	// GetComponentNames returns all registered component names
	GetComponentNames() []string
}

// ContextBuilder is used during container initialization
type ContextBuilder interface {
	ApplicationContext
	// RegisterComponent adds a component to the container
	RegisterComponent(component Component) error
	// RegisterVariable adds a variable to the container
	RegisterVariable(name string, value string)
	// RegisterVariableLoader adds a variable loader
	RegisterVariableLoader(loader VariableLoader)
	// RegisterStarter adds a starter to the container
	RegisterStarter(starter Starter)
}

// Injector fills objects that were created outside the container
type Injector interface {
	// Inject sets the tagged fields of target and runs its PostConstruct hook
	Inject(ctx context.Context, target interface{}) error
	// Release runs the PreDestroy hook of a previously injected object
	Release(ctx context.Context, target interface{}) error
}
