package container

// Factory creates components for a starter
type Factory interface {
	// Create registers the components it builds with the container
	Create(ContextBuilder) error
}

// ComponentFactory registers a fixed list of prebuilt components
type ComponentFactory struct {
	Components []Component
}

func (f ComponentFactory) Create(builder ContextBuilder) error {
	for _, component := range f.Components {
		if err := builder.RegisterComponent(component); err != nil {
			return err
		}
	}
	return nil
}

// FactoryFunc adapts a function to Factory
type FactoryFunc func(ContextBuilder) error

func (f FactoryFunc) Create(builder ContextBuilder) error {
	return f(builder)
}

// FactoryStarter returns a starter that runs factory
func FactoryStarter(name string, factory Factory) Starter {
	return NewStarter(name, factory.Create)
}
