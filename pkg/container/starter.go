package container

// Starter registers components and variables while the container boots.
// A web application ships its components as starters.
type Starter interface {
	Name() string
	Start(builder ContextBuilder) error
}

// ConditionalStarter is only applied when ShouldStart holds. The condition
// sees variables and the components registered by earlier starters.
type ConditionalStarter interface {
	Starter
	ShouldStart(ctx ApplicationContext) bool
}

// Condition decides whether a conditional starter applies
type Condition func(ApplicationContext) bool

type starterFunc struct {
	name string
	fn   func(ContextBuilder) error
}

func (s *starterFunc) Name() string {
	return s.name
}

func (s *starterFunc) Start(builder ContextBuilder) error {
	return s.fn(builder)
}

// NewStarter creates a starter that runs fn
func NewStarter(name string, fn func(ContextBuilder) error) Starter {
	return &starterFunc{name: name, fn: fn}
}

// ComponentsStarter returns a starter that registers the given components
func ComponentsStarter(name string, components ...Component) Starter {
	return FactoryStarter(name, ComponentFactory{Components: components})
}

type conditionalStarter struct {
	starterFunc
	condition Condition
}

func (s *conditionalStarter) ShouldStart(ctx ApplicationContext) bool {
	return s.condition == nil || s.condition(ctx)
}

// NewConditionalStarter creates a starter that runs fn when condition holds.
// A nil condition always holds.
func NewConditionalStarter(name string, condition Condition, fn func(ContextBuilder) error) ConditionalStarter {
	return &conditionalStarter{
		starterFunc: starterFunc{name: name, fn: fn},
		condition:   condition,
	}
}

// PropertyCondition holds when the variable equals value
func PropertyCondition(property, value string) Condition {
	return func(ctx ApplicationContext) bool {
		return ctx.GetVariable(property) == value
	}
}

// PropertyExistsCondition holds when the variable is set and not empty
func PropertyExistsCondition(property string) Condition {
	return func(ctx ApplicationContext) bool {
		return ctx.GetVariable(property) != ""
	}
}

// ComponentExistsCondition holds when a component with name is registered
func ComponentExistsCondition(name string) Condition {
	return func(ctx ApplicationContext) bool {
		return ctx.HasComponent(name)
	}
}

// Not negates condition
func Not(condition Condition) Condition {
	return func(ctx ApplicationContext) bool {
		return !condition(ctx)
	}
}

// AllOf holds when every condition holds
func AllOf(conditions ...Condition) Condition {
	return func(ctx ApplicationContext) bool {
		for _, condition := range conditions {
			if !condition(ctx) {
				return false
			}
		}
		return true
	}
}
