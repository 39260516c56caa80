// Package starter builds conditional starters that bind container variables
// into typed property structs.
package starter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/01fortes/goboot-web/pkg/container"
)

// VariableLister is implemented by contexts that can enumerate their variables
type VariableLister interface {
	GetVariableNames() []string
}

// OnProperty matches a variable value. An empty Value matches any non-empty
// value; Missing matches an absent variable.
type OnProperty struct {
	Property string
	Value    string
	Missing  bool
}

func (c OnProperty) matches(ctx container.ApplicationContext) bool {
	value := ctx.GetVariable(c.Property)
	switch {
	case c.Missing:
		return value == ""
	case c.Value != "":
		return value == c.Value
	default:
		return value != ""
	}
}

// AutoConfigurer registers components when its conditions hold, handing
// Configure the variables under Prefix bound into Target.
type AutoConfigurer struct {
	// Name of the starter
	Name string
	// Prefix selects the variables bound into Target ("greeter." binds greeter.*)
	Prefix string
	// Target is a pointer to the properties struct, yaml tags name the fields
	Target interface{}
	// OnProperty restricts the starter to a variable condition
	OnProperty *OnProperty
	// OnComponent requires a component to be registered already
	OnComponent string
	// OnMissingComponent requires a component to be absent
	OnMissingComponent string
	// Configure registers components with the bound properties
	Configure func(builder container.ContextBuilder, properties interface{}) error
	// Logger (uses slog.Default if nil)
	Logger *slog.Logger
}

// Starter returns the conditional starter for the auto-configurer
func (ac *AutoConfigurer) Starter() container.ConditionalStarter {
	return container.NewConditionalStarter(ac.Name, ac.shouldStart, ac.start)
}

func (ac *AutoConfigurer) shouldStart(ctx container.ApplicationContext) bool {
	if ac.OnProperty != nil && !ac.OnProperty.matches(ctx) {
		return false
	}
	if ac.OnComponent != "" && !ctx.HasComponent(ac.OnComponent) {
		return false
	}
	if ac.OnMissingComponent != "" && ctx.HasComponent(ac.OnMissingComponent) {
		return false
	}
	return true
}

func (ac *AutoConfigurer) start(builder container.ContextBuilder) error {
	if ac.Target != nil {
		lister, ok := builder.(VariableLister)
		if !ok {
			return fmt.Errorf("auto-configuration %s: context cannot list variables", ac.Name)
		}
		variables := make(map[string]string)
		for _, name := range lister.GetVariableNames() {
			if strings.HasPrefix(name, ac.Prefix) {
				variables[strings.TrimPrefix(name, ac.Prefix)] = builder.GetVariable(name)
			}
		}
		if err := Bind(variables, ac.Target); err != nil {
			return fmt.Errorf("auto-configuration %s: %w", ac.Name, err)
		}
		ac.logger().Info("Auto-configuration "+ac.Name, "properties", masked(variables))
	}

	if ac.Configure != nil {
		return ac.Configure(builder, ac.Target)
	}
	return nil
}

func (ac *AutoConfigurer) logger() *slog.Logger {
	if ac.Logger == nil {
		return slog.Default()
	}
	return ac.Logger
}

// Bind decodes flat dotted variables into target. Values are resolved like
// plain YAML scalars, so "true" binds to a bool and "5s" to a duration.
func Bind(variables map[string]string, target interface{}) error {
	keys := make([]string, 0, len(variables))
	for key := range variables {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range keys {
		insert(root, strings.Split(key, "."), variables[key])
	}
	return root.Decode(target)
}

func insert(node *yaml.Node, path []string, value string) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != path[0] {
			continue
		}
		child := node.Content[i+1]
		if len(path) > 1 && child.Kind == yaml.MappingNode {
			insert(child, path[1:], value)
		}
		return
	}

	node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: path[0]})
	if len(path) == 1 {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: value})
		return
	}
	child := &yaml.Node{Kind: yaml.MappingNode}
	node.Content = append(node.Content, child)
	insert(child, path[1:], value)
}

// masked copies variables for logging, hiding values of secret-looking keys
func masked(variables map[string]string) map[string]string {
	result := make(map[string]string, len(variables))
	for key, value := range variables {
		if isSensitive(key) {
			value = "******"
		}
		result[key] = value
	}
	return result
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "password") ||
		strings.Contains(lower, "secret") ||
		strings.Contains(lower, "token") ||
		(strings.Contains(lower, "key") && !strings.Contains(lower, "public"))
}
