package starter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01fortes/goboot-web/pkg/container"
)

type poolProperties struct {
	URL     string        `yaml:"url"`
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
	Pool    struct {
		Min int `yaml:"min"`
		Max int `yaml:"max"`
	} `yaml:"pool"`
}

func TestBind(t *testing.T) {
	var props poolProperties
	err := Bind(map[string]string{
		"url":      "postgres://localhost/db",
		"enabled":  "true",
		"timeout":  "1500ms",
		"pool.min": "2",
		"pool.max": "8",
		"unknown":  "ignored",
	}, &props)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/db", props.URL)
	assert.True(t, props.Enabled)
	assert.Equal(t, 1500*time.Millisecond, props.Timeout)
	assert.Equal(t, 2, props.Pool.Min)
	assert.Equal(t, 8, props.Pool.Max)
}

func TestBind_TypeMismatch(t *testing.T) {
	var props poolProperties
	assert.Error(t, Bind(map[string]string{"pool.min": "few"}, &props))
}

type pool struct {
	container.ComponentBase
	props *poolProperties
}

func startContainer(t *testing.T, variables map[string]string, starters ...container.Starter) *container.Container {
	t.Helper()
	cfg := container.DefaultConfig()
	cfg.DefaultVariableLoaders = nil
	cfg.DefaultStarters = starters

	c, err := container.Start(context.Background(), cfg, func(builder container.ContextBuilder) {
		for name, value := range variables {
			builder.RegisterVariable(name, value)
		}
	})
	require.NoError(t, err)
	return c
}

func poolConfigurer(props *poolProperties) *AutoConfigurer {
	return &AutoConfigurer{
		Name:       "pool",
		Prefix:     "datasource.",
		Target:     props,
		OnProperty: &OnProperty{Property: "datasource.enabled", Value: "true"},
		Configure: func(builder container.ContextBuilder, properties interface{}) error {
			return builder.RegisterComponent(&pool{
				ComponentBase: container.NewComponentBase("pool"),
				props:         properties.(*poolProperties),
			})
		},
	}
}

func TestAutoConfigurer_BindsAndRegisters(t *testing.T) {
	props := &poolProperties{}
	c := startContainer(t, map[string]string{
		"datasource.enabled":  "true",
		"datasource.url":      "postgres://db",
		"datasource.pool.max": "4",
		"other.value":         "x",
	}, poolConfigurer(props).Starter())

	assert.True(t, c.HasComponent("pool"))
	assert.Equal(t, "postgres://db", props.URL)
	assert.Equal(t, 4, props.Pool.Max)
}

func TestAutoConfigurer_Conditions(t *testing.T) {
	c := startContainer(t, map[string]string{"datasource.enabled": "false"}, poolConfigurer(&poolProperties{}).Starter())
	assert.False(t, c.HasComponent("pool"))

	tests := []struct {
		name string
		cond OnProperty
		vars map[string]string
		want bool
	}{
		{"any value", OnProperty{Property: "a"}, map[string]string{"a": "x"}, true},
		{"any value absent", OnProperty{Property: "a"}, nil, false},
		{"missing", OnProperty{Property: "a", Missing: true}, nil, true},
		{"missing but present", OnProperty{Property: "a", Missing: true}, map[string]string{"a": "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := tt.cond
			registered := false
			ac := &AutoConfigurer{
				Name:       "sample",
				OnProperty: &cond,
				Configure: func(container.ContextBuilder, interface{}) error {
					registered = true
					return nil
				},
			}
			startContainer(t, tt.vars, ac.Starter())
			assert.Equal(t, tt.want, registered)
		})
	}
}

func TestMasked(t *testing.T) {
	m := masked(map[string]string{"password": "p", "api.key": "k", "public.key": "pk", "url": "u"})
	assert.Equal(t, "******", m["password"])
	assert.Equal(t, "******", m["api.key"])
	assert.Equal(t, "pk", m["public.key"])
	assert.Equal(t, "u", m["url"])
}
