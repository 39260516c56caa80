package container

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repository struct {
	ComponentBase
	initCalls int
}

func (r *repository) Init(ApplicationContext) error {
	r.initCalls++
	return nil
}

type service struct {
	ComponentBase
	repo    *repository
	events  *[]string
	started bool
}

func (s *service) Init(ctx ApplicationContext) error {
	return ctx.GetComponent(&s.repo)
}

func (s *service) Start(context.Context) {
	s.started = true
	*s.events = append(*s.events, "start:"+s.Name())
}

func (s *service) Stop(context.Context) {
	*s.events = append(*s.events, "stop:"+s.Name())
}

type failing struct {
	ComponentBase
}

func (f *failing) Init(ApplicationContext) error {
	return errors.New("boom")
}

type conditional struct {
	ComponentBase
	initialized bool
}

func (c *conditional) Init(ApplicationContext) error {
	c.initialized = true
	return nil
}

func (c *conditional) ShouldInitialize(ctx ApplicationContext) bool {
	return ctx.GetVariable("feature.enabled") == "true"
}

type cyclic struct {
	ComponentBase
	other string
}

func (c *cyclic) Init(ctx ApplicationContext) error {
	_, err := ctx.GetComponentByName(c.other)
	return err
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.DefaultVariableLoaders = nil
	return cfg
}

func TestContainer_InitializesInDependencyOrder(t *testing.T) {
	var events []string
	repo := &repository{ComponentBase: NewComponentBase("repo")}
	svc := &service{ComponentBase: NewComponentBase("svc"), events: &events}

	c, err := Start(context.Background(), testConfig(), func(b ContextBuilder) {
		// registered before its dependency on purpose
		require.NoError(t, b.RegisterComponent(svc))
		require.NoError(t, b.RegisterComponent(repo))
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"repo", "svc"}, c.InitOrder())
	assert.Same(t, repo, svc.repo)
	assert.True(t, svc.started)
	assert.Equal(t, StateStarted, c.State())
	// discovery pass plus the real one
	assert.Equal(t, 2, repo.initCalls)

	c.Stop(context.Background())
	assert.Equal(t, []string{"start:svc", "stop:svc"}, events)
	assert.Equal(t, StateStopped, c.State())
}

func TestContainer_StartTwice(t *testing.T) {
	c, err := Start(context.Background(), testConfig(), nil)
	require.NoError(t, err)

	err = c.Start(context.Background())
	var ce *ContainerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "INVALID_STATE", ce.Code)
}

func TestContainer_InitFailure(t *testing.T) {
	c := New(testConfig())
	require.NoError(t, c.RegisterComponent(&failing{ComponentBase: NewComponentBase("bad")}))

	err := c.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, &ContainerError{Code: "COMPONENT_INITIALIZATION_FAILED"}))
	assert.Equal(t, StateFailed, c.State())
}

func TestContainer_CircularDependency(t *testing.T) {
	c := New(testConfig())
	require.NoError(t, c.RegisterComponent(&cyclic{ComponentBase: NewComponentBase("a"), other: "b"}))
	require.NoError(t, c.RegisterComponent(&cyclic{ComponentBase: NewComponentBase("b"), other: "a"}))

	err := c.Start(context.Background())
	var ce *ContainerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "CIRCULAR_DEPENDENCY", ce.Code)
	assert.Contains(t, ce.Message, "b -> a -> b")
}

func TestContainer_MissingDependency(t *testing.T) {
	c := New(testConfig())
	require.NoError(t, c.RegisterComponent(&cyclic{ComponentBase: NewComponentBase("a"), other: "ghost"}))

	err := c.Start(context.Background())
	var ce *ContainerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "COMPONENT_NOT_FOUND", ce.Code)
}

func TestContainer_ConditionalComponent(t *testing.T) {
	off := &conditional{ComponentBase: NewComponentBase("off")}
	c, err := Start(context.Background(), testConfig(), func(b ContextBuilder) {
		require.NoError(t, b.RegisterComponent(off))
	})
	require.NoError(t, err)
	assert.False(t, off.initialized)
	assert.Empty(t, c.InitOrder())

	on := &conditional{ComponentBase: NewComponentBase("on")}
	_, err = Start(context.Background(), testConfig(), func(b ContextBuilder) {
		b.RegisterVariable("feature.enabled", "true")
		require.NoError(t, b.RegisterComponent(on))
	})
	require.NoError(t, err)
	assert.True(t, on.initialized)
}

func TestContainer_Starters(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultStarters = []Starter{
		ComponentsStarter("base", &repository{ComponentBase: NewComponentBase("repo")}),
		NewConditionalStarter("extra",
			PropertyCondition("extra.enabled", "yes"),
			func(b ContextBuilder) error {
				return b.RegisterComponent(&repository{ComponentBase: NewComponentBase("extra")})
			}),
	}

	c, err := Start(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, c.HasComponent("repo"))
	assert.False(t, c.HasComponent("extra"))
}

func TestContainer_StarterFailure(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultStarters = []Starter{
		ComponentsStarter("dup",
			&repository{ComponentBase: NewComponentBase("repo")},
			&repository{ComponentBase: NewComponentBase("repo")}),
	}

	_, err := Start(context.Background(), cfg, nil)
	var ce *ContainerError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "CONFIGURATION_ERROR", ce.Code)
	assert.True(t, errors.Is(err, ComponentAlreadyRegisteredError("repo")))
}

func TestContainer_PrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig()
	cfg.Name = "app"
	cfg.Registerer = reg

	c, err := Start(context.Background(), cfg, func(b ContextBuilder) {
		require.NoError(t, b.RegisterComponent(&repository{ComponentBase: NewComponentBase("repo")}))
	})
	require.NoError(t, err)

	// a second container on the same registry reuses the collectors
	cfg2 := testConfig()
	cfg2.Name = "other"
	cfg2.Registerer = reg
	_, err = Start(context.Background(), cfg2, nil)
	require.NoError(t, err)

	require.NoError(t, c.Inject(context.Background(), &struct{}{}))
	assert.Equal(t, 1, testutil.CollectAndCount(c.metrics.prom.injections))
	assert.Contains(t, c.GetMetrics(), "repo")
}

func TestFactoryStarter(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultStarters = []Starter{
		FactoryStarter("func", FactoryFunc(func(b ContextBuilder) error {
			return b.RegisterComponent(&repository{ComponentBase: NewComponentBase("repo")})
		})),
	}

	c, err := Start(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.True(t, c.HasComponent("repo"))
}

func TestConditions(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultStarters = []Starter{
		ComponentsStarter("base", &repository{ComponentBase: NewComponentBase("repo")}),
		NewStarter("vars", func(b ContextBuilder) error {
			b.RegisterVariable("mode", "fast")
			return nil
		}),
	}
	c, err := Start(context.Background(), cfg, nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		condition Condition
		want      bool
	}{
		{"property", PropertyCondition("mode", "fast"), true},
		{"property mismatch", PropertyCondition("mode", "slow"), false},
		{"exists", PropertyExistsCondition("mode"), true},
		{"missing", PropertyExistsCondition("other"), false},
		{"component", ComponentExistsCondition("repo"), true},
		{"not", Not(ComponentExistsCondition("repo")), false},
		{"all", AllOf(PropertyCondition("mode", "fast"), ComponentExistsCondition("repo")), true},
		{"all fails", AllOf(PropertyCondition("mode", "fast"), ComponentExistsCondition("nope")), false},
		{"empty all", AllOf(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.condition(c))
		})
	}
	assert.True(t, NewConditionalStarter("nil", nil, nil).ShouldStart(c))
}
