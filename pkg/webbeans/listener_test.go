package webbeans

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01fortes/goboot-web/pkg/web"
)

type noopListener struct{}

func (noopListener) ContextInitialized(context.Context, *web.Context) error { return nil }

func newApp(t *testing.T, marker string, listeners ...string) *web.Context {
	t.Helper()
	fs := afero.NewMemMapFs()
	if marker != "" {
		require.NoError(t, afero.WriteFile(fs, marker, []byte("<beans/>"), 0o644))
	}
	loader := web.NewLoader(nil)
	for _, name := range []string{"L1", "L2"} {
		require.NoError(t, loader.Register(name, func() interface{} { return &noopListener{} }))
	}

	app, err := web.NewContext(web.ContextConfig{
		Name:      "shop",
		Path:      "/shop",
		DocBase:   fs,
		Loader:    loader,
		Listeners: listeners,
	})
	require.NoError(t, err)
	return app
}

func newListener(settings *Settings) *LifecycleListener {
	return NewLifecycleListener(&Config{Settings: settings})
}

func configureStart(app *web.Context) web.LifecycleEvent {
	return web.LifecycleEvent{Source: app, Type: web.ConfigureStartEvent}
}

func pipelineStart(app *web.Context) web.LifecycleEvent {
	return web.LifecycleEvent{Source: app.Pipeline(), Type: web.StartEvent}
}

func countValves(p *web.Pipeline, id string) int {
	n := 0
	for _, v := range p.Valves() {
		if web.HasID(v, id) {
			n++
		}
	}
	return n
}

func countListeners(p *web.Pipeline, id string) int {
	n := 0
	for _, l := range p.FindLifecycleListeners() {
		if web.HasID(l, id) {
			n++
		}
	}
	return n
}

func TestLifecycleListener_PrependsBootstrapListener(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml", "L1", "L2")
	settings := &Settings{}

	require.NoError(t, newListener(settings).LifecycleEvent(configureStart(app)))

	assert.Equal(t, []string{BootstrapListenerName, "L1", "L2"}, app.FindApplicationListeners())
	assert.True(t, app.Loader().Has(BootstrapListenerName))
	assert.True(t, settings.TemplateIntegrationEnabled())
	assert.Equal(t, 1, countValves(app.Pipeline(), SecurityValveID))
	assert.Equal(t, 1, countListeners(app.Pipeline(), ListenerID))
}

func TestLifecycleListener_RepeatedConfigureStartConverges(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml", "L1", "L2")
	listener := newListener(&Settings{})

	for i := 0; i < 3; i++ {
		require.NoError(t, listener.LifecycleEvent(configureStart(app)))
	}

	assert.Equal(t, []string{BootstrapListenerName, "L1", "L2"}, app.FindApplicationListeners())
	assert.Equal(t, 1, countValves(app.Pipeline(), SecurityValveID))
	assert.Equal(t, 1, countListeners(app.Pipeline(), ListenerID))
}

func TestLifecycleListener_MovesMisplacedBootstrapListenerFirst(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml", "L1", BootstrapListenerName, "L2")

	require.NoError(t, newListener(&Settings{}).LifecycleEvent(configureStart(app)))
	assert.Equal(t, []string{BootstrapListenerName, "L1", "L2"}, app.FindApplicationListeners())
}

func TestLifecycleListener_SecondMarkerPath(t *testing.T) {
	app := newApp(t, "/WEB-INF/classes/META-INF/beans.xml")

	require.NoError(t, newListener(&Settings{}).LifecycleEvent(configureStart(app)))
	assert.Equal(t, []string{BootstrapListenerName}, app.FindApplicationListeners())
}

func TestLifecycleListener_ExistingSecurityValveKept(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml")
	existing := NewSecurityValve(app.Attributes(), nil)
	require.NoError(t, app.Pipeline().AddValve(existing))

	require.NoError(t, newListener(&Settings{}).LifecycleEvent(configureStart(app)))

	valves := app.Pipeline().Valves()
	require.Len(t, valves, 1)
	assert.Same(t, existing, valves[0])
}

func TestLifecycleListener_NoMarkerNoChanges(t *testing.T) {
	app := newApp(t, "", "L1", "L2")
	settings := &Settings{}

	require.NoError(t, newListener(settings).LifecycleEvent(configureStart(app)))

	assert.Equal(t, []string{"L1", "L2"}, app.FindApplicationListeners())
	assert.Empty(t, app.Pipeline().Valves())
	assert.Empty(t, app.Pipeline().FindLifecycleListeners())
	assert.False(t, app.Loader().Has(BootstrapListenerName))
	assert.False(t, settings.TemplateIntegrationEnabled())
}

func TestLifecycleListener_WrapsInstanceManagerOnce(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml")
	listener := newListener(&Settings{})
	assert.Nil(t, app.InstanceManager())

	require.NoError(t, listener.LifecycleEvent(pipelineStart(app)))

	wrapped, ok := app.InstanceManager().(*InstanceManager)
	require.True(t, ok)
	assert.IsType(t, &web.DefaultInstanceManager{}, wrapped.Delegate())

	published, ok := app.Attributes().Get(InstanceManagerAttribute)
	require.True(t, ok)
	assert.Same(t, wrapped, published)

	for i := 0; i < 3; i++ {
		require.NoError(t, listener.LifecycleEvent(pipelineStart(app)))
	}
	assert.Same(t, wrapped, app.InstanceManager())
	assert.IsType(t, &web.DefaultInstanceManager{}, app.InstanceManager().(*InstanceManager).Delegate())
}

func TestLifecycleListener_WrapsExistingInstanceManager(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml")
	native := app.CreateInstanceManager()
	require.NoError(t, app.SetInstanceManager(native))

	require.NoError(t, newListener(&Settings{}).LifecycleEvent(pipelineStart(app)))

	wrapped := app.InstanceManager().(*InstanceManager)
	assert.Same(t, native, wrapped.Delegate())
}

func TestLifecycleListener_PipelineWithoutContextIgnored(t *testing.T) {
	pipeline := web.NewPipeline("not a context")
	event := web.LifecycleEvent{Source: pipeline, Type: web.StartEvent}

	assert.NoError(t, newListener(&Settings{}).LifecycleEvent(event))
}

func TestLifecycleListener_OtherEventsIgnored(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml", "L1")
	listener := newListener(&Settings{})

	for _, eventType := range []string{web.BeforeInitEvent, web.AfterStartEvent, web.StartEvent, web.ConfigureStopEvent} {
		require.NoError(t, listener.LifecycleEvent(web.LifecycleEvent{Source: app, Type: eventType}))
	}
	require.NoError(t, listener.LifecycleEvent(web.LifecycleEvent{Source: app.Pipeline(), Type: web.BeforeStartEvent}))
	require.NoError(t, listener.LifecycleEvent(web.LifecycleEvent{Source: "unknown", Type: web.ConfigureStartEvent}))

	assert.Equal(t, []string{"L1"}, app.FindApplicationListeners())
	assert.Nil(t, app.InstanceManager())
}

func TestLifecycleListener_MarkerLookupFailure(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml")
	listener := NewLifecycleListener(&Config{Settings: &Settings{}, MarkerPaths: []string{"WEB-INF/beans.xml"}})

	err := listener.LifecycleEvent(configureStart(app))

	var lifecycleErr *LifecycleError
	require.ErrorAs(t, err, &lifecycleErr)
	assert.Equal(t, CodeMarkerLookup, lifecycleErr.Code)
	assert.Equal(t, web.ConfigureStartEvent, lifecycleErr.EventType)
	assert.Equal(t, "shop", lifecycleErr.Context)
	assert.True(t, errors.Is(err, web.MalformedPathError("")))
}

func TestLifecycleListener_RejectedMutationsSurface(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml", "L1")
	require.NoError(t, app.Start(context.Background()))
	listener := newListener(&Settings{})

	err := listener.LifecycleEvent(configureStart(app))
	assert.True(t, errors.Is(err, &LifecycleError{Code: CodeListenerRegistration}))
	assert.True(t, errors.Is(err, web.IllegalStateError("", "")))

	err = listener.LifecycleEvent(pipelineStart(app))
	assert.True(t, errors.Is(err, &LifecycleError{Code: CodeInstanceManagerWrap}))
}

func TestLifecycleListener_AbortsContextStartup(t *testing.T) {
	app := newApp(t, "/WEB-INF/beans.xml")
	app.AddLifecycleListener(NewLifecycleListener(&Config{Settings: &Settings{}, MarkerPaths: []string{"bad"}}))

	err := app.Start(context.Background())
	assert.True(t, errors.Is(err, &LifecycleError{Code: CodeMarkerLookup}))
	assert.Equal(t, web.StateFailed, app.State())
}

func TestLifecycleListener_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	listener := NewLifecycleListener(&Config{Settings: &Settings{}, Metrics: metrics})

	marked := newApp(t, "/WEB-INF/beans.xml")
	require.NoError(t, listener.LifecycleEvent(configureStart(marked)))
	require.NoError(t, listener.LifecycleEvent(configureStart(newApp(t, ""))))
	require.NoError(t, listener.LifecycleEvent(pipelineStart(marked)))
	require.NoError(t, listener.LifecycleEvent(pipelineStart(marked)))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues(web.ConfigureStartEvent, "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues(web.ConfigureStartEvent, "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues(web.StartEvent, "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsTotal.WithLabelValues(web.StartEvent, "skipped")))
}

func TestSecurityValve_PassesThroughWithoutContainer(t *testing.T) {
	valve := NewSecurityValve(web.NewAttributes(), nil)
	var called bool
	h := valve.Invoke(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := Principal(r.Context())
		assert.False(t, ok)
	}))

	h.ServeHTTP(nil, &http.Request{Header: http.Header{}})
	assert.True(t, called)
}

func TestNewLifecycleListener_LeavesConfigUntouched(t *testing.T) {
	paths := []string{"/WEB-INF/beans.xml"}
	config := &Config{MarkerPaths: paths}
	listener := NewLifecycleListener(config)

	assert.Nil(t, config.Logger)
	assert.Nil(t, config.Settings)
	assert.Same(t, Global(), listener.config.Settings)

	paths[0] = "/other.xml"
	assert.Equal(t, []string{"/WEB-INF/beans.xml"}, listener.config.MarkerPaths)

	NewLifecycleListener(&Config{}).config.MarkerPaths[0] = "/changed.xml"
	assert.Equal(t, "/WEB-INF/beans.xml", DefaultMarkerPaths()[0])
}

func TestFindMarker(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/WEB-INF/classes/META-INF/beans.xml", []byte("<beans/>"), 0o644))
	resources := web.NewResources("shop", fs)

	marker, err := FindMarker(resources, DefaultMarkerPaths())
	require.NoError(t, err)
	assert.Equal(t, "/WEB-INF/classes/META-INF/beans.xml", marker)

	marker, err = FindMarker(resources, []string{"/missing.xml"})
	require.NoError(t, err)
	assert.Empty(t, marker)

	_, err = FindMarker(resources, []string{"no-slash"})
	assert.True(t, errors.Is(err, web.MalformedPathError("")))
}
