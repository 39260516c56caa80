package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []string
}

type recordingListener struct {
	name     string
	recorder *recorder
	fail     bool
	closed   bool
}

func (l *recordingListener) ContextInitialized(ctx context.Context, app *Context) error {
	l.recorder.events = append(l.recorder.events, "init:"+l.name)
	if l.fail {
		return errors.New("listener failed")
	}
	return nil
}

func (l *recordingListener) ContextDestroyed(ctx context.Context, app *Context) {
	l.recorder.events = append(l.recorder.events, "destroy:"+l.name)
}

func (l *recordingListener) Close() error {
	l.closed = true
	return nil
}

type helloHandler struct{}

func (helloHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("hello " + chi.URLParam(r, "name")))
}

func newTestContext(t *testing.T, rec *recorder, listeners ...string) *Context {
	t.Helper()
	loader := NewLoader(nil)
	for _, name := range []string{"L1", "L2"} {
		name := name
		require.NoError(t, loader.Register(name, func() interface{} {
			return &recordingListener{name: name, recorder: rec}
		}))
	}
	require.NoError(t, loader.Register("failing", func() interface{} {
		return &recordingListener{name: "failing", recorder: rec, fail: true}
	}))
	require.NoError(t, loader.Register("hello", func() interface{} { return helloHandler{} }))
	require.NoError(t, loader.Register("notAListener", func() interface{} { return &struct{}{} }))

	app, err := NewContext(ContextConfig{
		Name:      "shop",
		Path:      "/shop",
		Loader:    loader,
		Listeners: listeners,
		Handlers:  map[string]string{"/hello/{name}": "hello"},
	})
	require.NoError(t, err)
	return app
}

func TestContext_ListenerRegistration(t *testing.T) {
	app := newTestContext(t, &recorder{}, "L1")

	require.NoError(t, app.AddApplicationListener("L2"))
	assert.Equal(t, []string{"L1", "L2"}, app.FindApplicationListeners())

	err := app.AddApplicationListener("L1")
	assert.True(t, errors.Is(err, DuplicateListenerError("")))
	assert.Error(t, app.AddApplicationListener(""))

	require.NoError(t, app.RemoveApplicationListener("L1"))
	require.NoError(t, app.RemoveApplicationListener("unknown"))
	assert.Equal(t, []string{"L2"}, app.FindApplicationListeners())

	listeners := app.FindApplicationListeners()
	listeners[0] = "mutated"
	assert.Equal(t, []string{"L2"}, app.FindApplicationListeners())
}

func TestContext_StartRunsSequence(t *testing.T) {
	rec := &recorder{}
	app := newTestContext(t, rec, "L1", "L2")

	var events []string
	app.AddLifecycleListener(LifecycleListenerFunc(func(event LifecycleEvent) error {
		events = append(events, event.Type)
		return nil
	}))
	app.Pipeline().AddLifecycleListener(LifecycleListenerFunc(func(event LifecycleEvent) error {
		events = append(events, "pipeline:"+event.Type)
		return nil
	}))

	assert.Nil(t, app.InstanceManager())
	require.NoError(t, app.Start(context.Background()))

	assert.Equal(t, StateStarted, app.State())
	assert.Equal(t, []string{
		BeforeInitEvent, AfterInitEvent, ConfigureStartEvent, BeforeStartEvent,
		"pipeline:" + BeforeStartEvent, "pipeline:" + StartEvent, "pipeline:" + AfterStartEvent,
		StartEvent, AfterStartEvent,
	}, events)
	assert.Equal(t, []string{"init:L1", "init:L2"}, rec.events)
	assert.IsType(t, &DefaultInstanceManager{}, app.InstanceManager())

	err := app.AddApplicationListener("L3")
	assert.True(t, errors.Is(err, IllegalStateError("", "")))
	assert.True(t, errors.Is(app.Start(context.Background()), IllegalStateError("", "")))
}

func TestContext_ServesHandlersThroughPipeline(t *testing.T) {
	app := newTestContext(t, &recorder{})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello/bob", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var valved bool
	require.NoError(t, app.Pipeline().AddValve(ValveFunc(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			valved = true
			next.ServeHTTP(w, r)
		})
	})))
	require.NoError(t, app.Start(context.Background()))

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello/bob", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello bob", rec.Body.String())
	assert.True(t, valved)
}

func TestContext_ListenerFailureFailsStartup(t *testing.T) {
	rec := &recorder{}
	app := newTestContext(t, rec, "L1", "failing", "L2")

	err := app.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, StartupError("", nil)))
	assert.Contains(t, err.Error(), "listener failed")
	assert.Equal(t, StateFailed, app.State())
	assert.Equal(t, []string{"init:L1", "init:failing"}, rec.events)
}

func TestContext_UnknownOrWrongListenerType(t *testing.T) {
	app := newTestContext(t, &recorder{}, "missing")
	err := app.Start(context.Background())
	assert.True(t, errors.Is(err, TypeNotFoundError("")))

	app = newTestContext(t, &recorder{}, "notAListener")
	err = app.Start(context.Background())
	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	assert.True(t, errors.Is(err, ListenerTypeError("", nil)))
}

func TestContext_LifecycleListenerErrorFailsStartup(t *testing.T) {
	app := newTestContext(t, &recorder{}, "L1")
	app.AddLifecycleListener(LifecycleListenerFunc(func(event LifecycleEvent) error {
		if event.Type == ConfigureStartEvent {
			return errors.New("configure failed")
		}
		return nil
	}))

	err := app.Start(context.Background())
	assert.ErrorContains(t, err, "configure failed")
	assert.Equal(t, StateFailed, app.State())
	assert.False(t, app.Pipeline().Started())
}

func TestContext_StopDestroysInReverse(t *testing.T) {
	rec := &recorder{}
	app := newTestContext(t, rec, "L1", "L2")
	require.NoError(t, app.Start(context.Background()))

	listeners := append([]interface{}(nil), app.liveListeners...)
	require.NoError(t, app.Stop(context.Background()))

	assert.Equal(t, StateStopped, app.State())
	assert.Equal(t, []string{"init:L1", "init:L2", "destroy:L2", "destroy:L1"}, rec.events)
	for _, l := range listeners {
		assert.True(t, l.(*recordingListener).closed)
	}
	assert.False(t, app.Pipeline().Started())

	require.NoError(t, app.Stop(context.Background()))
}

func TestContext_SetInstanceManager(t *testing.T) {
	app := newTestContext(t, &recorder{})
	assert.Error(t, app.SetInstanceManager(nil))

	im := app.CreateInstanceManager()
	assert.Nil(t, app.InstanceManager())
	require.NoError(t, app.SetInstanceManager(im))
	assert.Same(t, im, app.InstanceManager())
}

func TestNewContext_RequiresName(t *testing.T) {
	_, err := NewContext(ContextConfig{})
	assert.Error(t, err)

	app, err := NewContext(ContextConfig{Name: "root"})
	require.NoError(t, err)
	assert.Equal(t, "/", app.Path())
	assert.NotEmpty(t, app.ID())
}

func TestContext_StopReleasesFailedStartup(t *testing.T) {
	rec := &recorder{}
	app := newTestContext(t, rec, "L1", "failing")

	require.Error(t, app.Start(context.Background()))
	rec.events = nil

	require.NoError(t, app.Stop(context.Background()))
	assert.Equal(t, []string{"destroy:failing", "destroy:L1"}, rec.events)
	assert.Equal(t, StateFailed, app.State())

	rec.events = nil
	require.NoError(t, app.Stop(context.Background()))
	assert.Empty(t, rec.events)
}
