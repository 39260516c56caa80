package webbeans

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/01fortes/goboot-web/pkg/web"
)

// ListenerID identifies the lifecycle listener on contexts and pipelines
const ListenerID = "webbeans.ContextLifecycleListener"

var defaultMarkerPaths = []string{
	"/WEB-INF/beans.xml",
	"/WEB-INF/classes/META-INF/beans.xml",
}

// DefaultMarkerPaths returns the resources checked, in order, for the bean
// marker of an application
func DefaultMarkerPaths() []string {
	return slices.Clone(defaultMarkerPaths)
}

// FindMarker returns the first of paths that resolves in resources, "" if none does
func FindMarker(resources *web.Resources, paths []string) (string, error) {
	for _, path := range paths {
		u, err := resources.Resource(path)
		if err != nil {
			return "", err
		}
		if u != nil {
			return path, nil
		}
	}
	return "", nil
}

// Config configures the lifecycle listener
type Config struct {
	// Logger (uses slog.Default if nil)
	Logger *slog.Logger
	// MarkerPaths are the resources whose presence opts an application in
	MarkerPaths []string
	// Settings receives the template integration switch (Global if nil)
	Settings *Settings
	// Metrics records event handling (disabled if nil)
	Metrics *Metrics
	// Registerer is handed to application containers for their metrics
	Registerer prometheus.Registerer
	// EnvPrefix selects the environment variables loaded into application containers
	EnvPrefix string
}

// DefaultConfig returns the default listener configuration
func DefaultConfig() *Config {
	return &Config{
		Logger:      slog.Default(),
		MarkerPaths: DefaultMarkerPaths(),
		Settings:    Global(),
		EnvPrefix:   "GOBOOT_",
	}
}

// LifecycleListener integrates the container with applications that carry
// a bean marker. On configure_start it puts the bootstrap listener first,
// adds the security valve and subscribes to the application pipeline; on
// the pipeline start event it wraps the instance manager. Every step checks
// for its own earlier effect, so repeated events change nothing.
type LifecycleListener struct {
	config  *Config
	logger  *slog.Logger
	metrics *Metrics
}

// NewLifecycleListener copies config, filling unset fields with defaults
func NewLifecycleListener(config *Config) *LifecycleListener {
	cfg := DefaultConfig()
	if config != nil {
		cfg = &Config{
			Logger:      config.Logger,
			MarkerPaths: slices.Clone(config.MarkerPaths),
			Settings:    config.Settings,
			Metrics:     config.Metrics,
			Registerer:  config.Registerer,
			EnvPrefix:   config.EnvPrefix,
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Settings == nil {
		cfg.Settings = Global()
	}
	if cfg.MarkerPaths == nil {
		cfg.MarkerPaths = DefaultMarkerPaths()
	}
	return &LifecycleListener{
		config:  cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

func (l *LifecycleListener) ID() string {
	return ListenerID
}

// LifecycleEvent handles configure_start from a context and start from a
// context's pipeline. Everything else is ignored.
func (l *LifecycleListener) LifecycleEvent(event web.LifecycleEvent) error {
	switch source := event.Source.(type) {
	case *web.Context:
		if event.Type == web.ConfigureStartEvent {
			return l.observe(event.Type, source, func() (bool, error) {
				return l.configureStart(source)
			})
		}
	case *web.Pipeline:
		if event.Type == web.StartEvent {
			if app, ok := source.Container().(*web.Context); ok {
				return l.observe(event.Type, app, func() (bool, error) {
					return l.wrapInstanceManager(app)
				})
			}
		}
	}
	return nil
}

func (l *LifecycleListener) observe(eventType string, app *web.Context, handle func() (bool, error)) error {
	start := time.Now()
	applied, err := handle()

	result := "skipped"
	switch {
	case err != nil:
		result = "failed"
	case applied:
		result = "applied"
	}
	l.metrics.ObserveEvent(eventType, result, time.Since(start))

	if err != nil {
		l.logger.Error("Failed to handle lifecycle event",
			"event", eventType,
			"context", app.Name(),
			"error", err)
		return err
	}
	l.logger.Debug("Handled lifecycle event",
		"event", eventType,
		"context", app.Name(),
		"result", result,
		"time_ms", time.Since(start).Milliseconds())
	return nil
}

func (l *LifecycleListener) configureStart(app *web.Context) (bool, error) {
	marker, err := l.findMarker(app)
	if err != nil {
		return false, lifecycleError(CodeMarkerLookup, web.ConfigureStartEvent, app.Name(), err)
	}
	if marker == "" {
		l.logger.Debug("No bean marker, application not integrated", "context", app.Name())
		return false, nil
	}
	l.logger.Info("Integrating application", "context", app.Name(), "marker", marker)

	l.config.Settings.EnableTemplateIntegration()

	if err := l.registerBootstrapListener(app); err != nil {
		return false, lifecycleError(CodeListenerRegistration, web.ConfigureStartEvent, app.Name(), err)
	}
	if err := l.addSecurityValve(app); err != nil {
		return false, lifecycleError(CodeValveInsertion, web.ConfigureStartEvent, app.Name(), err)
	}
	if err := l.subscribePipeline(app); err != nil {
		return false, lifecycleError(CodePipelineRegistration, web.ConfigureStartEvent, app.Name(), err)
	}
	return true, nil
}

func (l *LifecycleListener) findMarker(app *web.Context) (string, error) {
	return FindMarker(app.Resources(), l.config.MarkerPaths)
}

// registerBootstrapListener makes the bootstrap listener the first
// application listener, keeping the others in their order.
func (l *LifecycleListener) registerBootstrapListener(app *web.Context) error {
	if !app.Loader().Has(BootstrapListenerName) {
		err := app.Loader().Register(BootstrapListenerName, func() interface{} {
			return newBootstrapListener(l.config)
		})
		if err != nil {
			return err
		}
	}

	existing := app.FindApplicationListeners()
	ordered := make([]string, 0, len(existing)+1)
	ordered = append(ordered, BootstrapListenerName)
	for _, name := range existing {
		if name != BootstrapListenerName {
			ordered = append(ordered, name)
		}
	}
	if slices.Equal(existing, ordered) {
		return nil
	}

	for _, name := range existing {
		if err := app.RemoveApplicationListener(name); err != nil {
			return err
		}
	}
	for _, name := range ordered {
		if err := app.AddApplicationListener(name); err != nil {
			return err
		}
	}
	return nil
}

func (l *LifecycleListener) addSecurityValve(app *web.Context) error {
	pipeline := app.Pipeline()
	for _, valve := range pipeline.Valves() {
		if web.HasID(valve, SecurityValveID) {
			return nil
		}
	}
	return pipeline.AddValve(NewSecurityValve(app.Attributes(), app.Logger()))
}

// subscribePipeline registers the listener on the pipeline so it sees the
// pipeline start event, once the loader and resources are in place.
func (l *LifecycleListener) subscribePipeline(app *web.Context) error {
	var pipeline interface{} = app.Pipeline()
	lifecycle, ok := pipeline.(web.Lifecycle)
	if !ok {
		l.logger.Warn("Pipeline does not accept lifecycle listeners", "context", app.Name())
		return nil
	}
	for _, listener := range lifecycle.FindLifecycleListeners() {
		if web.HasID(listener, ListenerID) {
			return nil
		}
	}
	lifecycle.AddLifecycleListener(l)
	return nil
}

// wrapInstanceManager installs the injecting instance manager over the
// current one, creating the default manager first if none is set.
func (l *LifecycleListener) wrapInstanceManager(app *web.Context) (bool, error) {
	current := app.InstanceManager()
	if web.HasID(current, InstanceManagerID) {
		return false, nil
	}
	if current == nil {
		current = app.CreateInstanceManager()
	}

	decorator := NewInstanceManager(current, app.Attributes(), app.Logger(), l.metrics)
	if err := app.SetInstanceManager(decorator); err != nil {
		return false, lifecycleError(CodeInstanceManagerWrap, web.StartEvent, app.Name(), err)
	}
	app.Attributes().Set(InstanceManagerAttribute, decorator)

	l.logger.Info("Installed injecting instance manager",
		"context", app.Name(),
		"delegate", fmt.Sprintf("%T", current))
	return true, nil
}

var _ web.LifecycleListener = (*LifecycleListener)(nil)
