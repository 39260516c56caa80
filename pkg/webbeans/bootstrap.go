package webbeans

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/01fortes/goboot-web/pkg/container"
	"github.com/01fortes/goboot-web/pkg/web"
)

const (
	// BootstrapListenerName is the application listener that starts the container
	BootstrapListenerName = "webbeans.BootstrapListener"

	// StartersAttribute holds the starters the application ships
	StartersAttribute = "webbeans.Starters"

	// VariablesPath is the application resource holding container variables
	VariablesPath = "/WEB-INF/application.yml"

	contextInitialized = "context_initialized"
)

var startersMu sync.Mutex

// AddStarters registers starters that build the application's container
func AddStarters(app *web.Context, starters ...container.Starter) {
	startersMu.Lock()
	defer startersMu.Unlock()

	existing, _ := app.Attributes().Get(StartersAttribute)
	list, _ := existing.([]container.Starter)
	list = append(append([]container.Starter(nil), list...), starters...)
	app.Attributes().Set(StartersAttribute, list)
}

func startersOf(app *web.Context) []container.Starter {
	startersMu.Lock()
	defer startersMu.Unlock()

	value, _ := app.Attributes().Get(StartersAttribute)
	list, _ := value.([]container.Starter)
	return append([]container.Starter(nil), list...)
}

// BootstrapListener starts the application container before any other
// application listener runs and publishes it under ContainerAttribute.
type BootstrapListener struct {
	registerer prometheus.Registerer
	envPrefix  string
	logger     *slog.Logger

	container *container.Container
}

func newBootstrapListener(cfg *Config) *BootstrapListener {
	return &BootstrapListener{
		registerer: cfg.Registerer,
		envPrefix:  cfg.EnvPrefix,
		logger:     cfg.Logger,
	}
}

func (l *BootstrapListener) ID() string {
	return BootstrapListenerName
}

// ContextInitialized builds and starts the container from the application's
// starters and variables
func (l *BootstrapListener) ContextInitialized(ctx context.Context, app *web.Context) error {
	logger := app.Logger()
	starters := startersOf(app)

	cfg := &container.Config{
		Name:          app.Name(),
		EnableMetrics: true,
		Registerer:    l.registerer,
		Logger:        logger,
		DefaultVariableLoaders: []container.VariableLoader{
			container.YamlVariableLoader{Fs: app.Resources().Fs(), Path: VariablesPath, Logger: logger},
			container.EnvVariableLoader{Prefix: l.envPrefix},
		},
		DefaultStarters: starters,
	}

	c, err := container.Start(ctx, cfg, nil)
	if err != nil {
		return lifecycleError(CodeBootstrap, contextInitialized, app.Name(), err)
	}

	l.container = c
	app.Attributes().Set(ContainerAttribute, c)
	logger.Info("Application container started",
		"starters", len(starters),
		"components", len(c.GetComponentNames()))
	return nil
}

// ContextDestroyed stops the container and withdraws it from the application
func (l *BootstrapListener) ContextDestroyed(ctx context.Context, app *web.Context) {
	if l.container == nil {
		return
	}
	app.Attributes().Remove(ContainerAttribute)
	l.container.Stop(ctx)
	l.container = nil
}

// Container returns the container started by this listener
func (l *BootstrapListener) Container() *container.Container {
	return l.container
}

// ContainerOf returns the container published for app
func ContainerOf(app *web.Context) (*container.Container, bool) {
	value, ok := app.Attributes().Get(ContainerAttribute)
	if !ok {
		return nil, false
	}
	c, ok := value.(*container.Container)
	return c, ok
}

var (
	_ web.ApplicationListener        = (*BootstrapListener)(nil)
	_ web.ApplicationDestroyListener = (*BootstrapListener)(nil)
)
