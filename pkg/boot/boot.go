package boot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"github.com/01fortes/goboot-web/pkg/web"
	"github.com/01fortes/goboot-web/pkg/webbeans"
)

// Options configures an Application
type Options struct {
	// Config is the host configuration (web.DefaultHostConfig if nil)
	Config *web.HostConfig
	// Fs holds the application document bases (the OS filesystem if nil)
	Fs afero.Fs
	// Loader is the parent loader of every application loader
	Loader *web.Loader
	// Configure runs for each application before it is deployed
	Configure func(app *web.Context) error
	// Registry receives the metrics (a fresh registry if nil)
	Registry *prometheus.Registry
	// Logger (uses slog.Default if nil)
	Logger *slog.Logger
}

// Application runs a web host until the process is signalled
type Application struct {
	ctx    context.Context
	cancel context.CancelFunc
	host   *web.Host
	server *http.Server
	config *web.HostConfig
	logger *slog.Logger
}

// New deploys the configured applications. Applications that fail to start
// are logged and left undeployed.
func New(opts Options) (*Application, error) {
	config := opts.Config
	if config == nil {
		config = web.DefaultHostConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	host := web.NewHost(logger)
	host.AddLifecycleListener(webbeans.NewLifecycleListener(&webbeans.Config{
		Logger:     logger,
		Settings:   webbeans.Global(),
		Metrics:    webbeans.NewMetrics(registry),
		Registerer: registry,
		EnvPrefix:  "GOBOOT_",
	}))

	logger.Info("Starting host", "addr", config.Addr, "applications", len(config.Applications))
	for _, appConfig := range config.Applications {
		app, err := appConfig.NewContext(opts.Fs, web.NewLoader(opts.Loader), logger)
		if err != nil {
			cancel()
			return nil, err
		}
		if opts.Configure != nil {
			if err := opts.Configure(app); err != nil {
				cancel()
				return nil, fmt.Errorf("configure %s: %w", app.Name(), err)
			}
		}
		// failures are logged by the host, the remaining applications still deploy
		_ = host.Deploy(ctx, app)
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Mount("/", host)

	return &Application{
		ctx:    ctx,
		cancel: cancel,
		host:   host,
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves requests and blocks until shutdown
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-a.ctx.Done():
	case serveErr = <-errCh:
	}

	return errors.Join(serveErr, a.Shutdown())
}

// Shutdown stops the server and every application
func (a *Application) Shutdown() error {
	timeout := a.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	serverErr := a.server.Shutdown(ctx)
	hostErr := a.host.Stop(ctx)
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.logger.Info("Host stopped")
	return errors.Join(serverErr, hostErr)
}

// Host returns the web host
func (a *Application) Host() *web.Host {
	return a.host
}

// Handler returns the root handler, metrics endpoint included
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}
