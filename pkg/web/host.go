package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/01fortes/goboot-web/pkg/web"

// Host deploys applications and routes requests to them by path prefix.
// An application that fails to start is kept out of routing; the others
// keep serving.
type Host struct {
	logger *slog.Logger
	tracer trace.Tracer

	mu        sync.RWMutex
	contexts  []*Context
	listeners []LifecycleListener
	router    chi.Router
}

// NewHost creates an empty host
func NewHost(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		logger: logger,
		tracer: otel.Tracer(tracerName),
		router: chi.NewRouter(),
	}
}

// AddLifecycleListener registers a listener on every application deployed afterwards
func (h *Host) AddLifecycleListener(listener LifecycleListener) {
	if listener == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, listener)
}

// Deploy starts app and mounts it on its path
func (h *Host) Deploy(ctx context.Context, app *Context) error {
	if app == nil {
		return InvalidArgumentError("application cannot be nil")
	}

	h.mu.Lock()
	for _, existing := range h.contexts {
		if existing.Name() == app.Name() {
			h.mu.Unlock()
			return ConfigError(fmt.Sprintf("application '%s' already deployed", app.Name()), nil)
		}
		if existing.Path() == app.Path() && existing.State() == StateStarted {
			h.mu.Unlock()
			return ConfigError(fmt.Sprintf("path '%s' already served by '%s'", app.Path(), existing.Name()), nil)
		}
	}
	listeners := make([]LifecycleListener, len(h.listeners))
	copy(listeners, h.listeners)
	h.contexts = append(h.contexts, app)
	h.mu.Unlock()

	for _, listener := range listeners {
		app.AddLifecycleListener(listener)
	}

	ctx, span := h.tracer.Start(ctx, "web.Host.Deploy", trace.WithAttributes(
		attribute.String("web.context", app.Name()),
		attribute.String("web.path", app.Path()),
	))
	defer span.End()

	start := time.Now()
	if err := app.Start(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.logger.Error("Failed to deploy application",
			"name", app.Name(),
			"path", app.Path(),
			"error", err)
		if releaseErr := app.Stop(ctx); releaseErr != nil {
			h.logger.Warn("Failed to release application", "name", app.Name(), "error", releaseErr)
		}
		return err
	}

	h.rebuildRouter()
	h.logger.Info("Deployed application",
		"name", app.Name(),
		"path", app.Path(),
		"time_ms", time.Since(start).Milliseconds())
	return nil
}

// DeployAll deploys every application, continuing past failures
func (h *Host) DeployAll(ctx context.Context, apps ...*Context) error {
	var errs []error
	for _, app := range apps {
		errs = append(errs, h.Deploy(ctx, app))
	}
	return errors.Join(errs...)
}

// Undeploy stops the named application and removes it from the host
func (h *Host) Undeploy(ctx context.Context, name string) error {
	h.mu.Lock()
	var app *Context
	for i, existing := range h.contexts {
		if existing.Name() == name {
			app = existing
			h.contexts = append(h.contexts[:i], h.contexts[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	if app == nil {
		return nil
	}
	h.rebuildRouter()
	return app.Stop(ctx)
}

// Context returns the deployed application with the given name
func (h *Host) Context(name string) (*Context, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, app := range h.contexts {
		if app.Name() == name {
			return app, true
		}
	}
	return nil, false
}

// Contexts returns the deployed applications in deployment order, failed ones included
func (h *Host) Contexts() []*Context {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Context, len(h.contexts))
	copy(result, h.contexts)
	return result
}

func (h *Host) rebuildRouter() {
	router := chi.NewRouter()
	for _, app := range h.Contexts() {
		if app.State() == StateStarted {
			router.Mount(app.Path(), app)
		}
	}

	h.mu.Lock()
	h.router = router
	h.mu.Unlock()
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	router := h.router
	h.mu.RUnlock()
	router.ServeHTTP(w, r)
}

// Stop stops every started application in reverse deployment order
func (h *Host) Stop(ctx context.Context) error {
	contexts := h.Contexts()

	var errs []error
	for i := len(contexts) - 1; i >= 0; i-- {
		if err := contexts[i].Stop(ctx); err != nil {
			h.logger.Error("Failed to stop application", "name", contexts[i].Name(), "error", err)
			errs = append(errs, err)
		}
	}

	h.mu.Lock()
	h.router = chi.NewRouter()
	h.mu.Unlock()
	return errors.Join(errs...)
}
