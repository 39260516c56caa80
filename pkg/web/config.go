package web

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// HostConfig is the YAML host configuration
type HostConfig struct {
	Addr            string              `yaml:"addr" validate:"required"`
	LogLevel        string              `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	ShutdownTimeout time.Duration       `yaml:"shutdown_timeout"`
	Applications    []ApplicationConfig `yaml:"applications" validate:"dive"`
}

// ApplicationConfig describes one application of the host
type ApplicationConfig struct {
	Name      string            `yaml:"name" validate:"required"`
	Path      string            `yaml:"path" validate:"required,startswith=/"`
	DocBase   string            `yaml:"doc_base" validate:"required"`
	Listeners []string          `yaml:"listeners"`
	Handlers  map[string]string `yaml:"handlers"`
}

// DefaultHostConfig returns a host listening on :8080 with no applications
func DefaultHostConfig() *HostConfig {
	return &HostConfig{
		Addr:            ":8080",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadHostConfig reads and validates a host configuration file
func LoadHostConfig(fs afero.Fs, path string) (*HostConfig, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, ConfigError(fmt.Sprintf("cannot read host config '%s'", path), err)
	}

	config := DefaultHostConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, ConfigError(fmt.Sprintf("cannot parse host config '%s'", path), err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks field constraints and that application names and paths are unique
func (c *HostConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return ConfigError("invalid host config", formatValidationError(err))
	}

	names := make(map[string]bool, len(c.Applications))
	paths := make(map[string]string, len(c.Applications))
	for _, app := range c.Applications {
		if names[app.Name] {
			return ConfigError(fmt.Sprintf("duplicate application name '%s'", app.Name), nil)
		}
		names[app.Name] = true
		if other, ok := paths[app.Path]; ok {
			return ConfigError(fmt.Sprintf("applications '%s' and '%s' share path '%s'", other, app.Name, app.Path), nil)
		}
		paths[app.Path] = app.Name
	}
	return nil
}

// Level maps LogLevel to a slog level
func (c *HostConfig) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewContext builds the application with its document base rooted at DocBase within fs
func (c ApplicationConfig) NewContext(fs afero.Fs, loader *Loader, logger *slog.Logger) (*Context, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return NewContext(ContextConfig{
		Name:      c.Name,
		Path:      c.Path,
		DocBase:   afero.NewBasePathFs(fs, c.DocBase),
		Loader:    loader,
		Listeners: c.Listeners,
		Handlers:  c.Handlers,
		Logger:    logger,
	})
}

func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Namespace()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Namespace(), e.Param()))
		case "startswith":
			messages = append(messages, fmt.Sprintf("%s must start with '%s'", e.Namespace(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed '%s' validation", e.Namespace(), e.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
