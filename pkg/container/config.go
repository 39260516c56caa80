package container

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration options for the container
type Config struct {
	// Name identifies the container in logs and metric labels
	Name string
	// EnableMetrics enables component metrics
	EnableMetrics bool
	// Registerer receives the Prometheus collectors (metrics stay in memory if nil)
	Registerer prometheus.Registerer
	// Logger for container operations (uses slog.Default if nil)
	Logger *slog.Logger
	// DefaultVariableLoaders are loaded by default
	DefaultVariableLoaders []VariableLoader
	// DefaultStarters are loaded by default
	DefaultStarters []Starter
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:          "default",
		EnableMetrics: true,
		Logger:        slog.Default(),
		DefaultVariableLoaders: []VariableLoader{
			&EnvVariableLoader{Prefix: "GOBOOT_"},
		},
		DefaultStarters: []Starter{},
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
