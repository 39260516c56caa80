package web

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// InstanceManager creates and destroys the objects a Context manages:
// application listeners and request handlers.
type InstanceManager interface {
	NewInstance(ctx context.Context, name string) (interface{}, error)
	DestroyInstance(ctx context.Context, instance interface{}) error
}

// DefaultInstanceManager builds instances from a Loader and closes
// io.Closer instances on destruction.
type DefaultInstanceManager struct {
	loader *Loader
	logger *slog.Logger
}

func NewDefaultInstanceManager(loader *Loader, logger *slog.Logger) *DefaultInstanceManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultInstanceManager{loader: loader, logger: logger}
}

func (m *DefaultInstanceManager) NewInstance(ctx context.Context, name string) (interface{}, error) {
	instance, err := m.loader.New(name)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Created instance", "name", name, "type", fmt.Sprintf("%T", instance))
	return instance, nil
}

func (m *DefaultInstanceManager) DestroyInstance(ctx context.Context, instance interface{}) error {
	if closer, ok := instance.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
