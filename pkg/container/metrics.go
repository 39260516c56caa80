package container

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects and manages component metrics
type MetricsCollector interface {
	RecordDependencyCount(componentName string, count int)
	RecordInitDuration(componentName string, duration time.Duration)
	RecordStartDuration(componentName string, duration time.Duration)
	RecordStopDuration(componentName string, duration time.Duration)
	RecordInjection(typeName string)
	GetMetrics() map[string]*ComponentMetrics
}

// ComponentMetrics stores metrics for a component
type ComponentMetrics struct {
	Name            string
	InitDuration    time.Duration
	StartDuration   time.Duration
	StopDuration    time.Duration
	DependencyCount int
}

// promCollectors are shared by every container registered with the same Registerer
type promCollectors struct {
	phaseDuration *prometheus.HistogramVec
	injections    *prometheus.CounterVec
}

func newPromCollectors(reg prometheus.Registerer) *promCollectors {
	pc := &promCollectors{
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goboot_component_phase_duration_seconds",
				Help:    "Duration of component lifecycle phases in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"container", "component", "phase"},
		),
		injections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goboot_injections_total",
				Help: "Total objects injected by the container, by object type",
			},
			[]string{"container", "type"},
		),
	}

	pc.phaseDuration = registerOrExisting(reg, pc.phaseDuration)
	pc.injections = registerOrExisting(reg, pc.injections)
	return pc
}

// registerOrExisting registers c, reusing the collector already registered
// under the same descriptor so several containers can share one registry.
func registerOrExisting[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// defaultMetricsCollector implements MetricsCollector
type defaultMetricsCollector struct {
	container string
	metrics   map[string]*ComponentMetrics
	prom      *promCollectors
	mu        sync.RWMutex
	enabled   bool
}

func newMetricsCollector(container string, enabled bool, reg prometheus.Registerer) *defaultMetricsCollector {
	c := &defaultMetricsCollector{
		container: container,
		metrics:   make(map[string]*ComponentMetrics),
		enabled:   enabled,
	}
	if enabled && reg != nil {
		c.prom = newPromCollectors(reg)
	}
	return c
}

// record must be called with the lock held
func (c *defaultMetricsCollector) record(componentName string) *ComponentMetrics {
	m, exists := c.metrics[componentName]
	if !exists {
		m = &ComponentMetrics{Name: componentName}
		c.metrics[componentName] = m
	}
	return m
}

func (c *defaultMetricsCollector) observe(componentName, phase string, duration time.Duration) {
	if c.prom != nil {
		c.prom.phaseDuration.WithLabelValues(c.container, componentName, phase).Observe(duration.Seconds())
	}
}

func (c *defaultMetricsCollector) RecordDependencyCount(componentName string, count int) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(componentName).DependencyCount = count
}

func (c *defaultMetricsCollector) RecordInitDuration(componentName string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.record(componentName).InitDuration = duration
	c.mu.Unlock()
	c.observe(componentName, "init", duration)
}

func (c *defaultMetricsCollector) RecordStartDuration(componentName string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.record(componentName).StartDuration = duration
	c.mu.Unlock()
	c.observe(componentName, "start", duration)
}

func (c *defaultMetricsCollector) RecordStopDuration(componentName string, duration time.Duration) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	c.record(componentName).StopDuration = duration
	c.mu.Unlock()
	c.observe(componentName, "stop", duration)
}

func (c *defaultMetricsCollector) RecordInjection(typeName string) {
	if !c.enabled || c.prom == nil {
		return
	}
	c.prom.injections.WithLabelValues(c.container, typeName).Inc()
}

func (c *defaultMetricsCollector) GetMetrics() map[string]*ComponentMetrics {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*ComponentMetrics, len(c.metrics))
	for k, v := range c.metrics {
		snapshot := *v
		result[k] = &snapshot
	}

	return result
}
