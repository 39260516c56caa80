package webbeans

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks Prometheus metrics for the web integration.
//
// All metrics use the "goboot_webbeans_" prefix. Methods handle a nil
// receiver, so a nil *Metrics is a no-op when metrics are disabled.
type Metrics struct {
	// EventsTotal counts handled lifecycle events.
	// Labels: event, result=[applied, skipped, failed]
	EventsTotal *prometheus.CounterVec

	// EventDuration tracks time spent handling a lifecycle event.
	EventDuration *prometheus.HistogramVec

	// InstancesTotal counts instances passing through the injecting instance manager.
	// Labels: operation=[create, destroy], result=[ok, failed]
	InstancesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics with registerer
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goboot_webbeans_lifecycle_events_total",
				Help: "Lifecycle events handled by the web integration, by result",
			},
			[]string{"event", "result"},
		),
		EventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goboot_webbeans_lifecycle_event_duration_seconds",
				Help:    "Time spent handling a lifecycle event",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"event"},
		),
		InstancesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goboot_webbeans_instances_total",
				Help: "Instances created or destroyed through the injecting instance manager",
			},
			[]string{"operation", "result"},
		),
	}

	registerer.MustRegister(m.EventsTotal, m.EventDuration, m.InstancesTotal)
	return m
}

// ObserveEvent records a handled lifecycle event
func (m *Metrics) ObserveEvent(eventType, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType, result).Inc()
	m.EventDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// ObserveInstance records an instance create or destroy
func (m *Metrics) ObserveInstance(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.InstancesTotal.WithLabelValues(operation, result).Inc()
}
