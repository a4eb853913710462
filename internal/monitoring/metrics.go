package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns the prometheus registry for the command pipeline
type MetricsCollector struct {
	registry *prometheus.Registry

	commands          *prometheus.CounterVec
	sources           *prometheus.CounterVec
	modelLatency      *prometheus.HistogramVec
	statusTransitions *prometheus.CounterVec
	captureEvents     *prometheus.CounterVec
}

// NewMetricsCollector creates a new metrics collector with its own registry
func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	m := &MetricsCollector{
		registry: registry,
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitre_commands_total",
				Help: "Processed commands by intent and outcome",
			},
			[]string{"intent", "success"},
		),
		sources: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitre_pipeline_source_total",
				Help: "Whether each pipeline stage was answered by the model or the fallback",
			},
			[]string{"stage", "source"},
		),
		modelLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maitre_model_call_seconds",
				Help:    "Latency of language model calls",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"stage"},
		),
		statusTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitre_order_status_transitions_total",
				Help: "Order status writes by previous and new status",
			},
			[]string{"from", "to"},
		),
		captureEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maitre_capture_events_total",
				Help: "Speech engine events received by capture sessions",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(m.commands, m.sources, m.modelLatency, m.statusTransitions, m.captureEvents)
	return m
}

// Registry exposes the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCommand counts a processed command. Safe on a nil collector.
func (m *MetricsCollector) RecordCommand(intent string, success bool) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(intent, strconv.FormatBool(success)).Inc()
}

// RecordSource counts which path answered a pipeline stage
func (m *MetricsCollector) RecordSource(stage, source string) {
	if m == nil {
		return
	}
	m.sources.WithLabelValues(stage, source).Inc()
}

// ObserveModelCall records how long a model call took
func (m *MetricsCollector) ObserveModelCall(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.modelLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordTransition counts a successful order status write
func (m *MetricsCollector) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordCaptureEvent counts a speech engine event
func (m *MetricsCollector) RecordCaptureEvent(eventType string) {
	if m == nil {
		return
	}
	m.captureEvents.WithLabelValues(eventType).Inc()
}
