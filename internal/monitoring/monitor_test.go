package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitor_RecordCommand(t *testing.T) {
	m := NewMonitor()
	m.RecordCommand("order_query", true)
	m.RecordCommand("order_status", false)

	metrics := m.GetMetrics()
	assert.Equal(t, 2, metrics["commands_processed"])
	assert.Equal(t, "order_status", metrics["last_intent"])
	assert.Equal(t, false, metrics["last_success"])
	assert.Contains(t, metrics, "uptime_seconds")
}

func TestMonitor_RecordMetric(t *testing.T) {
	m := NewMonitor()
	m.RecordMetric("llm_provider", "none")

	metrics := m.GetMetrics()
	assert.Equal(t, "none", metrics["llm_provider"])

	metrics["llm_provider"] = "changed"
	assert.Equal(t, "none", m.GetMetrics()["llm_provider"])
}

func TestMetricsCollector(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordCommand("order_status", true)
	m.RecordCommand("order_status", true)
	m.RecordSource("analyze", "fallback")
	m.RecordTransition("pending", "done")
	m.ObserveModelCall("respond", 120*time.Millisecond)
	m.RecordCaptureEvent("result")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.commands.WithLabelValues("order_status", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sources.WithLabelValues("analyze", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.statusTransitions.WithLabelValues("pending", "done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captureEvents.WithLabelValues("result")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "maitre_model_call_seconds"))
}

func TestNilMetricsCollector(t *testing.T) {
	var m *MetricsCollector
	assert.NotPanics(t, func() {
		m.RecordCommand("help", true)
		m.RecordSource("respond", "model")
		m.ObserveModelCall("analyze", time.Second)
		m.RecordTransition("pending", "done")
		m.RecordCaptureEvent("start")
	})
}
