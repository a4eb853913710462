package monitoring

import (
	"sync"
	"time"
)

// Monitor keeps a small in-process summary of recent activity for the
// health endpoint. Prometheus remains the source of truth for counters.
type Monitor struct {
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
	}
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// RecordCommand stores the outcome of the latest command
func (m *Monitor) RecordCommand(intent string, success bool) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	count, _ := m.metrics["commands_processed"].(int)
	m.metrics["commands_processed"] = count + 1
	m.metrics["last_intent"] = intent
	m.metrics["last_success"] = success
	m.metrics["last_command_at"] = time.Now().UTC().Format(time.RFC3339)
}

// GetMetrics returns a copy of all current metrics plus uptime
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	metrics := make(map[string]interface{}, len(m.metrics)+1)
	for k, v := range m.metrics {
		metrics[k] = v
	}
	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()

	return metrics
}
