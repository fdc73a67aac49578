package metrics

import (
	"net/http"
	"sync"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordHubMatch(operation, outcome string)
	RecordGeocode(outcome string, duration time.Duration)
	RecordClassification(disasterType, severity string)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordHubMatch(operation, outcome string)               {}
func (m *NoOpMetrics) RecordGeocode(outcome string, duration time.Duration)   {}
func (m *NoOpMetrics) RecordClassification(disasterType, severity string)     {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                   {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                 {}
func (m *NoOpMetrics) Handler() http.Handler                                  { return http.NotFoundHandler() }

var (
	mu            sync.RWMutex
	globalMetrics Metrics = &NoOpMetrics{}
)

// Init installs the Prometheus implementation as the global metrics sink.
// When enabled is false the no-op implementation stays in place.
func Init(enabled bool) error {
	if !enabled {
		Set(&NoOpMetrics{})
		return nil
	}
	p, err := NewPrometheus(nil)
	if err != nil {
		return err
	}
	Set(p)
	return nil
}

// Set replaces the global metrics sink
func Set(m Metrics) {
	mu.Lock()
	defer mu.Unlock()
	globalMetrics = m
}

func current() Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return globalMetrics
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return current().Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	current().RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordHubMatch records the outcome of a nearby search or best-hub selection
func RecordHubMatch(operation, outcome string) {
	current().RecordHubMatch(operation, outcome)
}

// RecordGeocode records a geocoder lookup
func RecordGeocode(outcome string, duration time.Duration) {
	current().RecordGeocode(outcome, duration)
}

// RecordClassification records a classified report
func RecordClassification(disasterType, severity string) {
	current().RecordClassification(disasterType, severity)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	current().SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	current().RecordDBQuery(operation, status)
}
