package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus records metrics into a Prometheus registry
type Prometheus struct {
	gatherer prometheus.Gatherer

	HTTPRequests    *prometheus.CounterVec
	HTTPDurations   *prometheus.HistogramVec
	HubMatches      *prometheus.CounterVec
	Geocodes        *prometheus.CounterVec
	GeocodeDuration prometheus.Histogram
	Classifications *prometheus.CounterVec
	DBQueries       *prometheus.CounterVec
	DBConnections   prometheus.Gauge
}

// NewPrometheus registers the relief hub collectors against reg, defaulting to
// the global registry when reg is nil. Collectors that are already registered
// are reused.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	p := &Prometheus{gatherer: gatherer}
	var err error

	if p.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reliefhub_http_requests_total",
		Help: "HTTP requests handled, labeled by method, route and status code.",
	}, []string{"method", "route", "code"})); err != nil {
		return nil, err
	}
	if p.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reliefhub_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	if p.HubMatches, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reliefhub_hub_matches_total",
		Help: "Hub search and selection results, labeled by operation and outcome.",
	}, []string{"operation", "outcome"})); err != nil {
		return nil, err
	}
	if p.Geocodes, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reliefhub_geocode_requests_total",
		Help: "Geocoder lookups, labeled by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if p.GeocodeDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reliefhub_geocode_duration_seconds",
		Help:    "Geocoder lookup latency in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})); err != nil {
		return nil, err
	}
	if p.Classifications, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reliefhub_classifications_total",
		Help: "Classified disaster reports, labeled by type and severity.",
	}, []string{"type", "severity"})); err != nil {
		return nil, err
	}
	if p.DBQueries, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reliefhub_db_queries_total",
		Help: "Database queries, labeled by operation and status.",
	}, []string{"operation", "status"})); err != nil {
		return nil, err
	}
	if p.DBConnections, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reliefhub_db_connections_active",
		Help: "Active database connections in the pool.",
	})); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Prometheus) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	p.HTTPRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	p.HTTPDurations.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (p *Prometheus) RecordHubMatch(operation, outcome string) {
	p.HubMatches.WithLabelValues(operation, outcome).Inc()
}

func (p *Prometheus) RecordGeocode(outcome string, duration time.Duration) {
	p.Geocodes.WithLabelValues(outcome).Inc()
	p.GeocodeDuration.Observe(duration.Seconds())
}

func (p *Prometheus) RecordClassification(disasterType, severity string) {
	p.Classifications.WithLabelValues(disasterType, severity).Inc()
}

func (p *Prometheus) SetDBConnectionsActive(count float64) {
	p.DBConnections.Set(count)
}

func (p *Prometheus) RecordDBQuery(operation, status string) {
	p.DBQueries.WithLabelValues(operation, status).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector already registered with incompatible type: %w", err)
		}
		return nil, err
	}
	return gauge, nil
}
