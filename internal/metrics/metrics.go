package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Spatial query outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry             *prometheus.Registry
	httpRequests         *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	spatialQueries       *prometheus.CounterVec
	spatialQueryDuration prometheus.Histogram
	importsTotal         prometheus.Counter
	importedFeatures     prometheus.Counter
	drawCompletions      prometheus.Counter
	sessionsActive       prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP and map-session metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nycmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nycmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	spatialQueries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nycmap",
		Name:      "spatial_queries_total",
		Help:      "Spatial queries issued from api mode clicks, by outcome",
	}, []string{"outcome"})

	spatialQueryDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nycmap",
		Name:      "spatial_query_duration_seconds",
		Help:      "Duration of spatial queries",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	importsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nycmap",
		Name:      "imports_total",
		Help:      "Files imported as user layers",
	})

	importedFeatures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nycmap",
		Name:      "imported_features_total",
		Help:      "Features added through user layer imports",
	})

	drawCompletions := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nycmap",
		Name:      "draw_completions_total",
		Help:      "Polygons drawn and measured",
	})

	sessionsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nycmap",
		Name:      "sessions_active",
		Help:      "Map sessions currently held in memory",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		spatialQueries,
		spatialQueryDuration,
		importsTotal,
		importedFeatures,
		drawCompletions,
		sessionsActive,
	)

	return &Metrics{
		registry:             registry,
		httpRequests:         httpRequests,
		httpRequestDuration:  httpRequestDuration,
		spatialQueries:       spatialQueries,
		spatialQueryDuration: spatialQueryDuration,
		importsTotal:         importsTotal,
		importedFeatures:     importedFeatures,
		drawCompletions:      drawCompletions,
		sessionsActive:       sessionsActive,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveSpatialQuery records a finished spatial query. Stale results are
// counted but their duration is still observed.
func (m *Metrics) ObserveSpatialQuery(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.spatialQueries.WithLabelValues(outcome).Inc()
	m.spatialQueryDuration.Observe(duration.Seconds())
}

// IncImport records one imported file of n features.
func (m *Metrics) IncImport(n int) {
	if m == nil {
		return
	}
	m.importsTotal.Inc()
	m.importedFeatures.Add(float64(n))
}

func (m *Metrics) IncDrawCompletion() {
	if m == nil {
		return
	}
	m.drawCompletions.Inc()
}

// SetSessions sets the number of live map sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
