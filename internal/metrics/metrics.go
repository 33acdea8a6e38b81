package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ArtifactSource is the subset of export.Artifacts needed to report pending downloads.
type ArtifactSource interface {
	Pending() int
}

// Metrics owns a Prometheus registry with HTTP and calculator metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	entriesGenerated prometheus.Counter
	exportsTotal     *prometheus.CounterVec
	undefinedTotal   *prometheus.CounterVec
}

// artifactCollector reports the artifacts held at scrape time.
type artifactCollector struct {
	source ArtifactSource
	desc   *prometheus.Desc
}

func (c *artifactCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *artifactCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(c.source.Pending()))
}

// New builds the registry. Runtime and process collectors are included.
func New(artifacts ArtifactSource) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capcost_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status code.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "capcost_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "capcost_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed.",
		}),
		entriesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "capcost_history_entries_generated_total",
			Help: "Number of history entries generated.",
		}),
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capcost_exports_total",
				Help: "Number of text exports produced, by kind (entry or history).",
			},
			[]string{"kind"},
		),
		undefinedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capcost_undefined_metrics_total",
				Help: "Number of generated entries carrying a non-finite metric, by metric.",
			},
			[]string{"metric"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.entriesGenerated,
		m.exportsTotal,
		m.undefinedTotal,
	)
	if artifacts != nil {
		m.registry.MustRegister(&artifactCollector{
			source: artifacts,
			desc: prometheus.NewDesc(
				"capcost_export_artifacts_pending",
				"Number of export artifacts waiting to be downloaded.",
				nil,
				nil,
			),
		})
	}

	return m
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// EntryGenerated records a generated history entry and its undefined metrics.
func (m *Metrics) EntryGenerated(undefined []string) {
	m.entriesGenerated.Inc()
	for _, name := range undefined {
		m.undefinedTotal.WithLabelValues(name).Inc()
	}
}

// ExportProduced records a produced export of kind "entry" or "history".
func (m *Metrics) ExportProduced(kind string) {
	m.exportsTotal.WithLabelValues(kind).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the response status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records HTTP metrics. The path label is the chi route pattern so
// it has bounded cardinality; unmatched requests are labelled "unmatched".
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpRequestsInFlight.Inc()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			m.httpRequestsInFlight.Dec()
			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			status := strconv.Itoa(rw.status)
			m.httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
			m.httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		}()

		next.ServeHTTP(rw, r)
	})
}
