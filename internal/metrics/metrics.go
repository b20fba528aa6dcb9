package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Business metrics
	packsBuilt          *prometheus.CounterVec
	packBuildDuration   prometheus.Histogram
	sourceFetchFailures *prometheus.CounterVec
	barsDropped         prometheus.Counter
	analysisAttempts    *prometheus.CounterVec
	analysisDuration    prometheus.Histogram
	schemaRepairs       prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)

	// Business metrics
	r.packsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finlens_fact_packs_built_total",
			Help: "Total number of fact-pack builds",
		},
		[]string{"asset_class", "status"},
	)
	r.packBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finlens_fact_pack_build_duration_seconds",
			Help:    "Fact-pack build duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.sourceFetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finlens_source_fetch_failures_total",
			Help: "Total number of data source fetch failures",
		},
		[]string{"source", "kind"},
	)
	r.barsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finlens_bars_dropped_total",
			Help: "Total number of malformed bars dropped during normalization",
		},
	)
	r.analysisAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finlens_analysis_attempts_total",
			Help: "Total number of analysis engine attempts",
		},
		[]string{"provider", "status"},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finlens_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
	)
	r.schemaRepairs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finlens_schema_repairs_total",
			Help: "Total number of soft schema violations repaired",
		},
	)

	reg.MustRegister(r.packsBuilt)
	reg.MustRegister(r.packBuildDuration)
	reg.MustRegister(r.sourceFetchFailures)
	reg.MustRegister(r.barsDropped)
	reg.MustRegister(r.analysisAttempts)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.schemaRepairs)

	return r
}

// Handler returns the HTTP handler exposing the registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordPackBuild records a fact-pack build outcome.
func (r *Registry) RecordPackBuild(assetClass, status string, duration float64) {
	r.packsBuilt.WithLabelValues(assetClass, status).Inc()
	r.packBuildDuration.Observe(duration)
}

// RecordSourceFailure records a data source fetch failure.
func (r *Registry) RecordSourceFailure(source, kind string) {
	r.sourceFetchFailures.WithLabelValues(source, kind).Inc()
}

// AddDroppedBars adds to the dropped-bar count.
func (r *Registry) AddDroppedBars(n int) {
	r.barsDropped.Add(float64(n))
}

// RecordAnalysisAttempt records one engine attempt.
func (r *Registry) RecordAnalysisAttempt(provider, status string) {
	r.analysisAttempts.WithLabelValues(provider, status).Inc()
}

// RecordAnalysisDuration records end-to-end analysis duration.
func (r *Registry) RecordAnalysisDuration(duration float64) {
	r.analysisDuration.Observe(duration)
}

// RecordSchemaRepairs adds to the repaired-violation count.
func (r *Registry) RecordSchemaRepairs(n int) {
	r.schemaRepairs.Add(float64(n))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
