// Package metrics exposes Prometheus metrics for the HTTP surface and the
// simulator itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Simulation metrics
	seriesGenerated prometheus.Counter
	seriesDays      prometheus.Histogram
	analyticsRuns   prometheus.Counter
	forecastsTotal  *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	sessionsEvicted *prometheus.CounterVec
	narrationsTotal *prometheus.CounterVec
	exportsTotal    *prometheus.CounterVec
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

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.seriesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lunar_series_generated_total",
			Help: "Total number of price series generated",
		},
	)
	r.seriesDays = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lunar_series_days",
			Help:    "Day count of generated series",
			Buckets: []float64{7, 14, 30, 60, 90, 180, 365},
		},
	)
	r.analyticsRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lunar_analytics_runs_total",
			Help: "Total number of analytics reports computed",
		},
	)
	r.forecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunar_forecasts_total",
			Help: "Total number of next-day forecasts by forecast phase",
		},
		[]string{"phase"},
	)
	r.sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lunar_sessions_active",
			Help: "Number of live sessions",
		},
	)
	r.sessionsEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunar_sessions_evicted_total",
			Help: "Total number of sessions removed by the store",
		},
		[]string{"reason"},
	)
	r.narrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunar_narrations_total",
			Help: "Total number of outlook narrations by source",
		},
		[]string{"source"},
	)
	r.exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunar_exports_total",
			Help: "Total number of report exports",
		},
		[]string{"format", "status"},
	)

	reg.MustRegister(r.seriesGenerated)
	reg.MustRegister(r.seriesDays)
	reg.MustRegister(r.analyticsRuns)
	reg.MustRegister(r.forecastsTotal)
	reg.MustRegister(r.sessionsActive)
	reg.MustRegister(r.sessionsEvicted)
	reg.MustRegister(r.narrationsTotal)
	reg.MustRegister(r.exportsTotal)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordSeriesGenerated records a freshly sampled series.
func (r *Registry) RecordSeriesGenerated(days int) {
	r.seriesGenerated.Inc()
	r.seriesDays.Observe(float64(days))
}

// RecordAnalyticsRun records a computed report.
func (r *Registry) RecordAnalyticsRun() {
	r.analyticsRuns.Inc()
}

// RecordForecast records a forecast landing on phase.
func (r *Registry) RecordForecast(phase string) {
	r.forecastsTotal.WithLabelValues(phase).Inc()
}

// RecordSessionEvicted records a session removed for reason
// ("capacity" or "expired").
func (r *Registry) RecordSessionEvicted(reason string) {
	r.sessionsEvicted.WithLabelValues(reason).Inc()
}

// SetSessionsActive sets the live session count.
func (r *Registry) SetSessionsActive(count int) {
	r.sessionsActive.Set(float64(count))
}

// RecordNarration records which narrator produced an outlook.
func (r *Registry) RecordNarration(source string) {
	r.narrationsTotal.WithLabelValues(source).Inc()
}

// RecordExport records a report export attempt.
func (r *Registry) RecordExport(format string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.exportsTotal.WithLabelValues(format, status).Inc()
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
