// Package metrics exposes Prometheus collectors for upstream API traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts upstream calls and fetch cache effectiveness.
type Metrics struct {
	upstream  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	cacheHits *prometheus.CounterVec
	reports   prometheus.Counter
}

// New registers the dashboard collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nbme_dashboard",
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the exam-results API, by endpoint and HTTP status (0 = transport failure).",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nbme_dashboard",
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of requests to the exam-results API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nbme_dashboard",
			Name:      "fetch_cache_hits_total",
			Help:      "Fetches answered from the response cache.",
		}, []string{"endpoint"}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nbme_dashboard",
			Name:      "risk_reports_generated_total",
			Help:      "At-risk reports generated.",
		}),
	}
	reg.MustRegister(m.upstream, m.duration, m.cacheHits, m.reports)
	return m
}

// ObserveUpstream records one upstream request.
func (m *Metrics) ObserveUpstream(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// CacheHit records a fetch served from cache.
func (m *Metrics) CacheHit(endpoint string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(endpoint).Inc()
}

// ReportGenerated records a completed risk report.
func (m *Metrics) ReportGenerated() {
	if m == nil {
		return
	}
	m.reports.Inc()
}
