// Package metrics exposes Prometheus instrumentation for the HTTP server
// and the recommendation pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	SourcesTotal   *prometheus.CounterVec
	FallbacksTotal prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	return &Collector{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total recommendation runs by outcome.",
		}, []string{"outcome"}),

		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "End-to-end recommendation run latency distribution.",
			Buckets:   []float64{1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0, 300.0},
		}),

		SourcesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pipeline",
			Name:      "sources_total",
			Help:      "Total ingested document sources by outcome.",
		}, []string{"outcome"}),

		FallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "pipeline",
			Name:      "fallback_recommendations_total",
			Help:      "Recommendations served from the deterministic fallback. Alert if climbing.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
