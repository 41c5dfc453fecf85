// Package metrics provides Prometheus instrumentation for HTTP
// request handling.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the request metrics and the registry they live in.
type Recorder struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a Recorder backed by a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cilantro_http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cilantro_http_request_duration_seconds",
				Help:    "HTTP request latency distribution.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	r.registry.MustRegister(r.requests, r.duration)
	return r
}

// Observe records one completed request. The route label should be
// the matched pattern rather than the raw path, so cardinality stays
// bounded; unmatched requests pass their raw path through.
func (r *Recorder) Observe(method, route string, status int, elapsed time.Duration) {
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Requests exposes the request counter for test assertions.
func (r *Recorder) Requests() *prometheus.CounterVec { return r.requests }

// Duration exposes the latency histogram for test assertions.
func (r *Recorder) Duration() *prometheus.HistogramVec { return r.duration }

// Registry returns the underlying registry, for callers that need to
// register additional collectors alongside the request metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler returns the scrape endpoint for the Recorder's registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
