// Package metrics exposes Prometheus metrics for the gateway's inbound HTTP
// traffic and for the relays it performs against storage.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "websync"

// Metrics owns a private registry so tests and multiple gateways in one
// process never collide on registration.
type Metrics struct {
	reg              *prometheus.Registry
	inflight         prometheus.Gauge
	requests         *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
}

// New creates a Metrics instance with a fresh registry. Go runtime and
// process collectors are registered alongside the gateway's own.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of inflight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests processed, partitioned by status code and method.",
		}, []string{"code", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of signed relays to storage, partitioned by method and status code (0 when no response arrived).",
		}, []string{"method", "code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Histogram of latencies for signed relays to storage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.inflight,
		m.requests,
		m.latency,
		m.upstreamRequests,
		m.upstreamLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns an http.Handler that serves the registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Middleware records the inflight gauge, request counter and latency
// histogram for every request passing through next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(strconv.Itoa(status), r.Method).Inc()
		m.latency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveRelay records one relay to storage.
func (m *Metrics) ObserveRelay(method string, statusCode int, elapsed time.Duration) {
	m.upstreamRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.upstreamLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Registry returns the underlying Prometheus registry for advanced usage.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
