// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated registry served on /metrics.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts inbound requests by method, route and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orderbridge_http_requests_total", Help: "Total inbound HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records inbound request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "orderbridge_http_request_duration_seconds", Help: "Inbound HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	// Directives counts executed directives by name and reported status class.
	Directives = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orderbridge_directives_total", Help: "Directives executed by name and status."},
		[]string{"directive", "status"},
	)
	// DirectiveDuration records handler latency in seconds.
	DirectiveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "orderbridge_directive_duration_seconds", Help: "Directive handler duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"directive"},
	)

	// RemoteCalls counts outbound GraphQL calls by outcome.
	RemoteCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orderbridge_remote_calls_total", Help: "Outbound partner GraphQL calls by outcome."},
		[]string{"outcome"},
	)
	// RemoteLatency records outbound call latency in milliseconds.
	RemoteLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "orderbridge_remote_call_latency_ms", Help: "Outbound partner GraphQL call latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
	)

	// TaxCacheLookups counts tax cache lookups by result (hit, miss, error).
	TaxCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orderbridge_tax_cache_lookups_total", Help: "Tax cache lookups by result."},
		[]string{"result"},
	)

	// AuthFailures counts rejected inbound requests by protocol error code.
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orderbridge_auth_failures_total", Help: "Rejected inbound requests by protocol error code."},
		[]string{"code"},
	)
)

var regOnce sync.Once

// Register adds every collector to Registry. Safe to call more than once.
func Register() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Directives)
		Registry.MustRegister(DirectiveDuration)
		Registry.MustRegister(RemoteCalls)
		Registry.MustRegister(RemoteLatency)
		Registry.MustRegister(TaxCacheLookups)
		Registry.MustRegister(AuthFailures)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	Register()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
