// Package metrics exposes Prometheus instrumentation for the HTTP API
// and the summary cache.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts completed HTTP requests by method, route
	// pattern and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equilo",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	// RequestDuration observes request latency by route pattern.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "equilo",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SummaryCacheHits counts summary cache lookups by outcome.
	SummaryCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equilo",
		Subsystem: "summary",
		Name:      "cache_lookups_total",
		Help:      "Summary cache lookups partitioned by hit or miss.",
	}, []string{"outcome"})

	// EventsPublished counts domain events published to AMQP by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equilo",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events published to the notification queue.",
	}, []string{"type"})
)

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
