// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes used as the outcome label.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viral_search_requests_total",
			Help: "Total number of search requests by outcome",
		},
		[]string{"outcome"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viral_search_rate_limited_total",
			Help: "Total number of requests denied by the rate limiter",
		},
	)

	DroppedItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viral_search_dropped_items_total",
			Help: "Items dropped because their publisher could not be resolved",
		},
	)

	PersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "viral_search_persist_failures_total",
			Help: "Background persistence failures by stage",
		},
		[]string{"stage"},
	)

	PersistDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "viral_search_persist_dropped_total",
			Help: "Persistence jobs dropped because the queue was full",
		},
	)

	PersistQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "viral_search_persist_queue_depth",
			Help: "Number of persistence jobs waiting in the queue",
		},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "viral_search_upstream_duration_seconds",
			Help:    "Catalog call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
