// Package metrics declares the Prometheus instruments for both services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every instrument so tests can register against their own registry.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	OrdersCreated           *prometheus.CounterVec
	OrderValidationDuration prometheus.Histogram
	OrderDBSaveDuration     prometheus.Histogram
	CacheRefreshes          prometheus.Counter
}

// New registers all instruments with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		OrdersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Order creation attempts by outcome.",
		}, []string{"outcome"}),

		OrderValidationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_validation_duration_seconds",
			Help:    "Time spent validating an order creation request.",
			Buckets: prometheus.DefBuckets,
		}),

		OrderDBSaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_db_save_duration_seconds",
			Help:    "Time spent persisting an order.",
			Buckets: prometheus.DefBuckets,
		}),

		CacheRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_cache_refreshes_total",
			Help: "Number of all-orders cache repopulations.",
		}),
	}
}

// Outcome labels for OrdersCreated.
const (
	OutcomeCreated          = "created"
	OutcomeValidationFailed = "validation_failed"
	OutcomeConflict         = "conflict"
	OutcomeError            = "error"
)
