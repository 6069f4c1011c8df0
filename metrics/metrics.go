// Package metrics provides Prometheus metrics for the HTTP server and the matching pipeline.
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// Domain metrics:
//   - medicine_resolutions_total: Counter with the final resolution state
//   - catalog_records: Gauge with the size of each catalog snapshot
//   - catalog_refresh_total: Counter of snapshot refreshes by status
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	MedicineResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medicine_resolutions_total",
			Help: "Medicine resolutions by outcome",
		},
		[]string{"outcome"},
	)

	CatalogRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_records",
			Help: "Number of records in the current catalog snapshot",
		},
		[]string{"collection"},
	)

	CatalogRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_refresh_total",
			Help: "Catalog snapshot refreshes by status",
		},
		[]string{"status"},
	)
)

// Outcome label for resolutions that failed with an error
const OutcomeError = "error"

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(MedicineResolutionsTotal)
	prometheus.MustRegister(CatalogRecords)
	prometheus.MustRegister(CatalogRefreshTotal)
}

// ObserveResolution counts one resolution outcome, e.g. "generic_resolved" or "error"
func ObserveResolution(outcome string) {
	MedicineResolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCatalog records the size of a freshly loaded collection
func ObserveCatalog(collection string, records int) {
	CatalogRecords.WithLabelValues(collection).Set(float64(records))
}

// ObserveRefresh counts a refresh attempt, status being "success", "failure" or "skipped"
func ObserveRefresh(status string) {
	CatalogRefreshTotal.WithLabelValues(status).Inc()
}
