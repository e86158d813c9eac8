package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careplanner_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careplanner_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "careplanner_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Domain store metrics
	storeMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careplanner_store_mutations_total",
			Help: "Total number of domain store mutations",
		},
		[]string{"operation", "result"},
	)

	storageWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careplanner_storage_write_failures_total",
			Help: "Total number of failed writes to key/value storage",
		},
		[]string{"key"},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careplanner_storage_operation_duration_seconds",
			Help:    "Key/value storage operation duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"driver", "operation"},
	)

	// AI metrics
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careplanner_ai_requests_total",
			Help: "Total number of generative AI requests",
		},
		[]string{"provider", "operation", "outcome"},
	)

	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "careplanner_ai_request_duration_seconds",
			Help:    "Generative AI request duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	vitalLogsByStatus = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "careplanner_vital_logs_total",
			Help: "Total number of vital logs recorded by status",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served HTTP request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement
func TrackInFlight() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// RecordStoreMutation counts a domain store mutation; found is false for no-ops on missing ids
func RecordStoreMutation(operation string, found bool) {
	result := "applied"
	if !found {
		result = "not_found"
	}
	storeMutations.WithLabelValues(operation, result).Inc()
}

// RecordStorageWriteFailure counts a failed persist of key
func RecordStorageWriteFailure(key string) {
	storageWriteFailures.WithLabelValues(key).Inc()
}

// ObserveStorageOperation records the duration of a storage call
func ObserveStorageOperation(driver, operation string, duration time.Duration) {
	storageOperationDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
}

// RecordAIRequest records an AI provider call and its outcome
func RecordAIRequest(provider, operation, outcome string, duration time.Duration) {
	aiRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	aiRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordVitalLog counts a recorded vital log by status
func RecordVitalLog(status string) {
	vitalLogsByStatus.WithLabelValues(status).Inc()
}
