// Package monitoring exposes Prometheus metrics and health reporting for
// co2mcp.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// ServiceName labels health reports.
	ServiceName = "co2mcp"
)

var (
	// MCP request metrics
	MCPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_mcp_requests_total",
			Help: "Total number of MCP requests processed",
		},
		[]string{"tool", "status"},
	)

	MCPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "co2mcp_mcp_request_duration_seconds",
			Help:    "MCP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"tool"},
	)

	// External service metrics
	ExternalServiceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_external_service_requests_total",
			Help: "Total number of external service requests",
		},
		[]string{"service", "operation", "status"},
	)

	ExternalServiceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "co2mcp_external_service_request_duration_seconds",
			Help:    "External service request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"service", "operation"},
	)

	// Rate limiting metrics
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_rate_limit_exceeded_total",
			Help: "Total number of rate limit exceeded events",
		},
		[]string{"service"},
	)

	RateLimitWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "co2mcp_rate_limit_wait_duration_seconds",
			Help:    "Time spent waiting for rate limits",
			Buckets: []float64{0.01, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"service"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "co2mcp_cache_size",
			Help: "Current number of items in cache",
		},
		[]string{"cache_type"},
	)

	// Model metrics
	ModelTrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "co2mcp_model_training_duration_seconds",
			Help:    "Time taken to generate the training set and fit the forest",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ModelHoldoutMAE = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "co2mcp_model_holdout_mae_kg",
			Help: "Mean absolute error of the current model on held-out synthetic rows",
		},
	)

	ModelTrees = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "co2mcp_model_trees",
			Help: "Number of trees in the current model",
		},
	)

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_predictions_total",
			Help: "Total number of model predictions",
		},
		[]string{"vehicle_type", "season"},
	)

	TripCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_trip_calculations_total",
			Help: "Total number of trip comparisons by outcome",
		},
		[]string{"status"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "co2mcp_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "co2mcp_system_info",
			Help: "System information",
		},
		[]string{"version", "go_version", "build_commit", "build_date"},
	)

	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "co2mcp_goroutines",
			Help: "Number of goroutines",
		},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "co2mcp_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)
)

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordMCPRequest counts a tool call and observes its duration.
func RecordMCPRequest(tool string, duration time.Duration, success bool) {
	MCPRequestsTotal.WithLabelValues(tool, statusLabel(success)).Inc()
	MCPRequestDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordExternalServiceRequest counts an outbound call and observes its duration.
func RecordExternalServiceRequest(service, operation string, duration time.Duration, success bool) {
	ExternalServiceRequestsTotal.WithLabelValues(service, operation, statusLabel(success)).Inc()
	ExternalServiceRequestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

func UpdateCacheSize(cacheType string, size int) {
	CacheSize.WithLabelValues(cacheType).Set(float64(size))
}

func RecordRateLimitExceeded(service string) {
	RateLimitExceeded.WithLabelValues(service).Inc()
}

func RecordRateLimitWait(service string, duration time.Duration) {
	RateLimitWaitTime.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordModelTrained publishes the outcome of a training run.
func RecordModelTrained(duration time.Duration, trees int, holdoutMAE float64) {
	ModelTrainingDuration.Observe(duration.Seconds())
	ModelTrees.Set(float64(trees))
	ModelHoldoutMAE.Set(holdoutMAE)
}

func RecordPrediction(vehicleType, season string) {
	PredictionsTotal.WithLabelValues(vehicleType, season).Inc()
}

func RecordTripCalculation(status string) {
	TripCalculationsTotal.WithLabelValues(status).Inc()
}

func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
