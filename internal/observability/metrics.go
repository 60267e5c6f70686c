package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "app_municipe_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// CacheHits tracks cache hits
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_municipe_cache_hits_total",
			Help: "Number of cache hits",
		},
		[]string{"operation"},
	)

	// DatabaseOperations tracks database operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_municipe_database_operations_total",
			Help: "Number of database operations",
		},
		[]string{"operation", "status"},
	)

	// Registrations tracks citizen registration outcomes
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_municipe_registrations_total",
			Help: "Number of citizen registrations by outcome",
		},
		[]string{"status"},
	)

	// CompensationFailures counts undo steps that could not be applied
	// after a failed registration, leaving an orphaned row behind.
	CompensationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "app_municipe_compensation_failures_total",
			Help: "Number of registration compensation steps that failed",
		},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_municipe_active_connections",
			Help: "Number of active connections",
		},
	)
)
