// iRODS HTTP Gateway - REST access to iRODS zones
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/irods-gateway

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the gateway:
// - API endpoint latency and throughput
// - Background executor queue and task outcomes
// - Backend connection pool usage
// - Identity resolution and handle store size
// - Circuit breaker state

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_http_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "irods_http_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "irods_http_api_active_requests",
			Help: "Number of requests currently being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_http_api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Operation dispatch
	OperationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_http_api_operations_total",
			Help: "Operations dispatched, labelled by endpoint, op and outcome",
		},
		[]string{"endpoint", "op", "outcome"}, // "matched", "missing_op", "unknown_op", "bad_body", "method_not_allowed"
	)

	// Executor Metrics
	ExecutorQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "irods_http_api_executor_queue_depth",
			Help: "Tasks waiting for a background worker",
		},
	)

	ExecutorBusyWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "irods_http_api_executor_busy_workers",
			Help: "Background workers currently running a task",
		},
	)

	ExecutorTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_http_api_executor_tasks_total",
			Help: "Background tasks by outcome",
		},
		[]string{"outcome"}, // "completed", "panicked", "rejected", "abandoned"
	)

	ExecutorTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "irods_http_api_executor_task_duration_seconds",
			Help:    "Time spent running background tasks",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Connection Pool Metrics
	PoolCheckouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "irods_connection_pool_checkouts_total",
			Help: "Connections checked out of the pool",
		},
	)

	PoolDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_connection_pool_discards_total",
			Help: "Connections closed instead of returned to the pool",
		},
		[]string{"reason"}, // "failed", "refresh", "closed"
	)

	PoolInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "irods_connection_pool_in_use",
			Help: "Connections currently checked out",
		},
	)

	PoolIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "irods_connection_pool_idle",
			Help: "Authenticated connections waiting in the pool",
		},
	)

	BackendDials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_backend_dials_total",
			Help: "Backend connection attempts by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	IdentitySwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_identity_switches_total",
			Help: "Identity switches performed on pooled connections",
		},
		[]string{"outcome"},
	)

	// Identity Resolution Metrics
	IdentityResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "irods_http_api_identity_resolutions_total",
			Help: "Bearer token resolutions by source",
		},
		[]string{"source"}, // "stash", "jwt", "introspection", "rejected"
	)

	StashEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "irods_http_api_stash_entries",
			Help: "Entries held in the identity handle store",
		},
	)

	StashEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "irods_http_api_stash_evictions_total",
			Help: "Expired identities removed from the handle store",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "irods_http_api_info",
			Help: "Build information",
		},
		[]string{"version", "build"},
	)
)

// RecordAPIRequest records metrics for an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDispatch records the outcome of looking up an operation.
func RecordDispatch(endpoint, op, outcome string) {
	OperationsDispatched.WithLabelValues(endpoint, op, outcome).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(state)
}
