package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	GraphEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graph_events_total",
			Help: "Follow graph mutations by outcome",
		},
		[]string{"operation", "result"},
	)

	LikeToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "like_toggles_total",
			Help: "Like toggles by resulting state",
		},
		[]string{"state"},
	)

	UserDeletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_deletions_total",
			Help: "User deletions by outcome",
		},
		[]string{"result"},
	)

	DeletionStepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "user_deletion_step_failures_total",
			Help: "Soft failures of the user deletion protocol, per step",
		},
		[]string{"step"},
	)

	MediaOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_operations_total",
			Help: "Media store calls by operation and outcome",
		},
		[]string{"operation", "result"},
	)

	MediaOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_operation_duration_seconds",
			Help:    "Duration of media store calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// MediaBreakerState is 0 when closed, 1 when half-open and 2 when open.
	MediaBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_circuit_breaker_state",
			Help: "State of the remote media store circuit breaker",
		},
		[]string{"name"},
	)
)

func Register(registerer prometheus.Registerer) {
	registerer.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		ActiveConnections,
		GraphEvents,
		LikeToggles,
		UserDeletions,
		DeletionStepFailures,
		MediaOperations,
		MediaOperationDuration,
		MediaBreakerState,
	)
}
