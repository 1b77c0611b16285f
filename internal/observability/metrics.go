package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogFallbacks counts catalog reads served from the fallback dataset, by operation and reason.
	CatalogFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallhub_catalog_fallback_total",
		Help: "Total number of catalog reads served from the fallback dataset",
	}, []string{"operation", "reason"})

	// BackendErrors counts failed gateway calls by capability and operation.
	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallhub_backend_errors_total",
		Help: "Total number of failed backend gateway calls",
	}, []string{"capability", "operation"})

	// UploadRejections counts uploads rejected by the validation pipeline, by rule.
	UploadRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallhub_upload_rejections_total",
		Help: "Total number of uploads rejected by validation",
	}, []string{"rule"})

	// UploadCompensations counts rollback steps executed after a failed upload, by step and outcome.
	UploadCompensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallhub_upload_compensations_total",
		Help: "Total number of upload compensation steps executed",
	}, []string{"step", "outcome"})

	// AuthArtifactPurges counts removed auth artifacts.
	AuthArtifactPurges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallhub_auth_artifact_purges_total",
		Help: "Total number of locally cached auth artifacts deleted",
	})

	// SessionBootstrapDuration records how long bootstrap took to reach a terminal state, by outcome.
	SessionBootstrapDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallhub_session_bootstrap_seconds",
		Help:    "Session bootstrap duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
	}, []string{"outcome"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallhub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// GatewayLatency records backend round-trip latency by capability and operation.
	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wallhub_gateway_latency_seconds",
		Help:    "Backend gateway call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"capability", "operation"})
)

// TrackGateway returns a function that records call latency when called (e.g. defer).
func TrackGateway(capability, operation string) func() {
	start := time.Now()
	return func() {
		GatewayLatency.WithLabelValues(capability, operation).Observe(time.Since(start).Seconds())
	}
}

// RecordBackendError increments the backend error counter.
func RecordBackendError(capability, operation string) {
	BackendErrors.WithLabelValues(capability, operation).Inc()
}
