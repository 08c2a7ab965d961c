// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_requests_total",
			Help: "Total number of discovery requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_request_duration_seconds",
			Help:    "Duration of discovery orchestration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		},
		[]string{"endpoint"},
	)

	UpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_upstream_failures_total",
			Help: "Failures of external collaborators by upstream and error code",
		},
		[]string{"upstream", "error_code"},
	)

	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_ratelimit_decisions_total",
			Help: "Rate limiter decisions by endpoint (allowed, limited, fail_open)",
		},
		[]string{"endpoint", "decision"},
	)

	Degradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_degradation_total",
			Help: "Requests served from a fallback tier",
		},
		[]string{"endpoint", "tier"},
	)

	UsageLogFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discovery_usage_log_failures_total",
			Help: "Best-effort usage or audit writes that failed",
		},
	)

	ActiveStreams = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discovery_active_streams",
			Help: "Number of open streaming responses per endpoint",
		},
		[]string{"endpoint"},
	)
)
