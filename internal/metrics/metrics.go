// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequests counts calls made to the backend API.
	// Labels:
	//   - method: HTTP method
	//   - status: response status code, or "error" when no response arrived
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_backend_requests_total",
			Help: "Total number of requests sent to the backend API",
		},
		[]string{"method", "status"},
	)

	// BackendRequestDuration measures backend API latency.
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_backend_request_duration_seconds",
			Help:    "Duration of backend API requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// TokenRefreshes counts access token refreshes.
	// Labels:
	//   - outcome: "success", "failure", "shared" (another request already refreshed)
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_token_refresh_total",
			Help: "Total number of access token refresh attempts",
		},
		[]string{"outcome"},
	)

	// LoginAttempts counts console sign-in attempts.
	// Labels:
	//   - outcome: "success", "failure", "forbidden", "throttled"
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_login_attempts_total",
			Help: "Total number of console login attempts",
		},
		[]string{"outcome"},
	)

	// LiveMapConnections is the number of open live map websockets.
	LiveMapConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_live_map_connections",
			Help: "Number of open live map connections",
		},
	)

	// MarkersSkipped counts location records dropped for invalid coordinates.
	MarkersSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_markers_skipped_total",
			Help: "Total number of map records skipped because of invalid coordinates",
		},
		[]string{"layer"},
	)
)

// RecordBackendRequest records the outcome of one backend call. A status of
// zero means the request failed before a response was received.
func RecordBackendRequest(method string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	BackendRequests.WithLabelValues(method, label).Inc()
	BackendRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}
