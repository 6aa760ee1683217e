// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// DispatchesTotal counts submitted messages by intent and outcome.
	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_dispatches_total",
			Help: "Submitted messages by intent and outcome",
		},
		[]string{"intent", "outcome"},
	)

	// RemoteCallDuration tracks completion and image generation latency.
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_call_duration_seconds",
			Help:    "Latency of calls to completion and image services",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "provider", "status"},
	)

	// PersistenceFailuresTotal counts turns that could not be mirrored to storage.
	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_persistence_failures_total",
			Help: "Turns that could not be written to durable storage",
		},
	)

	// SessionsActive tracks live conversation sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_sessions_active",
			Help: "Number of live conversation sessions",
		},
	)

	// WebSocketConnectionsActive tracks open snapshot streams.
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of open session snapshot streams",
		},
	)
)

// RecordRequest records HTTP request metrics.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordDispatch records the outcome of one submitted message.
func RecordDispatch(intent, outcome string) {
	DispatchesTotal.WithLabelValues(intent, outcome).Inc()
}

// RecordRemoteCall records one call to a completion or image service.
func RecordRemoteCall(service, provider string, err error, duration float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RemoteCallDuration.WithLabelValues(service, provider, status).Observe(duration)
}
