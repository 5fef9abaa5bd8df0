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
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal counts processed chat turns by transport and winning agent.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total chat turns processed",
		},
		[]string{"transport", "agent"},
	)

	// TurnDuration tracks end-to-end turn processing duration.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_turn_duration_seconds",
			Help:    "Chat turn processing duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"transport"},
	)

	// ResponderAttempts counts chain tier attempts by responder.
	ResponderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_responder_attempts_total",
			Help: "Responder chain attempts",
		},
		[]string{"responder"},
	)

	// ResponderFailures counts contained responder failures by responder.
	ResponderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_responder_failures_total",
			Help: "Responder failures contained by the chain",
		},
		[]string{"responder"},
	)

	// BookingsCompleted counts completed booking flows.
	BookingsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_bookings_completed_total",
			Help: "Booking flows that reached completion",
		},
	)

	// EscalationsTotal counts escalations by type.
	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_escalations_total",
			Help: "Escalations emitted",
		},
		[]string{"type"},
	)

	// CRMSyncTotal counts side-channel publishes by kind and outcome.
	CRMSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_crm_sync_total",
			Help: "CRM side-channel publish outcomes",
		},
		[]string{"kind", "status"},
	)

	// WSConnectionsActive tracks active WebSocket connections.
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	// ConversationsTotal counts conversations created by channel.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_conversations_total",
			Help: "Total conversations created",
		},
		[]string{"channel"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for one processed chat turn.
func RecordTurn(transport, agent string, seconds float64) {
	TurnsTotal.WithLabelValues(transport, agent).Inc()
	TurnDuration.WithLabelValues(transport).Observe(seconds)
}
