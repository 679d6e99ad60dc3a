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

	// StreamDuration tracks provider streaming response duration.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_stream_duration_seconds",
			Help:    "Provider streaming response duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// StreamFragmentsTotal tracks text fragments forwarded to clients.
	StreamFragmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_stream_fragments_total",
			Help: "Total normalized text fragments emitted",
		},
		[]string{"provider"},
	)

	// StreamsActive tracks in-flight provider streams.
	StreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "provider_streams_active",
			Help: "Number of in-flight provider streams",
		},
	)

	// ProviderErrorsTotal tracks classified provider failures.
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_errors_total",
			Help: "Provider failures by classified category",
		},
		[]string{"provider", "category"},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
		[]string{"tier"},
	)

	// ConversationsArchivedTotal tracks conversations archived by the tier limit policy.
	ConversationsArchivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_archived_total",
			Help: "Conversations archived because a tier limit was reached",
		},
	)

	// MessagesTotal tracks total messages persisted.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages persisted",
		},
		[]string{"role", "provider"},
	)

	// NotificationsTotal tracks notifications created.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total notifications created",
		},
		[]string{"type"},
	)

	// CheckoutSessionsTotal tracks payment checkout sessions created.
	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Total checkout sessions created",
		},
		[]string{"gateway", "category"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordStream records metrics for a provider streaming response.
func RecordStream(provider, status string, duration float64) {
	StreamDuration.WithLabelValues(provider, status).Observe(duration)
}

// IncrementActiveStreams increments the in-flight stream count.
func IncrementActiveStreams() {
	StreamsActive.Inc()
}

// DecrementActiveStreams decrements the in-flight stream count.
func DecrementActiveStreams() {
	StreamsActive.Dec()
}
