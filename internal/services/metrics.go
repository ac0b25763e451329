package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Chat metrics
	ChatRequests       prometheus.Counter
	ChatRequestLatency prometheus.Histogram
	ChatErrors         *prometheus.CounterVec

	// History source reads by source and outcome (ok, empty, unavailable)
	HistoryReads *prometheus.CounterVec

	// Upstream completion latency and failures
	UpstreamLatency prometheus.Histogram
	UpstreamErrors  *prometheus.CounterVec
}

// NewMetrics registers the application metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChatRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "companion_chat_requests_total",
			Help: "Total number of chat requests processed",
		}),

		ChatRequestLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "companion_chat_request_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		ChatErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_chat_errors_total",
			Help: "Total number of chat errors by type",
		}, []string{"error_type"}),

		HistoryReads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_history_reads_total",
			Help: "History source reads by source and outcome",
		}, []string{"source", "state"}),

		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "companion_upstream_request_duration_seconds",
			Help:    "Latency of generateContent calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		UpstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "companion_upstream_errors_total",
			Help: "Upstream completion failures by reason",
		}, []string{"reason"}),
	}
}

// InitMetrics registers the metrics on the default Prometheus registry
func InitMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// RecordChatRequest records a chat request
func (m *Metrics) RecordChatRequest() {
	if m == nil {
		return
	}
	m.ChatRequests.Inc()
}

// RecordChatLatency records chat request latency
func (m *Metrics) RecordChatLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ChatRequestLatency.Observe(seconds)
}

// RecordChatError records a chat error
func (m *Metrics) RecordChatError(errorType string) {
	if m == nil {
		return
	}
	m.ChatErrors.WithLabelValues(errorType).Inc()
}

// RecordHistoryRead records the outcome of one history source read
func (m *Metrics) RecordHistoryRead(source, state string) {
	if m == nil {
		return
	}
	m.HistoryReads.WithLabelValues(source, state).Inc()
}

// RecordUpstreamLatency records generateContent latency
func (m *Metrics) RecordUpstreamLatency(seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamLatency.Observe(seconds)
}

// RecordUpstreamError records an upstream failure
func (m *Metrics) RecordUpstreamError(reason string) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(reason).Inc()
}
