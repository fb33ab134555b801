package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors tracked by the service.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestErrors     *prometheus.CounterVec
	MessagesAppended  prometheus.Counter
	BroadcastsTotal   *prometheus.CounterVec
	DroppedFrames     prometheus.Counter
	SocketConnections prometheus.Gauge
}

// NewMetrics registers and returns the service collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_http_errors_total",
			Help: "Handled request errors by path, method and error code.",
		}, []string{"path", "method", "code"}),
		MessagesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "support_ticket_messages_appended_total",
			Help: "Messages persisted onto ticket threads.",
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "support_realtime_broadcasts_total",
			Help: "Room broadcasts by event name.",
		}, []string{"event"}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "support_realtime_dropped_frames_total",
			Help: "Frames dropped because a client send buffer was full.",
		}),
		SocketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "support_realtime_connections",
			Help: "Currently open websocket connections.",
		}),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestErrors,
		m.MessagesAppended,
		m.BroadcastsTotal,
		m.DroppedFrames,
		m.SocketConnections,
	)
	return m
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(path, method, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(path, method, status).Inc()
}

// RecordError increments the handled-error counter.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(path, method, code).Inc()
}
