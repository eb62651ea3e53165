package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutboxResultPublished    = "published"
	OutboxResultRetried      = "retried"
	OutboxResultDeadLettered = "dead_lettered"
)

// OutboxMetrics records what the relay did with each outbox row.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_outbox_events_total",
			Help: "Outbox rows handled by the relay, by event type and result.",
		}, []string{"event_type", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "orders_outbox_publish_duration_seconds",
			Help:    "Time from Publish to server ack.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"topic"}),
	}
	reg.MustRegister(m.events, m.latency)
	return m
}

func (m *OutboxMetrics) Observe(eventType, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(eventType, result).Inc()
}

func (m *OutboxMetrics) ObservePublish(topic string, d time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(topic).Observe(d.Seconds())
}
