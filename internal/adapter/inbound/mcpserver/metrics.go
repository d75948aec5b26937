package mcpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for orggate.
type Metrics struct {
	CallsTotal      *prometheus.CounterVec
	CallDuration    *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge
	AuditDropsTotal prometheus.GaugeFunc
}

// NewMetrics creates and registers all metrics with the given registry.
// auditDrops may be nil when auditing is disabled.
func NewMetrics(reg prometheus.Registerer, auditDrops func() int64) *Metrics {
	m := &Metrics{
		CallsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "orggate",
				Name:      "tool_calls_total",
				Help:      "Total tool calls processed",
			},
			[]string{"tool", "outcome"}, // outcome=ok or the error name
		),
		CallDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "orggate",
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "orggate",
				Name:      "active_sessions",
				Help:      "Number of connected protocol sessions",
			},
		),
	}
	if auditDrops != nil {
		m.AuditDropsTotal = promauto.With(reg).NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "orggate",
				Name:      "audit_drops_total",
				Help:      "Total audit records dropped due to backpressure",
			},
			func() float64 { return float64(auditDrops()) },
		)
	}
	return m
}
