package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for ops audit tracking.
type Metrics struct {
	Tracked         prometheus.Counter
	Suppressed      prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics registers ops audit metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Tracked: f.NewCounter(prometheus.CounterOpts{
			Name: "carebridge_audit_ops_tracked_total",
			Help: "Total number of operational audit events successfully tracked",
		}),
		Suppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "carebridge_audit_ops_suppressed_total",
			Help: "Total number of duplicate operational audit events folded by the suppressor",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "carebridge_audit_ops_persist_failures_total",
			Help: "Total number of operational audit event persistence failures",
		}),
	}
}

func (m *Metrics) IncTracked() {
	if m != nil {
		m.Tracked.Inc()
	}
}

func (m *Metrics) IncSuppressed() {
	if m != nil {
		m.Suppressed.Inc()
	}
}

func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
