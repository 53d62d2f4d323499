package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for therapist verification: decisions applied
// by the service, submissions from the admin console, and client round trips.
// All methods are safe on a nil receiver.
type Metrics struct {
	// Decisions applied by the verification service, by stage, decision and outcome
	DecisionsApplied *prometheus.CounterVec
	DecisionLatency  *prometheus.HistogramVec

	// Admin-side submissions rejected before or instead of a network call
	SubmissionRejected *prometheus.CounterVec
	SubmissionLatency  *prometheus.HistogramVec

	// Verification service round trips by operation and result
	ClientLatency *prometheus.HistogramVec

	RosterSize prometheus.Gauge
}

// New registers metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers metrics on reg. Tests pass a fresh prometheus.NewRegistry().
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecisionsApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_verification_decisions_total",
			Help: "Stage decisions handled by the verification service",
		}, []string{"stage", "decision", "outcome"}), // outcome: applied, not_actionable, locked, error

		DecisionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carebridge_verification_decision_duration_seconds",
			Help:    "Duration of decision application including lock and store round trips",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"stage"}),

		SubmissionRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "carebridge_executor_rejections_total",
			Help: "Decision submissions rejected by the executor, by reason",
		}, []string{"reason"}), // reason: not_actionable, in_progress, transport, unauthorized

		SubmissionLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carebridge_executor_submission_duration_seconds",
			Help:    "Duration of decision submissions that reached the verification service",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),

		ClientLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carebridge_client_request_duration_seconds",
			Help:    "Verification service request duration by operation and result",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation", "result"}),

		RosterSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "carebridge_executor_roster_size",
			Help: "Therapist records held by the executor after the last refresh",
		}),
	}
}

func (m *Metrics) IncrementDecision(stage, decision, outcome string) {
	if m != nil {
		m.DecisionsApplied.WithLabelValues(stage, decision, outcome).Inc()
	}
}

// ObserveDecision records decision latency. Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveDecision(stage string, start time.Time) {
	if m != nil {
		m.DecisionLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncrementRejection(reason string) {
	if m != nil {
		m.SubmissionRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveSubmission(stage string, d time.Duration) {
	if m != nil {
		m.SubmissionLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveClientRequest(operation, result string, d time.Duration) {
	if m != nil {
		m.ClientLatency.WithLabelValues(operation, result).Observe(d.Seconds())
	}
}

func (m *Metrics) SetRosterSize(n int) {
	if m != nil {
		m.RosterSize.Set(float64(n))
	}
}
