package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "goforecast"

// Step outcomes recorded by StepDone.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics groups the collectors.
type Metrics struct {
	Fits             *prometheus.CounterVec
	Candidates       prometheus.Counter
	Steps            *prometheus.CounterVec
	PercentageErrors prometheus.Histogram
	FilterUpdates    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fits_total",
			Help:      "Model fits by calling component and outcome.",
		}, []string{"component", "outcome"}),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_candidates_total",
			Help:      "Order candidates evaluated by the order search.",
		}),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "walkforward_steps_total",
			Help:      "Walk-forward steps by outcome.",
		}, []string{"outcome"}),
		PercentageErrors: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "walkforward_percentage_error",
			Help:      "Absolute percentage error of walk-forward forecasts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25},
		}),
		FilterUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kalman_updates_total",
			Help:      "Kalman filter predict/update cycles.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Fits, m.Candidates, m.Steps, m.PercentageErrors, m.FilterUpdates)
	}
	return m
}

// FitDone records one model fit.
func (m *Metrics) FitDone(component string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.Fits.WithLabelValues(component, outcome).Inc()
}

// CandidateDone records one evaluated order candidate.
func (m *Metrics) CandidateDone() {
	if m == nil {
		return
	}
	m.Candidates.Inc()
}

// StepDone records a walk-forward step. pctErr is observed for OutcomeOK only.
func (m *Metrics) StepDone(outcome string, pctErr float64) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.PercentageErrors.Observe(pctErr)
	}
}

// FilterUpdate records one Kalman cycle.
func (m *Metrics) FilterUpdate() {
	if m == nil {
		return
	}
	m.FilterUpdates.Inc()
}
