package walkforward

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sartorproj/goforecast/accuracy"
	"github.com/sartorproj/goforecast/arima"
	"github.com/sartorproj/goforecast/telemetry"
)

const component = "walkforward"

// ErrEmptyTrain is returned when there is no history to fit on.
var ErrEmptyTrain = errors.New("walkforward: empty training series")

// StepFitError reports a step whose model could not be fitted or
// forecast.
type StepFitError struct {
	Index int
	Err   error
}

func (e *StepFitError) Error() string {
	return fmt.Sprintf("walkforward: step %d: %v", e.Index, e.Err)
}

func (e *StepFitError) Unwrap() error { return e.Err }

// Policy decides what a failed step does to the run.
type Policy string

const (
	// Abort stops at the first failed step.
	Abort Policy = "abort"
	// Skip records the failed step, still reveals its true value and
	// continues.
	Skip Policy = "skip"
)

// ParsePolicy parses a policy name case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case Abort, Skip:
		return p, nil
	case "":
		return Abort, nil
	default:
		return "", fmt.Errorf("walkforward: unknown policy %q", s)
	}
}

// Step is one forecast compared with the value later observed. Both are in
// the units produced by the inverse transform.
type Step struct {
	Index           int     `json:"index"`
	Predicted       float64 `json:"predicted"`
	Actual          float64 `json:"actual"`
	PercentageError float64 `json:"percentage_error"`
	Skipped         bool    `json:"skipped,omitempty"`
}

// Steps is an ordered run of steps.
type Steps []Step

// Pairs returns the forecast/actual pairs of the steps that were not
// skipped.
func (s Steps) Pairs() []accuracy.Pair {
	out := make([]accuracy.Pair, 0, len(s))
	for _, st := range s {
		if st.Skipped {
			continue
		}
		out = append(out, accuracy.Pair{Predicted: st.Predicted, Actual: st.Actual})
	}
	return out
}

// SkippedCount returns the number of skipped steps.
func (s Steps) SkippedCount() int {
	n := 0
	for _, st := range s {
		if st.Skipped {
			n++
		}
	}
	return n
}

// History is the append-only sequence of values a run has observed.
type History struct {
	values []float64
}

// NewHistory returns a history seeded with a copy of values.
func NewHistory(values []float64) *History {
	return &History{values: append([]float64(nil), values...)}
}

// Append reveals one more observation.
func (h *History) Append(v float64) { h.values = append(h.values, v) }

// Len returns the number of observations.
func (h *History) Len() int { return len(h.values) }

// Snapshot returns a copy of the observations.
func (h *History) Snapshot() []float64 {
	return append([]float64(nil), h.values...)
}

// Option configures a Forecaster.
type Option func(*Forecaster)

// WithInverse sets the function that maps model-space values back to the
// reporting scale, for example math.Exp after a log transform.
func WithInverse(inv func(float64) (float64, error)) Option {
	return func(f *Forecaster) { f.inverse = inv }
}

// WithPolicy sets the failure policy. The default is Abort.
func WithPolicy(p Policy) Option {
	return func(f *Forecaster) { f.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Forecaster) { f.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(f *Forecaster) { f.metrics = m }
}

// Forecaster runs walk-forward evaluations. It holds no per-run state, so
// one Forecaster may evaluate several runs in turn.
type Forecaster struct {
	fitter  arima.Fitter
	inverse func(float64) (float64, error)
	policy  Policy
	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// New returns a Forecaster that fits with fitter.
func New(fitter arima.Fitter, opts ...Option) *Forecaster {
	f := &Forecaster{
		fitter:  fitter,
		inverse: identity,
		policy:  Abort,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.fitter == nil {
		f.fitter = arima.DefaultCSS()
	}
	if f.inverse == nil {
		f.inverse = identity
	}
	f.log = f.log.With().Str("component", component).Logger()
	return f
}

func identity(v float64) (float64, error) { return v, nil }

// Evaluate forecasts each test value from a model refitted on train plus
// the test values before it. Steps are returned in index order. On error
// the steps completed so far are returned alongside it; a failed fit under
// Abort is reported as *StepFitError.
func (f *Forecaster) Evaluate(ctx context.Context, train, test []float64, order arima.Order) (Steps, error) {
	if len(train) == 0 {
		return nil, ErrEmptyTrain
	}

	history := NewHistory(train)
	steps := make(Steps, 0, len(test))
	for t, observed := range test {
		if err := ctx.Err(); err != nil {
			return steps, err
		}

		predicted, fitErr := f.forecast(history, order)

		actual, err := f.inverse(observed)
		if err != nil {
			return steps, fmt.Errorf("walkforward: step %d: invert actual: %w", t, err)
		}
		history.Append(observed)

		if fitErr != nil {
			stepErr := &StepFitError{Index: t, Err: fitErr}
			if f.policy != Skip {
				f.metrics.StepDone(telemetry.OutcomeFailed, 0)
				f.log.Error().Err(fitErr).Int("step", t).Str("order", order.String()).Msg("step failed, aborting")
				return steps, stepErr
			}
			f.metrics.StepDone(telemetry.OutcomeSkipped, 0)
			f.log.Warn().Err(fitErr).Int("step", t).Str("order", order.String()).Msg("step skipped")
			steps = append(steps, Step{Index: t, Actual: actual, Skipped: true})
			continue
		}

		pct, err := accuracy.PercentageError(predicted, actual)
		if err != nil {
			return steps, fmt.Errorf("walkforward: step %d: %w", t, err)
		}
		f.metrics.StepDone(telemetry.OutcomeOK, pct)
		f.log.Debug().
			Int("step", t).
			Int("history", history.Len()-1).
			Float64("predicted", predicted).
			Float64("actual", actual).
			Float64("pct_error", pct).
			Msg("step forecast")
		steps = append(steps, Step{Index: t, Predicted: predicted, Actual: actual, PercentageError: pct})
	}
	return steps, nil
}

// forecast fits order on the current history and returns the inverted
// one-step forecast.
func (f *Forecaster) forecast(history *History, order arima.Order) (float64, error) {
	fitted, err := f.fitter.Fit(history.Snapshot(), order)
	f.metrics.FitDone(component, err)
	if err != nil {
		return 0, err
	}
	preds, err := fitted.Predict(1)
	if err != nil {
		return 0, err
	}
	if len(preds) != 1 || math.IsNaN(preds[0]) || math.IsInf(preds[0], 0) {
		return 0, fmt.Errorf("%w: forecast %v", arima.ErrNotConverged, preds)
	}
	inv, err := f.inverse(preds[0])
	if err != nil {
		return 0, fmt.Errorf("invert forecast: %w", err)
	}
	return inv, nil
}
