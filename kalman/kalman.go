package kalman

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/sartorproj/goforecast/telemetry"
)

// negativeTolerance is the largest negative variance treated as rounding
// noise and clamped to zero.
const negativeTolerance = -1e-12

var (
	// ErrNumericalInstability is returned when the variance becomes
	// negative beyond rounding noise or non-finite.
	ErrNumericalInstability = errors.New("kalman: numerical instability")
	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("kalman: invalid parameters")
)

// Params fixes the model for a run.
type Params struct {
	F                 float64 `yaml:"f" json:"f"`
	H                 float64 `yaml:"h" json:"h"`
	Q                 float64 `yaml:"q" json:"q"`
	R                 float64 `yaml:"r" json:"r"`
	InitialMean       float64 `yaml:"initial_mean" json:"initial_mean"`
	InitialCovariance float64 `yaml:"initial_covariance" json:"initial_covariance"`
}

// DefaultParams describes a persistent level observed directly with unit
// noise and a diffuse prior.
func DefaultParams() Params {
	return Params{
		F:                 1,
		H:                 1,
		Q:                 0.01,
		R:                 1,
		InitialMean:       0,
		InitialCovariance: 1000,
	}
}

// Validate rejects non-finite values and negative variances.
func (p Params) Validate() error {
	for name, v := range map[string]float64{
		"f": p.F, "h": p.H, "q": p.Q, "r": p.R,
		"initial_mean": p.InitialMean, "initial_covariance": p.InitialCovariance,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidParams, name, v)
		}
	}
	if p.Q < 0 || p.R < 0 || p.InitialCovariance < 0 {
		return fmt.Errorf("%w: variances must be non-negative (q=%g r=%g p0=%g)", ErrInvalidParams, p.Q, p.R, p.InitialCovariance)
	}
	return nil
}

// State is the filtered estimate after one observation.
type State struct {
	Mean       float64 `json:"mean"`
	Covariance float64 `json:"covariance"`
	Gain       float64 `json:"gain"`
	Innovation float64 `json:"innovation"`
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Filter) { f.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(f *Filter) { f.metrics = m }
}

// Filter carries state across observations. It is not safe for concurrent
// use; start a fresh Filter for every run.
type Filter struct {
	params      Params
	mean        float64
	covariance  float64
	trajectory  []State
	predictions []float64

	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// New returns a filter positioned at the initial mean and covariance.
func New(params Params, opts ...Option) (*Filter, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	f := &Filter{
		params:     params,
		mean:       params.InitialMean,
		covariance: params.InitialCovariance,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Step runs one predict/update cycle for observation z. On error the filter
// state is left unchanged.
func (f *Filter) Step(z float64) (State, error) {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return State{}, fmt.Errorf("kalman: observation %d is %v", len(f.trajectory), z)
	}
	p := f.params

	meanPred := p.F * f.mean
	covPred := p.F*p.F*f.covariance + p.Q

	innovation := z - p.H*meanPred
	s := p.H*p.H*covPred + p.R
	if s <= 0 || math.IsInf(s, 0) || math.IsNaN(s) {
		return State{}, fmt.Errorf("%w: innovation variance %g at step %d", ErrNumericalInstability, s, len(f.trajectory))
	}
	gain := p.H * covPred / s

	// Joseph form keeps the update symmetric and non-negative up to rounding.
	oneMinus := 1 - gain*p.H
	cov := oneMinus*oneMinus*covPred + gain*gain*p.R
	if cov < 0 && cov >= negativeTolerance {
		cov = 0
	}
	if cov < 0 || math.IsNaN(cov) || math.IsInf(cov, 0) {
		return State{}, fmt.Errorf("%w: covariance %g at step %d", ErrNumericalInstability, cov, len(f.trajectory))
	}
	mean := meanPred + gain*innovation
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return State{}, fmt.Errorf("%w: mean %g at step %d", ErrNumericalInstability, mean, len(f.trajectory))
	}

	f.predictions = append(f.predictions, p.H*meanPred)
	f.mean, f.covariance = mean, cov
	st := State{Mean: mean, Covariance: cov, Gain: gain, Innovation: innovation}
	f.trajectory = append(f.trajectory, st)

	f.metrics.FilterUpdate()
	f.log.Trace().Int("step", len(f.trajectory)-1).Float64("mean", mean).Float64("covariance", cov).Msg("kalman update")
	return st, nil
}

// Run filters observations in order and returns their states. On failure
// the states produced so far are returned with the error.
func (f *Filter) Run(observations []float64) ([]State, error) {
	out := make([]State, 0, len(observations))
	for _, z := range observations {
		st, err := f.Step(z)
		if err != nil {
			return out, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Current returns the latest state, or the prior before any observation.
func (f *Filter) Current() State {
	return State{Mean: f.mean, Covariance: f.covariance}
}

// Trajectory returns a copy of every state produced so far.
func (f *Filter) Trajectory() []State {
	return append([]State(nil), f.trajectory...)
}

// Predictions returns the one-step-ahead predictions H·F·μ made before each
// observation, aligned with the observations.
func (f *Filter) Predictions() []float64 {
	return append([]float64(nil), f.predictions...)
}
