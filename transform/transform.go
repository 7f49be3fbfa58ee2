package transform

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/sartorproj/goforecast/timeseries"
)

var (
	// ErrInvalidLag is returned for a differencing lag < 1 or >= series length.
	ErrInvalidLag = errors.New("difference lag must be >= 1 and shorter than the series")
	// ErrZeroFactor is returned when scaling by zero, which cannot be inverted.
	ErrZeroFactor = errors.New("scale factor must be non-zero and finite")
	// ErrNotPointwise is returned by InvertValue when the pipeline contains a
	// transform that cannot be inverted one value at a time.
	ErrNotPointwise = errors.New("pipeline is not pointwise invertible")
)

// NonPositiveValueError is returned by Log for a value <= 0.
type NonPositiveValueError struct {
	Index int
	Value float64
}

func (e *NonPositiveValueError) Error() string {
	return fmt.Sprintf("log transform: non-positive value %g at index %d", e.Value, e.Index)
}

// Kind identifies a transform.
type Kind int

const (
	KindLog Kind = iota
	KindDifference
	KindScale
)

func (k Kind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindDifference:
		return "difference"
	case KindScale:
		return "scale"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Step records one applied transform and what is needed to undo it.
type Step struct {
	Kind   Kind
	Lag    int
	Factor float64
	// Anchors holds the leading Lag values dropped by differencing.
	Anchors []float64
	// AnchorTimes holds the timestamps of the dropped anchors.
	AnchorTimes []time.Time
}

// Log returns the natural logarithm of every value.
func Log(s *timeseries.Series) (*timeseries.Series, error) {
	out := make([]float64, s.Len())
	for i, v := range s.Values {
		if v <= 0 {
			return nil, &NonPositiveValueError{Index: i, Value: v}
		}
		out[i] = math.Log(v)
	}
	return s.WithValues(out, s.Name+"_log")
}

// Difference returns y[t] - y[t-lag]. The first lag values are dropped and
// reported in the returned step as anchors.
func Difference(s *timeseries.Series, lag int) (*timeseries.Series, Step, error) {
	if lag < 1 || lag >= s.Len() {
		return nil, Step{}, fmt.Errorf("lag %d for %d observations: %w", lag, s.Len(), ErrInvalidLag)
	}
	step := Step{
		Kind:        KindDifference,
		Lag:         lag,
		Anchors:     append([]float64(nil), s.Values[:lag]...),
		AnchorTimes: append([]time.Time(nil), s.Timestamps[:min(lag, len(s.Timestamps))]...),
	}
	return s.DiffN(lag), step, nil
}

// Scale multiplies every value by factor.
func Scale(s *timeseries.Series, factor float64) (*timeseries.Series, error) {
	if factor == 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return nil, ErrZeroFactor
	}
	out := s.ValuesCopy()
	floats.Scale(factor, out)
	return s.WithValues(out, s.Name+"_scaled")
}

// IntegrateDifference reconstructs a series from its lag-k differences and
// the k leading anchor values: out[:k] = anchors, out[t] = diffs[t-k] + out[t-k].
func IntegrateDifference(anchors, diffs []float64) []float64 {
	lag := len(anchors)
	out := make([]float64, lag+len(diffs))
	copy(out, anchors)
	for j, d := range diffs {
		out[lag+j] = d + out[j]
	}
	return out
}
