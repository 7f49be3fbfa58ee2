// Package timeseries provides the ordered observation sequence consumed by
// the forecasting packages.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrLengthMismatch is returned when timestamps and values differ in length.
	ErrLengthMismatch = errors.New("timestamps and values must have the same length")
	// ErrNotIncreasing is returned when timestamps are not strictly increasing.
	ErrNotIncreasing = errors.New("timestamps must be strictly increasing")
	// ErrNonFinite is returned for NaN or infinite observations.
	ErrNonFinite = errors.New("values must be finite")
	// ErrNonPositivePrice is returned by NewPrices for a price <= 0.
	ErrNonPositivePrice = errors.New("prices must be positive")
)

// Epoch is the first synthetic timestamp assigned by New.
var Epoch = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// Series represents a time series with timestamps and values.
//
// A Series is treated as immutable: every operation returns a new Series and
// never writes into the receiver's slices.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// New creates a series from values with synthetic daily timestamps.
// The values are copied.
func New(values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = Epoch.AddDate(0, 0, i)
	}
	return &Series{
		Timestamps: timestamps,
		Values:     append([]float64(nil), values...),
	}
}

// NewWithTimestamps creates a series with explicit timestamps. Timestamps
// must be strictly increasing and all values finite.
func NewWithTimestamps(timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, ErrLengthMismatch
	}
	for i := range values {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, fmt.Errorf("index %d: %w", i, ErrNonFinite)
		}
		if i > 0 && !timestamps[i].After(timestamps[i-1]) {
			return nil, fmt.Errorf("index %d (%s): %w", i, timestamps[i].Format(time.DateOnly), ErrNotIncreasing)
		}
	}
	return &Series{
		Timestamps: append([]time.Time(nil), timestamps...),
		Values:     append([]float64(nil), values...),
	}, nil
}

// NewPrices is NewWithTimestamps with the additional constraint that every
// value is a strictly positive price.
func NewPrices(timestamps []time.Time, values []float64) (*Series, error) {
	for i, v := range values {
		if v <= 0 {
			return nil, fmt.Errorf("index %d: %w (got %g)", i, ErrNonPositivePrice, v)
		}
	}
	return NewWithTimestamps(timestamps, values)
}

// Len returns the length of the series.
func (s *Series) Len() int {
	return len(s.Values)
}

// ValuesCopy returns a copy of the observation values.
func (s *Series) ValuesCopy() []float64 {
	return append([]float64(nil), s.Values...)
}

// Last returns the final observation, or NaN for an empty series.
func (s *Series) Last() float64 {
	if len(s.Values) == 0 {
		return math.NaN()
	}
	return s.Values[len(s.Values)-1]
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return stat.Mean(s.Values, nil)
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	return stat.Variance(s.Values, nil)
}

// Std calculates the sample standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// WithValues returns a series sharing the receiver's timestamps (copied) but
// holding the given values. The lengths must match.
func (s *Series) WithValues(values []float64, name string) (*Series, error) {
	if len(values) != len(s.Values) {
		return nil, ErrLengthMismatch
	}
	return &Series{
		Timestamps: append([]time.Time(nil), s.Timestamps...),
		Values:     append([]float64(nil), values...),
		Name:       name,
	}, nil
}

// Diff calculates the first difference of the series (d=1).
func (s *Series) Diff() *Series {
	return s.DiffN(1)
}

// DiffN calculates the lag-n difference y[t] - y[t-n]. The first n
// observations have no predecessor and are dropped. A series without
// timestamps yields a difference without timestamps.
func (s *Series) DiffN(n int) *Series {
	if n <= 0 || len(s.Values) <= n {
		return &Series{Values: []float64{}, Name: s.Name + "_diff"}
	}

	result := make([]float64, len(s.Values)-n)
	for i := n; i < len(s.Values); i++ {
		result[i-n] = s.Values[i] - s.Values[i-n]
	}

	return &Series{
		Timestamps: s.timestamps(n, len(s.Values)),
		Values:     result,
		Name:       s.Name + "_diff",
	}
}

// Slice returns a slice of the series from start to end (exclusive).
func (s *Series) Slice(start, end int) *Series {
	if start < 0 {
		start = 0
	}
	if end > len(s.Values) {
		end = len(s.Values)
	}
	if start >= end {
		return &Series{Values: []float64{}, Name: s.Name}
	}

	values := make([]float64, end-start)
	copy(values, s.Values[start:end])

	return &Series{
		Timestamps: s.timestamps(start, end),
		Values:     values,
		Name:       s.Name,
	}
}

// timestamps copies Timestamps[start:end], or returns nil when the series
// does not carry one timestamp per value.
func (s *Series) timestamps(start, end int) []time.Time {
	if len(s.Timestamps) != len(s.Values) {
		return nil
	}
	return append([]time.Time(nil), s.Timestamps[start:end]...)
}

// Split divides the series into a leading training part holding
// floor(len*fraction) observations and the remaining test part.
func (s *Series) Split(fraction float64) (train, test *Series, err error) {
	if fraction <= 0 || fraction >= 1 {
		return nil, nil, fmt.Errorf("split fraction %g must be in (0, 1)", fraction)
	}
	cut := int(float64(s.Len()) * fraction)
	if cut == 0 || cut == s.Len() {
		return nil, nil, fmt.Errorf("split fraction %g leaves an empty part of a %d-point series", fraction, s.Len())
	}
	return s.Slice(0, cut), s.Slice(cut, s.Len()), nil
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	return &Series{
		Timestamps: append([]time.Time(nil), s.Timestamps...),
		Values:     append([]float64(nil), s.Values...),
		Name:       s.Name,
	}
}
