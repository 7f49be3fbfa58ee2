package timeseries

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	s := New(values)

	require.Equal(t, 5, s.Len())
	assert.Equal(t, values, s.Values)
	assert.Equal(t, Epoch.AddDate(0, 0, 4), s.Timestamps[4])

	values[0] = 99
	assert.Equal(t, 1.0, s.Values[0], "New must copy its input")
}

func TestNewWithTimestamps(t *testing.T) {
	day := func(i int) time.Time { return Epoch.AddDate(0, 0, i) }

	tests := []struct {
		name       string
		timestamps []time.Time
		values     []float64
		wantErr    error
	}{
		{"valid", []time.Time{day(0), day(1), day(3)}, []float64{1, 2, 3}, nil},
		{"length mismatch", []time.Time{day(0)}, []float64{1, 2}, ErrLengthMismatch},
		{"duplicate", []time.Time{day(0), day(0)}, []float64{1, 2}, ErrNotIncreasing},
		{"decreasing", []time.Time{day(2), day(1)}, []float64{1, 2}, ErrNotIncreasing},
		{"nan", []time.Time{day(0), day(1)}, []float64{1, math.NaN()}, ErrNonFinite},
		{"inf", []time.Time{day(0), day(1)}, []float64{math.Inf(1), 1}, ErrNonFinite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewWithTimestamps(tt.timestamps, tt.values)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.values), s.Len())
		})
	}
}

func TestNewPrices(t *testing.T) {
	ts := []time.Time{Epoch, Epoch.AddDate(0, 0, 1)}

	_, err := NewPrices(ts, []float64{10, 0})
	require.ErrorIs(t, err, ErrNonPositivePrice)

	s, err := NewPrices(ts, []float64{10, 11})
	require.NoError(t, err)
	assert.Equal(t, 11.0, s.Last())
}

func TestMeanAndStd(t *testing.T) {
	s := New([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	assert.InDelta(t, 5.0, s.Mean(), 1e-12)
	assert.InDelta(t, 4.571428571428571, s.Variance(), 1e-10)
	assert.InDelta(t, math.Sqrt(4.571428571428571), s.Std(), 1e-10)
	assert.Equal(t, 0.0, New(nil).Mean())
}

func TestDiffN(t *testing.T) {
	s := New([]float64{1, 3, 6, 10, 15})

	d1 := s.Diff()
	assert.Equal(t, []float64{2, 3, 4, 5}, d1.Values)
	assert.Equal(t, s.Timestamps[1], d1.Timestamps[0])

	d2 := s.DiffN(2)
	assert.Equal(t, []float64{5, 7, 9}, d2.Values)

	assert.Equal(t, 0, s.DiffN(5).Len())
	assert.Equal(t, 0, s.DiffN(0).Len())
}

func TestDiffNWithoutTimestamps(t *testing.T) {
	s := &Series{Values: []float64{1, 3, 6, 10}}

	d := s.Diff()
	assert.Equal(t, []float64{2, 3, 4}, d.Values)
	assert.Nil(t, d.Timestamps)
	assert.Nil(t, s.Slice(1, 3).Timestamps)
}

func TestSliceAndSplit(t *testing.T) {
	s := New([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	sub := s.Slice(2, 5)
	assert.Equal(t, []float64{3, 4, 5}, sub.Values)
	assert.Equal(t, 0, s.Slice(5, 2).Len())

	train, test, err := s.Split(0.8)
	require.NoError(t, err)
	assert.Equal(t, 8, train.Len())
	assert.Equal(t, []float64{9, 10}, test.Values)

	_, _, err = s.Split(1)
	assert.Error(t, err)
	_, _, err = New([]float64{1}).Split(0.5)
	assert.Error(t, err)
}

func TestWithValuesDoesNotAlias(t *testing.T) {
	s := New([]float64{1, 2, 3})

	w, err := s.WithValues([]float64{4, 5, 6}, "w")
	require.NoError(t, err)
	w.Values[0] = 100
	assert.Equal(t, 1.0, s.Values[0])

	_, err = s.WithValues([]float64{1}, "short")
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
