package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/goforecast/timeseries"
)

func prices(n int) []float64 {
	values := make([]float64, n)
	values[0] = 100
	for i := 1; i < n; i++ {
		values[i] = values[i-1] * (1 + float64((i*7)%11-5)/200)
	}
	return values
}

func TestLogRoundTrip(t *testing.T) {
	s := timeseries.New(prices(60))

	p := NewPipeline()
	logged, err := p.Log(s)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(100), logged.Values[0], 1e-12)

	back, err := p.Invert(logged)
	require.NoError(t, err)
	for i, v := range s.Values {
		assert.InEpsilon(t, v, back.Values[i], 1e-9, "index %d", i)
	}
}

func TestLogRejectsNonPositive(t *testing.T) {
	s := timeseries.New([]float64{3, 2, 0, 1})

	_, err := Log(s)
	var npe *NonPositiveValueError
	require.ErrorAs(t, err, &npe)
	assert.Equal(t, 2, npe.Index)
	assert.Equal(t, 0.0, npe.Value)
}

func TestDifferenceLengthAndAnchors(t *testing.T) {
	values := prices(30)
	s := timeseries.New(values)

	for _, lag := range []int{1, 2, 5} {
		diff, step, err := Difference(s, lag)
		require.NoError(t, err)
		assert.Equal(t, len(values)-lag, diff.Len())
		assert.Equal(t, values[:lag], step.Anchors)

		rebuilt := IntegrateDifference(step.Anchors, diff.Values)
		require.Len(t, rebuilt, len(values))
		for i := range values {
			assert.InDelta(t, values[i], rebuilt[i], 1e-9)
		}
	}

	_, _, err := Difference(s, 0)
	assert.ErrorIs(t, err, ErrInvalidLag)
	_, _, err = Difference(s, 30)
	assert.ErrorIs(t, err, ErrInvalidLag)
}

func TestLogDifferenceInvertRecoversOriginal(t *testing.T) {
	s := timeseries.New(prices(40))

	p := NewPipeline()
	logged, err := p.Log(s)
	require.NoError(t, err)
	diff, err := p.Difference(logged, 1)
	require.NoError(t, err)
	require.Equal(t, 39, diff.Len())

	back, err := p.Invert(diff)
	require.NoError(t, err)
	require.Equal(t, s.Len(), back.Len())
	assert.Equal(t, s.Timestamps, back.Timestamps)
	for i, v := range s.Values {
		assert.InEpsilon(t, v, back.Values[i], 1e-9)
	}
}

func TestInvertDifferenceTimestamps(t *testing.T) {
	bare := &timeseries.Series{Values: prices(10)}
	p := NewPipeline()
	diff, err := p.Difference(bare, 1)
	require.NoError(t, err)

	back, err := p.Invert(diff)
	require.NoError(t, err)
	assert.Nil(t, back.Timestamps)
	assert.InDeltaSlice(t, bare.Values, back.Values, 1e-9)

	// Anchors carry timestamps but the differenced values lost theirs.
	p = NewPipeline()
	diff, err = p.Difference(timeseries.New(prices(10)), 1)
	require.NoError(t, err)
	_, err = p.Invert(&timeseries.Series{Values: diff.Values})
	assert.ErrorIs(t, err, timeseries.ErrLengthMismatch)
}

func TestScale(t *testing.T) {
	s := timeseries.New([]float64{0.01, -0.02, 0.03})

	p := NewPipeline()
	scaled, err := p.Scale(s, 100)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -2, 3}, scaled.Values, 1e-12)

	back, err := p.Invert(scaled)
	require.NoError(t, err)
	assert.InDeltaSlice(t, s.Values, back.Values, 1e-15)

	_, err = Scale(s, 0)
	assert.ErrorIs(t, err, ErrZeroFactor)
}

func TestInvertValue(t *testing.T) {
	p := NewPipeline()
	s := timeseries.New([]float64{50, 55})
	logged, err := p.Log(s)
	require.NoError(t, err)
	_, err = p.Scale(logged, 10)
	require.NoError(t, err)
	assert.True(t, p.Pointwise())

	v, err := p.InvertValue(10 * math.Log(55))
	require.NoError(t, err)
	assert.InEpsilon(t, 55, v, 1e-12)

	_, err = p.Difference(logged, 1)
	require.NoError(t, err)
	_, err = p.InvertValue(1)
	assert.ErrorIs(t, err, ErrNotPointwise)
	assert.Len(t, p.Steps(), 3)
	assert.Equal(t, "difference", p.Steps()[2].Kind.String())
}
