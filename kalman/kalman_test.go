package kalman

import (
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/goforecast/telemetry"
)

func TestConstantStreamConvergesMonotonically(t *testing.T) {
	const c = 42.0
	params := DefaultParams()
	params.Q = 0
	params.R = 4
	params.InitialCovariance = 10

	f, err := New(params)
	require.NoError(t, err)

	obs := make([]float64, 40)
	for i := range obs {
		obs[i] = c
	}
	states, err := f.Run(obs)
	require.NoError(t, err)
	require.Len(t, states, len(obs))

	prevDist, prevCov := math.Abs(params.InitialMean-c), params.InitialCovariance
	for i, st := range states {
		dist := math.Abs(st.Mean - c)
		assert.LessOrEqual(t, dist, prevDist, "step %d", i)
		assert.LessOrEqual(t, st.Mean, c, "step %d overshoots", i)
		assert.LessOrEqual(t, st.Covariance, prevCov, "step %d", i)
		assert.GreaterOrEqual(t, st.Covariance, 0.0)
		prevDist, prevCov = dist, st.Covariance
	}
}

func TestFourTens(t *testing.T) {
	f, err := New(Params{F: 1, H: 1, Q: 0.01, R: 1, InitialMean: 0, InitialCovariance: 1000})
	require.NoError(t, err)

	states, err := f.Run([]float64{10, 10, 10, 10})
	require.NoError(t, err)
	require.Len(t, states, 4)
	for _, st := range states {
		assert.GreaterOrEqual(t, st.Covariance, 0.0)
	}
	assert.InDelta(t, 10, states[3].Mean, 0.5)
	assert.Equal(t, states[3].Mean, f.Current().Mean)
}

func TestFirstStepMatchesClosedForm(t *testing.T) {
	f, err := New(Params{F: 1, H: 1, Q: 0.5, R: 2, InitialMean: 1, InitialCovariance: 3})
	require.NoError(t, err)

	st, err := f.Step(5)
	require.NoError(t, err)

	// P_pred = 3.5, S = 5.5, K = 3.5/5.5.
	k := 3.5 / 5.5
	assert.InDelta(t, k, st.Gain, 1e-12)
	assert.InDelta(t, 4.0, st.Innovation, 1e-12)
	assert.InDelta(t, 1+k*4, st.Mean, 1e-12)
	assert.InDelta(t, (1-k)*3.5, st.Covariance, 1e-12)
}

func TestPredictionsAligned(t *testing.T) {
	f, err := New(Params{F: 1, H: 1, Q: 0.1, R: 1, InitialMean: 7, InitialCovariance: 1})
	require.NoError(t, err)

	obs := []float64{8, 9, 10}
	states, err := f.Run(obs)
	require.NoError(t, err)

	preds := f.Predictions()
	require.Len(t, preds, len(obs))
	assert.Equal(t, 7.0, preds[0])
	assert.Equal(t, states[0].Mean, preds[1])
	assert.Equal(t, states[1].Mean, preds[2])

	traj := f.Trajectory()
	traj[0].Mean = -1
	assert.Equal(t, states[0].Mean, f.Trajectory()[0].Mean)
}

func TestValidate(t *testing.T) {
	bad := []Params{
		{F: 1, H: 1, Q: -1, R: 1},
		{F: 1, H: 1, Q: 0, R: -0.1},
		{F: 1, H: 1, R: 1, InitialCovariance: -5},
		{F: math.NaN(), H: 1, R: 1},
	}
	for _, p := range bad {
		_, err := New(p)
		assert.ErrorIs(t, err, ErrInvalidParams)
	}
	assert.NoError(t, DefaultParams().Validate())
}

func TestDegenerateInnovationVariance(t *testing.T) {
	f, err := New(Params{F: 1, H: 1, Q: 0, R: 0, InitialMean: 1, InitialCovariance: 0})
	require.NoError(t, err)

	_, err = f.Step(2)
	assert.ErrorIs(t, err, ErrNumericalInstability)
	assert.Empty(t, f.Trajectory())
}

func TestRunStopsOnBadObservation(t *testing.T) {
	f, err := New(DefaultParams())
	require.NoError(t, err)

	states, err := f.Run([]float64{1, 2, math.Inf(1), 4})
	assert.Error(t, err)
	assert.Len(t, states, 2)
}

func TestFilterRecordsMetrics(t *testing.T) {
	m := telemetry.NewMetrics(nil)
	f, err := New(DefaultParams(), WithMetrics(m))
	require.NoError(t, err)

	_, err = f.Run([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FilterUpdates))
}
