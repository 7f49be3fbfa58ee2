package stats

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/goforecast/timeseries"
)

func whiteNoise(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + rng.NormFloat64()
	}
	return values
}

func driftingWalk(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	values := make([]float64, n)
	values[0] = 100
	for i := 1; i < n; i++ {
		values[i] = values[i-1] + 1 + rng.NormFloat64()
	}
	return values
}

func TestACF(t *testing.T) {
	n := 100
	phi := 0.8
	values := make([]float64, n)
	for i := 1; i < n; i++ {
		values[i] = phi*values[i-1] + (float64(i%10)-5)/10
	}

	acf := ACF(values, 10)
	require.Len(t, acf, 11)
	assert.InDelta(t, 1.0, acf[0], 1e-10)
	assert.Greater(t, acf[1], 0.5)

	assert.Nil(t, ACF([]float64{3, 3, 3}, 2))
	assert.Len(t, ACF([]float64{1, 2, 3}, 10), 3)
}

func TestADF(t *testing.T) {
	stationary, err := ADF(whiteNoise(200, 7), 0)
	require.NoError(t, err)
	assert.Less(t, stationary.PValue, 0.01)
	assert.Less(t, stationary.Statistic, stationary.CriticalVals["1%"])
	assert.Equal(t, 5, stationary.Lags)
	assert.Equal(t, 194, stationary.NObs)

	walk, err := ADF(driftingWalk(200, 7), 0)
	require.NoError(t, err)
	assert.Greater(t, walk.PValue, 0.05)

	_, err = ADF([]float64{1, 2, 3}, 0)
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 3, ide.Have)
}

func TestADFConstantSeries(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 1
	}

	result, err := ADF(values, 0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(result.Statistic, -1))
	assert.Equal(t, 0.0, result.PValue)
}

func TestCriticalValues(t *testing.T) {
	cv := criticalValues(100000)
	assert.InDelta(t, -3.43, cv["1%"], 0.01)
	assert.InDelta(t, -2.86, cv["5%"], 0.01)
	assert.InDelta(t, -2.57, cv["10%"], 0.01)

	small := criticalValues(50)
	assert.Less(t, small["1%"], cv["1%"], "small samples have more negative critical values")
}

func TestMacKinnonPValue(t *testing.T) {
	assert.InDelta(t, 0.05, mackinnonPValue(-2.86), 0.005)
	assert.InDelta(t, 0.01, mackinnonPValue(-3.43), 0.005)
	assert.Equal(t, 0.0, mackinnonPValue(-20))
	assert.Equal(t, 1.0, mackinnonPValue(3))

	prev := 0.0
	for stat := -18.0; stat <= 2.7; stat += 0.1 {
		p := mackinnonPValue(stat)
		assert.GreaterOrEqual(t, p, prev-1e-3, "p-value should increase with the statistic (stat=%.2f)", stat)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		prev = p
	}
}

func TestVerdictFor(t *testing.T) {
	for p := 0.0; p <= 1.0; p += 0.001 {
		want := NonStationary
		if p <= 0.05 {
			want = Stationary
		}
		assert.Equal(t, want, VerdictFor(p), "p=%.3f", p)
	}
	assert.Equal(t, Stationary, VerdictFor(0.05))
	assert.Equal(t, "NON_STATIONARY", NonStationary.String())
}

func TestAnalyze(t *testing.T) {
	series := timeseries.New(whiteNoise(120, 3))

	report, err := Analyze(series, 7, 30)
	require.NoError(t, err)

	assert.Equal(t, Stationary, report.Verdict)
	assert.Equal(t, VerdictFor(report.PValue), report.Verdict)
	require.Len(t, report.Comparisons, 3)
	assert.Equal(t, "1%", report.Comparisons[0].Level)
	for _, c := range report.Comparisons {
		assert.Equal(t, report.Statistic < c.Value, c.Rejected)
	}

	require.Len(t, report.RollingMean, 120)
	require.Len(t, report.RollingStd, 120)
	assert.True(t, math.IsNaN(report.RollingMean[28]))
	assert.False(t, math.IsNaN(report.RollingMean[29]))
	assert.True(t, math.IsNaN(report.RollingStd[5]))
	assert.False(t, math.IsNaN(report.RollingStd[6]))
}

func TestAnalyzeNonStationary(t *testing.T) {
	report, err := Analyze(timeseries.New(driftingWalk(150, 9)), 5, 20)
	require.NoError(t, err)
	assert.Equal(t, NonStationary, report.Verdict)
}

func TestAnalyzeConstantSeriesJSON(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 3
	}
	report, err := Analyze(timeseries.New(values), 5, 10)
	require.NoError(t, err)
	assert.Equal(t, Stationary, report.Verdict)
	assert.True(t, math.IsInf(report.Statistic, -1))

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"statistic":null`)
	assert.Contains(t, string(data), `"verdict":"STATIONARY"`)
	assert.NotContains(t, string(data), "rolling")
}

func TestAnalyzeErrors(t *testing.T) {
	series := timeseries.New(whiteNoise(30, 1))

	_, err := Analyze(series, 5, 30)
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 31, ide.Need)
	assert.Equal(t, 30, ide.Have)

	_, err = Analyze(series, 0, 5)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestRolling(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	mean := RollingMean(values, 3)
	assert.True(t, math.IsNaN(mean[0]))
	assert.True(t, math.IsNaN(mean[1]))
	assert.InDeltaSlice(t, []float64{2, 3, 4}, mean[2:], 1e-12)

	std := RollingStd(values, 2)
	assert.InDelta(t, math.Sqrt(0.5), std[4], 1e-12)
	assert.Equal(t, 0.0, RollingStd(values, 1)[0])
}

func TestLjungBox(t *testing.T) {
	noise := whiteNoise(200, 11)
	for i := range noise {
		noise[i] -= 100
	}
	wn := LjungBox(noise, 10, 0)
	require.NotNil(t, wn)

	autocorrelated := make([]float64, 200)
	for i := 1; i < len(autocorrelated); i++ {
		autocorrelated[i] = 0.9*autocorrelated[i-1] + noise[i]
	}
	ac := LjungBox(autocorrelated, 10, 0)
	require.NotNil(t, ac)

	assert.Less(t, ac.PValue, 0.001)
	assert.Greater(t, ac.Statistic, wn.Statistic)
	assert.Equal(t, 8, LjungBox(noise, 10, 2).DOF)
	assert.Nil(t, LjungBox(noise[:5], 10, 0))
}

func TestNDiffs(t *testing.T) {
	assert.Equal(t, 0, NDiffs(whiteNoise(200, 5), 2))
	assert.Equal(t, 1, NDiffs(driftingWalk(200, 5), 2))
}
