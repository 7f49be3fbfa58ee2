package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/goforecast/arima"
	"github.com/sartorproj/goforecast/selection"
	"github.com/sartorproj/goforecast/walkforward"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Transform.Log)
	assert.Equal(t, selection.AIC, cfg.Selection.Criterion)
	assert.Equal(t, walkforward.Abort, cfg.Policy())
	assert.True(t, cfg.Selection.UnitRootD)
	assert.False(t, cfg.Estimator.AllowUnconverged)
	assert.True(t, cfg.SearchConfig(cfg.NewLogger(io.Discard)).UnitRootD)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `
stationarity:
  short_window: 5
estimator:
  max_iter: 50
  allow_unconverged: true
selection:
  strategy: grid
  criterion: bic
  unit_root_d: false
  ranges:
    p: {min: 0, max: 2}
    d: {min: 0, max: 1}
    q: {min: 0, max: 1}
  order: {p: 1, d: 1, q: 0}
walkforward:
  policy: skip
kalman:
  q: 0.5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Stationarity.ShortWindow)
	assert.Equal(t, 12, cfg.Stationarity.LongWindow)
	assert.Equal(t, selection.Grid, cfg.Selection.Strategy)
	assert.Equal(t, selection.BIC, cfg.Selection.Criterion)
	assert.Equal(t, selection.IntRange{Min: 0, Max: 2}, cfg.Selection.Ranges.P)
	require.NotNil(t, cfg.Selection.Order)
	assert.Equal(t, arima.Order{P: 1, D: 1}, *cfg.Selection.Order)
	assert.Equal(t, walkforward.Skip, cfg.Policy())
	assert.Equal(t, 0.5, cfg.Kalman.Q)
	assert.Equal(t, 1.0, cfg.Kalman.F)
	assert.Equal(t, "debug", cfg.Log.Level)

	search := cfg.SearchConfig(cfg.NewLogger(io.Discard))
	assert.Equal(t, selection.BIC, search.Criterion)
	assert.False(t, search.UnitRootD)
	assert.Equal(t, arima.CSS{MaxIter: 50, Tolerance: 1e-8, AllowUnconverged: true}, cfg.Estimator)
	assert.Equal(t, cfg.Estimator, search.Fitter)
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "bogus: 1\n",
		"bad window":      "stationarity: {short_window: 0}\n",
		"zero scale":      "transform: {scale: 0}\n",
		"bad criterion":   "selection: {criterion: hqic}\n",
		"bad strategy":    "selection: {strategy: random}\n",
		"d above max":     "selection: {ranges: {d: {min: 0, max: 3}}}\n",
		"bad order":       "selection: {order: {p: 1, d: 5, q: 0}}\n",
		"bad fraction":    "walkforward: {train_fraction: 1}\n",
		"bad policy":      "walkforward: {policy: retry}\n",
		"negative q":      "kalman: {q: -1}\n",
		"bad level":       "log: {level: loud}\n",
		"bad format":      "log: {format: xml}\n",
		"malformed yaml":  "selection: [\n",
		"negative worker": "selection: {workers: -2}\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"level":"warn"`)
}
