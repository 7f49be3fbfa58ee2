package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePrices(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Volume\n")
	day := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	level := 0.0
	for i := 0; i < n; i++ {
		level = 0.5*level + float64(i%7-3)/100
		c := 100 * math.Exp(level)
		fmt.Fprintf(&b, "%s,%.4f,%.4f,%.4f,%.4f,%d\n", day.AddDate(0, 0, i).Format(time.DateOnly), c, c+1, c-1, c, 1000+i)
	}
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	out, err := execute(t, "analyze", writePrices(t, 80), "-o", "json", "--short-window", "5")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Contains(t, []any{"STATIONARY", "NON_STATIONARY"}, report["verdict"])
	assert.Contains(t, report, "critical_values")
}

func TestAnalyzeTable(t *testing.T) {
	out, err := execute(t, "analyze", writePrices(t, 80), "--transformed")
	require.NoError(t, err)
	assert.Contains(t, out, "ADF statistic")
	assert.Contains(t, out, "Close_log")
}

func TestSelect(t *testing.T) {
	out, err := execute(t, "select", writePrices(t, 90), "-o", "json",
		"--strategy", "grid", "--max-p", "1", "--max-d", "1", "--max-q", "1", "--unit-root-d=false")
	require.NoError(t, err)

	var result struct {
		Order     map[string]int `json:"order"`
		Evaluated int            `json:"evaluated"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 8, result.Evaluated)
	assert.Contains(t, result.Order, "p")

	out, err = execute(t, "select", writePrices(t, 90), "--max-p", "1", "--max-q", "1", "--candidates", "--unit-root-d=false")
	require.NoError(t, err)
	assert.Contains(t, out, "selected")
	assert.Contains(t, out, "ARIMA(0,0,0)")

	// With d fixed by the unit-root test only p and q are searched.
	out, err = execute(t, "select", writePrices(t, 90), "-o", "json",
		"--strategy", "grid", "--max-p", "1", "--max-d", "1", "--max-q", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 4, result.Evaluated)
}

func TestEvaluate(t *testing.T) {
	out, err := execute(t, "evaluate", writePrices(t, 60), "--order", "1,0,0", "--train-fraction", "0.9")
	require.NoError(t, err)
	assert.Contains(t, out, "ARIMA(1,0,0)")
	assert.Contains(t, out, "walk-forward accuracy")
	assert.Contains(t, out, "2024-02-")

	_, err = execute(t, "evaluate", writePrices(t, 60), "--order", "1,0")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	out, err := execute(t, "filter", writePrices(t, 30), "-o", "json", "--init-from-first")
	require.NoError(t, err)

	var result struct {
		States      []map[string]float64 `json:"states"`
		Predictions []float64            `json:"predictions"`
		Accuracy    map[string]float64   `json:"accuracy"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.States, 30)
	assert.Len(t, result.Predictions, 30)
	assert.Equal(t, 29.0, result.Accuracy["count"])
}

func TestRunWritesMetrics(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "run.yaml")
	cfgData := `
selection:
  order: {p: 1, d: 0, q: 0}
walkforward:
  train_fraction: 0.9
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgData), 0o600))
	metricsPath := filepath.Join(dir, "metrics.prom")

	out, err := execute(t, "run", writePrices(t, 100), "-c", cfgPath, "--metrics-file", metricsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "raw series")
	assert.Contains(t, out, "kalman accuracy")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `goforecast_walkforward_steps_total{outcome="ok"} 10`)
	assert.Contains(t, string(metrics), "goforecast_kalman_updates_total 100")
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "run", writePrices(t, 80), "-o", "json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Contains(t, report, "steps")
	assert.Contains(t, report, "search")
}

func TestRootRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "analyze", writePrices(t, 40), "-o", "xml")
	assert.Error(t, err)

	_, err = execute(t, "analyze", writePrices(t, 40), "--log-level", "loud")
	assert.Error(t, err)

	_, err = execute(t, "analyze", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestParseOrder(t *testing.T) {
	o, err := parseOrder(" 2, 1 ,0")
	require.NoError(t, err)
	assert.Equal(t, 2, o.P)
	assert.Equal(t, 1, o.D)

	_, err = parseOrder("a,b,c")
	assert.Error(t, err)
}
