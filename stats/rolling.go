package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// RollingMean returns the trailing mean over window observations. The first
// window-1 entries are NaN.
func RollingMean(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		return stat.Mean(w, nil)
	})
}

// RollingStd returns the trailing sample standard deviation over window
// observations. The first window-1 entries are NaN; a window of one yields 0.
func RollingStd(values []float64, window int) []float64 {
	return rolling(values, window, func(w []float64) float64 {
		if len(w) < 2 {
			return 0
		}
		return stat.StdDev(w, nil)
	})
}

func rolling(values []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if window < 1 || i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(values[i+1-window : i+1])
	}
	return out
}
