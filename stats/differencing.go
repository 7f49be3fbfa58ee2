package stats

// NDiffs returns the number of first differences, at most maxD, after which
// the ADF test judges the series stationary. maxD <= 0 means 2.
func NDiffs(values []float64, maxD int) int {
	if maxD <= 0 {
		maxD = 2
	}

	current := values
	for d := 0; d < maxD; d++ {
		result, err := ADF(current, 0)
		if err != nil {
			return d
		}
		if VerdictFor(result.PValue) == Stationary {
			return d
		}

		next := make([]float64, len(current)-1)
		for i := 1; i < len(current); i++ {
			next[i-1] = current[i] - current[i-1]
		}
		current = next
	}

	return maxD
}
