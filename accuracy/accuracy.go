package accuracy

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmptyInput is returned when there is nothing to summarise.
	ErrEmptyInput = errors.New("accuracy: empty input")
	// ErrZeroActual is returned when a percentage error is undefined.
	ErrZeroActual = errors.New("accuracy: actual value is zero")
)

// Pair is a forecast and the value that was later observed.
type Pair struct {
	Predicted float64 `json:"predicted"`
	Actual    float64 `json:"actual"`
}

// Summary holds aggregate error metrics. MAPE is in percent.
type Summary struct {
	Count int     `json:"count"`
	MAPE  float64 `json:"mape"`
	MSE   float64 `json:"mse"`
	RMSE  float64 `json:"rmse"`
	MAE   float64 `json:"mae"`
}

func (s Summary) String() string {
	return fmt.Sprintf("n=%d MAPE=%.4f%% MSE=%.6g RMSE=%.6g MAE=%.6g", s.Count, s.MAPE, s.MSE, s.RMSE, s.MAE)
}

// PercentageError returns |predicted-actual|/|actual| * 100.
func PercentageError(predicted, actual float64) (float64, error) {
	if actual == 0 {
		return 0, ErrZeroActual
	}
	return math.Abs(predicted-actual) / math.Abs(actual) * 100, nil
}

// Summarize computes MAPE, MSE, RMSE and MAE over pairs.
func Summarize(pairs []Pair) (Summary, error) {
	if len(pairs) == 0 {
		return Summary{}, ErrEmptyInput
	}

	n := len(pairs)
	residuals := make([]float64, n)
	pct := make([]float64, n)
	for i, p := range pairs {
		if math.IsNaN(p.Predicted) || math.IsNaN(p.Actual) {
			return Summary{}, fmt.Errorf("accuracy: pair %d is NaN", i)
		}
		pe, err := PercentageError(p.Predicted, p.Actual)
		if err != nil {
			return Summary{}, fmt.Errorf("pair %d: %w", i, err)
		}
		pct[i] = pe
		residuals[i] = p.Predicted - p.Actual
	}

	count := float64(n)
	mse := floats.Dot(residuals, residuals) / count
	return Summary{
		Count: n,
		MAPE:  floats.Sum(pct) / count,
		MSE:   mse,
		RMSE:  math.Sqrt(mse),
		MAE:   floats.Norm(residuals, 1) / count,
	}, nil
}
