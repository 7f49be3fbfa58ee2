package stats

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/goforecast/timeseries"
)

// SignificanceLevel is the p-value at or below which a series is judged
// stationary.
const SignificanceLevel = 0.05

var (
	// ErrInvalidWindow is returned for a rolling window < 1.
	ErrInvalidWindow = errors.New("rolling window must be >= 1")
	// ErrDegenerateRegression is returned when the ADF design matrix is
	// singular, e.g. for a series that is constant apart from one jump.
	ErrDegenerateRegression = errors.New("adf regression is singular")
)

// InsufficientDataError reports that a series is too short for the
// requested windows or regression.
type InsufficientDataError struct {
	Need int
	Have int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least %d observations, have %d", e.Need, e.Have)
}

// Verdict is the stationarity classification of a series.
type Verdict int

const (
	NonStationary Verdict = iota
	Stationary
)

func (v Verdict) String() string {
	if v == Stationary {
		return "STATIONARY"
	}
	return "NON_STATIONARY"
}

// MarshalText implements encoding.TextMarshaler.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// VerdictFor classifies a unit-root p-value: stationary iff p <= 0.05.
func VerdictFor(pValue float64) Verdict {
	if pValue <= SignificanceLevel {
		return Stationary
	}
	return NonStationary
}

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // Critical values at 1%, 5%, 10%
}

// ADF performs the Augmented Dickey-Fuller test for a unit root with a
// constant term. The null hypothesis is that the series has a unit root.
//
// maxLag <= 0 selects floor((n-1)^(1/3)) lagged differences. A series with
// zero variance is reported with statistic -Inf and p-value 0.
func ADF(values []float64, maxLag int) (*ADFResult, error) {
	n := len(values)
	if n < 10 {
		return nil, &InsufficientDataError{Need: 10, Have: n}
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil, &InsufficientDataError{Need: maxLag + 11, Have: n}
	}

	if constant(values) {
		return &ADFResult{
			Statistic:    math.Inf(-1),
			PValue:       0,
			Lags:         maxLag,
			NObs:         nObs,
			CriticalVals: criticalValues(nObs),
		}, nil
	}

	diff := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diff[i-1] = values[i] - values[i-1]
	}

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_j * delta_y_{t-j}) + e_t
	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := mat.NewVecDense(nObs, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y.SetVec(i, diff[t])
		x.Set(i, 0, 1)
		x.Set(i, 1, values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff[t-j])
		}
	}

	coeffs, se, err := olsRegression(x, y)
	if err != nil {
		return nil, err
	}

	tStat := coeffs[1] / se[1]
	return &ADFResult{
		Statistic:    tStat,
		PValue:       mackinnonPValue(tStat),
		Lags:         maxLag,
		NObs:         nObs,
		CriticalVals: criticalValues(nObs),
	}, nil
}

// olsRegression fits y = X*beta by least squares and returns the
// coefficients with their standard errors.
func olsRegression(x *mat.Dense, y *mat.VecDense) (coeffs, stdErrors []float64, err error) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil, &InsufficientDataError{Need: k + 1, Have: n}
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDegenerateRegression, err)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)
	var resid mat.VecDense
	resid.SubVec(y, &fitted)
	sse := mat.Dot(&resid, &resid)

	s2 := sse / float64(n-k)
	coeffs = make([]float64, k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
	}
	if stdErrors[1] == 0 || math.IsNaN(stdErrors[1]) {
		return nil, nil, ErrDegenerateRegression
	}
	return coeffs, stdErrors, nil
}

// criticalValues evaluates MacKinnon's (2010) finite-sample response
// surface for the constant-only regression.
func criticalValues(nObs int) map[string]float64 {
	surface := map[string][4]float64{
		"1%":  {-3.43035, -6.5393, -16.786, -79.433},
		"5%":  {-2.86154, -2.8903, -4.234, -40.040},
		"10%": {-2.56677, -1.5384, -2.809, 0},
	}
	inv := 1 / float64(nObs)
	out := make(map[string]float64, len(surface))
	for level, b := range surface {
		out[level] = b[0] + b[1]*inv + b[2]*inv*inv + b[3]*inv*inv*inv
	}
	return out
}

// mackinnonPValue approximates the ADF p-value using MacKinnon's (1994)
// response surface for the constant-only regression with one series.
func mackinnonPValue(stat float64) float64 {
	const (
		tauMax  = 2.74
		tauMin  = -18.83
		tauStar = -1.61
	)
	switch {
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}

	var coef []float64
	if stat <= tauStar {
		coef = []float64{2.1659, 1.4412, 0.038269}
	} else {
		coef = []float64{1.7339, 0.93202, -0.12745, -0.010368}
	}

	z := 0.0
	for i := len(coef) - 1; i >= 0; i-- {
		z = z*stat + coef[i]
	}
	return distuv.UnitNormal.CDF(z)
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

// CriticalComparison reports whether the test statistic falls below one
// critical value. It is informational only.
type CriticalComparison struct {
	Level    string  `json:"level"`
	Value    float64 `json:"value"`
	Rejected bool    `json:"rejected"`
}

// StationarityReport is the outcome of Analyze.
type StationarityReport struct {
	Statistic      float64              `json:"statistic"`
	PValue         float64              `json:"p_value"`
	Lags           int                  `json:"lags"`
	NObs           int                  `json:"n_obs"`
	CriticalValues map[string]float64   `json:"critical_values"`
	Comparisons    []CriticalComparison `json:"comparisons"`
	Verdict        Verdict              `json:"verdict"`

	// Rolling diagnostics have the input's length; leading entries are NaN.
	RollingMean []float64 `json:"-"`
	RollingStd  []float64 `json:"-"`
}

// MarshalJSON encodes a non-finite statistic, as produced for a constant
// series, as null.
func (r StationarityReport) MarshalJSON() ([]byte, error) {
	type plain StationarityReport
	out := struct {
		plain
		Statistic *float64 `json:"statistic"`
	}{plain: plain(r)}
	if !math.IsInf(r.Statistic, 0) && !math.IsNaN(r.Statistic) {
		out.Statistic = &r.Statistic
	}
	return json.Marshal(out)
}

// Analyze computes rolling statistics and the ADF unit-root test for the
// series and classifies it. The rolling mean uses longWindow and the rolling
// standard deviation shortWindow.
func Analyze(series *timeseries.Series, shortWindow, longWindow int) (*StationarityReport, error) {
	return AnalyzeWithLag(series, shortWindow, longWindow, 0)
}

// AnalyzeWithLag is Analyze with an explicit ADF lag order.
func AnalyzeWithLag(series *timeseries.Series, shortWindow, longWindow, maxLag int) (*StationarityReport, error) {
	if shortWindow < 1 || longWindow < 1 {
		return nil, ErrInvalidWindow
	}
	if need := max(shortWindow, longWindow) + 1; series.Len() < need {
		return nil, &InsufficientDataError{Need: need, Have: series.Len()}
	}

	adf, err := ADF(series.Values, maxLag)
	if err != nil {
		return nil, fmt.Errorf("adf test: %w", err)
	}

	report := &StationarityReport{
		Statistic:      adf.Statistic,
		PValue:         adf.PValue,
		Lags:           adf.Lags,
		NObs:           adf.NObs,
		CriticalValues: adf.CriticalVals,
		Verdict:        VerdictFor(adf.PValue),
		RollingMean:    RollingMean(series.Values, longWindow),
		RollingStd:     RollingStd(series.Values, shortWindow),
	}
	for _, level := range []string{"1%", "5%", "10%"} {
		cv := adf.CriticalVals[level]
		report.Comparisons = append(report.Comparisons, CriticalComparison{
			Level:    level,
			Value:    cv,
			Rejected: adf.Statistic < cv,
		})
	}
	return report, nil
}
