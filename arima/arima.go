// Package arima implements ARIMA (AutoRegressive Integrated Moving Average) models.
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/sartorproj/goforecast/stats"
)

// DefaultMaxD is the largest differencing order accepted unless configured
// otherwise.
const DefaultMaxD = 2

// varianceFloor keeps the likelihood finite for perfectly fitted series.
const varianceFloor = 1e-12

var (
	// ErrNotConverged signals that estimation failed numerically. Callers
	// distinguish it from invalid input with errors.Is.
	ErrNotConverged = errors.New("arima: estimation did not converge")
	// ErrInsufficientData is returned when the series is too short for the order.
	ErrInsufficientData = errors.New("arima: insufficient data points for the specified order")
	// ErrInvalidOrder is returned for negative orders or d above the maximum.
	ErrInvalidOrder = errors.New("arima: invalid order")
	// ErrNotFitted is returned by Predict on an unfitted model.
	ErrNotFitted = errors.New("arima: model must be fitted before prediction")
)

// Order represents ARIMA model order (p, d, q).
type Order struct {
	P int `json:"p" yaml:"p"` // AR order (number of autoregressive terms)
	D int `json:"d" yaml:"d"` // Differencing order
	Q int `json:"q" yaml:"q"` // MA order (number of moving average terms)
}

func (o Order) String() string {
	return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
}

// Validate checks that all orders are non-negative and D <= maxD.
func (o Order) Validate(maxD int) error {
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("%w: %s has a negative component", ErrInvalidOrder, o)
	}
	if o.D > maxD {
		return fmt.Errorf("%w: %s exceeds maximum differencing %d", ErrInvalidOrder, o, maxD)
	}
	return nil
}

// MinObservations is the shortest series Fit accepts for this order.
func (o Order) MinObservations() int {
	return o.P + o.Q + o.D + 10
}

// Criteria holds the information criteria of a fitted model.
type Criteria struct {
	AIC    float64 `json:"aic"`
	AICc   float64 `json:"aicc"`
	BIC    float64 `json:"bic"`
	LogLik float64 `json:"loglik"`
}

// Model represents an ARIMA model.
type Model struct {
	Order      Order
	ARCoeffs   []float64 // AR coefficients (phi)
	MACoeffs   []float64 // MA coefficients (theta)
	Intercept  float64
	Variance   float64 // Residual variance
	AIC        float64
	AICc       float64 // Corrected AIC for small sample sizes
	BIC        float64
	LogLik     float64
	Iterations int  // CSS refinement iterations used
	Converged  bool // Whether CSS refinement met its stopping rule
	fitted     bool
	opts       CSS
	data       []float64
	diffData   []float64
	lasts      []float64 // last value of the k-times differenced series, k < D
	residuals  []float64
	fittedVals []float64
}

// New creates a new ARIMA model with the specified order and default
// estimation settings.
func New(p, d, q int) *Model {
	return newModel(Order{P: p, D: d, Q: q}, DefaultCSS())
}

func newModel(order Order, opts CSS) *Model {
	return &Model{
		Order:    order,
		ARCoeffs: make([]float64, max(order.P, 0)),
		MACoeffs: make([]float64, max(order.Q, 0)),
		opts:     opts,
	}
}

// Fit fits the ARIMA model to the given observations. The slice is copied.
func (m *Model) Fit(values []float64) error {
	if err := m.Order.Validate(math.MaxInt); err != nil {
		return err
	}
	if len(values) < m.Order.MinObservations() {
		return fmt.Errorf("%w: %s needs %d, have %d", ErrInsufficientData, m.Order, m.Order.MinObservations(), len(values))
	}

	m.data = append([]float64(nil), values...)

	// Apply differencing, remembering each level's last value for integration.
	diff := m.data
	m.lasts = make([]float64, m.Order.D)
	for i := 0; i < m.Order.D; i++ {
		m.lasts[i] = diff[len(diff)-1]
		next := make([]float64, len(diff)-1)
		for t := 1; t < len(diff); t++ {
			next[t-1] = diff[t] - diff[t-1]
		}
		diff = next
	}
	m.diffData = diff

	if err := m.fitCSS(); err != nil {
		return err
	}

	m.calculateIC()
	if math.IsNaN(m.AIC) || math.IsInf(m.LogLik, 0) || math.IsNaN(m.LogLik) {
		return fmt.Errorf("%w: %s has non-finite likelihood", ErrNotConverged, m.Order)
	}
	if !m.opts.AllowUnconverged && !m.Converged {
		return fmt.Errorf("%w: %s after %d iterations", ErrNotConverged, m.Order, m.Iterations)
	}

	m.fitted = true
	return nil
}

// fitCSS fits the model using Conditional Sum of Squares estimation.
func (m *Model) fitCSS() error {
	y := m.diffData
	n := len(y)
	p := m.Order.P
	q := m.Order.Q

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	m.Intercept = mean / float64(n)

	switch {
	case p == 0 && q == 0:
		// White noise around the mean.
		m.Converged = true
	case q == 0:
		if err := m.fitAR(y); err != nil {
			return err
		}
		m.Converged = true
	default:
		if p > 0 {
			// Use Yule-Walker for initial AR estimates
			if acf := stats.ACF(y, p); acf != nil {
				if phi := yuleWalker(acf, p); phi != nil {
					m.ARCoeffs = phi
				}
			}
		}
		clear(m.MACoeffs)
		if err := m.optimizeCSS(y); err != nil {
			return err
		}
	}

	for _, c := range append(append([]float64(nil), m.ARCoeffs...), m.MACoeffs...) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: %s produced non-finite coefficients", ErrNotConverged, m.Order)
		}
	}

	m.computeResiduals(y)
	return nil
}

// fitAR estimates a pure AR model by conditional least squares on the
// mean-centred series.
func (m *Model) fitAR(y []float64) error {
	p := m.Order.P
	rows := len(y) - p
	x := mat.NewDense(rows, p, nil)
	target := mat.NewVecDense(rows, nil)
	for t := p; t < len(y); t++ {
		target.SetVec(t-p, y[t]-m.Intercept)
		for i := 0; i < p; i++ {
			x.Set(t-p, i, y[t-i-1]-m.Intercept)
		}
	}

	var phi mat.VecDense
	if err := phi.SolveVec(x, target); err != nil {
		return fmt.Errorf("%w: %s least squares: %v", ErrNotConverged, m.Order, err)
	}
	for i := 0; i < p; i++ {
		m.ARCoeffs[i] = phi.AtVec(i)
	}
	return nil
}

// predictAt returns the one-step prediction of y[t] given residuals up to t-1.
func (m *Model) predictAt(y, residuals []float64, t int) float64 {
	pred := m.Intercept
	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
	}
	return pred
}

// sse computes conditional residuals into residuals and returns their sum of squares.
func (m *Model) sse(y, residuals []float64) float64 {
	total := 0.0
	for t := max(m.Order.P, m.Order.Q); t < len(y); t++ {
		residuals[t] = y[t] - m.predictAt(y, residuals, t)
		total += residuals[t] * residuals[t]
	}
	return total
}

// optimizeCSS minimises the conditional sum of squares over the ARMA
// coefficients with Nelder-Mead. The search runs on the standardised series
// so its stopping rule does not depend on the scale of the data, and every
// coefficient is mapped through tanh to stay inside (-1, 1).
func (m *Model) optimizeCSS(y []float64) error {
	p, q := m.Order.P, m.Order.Q

	sd := stat.StdDev(y, nil)
	if sd == 0 || math.IsNaN(sd) {
		// A constant series is fitted exactly by the mean alone.
		clear(m.ARCoeffs)
		clear(m.MACoeffs)
		m.Converged = true
		return nil
	}
	z := make([]float64, len(y))
	for i, v := range y {
		z[i] = (v - m.Intercept) / sd
	}

	trial := &Model{Order: m.Order, ARCoeffs: make([]float64, p), MACoeffs: make([]float64, q)}
	residuals := make([]float64, len(z))
	count := float64(len(z) - max(p, q))
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			trial.unpack(x)
			v := trial.sse(z, residuals) / count
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return math.Inf(1)
			}
			return v
		},
	}
	settings := &optimize.Settings{
		MajorIterations: m.opts.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   m.opts.Tolerance,
			Iterations: max(20, 10*(p+q)),
		},
	}

	result, err := optimize.Minimize(problem, m.pack(), settings, &optimize.NelderMead{})
	if result == nil {
		return fmt.Errorf("%w: %s: %v", ErrNotConverged, m.Order, err)
	}
	m.unpack(result.X)
	m.Iterations = result.MajorIterations
	switch result.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.MethodConverge, optimize.StepConvergence:
		m.Converged = err == nil
	default:
		m.Converged = false
	}
	return nil
}

// pack maps the coefficients to the unconstrained optimisation space.
func (m *Model) pack() []float64 {
	x := make([]float64, 0, m.Order.P+m.Order.Q)
	for _, c := range append(append([]float64(nil), m.ARCoeffs...), m.MACoeffs...) {
		if math.IsNaN(c) {
			c = 0
		}
		x = append(x, math.Atanh(math.Max(-0.95, math.Min(0.95, c))))
	}
	return x
}

func (m *Model) unpack(x []float64) {
	for i := range m.ARCoeffs {
		m.ARCoeffs[i] = math.Tanh(x[i])
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = math.Tanh(x[m.Order.P+i])
	}
}

// computeResiduals fills residuals, fitted values and the residual variance.
func (m *Model) computeResiduals(y []float64) {
	n := len(y)
	p := m.Order.P
	q := m.Order.Q
	startIdx := max(p, q)

	m.residuals = make([]float64, n)
	m.fittedVals = make([]float64, n)
	for t := 0; t < n; t++ {
		if t < startIdx {
			m.fittedVals[t] = m.Intercept
		} else {
			m.fittedVals[t] = m.predictAt(y, m.residuals, t)
		}
		m.residuals[t] = y[t] - m.fittedVals[t]
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	switch {
	case p == 0 && q == 0 && count > 1:
		m.Variance = sse / float64(count-1)
	case count > p+q+1:
		m.Variance = sse / float64(count-p-q-1)
	default:
		m.Variance = sse / float64(count)
	}
	if m.Variance < varianceFloor {
		m.Variance = varianceFloor
	}
}

// calculateIC calculates AIC, AICc, and BIC.
func (m *Model) calculateIC() {
	n := len(m.residuals)
	k := m.Order.P + m.Order.Q + 1 // number of parameters (AR + MA + intercept)

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	m.LogLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.Variance) - sse/(2*m.Variance)

	// AIC = -2*loglik + 2*k
	m.AIC = -2*m.LogLik + 2*float64(k)

	// AICc = AIC + 2*k*(k+1)/(n-k-1)
	kf := float64(k)
	nf := float64(n)
	if nf-kf-1 > 0 {
		m.AICc = m.AIC + 2*kf*(kf+1)/(nf-kf-1)
	} else {
		m.AICc = math.Inf(1)
	}

	// BIC = -2*loglik + k*log(n)
	m.BIC = -2*m.LogLik + kf*math.Log(nf)
}

// InformationCriteria returns the fitted model's criteria.
func (m *Model) InformationCriteria() Criteria {
	return Criteria{AIC: m.AIC, AICc: m.AICc, BIC: m.BIC, LogLik: m.LogLik}
}

// Predict generates forecasts for the specified number of steps ahead on the
// scale of the fitted data.
func (m *Model) Predict(steps int) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, errors.New("arima: steps must be at least 1")
	}

	y := m.diffData
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	// Future residuals have expectation zero.
	for h := 0; h < steps; h++ {
		extY[n+h] = m.predictAt(extY, extResiduals, n+h)
	}

	forecasts := append([]float64(nil), extY[n:]...)
	return m.integrate(forecasts), nil
}

// integrate undoes differencing, innermost level first.
func (m *Model) integrate(forecasts []float64) []float64 {
	for k := m.Order.D - 1; k >= 0; k-- {
		running := m.lasts[k]
		for j := range forecasts {
			running += forecasts[j]
			forecasts[j] = running
		}
	}
	return forecasts
}

// Residuals returns the model residuals.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.residuals...)
}

// FittedValues returns the fitted values on the differenced scale.
func (m *Model) FittedValues() []float64 {
	if !m.fitted {
		return nil
	}
	return append([]float64(nil), m.fittedVals...)
}

// Summary returns a summary of the fitted model.
type Summary struct {
	Order     Order                 `json:"order"`
	ARCoeffs  []float64             `json:"ar"`
	MACoeffs  []float64             `json:"ma"`
	Intercept float64               `json:"intercept"`
	Variance  float64               `json:"variance"`
	Criteria  Criteria              `json:"criteria"`
	NObs      int                   `json:"n_obs"`
	Converged bool                  `json:"converged"`
	LjungBox  *stats.LjungBoxResult `json:"ljung_box,omitempty"`
}

// Summary returns a summary of the fitted model, including a Ljung-Box test
// on the residuals.
func (m *Model) Summary() *Summary {
	if !m.fitted {
		return nil
	}

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  append([]float64(nil), m.ARCoeffs...),
		MACoeffs:  append([]float64(nil), m.MACoeffs...),
		Intercept: m.Intercept,
		Variance:  m.Variance,
		Criteria:  m.InformationCriteria(),
		NObs:      len(m.data),
		Converged: m.Converged,
		LjungBox:  stats.LjungBox(m.residuals, 10, m.Order.P+m.Order.Q),
	}
}

// yuleWalker estimates AR coefficients from autocorrelations using the
// Levinson-Durbin recursion.
func yuleWalker(acf []float64, order int) []float64 {
	if order <= 0 || len(acf) <= order {
		return nil
	}

	phi := make([]float64, order)
	phi[0] = acf[1]
	if order == 1 {
		return phi
	}

	v := 1 - phi[0]*phi[0]
	for i := 1; i < order && v > 0; i++ {
		lambda := acf[i+1]
		for j := 0; j < i; j++ {
			lambda -= phi[j] * acf[i-j]
		}
		lambda /= v

		newPhi := make([]float64, i+1)
		for j := 0; j < i; j++ {
			newPhi[j] = phi[j] - lambda*phi[i-1-j]
		}
		newPhi[i] = lambda
		copy(phi, newPhi)

		v *= (1 - lambda*lambda)
		if v <= 0 {
			break
		}
	}

	return phi
}
