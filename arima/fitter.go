package arima

// Fitter estimates a model of a fixed order from a sequence of observations.
// Implementations must be deterministic for the same input and must report
// numerical failure by wrapping ErrNotConverged.
type Fitter interface {
	Fit(values []float64, order Order) (Fitted, error)
}

// Fitted is an estimated model.
type Fitted interface {
	// Predict returns point forecasts for the next steps observations.
	Predict(steps int) ([]float64, error)
	// InformationCriteria returns the model's AIC, AICc, BIC and log-likelihood.
	InformationCriteria() Criteria
}

// CSS is the conditional-sum-of-squares estimator. Pure AR orders are solved
// exactly by least squares; orders with an MA part are refined by Nelder-Mead
// on the standardised series.
type CSS struct {
	// MaxIter caps the refinement iterations.
	MaxIter int `yaml:"max_iter"`
	// Tolerance is the relative change in the sum of squares below which
	// the refinement is considered converged.
	Tolerance float64 `yaml:"tolerance"`
	// AllowUnconverged returns fits whose refinement hit MaxIter instead of
	// failing with ErrNotConverged.
	AllowUnconverged bool `yaml:"allow_unconverged"`
}

// DefaultCSS returns the default estimator settings.
func DefaultCSS() CSS {
	return CSS{
		MaxIter:   1000,
		Tolerance: 1e-8,
	}
}

// Fit implements Fitter.
func (c CSS) Fit(values []float64, order Order) (Fitted, error) {
	if c.MaxIter <= 0 {
		c.MaxIter = DefaultCSS().MaxIter
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultCSS().Tolerance
	}

	m := newModel(order, c)
	if err := m.Fit(values); err != nil {
		return nil, err
	}
	return m, nil
}

// FitterFunc adapts a function to the Fitter interface.
type FitterFunc func(values []float64, order Order) (Fitted, error)

// Fit implements Fitter.
func (f FitterFunc) Fit(values []float64, order Order) (Fitted, error) {
	return f(values, order)
}
