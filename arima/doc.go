// Package arima implements AutoRegressive Integrated Moving Average (ARIMA) models.
//
// An ARIMA(p,d,q) model combines:
//   - AR(p): AutoRegressive component with p lags
//   - I(d): Integration (differencing) of order d
//   - MA(q): Moving Average component with q lags
//
// # Basic Usage
//
//	model := arima.New(1, 1, 0)
//	if err := model.Fit(values); err != nil {
//	    log.Fatal(err)
//	}
//	forecasts, _ := model.Predict(10)
//
// # Pluggable Estimation
//
// Callers that refit repeatedly depend on the Fitter interface rather than
// on Model, so the estimation backend can be swapped:
//
//	var fitter arima.Fitter = arima.DefaultCSS()
//	fitted, err := fitter.Fit(history, arima.Order{P: 1, D: 1})
//	if errors.Is(err, arima.ErrNotConverged) {
//	    // numerical failure, distinct from invalid input
//	}
//
// # Residual Analysis
//
//	summary := model.Summary()
//	if summary.LjungBox != nil && summary.LjungBox.PValue < 0.05 {
//	    // residuals remain autocorrelated
//	}
package arima
