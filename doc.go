// Package goforecast evaluates short-horizon price forecasts.
//
// A daily closing-price series is checked for stationarity with the
// Augmented Dickey-Fuller test, log-transformed, and modelled with an ARIMA
// order chosen by information criterion. The order is then evaluated
// walk-forward: at every test step the model is refitted on all values
// observed so far and forecasts one step ahead. A scalar Kalman filter run
// over the same prices provides a baseline scored on the same window.
//
// # Quick Start
//
//	_, series, _ := timeseries.LoadOHLCV("prices.csv", nil)
//	report, err := pipeline.Run(ctx, series, config.Default())
//	fmt.Println(report.Forecast, report.Kalman.Accuracy)
//
// # Packages
//
//   - timeseries: the observation sequence and OHLCV CSV loading
//   - stats: ADF test, rolling statistics, ACF and Ljung-Box
//   - transform: invertible log, scale and difference transforms
//   - arima: ARIMA estimation by conditional sum of squares
//   - selection: order search over a bounded grid
//   - walkforward: refit-every-step evaluation
//   - kalman: scalar state-space filter
//   - accuracy: MAPE, MSE, RMSE and MAE
//   - config: YAML configuration
//   - telemetry: Prometheus collectors
//   - pipeline: the stages wired together
//
// The goforecast command exposes each stage as a subcommand.
//
// # References
//
//   - Hyndman, R.J., & Athanasopoulos, G. (2021). Forecasting: Principles and Practice
//   - MacKinnon, J.G. (1994). Approximate asymptotic distribution functions for unit-root and cointegration tests
package goforecast
