// Package timeseries provides the Series type consumed by the forecasting
// packages, together with a thin OHLCV CSV adapter.
//
// # Creating a Series
//
// Series built from explicit timestamps are validated: timestamps must be
// strictly increasing and values finite.
//
//	series, err := timeseries.NewWithTimestamps(dates, closes)
//
// Closing prices additionally must be positive:
//
//	prices, err := timeseries.NewPrices(dates, closes)
//
// For synthetic data, New assigns consecutive daily timestamps:
//
//	series := timeseries.New([]float64{100, 102, 105, 103})
//
// # Loading from CSV
//
// Load daily bars and the closing-price series:
//
//	bars, closes, err := timeseries.LoadOHLCV("prices.csv", nil)
//
// # Slicing
//
//	train, test, err := series.Split(0.8)
//	diff := series.Diff()
package timeseries
