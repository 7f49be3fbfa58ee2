// Package pipeline wires the forecasting stages together.
//
//	cfg, _ := config.Load("run.yaml")
//	_, series, _ := timeseries.LoadOHLCV("prices.csv", nil)
//	report, err := pipeline.Run(ctx, series, cfg, pipeline.WithLogger(logger))
//
// The walk-forward forecasts and the Kalman baseline are both scored in
// price units over the same test window, so their accuracy summaries are
// directly comparable.
package pipeline
