// Package telemetry exposes Prometheus collectors for model fitting,
// walk-forward evaluation and filtering. A nil *Metrics is valid and records
// nothing.
//
//	reg := prometheus.NewRegistry()
//	m := telemetry.NewMetrics(reg)
//	f := walkforward.New(fitter, walkforward.WithMetrics(m))
//	...
//	err := prometheus.WriteToTextfile("forecast.prom", reg)
package telemetry
