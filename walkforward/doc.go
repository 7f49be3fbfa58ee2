// Package walkforward evaluates a fixed-order model by refitting on an
// expanding history and forecasting one step ahead at a time.
//
// Step i fits on train plus test[:i] and forecasts test[i]. The actual value
// is appended to the history whether or not the step succeeded, so no
// forecast ever sees the value it predicts:
//
//	f := walkforward.New(arima.DefaultCSS(),
//	    walkforward.WithInverse(pipe.InvertValue),
//	    walkforward.WithPolicy(walkforward.Skip),
//	)
//	steps, err := f.Evaluate(ctx, train, test, arima.Order{P: 1})
//	var stepErr *walkforward.StepFitError
//	if errors.As(err, &stepErr) {
//	    // steps holds everything before stepErr.Index
//	}
//	summary, err := accuracy.Summarize(steps.Pairs())
//
// Under the Abort policy the first failed fit ends the run; under Skip the
// step is recorded with Skipped set and left out of Pairs.
package walkforward
