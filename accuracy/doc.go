// Package accuracy summarises forecast errors.
//
//	summary, err := accuracy.Summarize([]accuracy.Pair{
//	    {Predicted: 101, Actual: 100},
//	    {Predicted: 99, Actual: 100},
//	})
//	fmt.Println(summary.MAPE, summary.RMSE)
//
// MAPE is undefined when an actual value is zero; Summarize then returns
// ErrZeroActual.
package accuracy
