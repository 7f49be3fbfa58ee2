// Package kalman implements a scalar linear-Gaussian state-space filter.
//
// The model is x[t] = F*x[t-1] + w, z[t] = H*x[t] + v with process variance
// Q and observation variance R. The covariance update uses the Joseph form,
// so it stays non-negative for any gain:
//
//	f, err := kalman.New(kalman.DefaultParams())
//	if err != nil {
//	    return err
//	}
//	states, err := f.Run(prices)
//	if errors.Is(err, kalman.ErrNumericalInstability) {
//	    // states holds the updates completed before the failure
//	}
//	preds := f.Predictions() // H*F*mean before each observation
package kalman
