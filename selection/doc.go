// Package selection chooses an ARIMA order by minimising AIC, AICc or BIC.
//
// Two strategies are available. Grid fits every order in the configured
// ranges. Stepwise starts from a handful of seed orders and walks to better
// neighbours until a round stops improving:
//
//	cfg := selection.DefaultConfig()
//	cfg.Strategy = selection.Stepwise
//	result, err := selection.Search(ctx, values, selection.DefaultRanges(), cfg)
//	if errors.Is(err, selection.ErrNoViableOrder) {
//	    // every candidate failed to fit
//	}
//
// Setting UnitRootD fixes d to the number of differences the ADF test needs
// and searches p and q only, so every candidate is scored on the same
// observations.
//
// Candidates are fitted concurrently, each on its own copy of the input.
// The outcome does not depend on the worker count: scores within a relative
// tolerance of 1e-9 are broken by fewer AR+MA terms, then smaller d, then
// smaller p.
package selection
