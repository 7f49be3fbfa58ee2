// Package stats provides the stationarity analysis and residual diagnostics
// used by the forecasting pipeline.
//
// # Stationarity
//
// Analyze runs the Augmented Dickey-Fuller test and computes rolling
// diagnostics. The verdict depends only on the p-value:
//
//	report, err := stats.Analyze(series, 12, 30)
//	fmt.Printf("ADF: stat=%.4f, p=%.4f, %s\n",
//	    report.Statistic, report.PValue, report.Verdict)
//
// Critical-value comparisons are reported in report.Comparisons for
// information; they never change the verdict.
//
// # Differencing
//
//	d := stats.NDiffs(values, 2)
//
// # Residual Diagnostics
//
//	lb := stats.LjungBox(residuals, 10, p+q)
//	if lb.PValue > 0.05 {
//	    // Residuals are white noise
//	}
package stats
