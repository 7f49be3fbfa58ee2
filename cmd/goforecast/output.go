package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/sartorproj/goforecast/accuracy"
	"github.com/sartorproj/goforecast/stats"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}
	return fmt.Sprintf("%.6g", v)
}

func writeStationarity(w io.Writer, title string, r *stats.StationarityReport) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "%s\n", title)
	fmt.Fprintf(tw, "  ADF statistic\t%s\n", formatFloat(r.Statistic))
	fmt.Fprintf(tw, "  p-value\t%.4f\n", r.PValue)
	fmt.Fprintf(tw, "  lags / nobs\t%d / %d\n", r.Lags, r.NObs)
	for _, c := range r.Comparisons {
		fmt.Fprintf(tw, "  critical %s\t%.4f\trejected=%t\n", c.Level, c.Value, c.Rejected)
	}
	fmt.Fprintf(tw, "  verdict\t%s\n", r.Verdict)
	return tw.Flush()
}

func writeAccuracy(w io.Writer, title string, s accuracy.Summary) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "%s\n", title)
	fmt.Fprintf(tw, "  n\t%d\n", s.Count)
	fmt.Fprintf(tw, "  MAPE\t%.4f%%\n", s.MAPE)
	fmt.Fprintf(tw, "  MSE\t%s\n", formatFloat(s.MSE))
	fmt.Fprintf(tw, "  RMSE\t%s\n", formatFloat(s.RMSE))
	fmt.Fprintf(tw, "  MAE\t%s\n", formatFloat(s.MAE))
	return tw.Flush()
}
