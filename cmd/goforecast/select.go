package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sartorproj/goforecast/selection"
	"github.com/sartorproj/goforecast/stats"
)

func newSelectCmd(a *app) *cobra.Command {
	var (
		strategy, criterion    string
		maxP, maxD, maxQ       int
		workers, maxIterations int
		minImprovement         float64
		showCandidates         bool
		unitRootD              bool
	)

	cmd := &cobra.Command{
		Use:   "select <prices.csv>",
		Short: "Select an ARIMA order by information criterion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := &a.cfg.Selection
			flags := cmd.Flags()
			if flags.Changed("strategy") {
				sc.Strategy = selection.Strategy(strategy)
			}
			if flags.Changed("criterion") {
				sc.Criterion = selection.Criterion(criterion)
			}
			if flags.Changed("max-p") {
				sc.Ranges.P.Max = maxP
			}
			if flags.Changed("max-d") {
				sc.Ranges.D.Max = maxD
			}
			if flags.Changed("max-q") {
				sc.Ranges.Q.Max = maxQ
			}
			if flags.Changed("workers") {
				sc.Workers = workers
			}
			if flags.Changed("max-iterations") {
				sc.MaxIterations = maxIterations
			}
			if flags.Changed("min-improvement") {
				sc.MinImprovement = minImprovement
			}
			if flags.Changed("unit-root-d") {
				sc.UnitRootD = unitRootD
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			series, err := a.loadSeries(args[0])
			if err != nil {
				return err
			}
			modelled, _, err := a.modelSeries(series)
			if err != nil {
				return err
			}

			search := a.cfg.SearchConfig(a.log)
			search.Metrics = a.metrics
			result, err := selection.Search(cmd.Context(), modelled.ValuesCopy(), sc.Ranges, search)
			if err != nil {
				return err
			}

			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "selected\t%s\n", result.Order)
			fmt.Fprintf(tw, "%s\t%s\n", result.Criterion, formatFloat(result.Score))
			fmt.Fprintf(tw, "evaluated\t%d\n", result.Evaluated)
			fmt.Fprintf(tw, "skipped\t%d\n", result.Skipped)
			fmt.Fprintf(tw, "unit-root d\t%d\n", stats.NDiffs(modelled.Values, sc.MaxD))
			if showCandidates {
				candidates := append([]selection.Candidate(nil), result.Candidates...)
				sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score < candidates[j].Score })
				fmt.Fprintln(tw, "\norder\tscore\terror")
				for _, c := range candidates {
					msg := ""
					if c.Err != nil {
						msg = c.Err.Error()
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Order, formatFloat(c.Score), msg)
				}
			}
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&strategy, "strategy", string(selection.Stepwise), "Search strategy (grid|stepwise)")
	f.StringVar(&criterion, "criterion", string(selection.AIC), "Information criterion (aic|aicc|bic)")
	f.IntVar(&maxP, "max-p", 3, "Maximum AR order")
	f.IntVar(&maxD, "max-d", 2, "Maximum differencing order")
	f.IntVar(&maxQ, "max-q", 3, "Maximum MA order")
	f.IntVar(&workers, "workers", 4, "Concurrent fits")
	f.IntVar(&maxIterations, "max-iterations", 0, "Maximum candidates to evaluate (0 = unlimited)")
	f.Float64Var(&minImprovement, "min-improvement", 0, "Stepwise stops when a round improves the score by no more than this")
	f.BoolVar(&unitRootD, "unit-root-d", true, "Fix d from the ADF test instead of searching it")
	f.BoolVar(&showCandidates, "candidates", false, "List every evaluated candidate")
	return cmd
}
