package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sartorproj/goforecast/accuracy"
	"github.com/sartorproj/goforecast/arima"
	"github.com/sartorproj/goforecast/selection"
	"github.com/sartorproj/goforecast/walkforward"
)

// parseOrder parses "p,d,q".
func parseOrder(s string) (arima.Order, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return arima.Order{}, fmt.Errorf("order %q: want p,d,q", s)
	}
	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return arima.Order{}, fmt.Errorf("order %q: %w", s, err)
		}
		nums[i] = n
	}
	return arima.Order{P: nums[0], D: nums[1], Q: nums[2]}, nil
}

// orderValue is a pflag.Value holding an optional order.
type orderValue struct {
	order *arima.Order
}

var _ pflag.Value = (*orderValue)(nil)

func (v *orderValue) String() string {
	if v.order == nil {
		return ""
	}
	return fmt.Sprintf("%d,%d,%d", v.order.P, v.order.D, v.order.Q)
}

func (v *orderValue) Set(s string) error {
	o, err := parseOrder(s)
	if err != nil {
		return err
	}
	v.order = &o
	return nil
}

func (v *orderValue) Type() string { return "p,d,q" }

type evaluation struct {
	Order    arima.Order       `json:"order"`
	Steps    walkforward.Steps `json:"steps"`
	Accuracy *accuracy.Summary `json:"accuracy,omitempty"`
}

func newEvaluateCmd(a *app) *cobra.Command {
	var order orderValue
	var policy string
	var trainFraction float64

	cmd := &cobra.Command{
		Use:   "evaluate <prices.csv>",
		Short: "Walk-forward evaluate an ARIMA order with a refit at every step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("train-fraction") {
				a.cfg.WalkForward.TrainFraction = trainFraction
			}
			if flags.Changed("policy") {
				a.cfg.WalkForward.Policy = walkforward.Policy(policy)
			}
			if order.order != nil {
				a.cfg.Selection.Order = order.order
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			series, err := a.loadSeries(args[0])
			if err != nil {
				return err
			}
			modelled, pipe, err := a.modelSeries(series)
			if err != nil {
				return err
			}
			train, test, err := modelled.Split(a.cfg.WalkForward.TrainFraction)
			if err != nil {
				return err
			}

			var chosen arima.Order
			if a.cfg.Selection.Order != nil {
				chosen = *a.cfg.Selection.Order
			} else {
				search := a.cfg.SearchConfig(a.log)
				search.Metrics = a.metrics
				result, err := selection.Search(cmd.Context(), train.ValuesCopy(), a.cfg.Selection.Ranges, search)
				if err != nil {
					return err
				}
				chosen = result.Order
			}

			forecaster := walkforward.New(a.cfg.Estimator,
				walkforward.WithInverse(pipe.InvertValue),
				walkforward.WithPolicy(a.cfg.Policy()),
				walkforward.WithLogger(a.log),
				walkforward.WithMetrics(a.metrics),
			)
			steps, evalErr := forecaster.Evaluate(cmd.Context(), train.ValuesCopy(), test.ValuesCopy(), chosen)

			out := evaluation{Order: chosen, Steps: steps}
			if len(steps.Pairs()) > 0 {
				summary, err := accuracy.Summarize(steps.Pairs())
				if err != nil {
					return err
				}
				out.Accuracy = &summary
			}
			if err := a.writeEvaluation(cmd, out, test.Timestamps); err != nil {
				return err
			}
			return evalErr
		},
	}

	f := cmd.Flags()
	f.Var(&order, "order", "ARIMA order p,d,q (default: search on the training part)")
	f.StringVar(&policy, "policy", string(walkforward.Abort), "Failed-step policy (abort|skip)")
	f.Float64Var(&trainFraction, "train-fraction", 0.8, "Fraction of observations used for the initial history")
	return cmd
}

func (a *app) writeEvaluation(cmd *cobra.Command, ev evaluation, dates []time.Time) error {
	w := cmd.OutOrStdout()
	if a.jsonOutput() {
		return writeJSON(w, ev)
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "order\t%s\n\n", ev.Order)
	fmt.Fprintln(tw, "step\tdate\tpredicted\tactual\terror %")
	for _, st := range ev.Steps {
		date := ""
		if st.Index < len(dates) {
			date = dates[st.Index].Format(time.DateOnly)
		}
		if st.Skipped {
			fmt.Fprintf(tw, "%d\t%s\tskipped\t%.4f\t\n", st.Index, date, st.Actual)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.3f\n", st.Index, date, st.Predicted, st.Actual, st.PercentageError)
	}
	fmt.Fprintln(tw)
	if err := tw.Flush(); err != nil {
		return err
	}
	if ev.Accuracy != nil {
		return writeAccuracy(w, "walk-forward accuracy", *ev.Accuracy)
	}
	return nil
}
