package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sartorproj/goforecast/accuracy"
	"github.com/sartorproj/goforecast/kalman"
)

type filterOutput struct {
	Params      kalman.Params     `json:"params"`
	States      []kalman.State    `json:"states"`
	Predictions []float64         `json:"predictions"`
	Accuracy    *accuracy.Summary `json:"accuracy,omitempty"`
}

func newFilterCmd(a *app) *cobra.Command {
	var (
		q, r, mu0, p0 float64
		warmup        int
		fromFirst     bool
	)

	cmd := &cobra.Command{
		Use:   "filter <prices.csv>",
		Short: "Run the scalar Kalman filter over closing prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := &a.cfg.Kalman
			flags := cmd.Flags()
			if flags.Changed("q") {
				params.Q = q
			}
			if flags.Changed("r") {
				params.R = r
			}
			if flags.Changed("mu0") {
				params.InitialMean = mu0
			}
			if flags.Changed("p0") {
				params.InitialCovariance = p0
			}

			series, err := a.loadSeries(args[0])
			if err != nil {
				return err
			}
			values := series.ValuesCopy()
			if fromFirst {
				params.InitialMean = values[0]
			}

			f, err := kalman.New(*params, kalman.WithLogger(a.log), kalman.WithMetrics(a.metrics))
			if err != nil {
				return err
			}
			states, err := f.Run(values)
			if err != nil {
				return err
			}

			out := filterOutput{Params: *params, States: states, Predictions: f.Predictions()}
			if warmup < len(values) {
				pairs := make([]accuracy.Pair, 0, len(values)-warmup)
				for i := max(warmup, 0); i < len(values); i++ {
					pairs = append(pairs, accuracy.Pair{Predicted: out.Predictions[i], Actual: values[i]})
				}
				summary, err := accuracy.Summarize(pairs)
				if err != nil {
					return err
				}
				out.Accuracy = &summary
			}

			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "step\tdate\tobserved\tpredicted\tmean\tvariance")
			for i, st := range states {
				fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\t%.4f\t%s\n",
					i, series.Timestamps[i].Format(time.DateOnly), values[i], out.Predictions[i], st.Mean, formatFloat(st.Covariance))
			}
			fmt.Fprintln(tw)
			if err := tw.Flush(); err != nil {
				return err
			}
			if out.Accuracy != nil {
				return writeAccuracy(cmd.OutOrStdout(), "one-step prediction accuracy", *out.Accuracy)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&q, "q", 0.01, "Process noise variance")
	f.Float64Var(&r, "r", 1, "Observation noise variance")
	f.Float64Var(&mu0, "mu0", 0, "Initial state mean")
	f.Float64Var(&p0, "p0", 1000, "Initial state variance")
	f.BoolVar(&fromFirst, "init-from-first", false, "Start the state mean at the first observation")
	f.IntVar(&warmup, "warmup", 1, "Leading observations excluded from the accuracy summary")
	return cmd
}
