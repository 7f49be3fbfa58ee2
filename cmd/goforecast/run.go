package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sartorproj/goforecast/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <prices.csv>",
		Short: "Run analysis, order selection, walk-forward evaluation and the Kalman baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.loadSeries(args[0])
			if err != nil {
				return err
			}

			report, runErr := pipeline.Run(cmd.Context(), series, a.cfg,
				pipeline.WithLogger(a.log),
				pipeline.WithMetrics(a.metrics),
			)
			if report == nil {
				return runErr
			}

			w := cmd.OutOrStdout()
			if a.jsonOutput() {
				if err := writeJSON(w, report); err != nil {
					return err
				}
				return runErr
			}

			if err := writeStationarity(w, "raw series", report.Raw); err != nil {
				return err
			}
			if report.Transformed != report.Raw {
				if err := writeStationarity(w, "transformed series", report.Transformed); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "\ntrain %d, test %d\n", report.TrainSize, report.TestSize)
			ev := evaluation{Order: report.Order, Steps: report.Steps, Accuracy: report.Forecast}
			if err := a.writeEvaluation(cmd, ev, testDates(series.Timestamps, report.TrainSize)); err != nil {
				return err
			}
			if report.Kalman != nil {
				if err := writeAccuracy(w, "kalman accuracy", report.Kalman.Accuracy); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

func testDates(all []time.Time, trainSize int) []time.Time {
	if trainSize >= len(all) {
		return nil
	}
	return all[trainSize:]
}
