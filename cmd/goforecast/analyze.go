package main

import (
	"github.com/spf13/cobra"

	"github.com/sartorproj/goforecast/stats"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var short, long, maxLag int
	var transformed bool

	cmd := &cobra.Command{
		Use:   "analyze <prices.csv>",
		Short: "Run the ADF stationarity test and rolling statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := &a.cfg.Stationarity
			if cmd.Flags().Changed("short-window") {
				sc.ShortWindow = short
			}
			if cmd.Flags().Changed("long-window") {
				sc.LongWindow = long
			}
			if cmd.Flags().Changed("max-lag") {
				sc.MaxLag = maxLag
			}

			series, err := a.loadSeries(args[0])
			if err != nil {
				return err
			}
			if transformed {
				if series, _, err = a.modelSeries(series); err != nil {
					return err
				}
			}

			report, err := stats.AnalyzeWithLag(series, sc.ShortWindow, sc.LongWindow, sc.MaxLag)
			if err != nil {
				return err
			}
			a.log.Debug().Float64("p_value", report.PValue).Stringer("verdict", report.Verdict).Msg("analysis complete")

			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return writeStationarity(cmd.OutOrStdout(), series.Name, report)
		},
	}

	cmd.Flags().IntVar(&short, "short-window", 12, "Rolling standard deviation window")
	cmd.Flags().IntVar(&long, "long-window", 12, "Rolling mean window")
	cmd.Flags().IntVar(&maxLag, "max-lag", 0, "ADF lag order (0 = automatic)")
	cmd.Flags().BoolVar(&transformed, "transformed", false, "Analyse the series after the configured transforms")
	return cmd
}
