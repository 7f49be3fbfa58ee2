package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sartorproj/goforecast/config"
	"github.com/sartorproj/goforecast/telemetry"
	"github.com/sartorproj/goforecast/timeseries"
	"github.com/sartorproj/goforecast/transform"
)

const version = "v0.3.0"

// app holds state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	output      string
	metricsFile string
	csv         timeseries.CSVOptions

	cfg      *config.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
}

func newRootCmd() *cobra.Command {
	a := &app{csv: *timeseries.DefaultCSVOptions()}

	root := &cobra.Command{
		Use:     "goforecast",
		Short:   "Stationarity, ARIMA walk-forward and Kalman baselines for price series",
		Version: version,
		Long: `goforecast reads daily OHLCV bars from CSV and models the Close column.

It tests stationarity, selects an ARIMA order by information criterion,
evaluates the order walk-forward with a refit at every step and compares
the result with a scalar Kalman filter.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsFile == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (trace|debug|info|warn|error), overrides the config")
	pf.StringVarP(&a.output, "output", "o", "table", "Output format (table|json)")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	pf.StringVar(&a.csv.DateColumn, "date-column", a.csv.DateColumn, "CSV date column")
	pf.StringVar(&a.csv.CloseColumn, "close-column", a.csv.CloseColumn, "CSV close price column")
	pf.StringVar(&a.csv.DateFormat, "date-format", a.csv.DateFormat, "Go time layout of the date column")

	root.AddCommand(
		newAnalyzeCmd(a),
		newSelectCmd(a),
		newEvaluateCmd(a),
		newFilterCmd(a),
		newRunCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	switch a.output {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	a.cfg = cfg
	a.log = cfg.NewLogger(cmd.ErrOrStderr())
	log.Logger = a.log
	a.registry = prometheus.NewRegistry()
	a.metrics = telemetry.NewMetrics(a.registry)
	return nil
}

// loadSeries reads the Close column of the CSV at path.
func (a *app) loadSeries(path string) (*timeseries.Series, error) {
	bars, series, err := timeseries.LoadOHLCV(path, &a.csv)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	a.log.Info().Str("file", path).Int("bars", len(bars)).
		Time("from", bars[0].Date).Time("to", bars[len(bars)-1].Date).
		Msg("loaded prices")
	return series, nil
}

// modelSeries applies the configured transforms and returns the result with
// the pipeline that can invert it.
func (a *app) modelSeries(series *timeseries.Series) (*timeseries.Series, *transform.Pipeline, error) {
	pipe := transform.NewPipeline()
	out := series
	var err error
	if a.cfg.Transform.Log {
		if out, err = pipe.Log(out); err != nil {
			return nil, nil, err
		}
	}
	if a.cfg.Transform.Scale != 1 {
		if out, err = pipe.Scale(out, a.cfg.Transform.Scale); err != nil {
			return nil, nil, err
		}
	}
	return out, pipe, nil
}

func (a *app) jsonOutput() bool { return a.output == "json" }

