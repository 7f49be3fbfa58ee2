package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sartorproj/goforecast/accuracy"
	"github.com/sartorproj/goforecast/arima"
	"github.com/sartorproj/goforecast/config"
	"github.com/sartorproj/goforecast/kalman"
	"github.com/sartorproj/goforecast/selection"
	"github.com/sartorproj/goforecast/stats"
	"github.com/sartorproj/goforecast/telemetry"
	"github.com/sartorproj/goforecast/timeseries"
	"github.com/sartorproj/goforecast/transform"
	"github.com/sartorproj/goforecast/walkforward"
)

// Report is the JSON-serialisable outcome of Run.
type Report struct {
	Series       string                    `json:"series"`
	Observations int                       `json:"observations"`
	TrainSize    int                       `json:"train_size"`
	TestSize     int                       `json:"test_size"`
	Raw          *stats.StationarityReport `json:"raw_stationarity"`
	Transformed  *stats.StationarityReport `json:"transformed_stationarity"`
	Transforms   []string                  `json:"transforms"`
	SuggestedD   int                       `json:"suggested_d"`
	Order        arima.Order               `json:"order"`
	Search       *selection.Result         `json:"search,omitempty"`
	Model        *arima.Summary            `json:"model,omitempty"`
	Steps        walkforward.Steps         `json:"steps"`
	Forecast     *accuracy.Summary         `json:"forecast_accuracy,omitempty"`
	Kalman       *KalmanReport             `json:"kalman,omitempty"`
}

// KalmanReport scores the filter's one-step predictions over the test
// window.
type KalmanReport struct {
	Params   kalman.Params    `json:"params"`
	Final    kalman.State     `json:"final"`
	Accuracy accuracy.Summary `json:"accuracy"`
}

// Option configures Run.
type Option func(*runner)

// WithLogger sets the logger passed to every stage.
func WithLogger(l zerolog.Logger) Option {
	return func(r *runner) { r.log = l }
}

// WithMetrics sets the metrics sink passed to every stage.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *runner) { r.metrics = m }
}

type runner struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// Run executes the pipeline on series. When walk-forward evaluation fails
// the partially filled report is returned together with the error.
func Run(ctx context.Context, series *timeseries.Series, cfg *config.Config, opts ...Option) (*Report, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &runner{cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r.run(ctx, series)
}

func (r *runner) run(ctx context.Context, series *timeseries.Series) (*Report, error) {
	cfg := r.cfg
	report := &Report{Series: series.Name, Observations: series.Len()}

	raw, err := r.analyze(series)
	if err != nil {
		return nil, fmt.Errorf("raw series: %w", err)
	}
	report.Raw = raw

	pipe := transform.NewPipeline()
	modelled := series
	if cfg.Transform.Log {
		if modelled, err = pipe.Log(modelled); err != nil {
			return nil, err
		}
	}
	if cfg.Transform.Scale != 1 {
		if modelled, err = pipe.Scale(modelled, cfg.Transform.Scale); err != nil {
			return nil, err
		}
	}
	for _, step := range pipe.Steps() {
		report.Transforms = append(report.Transforms, step.Kind.String())
	}

	if len(report.Transforms) > 0 {
		transformed, err := r.analyze(modelled)
		if err != nil {
			return nil, fmt.Errorf("transformed series: %w", err)
		}
		report.Transformed = transformed
	} else {
		report.Transformed = raw
	}

	train, test, err := modelled.Split(cfg.WalkForward.TrainFraction)
	if err != nil {
		return nil, err
	}
	report.TrainSize, report.TestSize = train.Len(), test.Len()

	report.SuggestedD = stats.NDiffs(train.Values, cfg.Selection.MaxD)
	order, err := r.order(ctx, train.ValuesCopy(), report)
	if err != nil {
		return nil, err
	}
	report.Order = order
	if order.D != report.SuggestedD {
		r.log.Debug().Int("suggested_d", report.SuggestedD).Int("selected_d", order.D).Msg("selected differencing differs from unit-root suggestion")
	}

	if fitted, err := cfg.Estimator.Fit(train.ValuesCopy(), order); err == nil {
		if m, ok := fitted.(*arima.Model); ok {
			report.Model = m.Summary()
		}
	} else {
		r.log.Warn().Err(err).Str("order", order.String()).Msg("final model fit failed")
	}

	forecaster := walkforward.New(cfg.Estimator,
		walkforward.WithInverse(pipe.InvertValue),
		walkforward.WithPolicy(cfg.Policy()),
		walkforward.WithLogger(r.log),
		walkforward.WithMetrics(r.metrics),
	)
	steps, err := forecaster.Evaluate(ctx, train.ValuesCopy(), test.ValuesCopy(), order)
	report.Steps = steps
	if err != nil {
		return report, err
	}

	summary, err := accuracy.Summarize(steps.Pairs())
	if err != nil {
		return report, fmt.Errorf("forecast accuracy: %w", err)
	}
	report.Forecast = &summary
	r.log.Info().Str("order", order.String()).Stringer("accuracy", summary).Int("skipped", steps.SkippedCount()).Msg("walk-forward complete")

	kr, err := r.kalman(series, train.Len())
	if err != nil {
		return report, err
	}
	report.Kalman = kr
	return report, nil
}

func (r *runner) analyze(series *timeseries.Series) (*stats.StationarityReport, error) {
	sc := r.cfg.Stationarity
	report, err := stats.AnalyzeWithLag(series, sc.ShortWindow, sc.LongWindow, sc.MaxLag)
	if err != nil {
		return nil, err
	}
	r.log.Info().
		Str("series", series.Name).
		Float64("p_value", report.PValue).
		Stringer("verdict", report.Verdict).
		Msg("stationarity")
	return report, nil
}

func (r *runner) order(ctx context.Context, train []float64, report *Report) (arima.Order, error) {
	if fixed := r.cfg.Selection.Order; fixed != nil {
		return *fixed, nil
	}
	sc := r.cfg.SearchConfig(r.log)
	sc.Metrics = r.metrics
	result, err := selection.Search(ctx, train, r.cfg.Selection.Ranges, sc)
	if err != nil {
		return arima.Order{}, err
	}
	report.Search = result
	return result.Order, nil
}

// kalman filters the raw series and scores its one-step predictions from
// index trainSize onward.
func (r *runner) kalman(series *timeseries.Series, trainSize int) (*KalmanReport, error) {
	f, err := kalman.New(r.cfg.Kalman, kalman.WithLogger(r.log), kalman.WithMetrics(r.metrics))
	if err != nil {
		return nil, err
	}
	values := series.ValuesCopy()
	if _, err := f.Run(values); err != nil {
		return nil, fmt.Errorf("kalman: %w", err)
	}

	preds := f.Predictions()
	pairs := make([]accuracy.Pair, 0, len(values)-trainSize)
	for i := trainSize; i < len(values); i++ {
		pairs = append(pairs, accuracy.Pair{Predicted: preds[i], Actual: values[i]})
	}
	summary, err := accuracy.Summarize(pairs)
	if err != nil {
		return nil, fmt.Errorf("kalman accuracy: %w", err)
	}
	r.log.Info().Stringer("accuracy", summary).Msg("kalman baseline complete")
	return &KalmanReport{Params: r.cfg.Kalman, Final: f.Current(), Accuracy: summary}, nil
}
