package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sartorproj/goforecast/arima"
	"github.com/sartorproj/goforecast/kalman"
	"github.com/sartorproj/goforecast/selection"
	"github.com/sartorproj/goforecast/walkforward"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full run configuration.
type Config struct {
	Stationarity StationarityConfig `yaml:"stationarity"`
	Transform    TransformConfig    `yaml:"transform"`
	Estimator    arima.CSS          `yaml:"estimator"`
	Selection    SelectionConfig    `yaml:"selection"`
	WalkForward  WalkForwardConfig  `yaml:"walkforward"`
	Kalman       kalman.Params      `yaml:"kalman"`
	Log          LogConfig          `yaml:"log"`
}

// StationarityConfig configures the diagnostic analysis.
type StationarityConfig struct {
	ShortWindow int `yaml:"short_window"`
	LongWindow  int `yaml:"long_window"`
	// MaxLag is the ADF lag order; 0 picks floor((n-1)^(1/3)).
	MaxLag int `yaml:"max_lag"`
}

// TransformConfig configures the transforms applied before modelling.
type TransformConfig struct {
	Log bool `yaml:"log"`
	// Scale multiplies the series after the log transform; 1 disables it.
	Scale float64 `yaml:"scale"`
}

// SelectionConfig configures the order search.
type SelectionConfig struct {
	Ranges         selection.Ranges    `yaml:"ranges"`
	Criterion      selection.Criterion `yaml:"criterion"`
	Strategy       selection.Strategy  `yaml:"strategy"`
	MaxIterations  int                 `yaml:"max_iterations"`
	MinImprovement float64             `yaml:"min_improvement"`
	Workers        int                 `yaml:"workers"`
	MaxD           int                 `yaml:"max_d"`
	// UnitRootD fixes d from the unit-root test and searches p and q only.
	UnitRootD bool `yaml:"unit_root_d"`
	// Order, when set, skips the search and uses this order.
	Order *arima.Order `yaml:"order,omitempty"`
}

// WalkForwardConfig configures the evaluation split and failure policy.
type WalkForwardConfig struct {
	TrainFraction float64            `yaml:"train_fraction"`
	Policy        walkforward.Policy `yaml:"policy"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Stationarity: StationarityConfig{ShortWindow: 12, LongWindow: 12},
		Transform:    TransformConfig{Log: true, Scale: 1},
		Estimator:    arima.DefaultCSS(),
		Selection: SelectionConfig{
			Ranges:    selection.DefaultRanges(),
			Criterion: selection.AIC,
			Strategy:  selection.Stepwise,
			Workers:   4,
			MaxD:      arima.DefaultMaxD,
			UnitRootD: true,
		},
		WalkForward: WalkForwardConfig{TrainFraction: 0.8, Policy: walkforward.Abort},
		Kalman:      kalman.DefaultParams(),
		Log:         LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no run could use.
func (c *Config) Validate() error {
	if c.Stationarity.ShortWindow < 1 || c.Stationarity.LongWindow < 1 {
		return fmt.Errorf("%w: stationarity windows must be >= 1", ErrInvalid)
	}
	if c.Stationarity.MaxLag < 0 {
		return fmt.Errorf("%w: stationarity.max_lag must be >= 0", ErrInvalid)
	}
	if c.Transform.Scale == 0 {
		return fmt.Errorf("%w: transform.scale must be non-zero", ErrInvalid)
	}
	if c.Estimator.MaxIter < 0 || c.Estimator.Tolerance < 0 {
		return fmt.Errorf("%w: estimator settings must be non-negative", ErrInvalid)
	}

	s := c.Selection
	if s.MaxD < 0 {
		return fmt.Errorf("%w: selection.max_d must be >= 0", ErrInvalid)
	}
	if err := s.Ranges.Validate(s.MaxD); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch s.Criterion {
	case selection.AIC, selection.AICc, selection.BIC:
	default:
		return fmt.Errorf("%w: unknown criterion %q", ErrInvalid, s.Criterion)
	}
	switch s.Strategy {
	case selection.Grid, selection.Stepwise:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalid, s.Strategy)
	}
	if s.MaxIterations < 0 || s.MinImprovement < 0 || s.Workers < 0 {
		return fmt.Errorf("%w: selection limits must be non-negative", ErrInvalid)
	}
	if s.Order != nil {
		if err := s.Order.Validate(s.MaxD); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}

	if f := c.WalkForward.TrainFraction; f <= 0 || f >= 1 {
		return fmt.Errorf("%w: walkforward.train_fraction %g must be in (0, 1)", ErrInvalid, f)
	}
	if _, err := walkforward.ParsePolicy(string(c.WalkForward.Policy)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := c.Kalman.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q must be console or json", ErrInvalid, c.Log.Format)
	}
	return nil
}

// NewLogger builds a logger writing to w in the configured format and level.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SearchConfig builds the order-search configuration.
func (c *Config) SearchConfig(logger zerolog.Logger) *selection.Config {
	return &selection.Config{
		Criterion:      c.Selection.Criterion,
		Strategy:       c.Selection.Strategy,
		MaxIterations:  c.Selection.MaxIterations,
		MinImprovement: c.Selection.MinImprovement,
		Workers:        c.Selection.Workers,
		MaxD:           c.Selection.MaxD,
		UnitRootD:      c.Selection.UnitRootD,
		Fitter:         c.Estimator,
		Logger:         logger,
	}
}

// Policy returns the parsed walk-forward policy.
func (c *Config) Policy() walkforward.Policy {
	p, err := walkforward.ParsePolicy(string(c.WalkForward.Policy))
	if err != nil {
		return walkforward.Abort
	}
	return p
}
