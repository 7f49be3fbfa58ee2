// Package config loads forecasting run settings from YAML.
//
// Files are decoded over Default, so a file only names what it changes.
// Unknown keys are rejected:
//
//	cfg, err := config.Load("run.yaml")
//	if errors.Is(err, config.ErrInvalid) {
//	    // a value no run could use
//	}
//	logger := cfg.NewLogger(os.Stderr)
//	search := cfg.SearchConfig(logger)
//
// An example file:
//
//	transform:
//	  log: true
//	estimator:
//	  max_iter: 1000
//	selection:
//	  strategy: stepwise
//	  unit_root_d: true
//	  ranges:
//	    p: {min: 0, max: 3}
//	walkforward:
//	  train_fraction: 0.8
//	  policy: skip
package config
