package selection

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sartorproj/goforecast/arima"
	"github.com/sartorproj/goforecast/stats"
	"github.com/sartorproj/goforecast/telemetry"
)

const component = "selection"

// scoreTolerance is the relative difference below which two scores tie.
const scoreTolerance = 1e-9

var (
	// ErrNoViableOrder is returned when every candidate failed to fit.
	ErrNoViableOrder = errors.New("selection: no candidate order could be fitted")
	// ErrSeasonalUnsupported is returned when a seasonal search is requested.
	ErrSeasonalUnsupported = errors.New("selection: seasonal models are not supported")
	// ErrInvalidRange is returned for an empty or negative search range.
	ErrInvalidRange = errors.New("selection: invalid search range")
)

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Values returns the integers in the range in increasing order.
func (r IntRange) Values() []int {
	var out []int
	for v := r.Min; v <= r.Max; v++ {
		out = append(out, v)
	}
	return out
}

func (r IntRange) contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Ranges bounds the order search.
type Ranges struct {
	P IntRange `yaml:"p" json:"p"`
	D IntRange `yaml:"d" json:"d"`
	Q IntRange `yaml:"q" json:"q"`
}

// DefaultRanges searches p, q in [0,3] and d in [0,2].
func DefaultRanges() Ranges {
	return Ranges{
		P: IntRange{0, 3},
		D: IntRange{0, 2},
		Q: IntRange{0, 3},
	}
}

func (r Ranges) contains(o arima.Order) bool {
	return r.P.contains(o.P) && r.D.contains(o.D) && r.Q.contains(o.Q)
}

// Validate checks that every range is non-empty and non-negative and that d
// stays within maxD.
func (r Ranges) Validate(maxD int) error {
	for name, rng := range map[string]IntRange{"p": r.P, "d": r.D, "q": r.Q} {
		if rng.Min < 0 || rng.Max < rng.Min {
			return fmt.Errorf("%w: %s=[%d,%d]", ErrInvalidRange, name, rng.Min, rng.Max)
		}
	}
	if r.D.Max > maxD {
		return fmt.Errorf("%w: d up to %d exceeds maximum %d", ErrInvalidRange, r.D.Max, maxD)
	}
	return nil
}

// Criterion names the information criterion minimised by the search.
type Criterion string

const (
	AIC  Criterion = "aic"
	AICc Criterion = "aicc"
	BIC  Criterion = "bic"
)

func (c Criterion) score(ic arima.Criteria) float64 {
	switch c {
	case BIC:
		return ic.BIC
	case AICc:
		return ic.AICc
	default:
		return ic.AIC
	}
}

// Strategy selects how candidates are enumerated.
type Strategy string

const (
	// Grid evaluates every order in range, simplest first.
	Grid Strategy = "grid"
	// Stepwise starts from a few seed orders and expands the neighbours of
	// the incumbent until nothing improves.
	Stepwise Strategy = "stepwise"
)

// Config holds configuration for the order search.
type Config struct {
	Criterion Criterion `yaml:"criterion"`
	Strategy  Strategy  `yaml:"strategy"`
	// MaxIterations caps the number of candidates evaluated; 0 means no cap.
	MaxIterations int `yaml:"max_iterations"`
	// MinImprovement stops a stepwise search when the best score improves
	// by no more than this amount in a round.
	MinImprovement float64 `yaml:"min_improvement"`
	// Workers bounds concurrent fits; values < 1 mean one.
	Workers  int  `yaml:"workers"`
	Seasonal bool `yaml:"seasonal"`
	MaxD     int  `yaml:"max_d"`
	// UnitRootD fixes d to the number of differences the ADF test needs,
	// clamped to the d range, and searches p and q only.
	UnitRootD bool `yaml:"unit_root_d"`

	Fitter  arima.Fitter       `yaml:"-"`
	Logger  zerolog.Logger     `yaml:"-"`
	Metrics *telemetry.Metrics `yaml:"-"`
}

// DefaultConfig returns the default search configuration.
func DefaultConfig() *Config {
	return &Config{
		Criterion:      AIC,
		Strategy:       Grid,
		MinImprovement: 0,
		Workers:        4,
		MaxD:           arima.DefaultMaxD,
		Fitter:         arima.DefaultCSS(),
		Logger:         zerolog.Nop(),
	}
}

// Candidate is one evaluated order. Failed candidates carry Err and an
// infinite score.
type Candidate struct {
	Order arima.Order `json:"order"`
	Score float64     `json:"score"`
	Err   error       `json:"-"`
}

// Result represents the outcome of an order search.
type Result struct {
	Order      arima.Order `json:"order"`
	Score      float64     `json:"score"`
	Criterion  Criterion   `json:"criterion"`
	Evaluated  int         `json:"evaluated"`
	Skipped    int         `json:"skipped"`
	Candidates []Candidate `json:"-"`
}

// better reports whether a should replace b as the incumbent. Scores within
// tolerance tie and are broken by fewer ARMA parameters, then smaller d,
// then smaller p.
func better(a, b Candidate) bool {
	if a.Err != nil || math.IsInf(a.Score, 1) {
		return false
	}
	if b.Err != nil || math.IsInf(b.Score, 1) {
		return true
	}
	tol := scoreTolerance * math.Max(1, math.Max(math.Abs(a.Score), math.Abs(b.Score)))
	if math.Abs(a.Score-b.Score) > tol {
		return a.Score < b.Score
	}
	if ak, bk := a.Order.P+a.Order.Q, b.Order.P+b.Order.Q; ak != bk {
		return ak < bk
	}
	if a.Order.D != b.Order.D {
		return a.Order.D < b.Order.D
	}
	return a.Order.P < b.Order.P
}

// Search finds the order in ranges minimising the configured criterion for
// values. Candidates that fail to fit are skipped; ErrNoViableOrder is
// returned when none succeeds.
func Search(ctx context.Context, values []float64, ranges Ranges, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Seasonal {
		return nil, ErrSeasonalUnsupported
	}
	maxD := cfg.MaxD
	if maxD <= 0 {
		maxD = arima.DefaultMaxD
	}
	if err := ranges.Validate(maxD); err != nil {
		return nil, err
	}

	s := &searcher{
		cfg:    cfg,
		values: values,
		fitter: cfg.Fitter,
		log:    cfg.Logger.With().Str("component", component).Logger(),
	}
	if s.fitter == nil {
		s.fitter = arima.DefaultCSS()
	}
	if cfg.UnitRootD && ranges.D.Max > ranges.D.Min {
		d := max(stats.NDiffs(values, ranges.D.Max), ranges.D.Min)
		ranges.D = IntRange{d, d}
		s.log.Debug().Int("d", d).Msg("differencing fixed by unit-root test")
	}

	var err error
	switch cfg.Strategy {
	case Stepwise:
		err = s.stepwise(ctx, ranges)
	case Grid, "":
		err = s.grid(ctx, ranges)
	default:
		return nil, fmt.Errorf("selection: unknown strategy %q", cfg.Strategy)
	}
	if err != nil {
		return nil, err
	}

	best := Candidate{Score: math.Inf(1), Err: ErrNoViableOrder}
	skipped := 0
	for _, c := range s.evaluated {
		if c.Err != nil {
			skipped++
		}
		if better(c, best) {
			best = c
		}
	}
	if best.Err != nil {
		return nil, fmt.Errorf("%w: %d candidates failed", ErrNoViableOrder, len(s.evaluated))
	}

	s.log.Info().
		Str("order", best.Order.String()).
		Float64("score", best.Score).
		Int("evaluated", len(s.evaluated)).
		Int("skipped", skipped).
		Msg("order selected")

	return &Result{
		Order:      best.Order,
		Score:      best.Score,
		Criterion:  s.criterion(),
		Evaluated:  len(s.evaluated),
		Skipped:    skipped,
		Candidates: s.evaluated,
	}, nil
}

type searcher struct {
	cfg       *Config
	values    []float64
	fitter    arima.Fitter
	log       zerolog.Logger
	evaluated []Candidate
}

func (s *searcher) criterion() Criterion {
	if s.cfg.Criterion == "" {
		return AIC
	}
	return s.cfg.Criterion
}

// budget returns how many more candidates may be evaluated.
func (s *searcher) budget() int {
	if s.cfg.MaxIterations <= 0 {
		return math.MaxInt
	}
	return s.cfg.MaxIterations - len(s.evaluated)
}

// grid enumerates every order in range, simplest first, truncated to the
// iteration budget.
func (s *searcher) grid(ctx context.Context, ranges Ranges) error {
	var orders []arima.Order
	for _, d := range ranges.D.Values() {
		for _, p := range ranges.P.Values() {
			for _, q := range ranges.Q.Values() {
				orders = append(orders, arima.Order{P: p, D: d, Q: q})
			}
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.P+a.Q != b.P+b.Q {
			return a.P+a.Q < b.P+b.Q
		}
		if a.D != b.D {
			return a.D < b.D
		}
		return a.P < b.P
	})
	if n := s.budget(); n < len(orders) {
		orders = orders[:n]
	}

	batch, err := s.evaluate(ctx, orders)
	if err != nil {
		return err
	}
	s.evaluated = append(s.evaluated, batch...)
	return nil
}

// stepwise explores neighbours of the incumbent in rounds. It stops when a
// round fails to improve the best score by more than MinImprovement, when no
// unvisited neighbour remains, or when the iteration budget is spent.
func (s *searcher) stepwise(ctx context.Context, ranges Ranges) error {
	visited := map[arima.Order]bool{}
	var frontier []arima.Order
	push := func(o arima.Order) {
		if ranges.contains(o) && !visited[o] {
			visited[o] = true
			frontier = append(frontier, o)
		}
	}

	seeds := [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {2, 2}}
	for _, d := range ranges.D.Values() {
		for _, pq := range seeds {
			push(arima.Order{P: pq[0], D: d, Q: pq[1]})
		}
		push(arima.Order{P: ranges.P.Min, D: d, Q: ranges.Q.Min})
	}

	best := Candidate{Score: math.Inf(1), Err: ErrNoViableOrder}
	for round := 0; len(frontier) > 0; round++ {
		if n := s.budget(); n < len(frontier) {
			frontier = frontier[:max(n, 0)]
		}
		if len(frontier) == 0 {
			break
		}

		batch, err := s.evaluate(ctx, frontier)
		if err != nil {
			return err
		}
		s.evaluated = append(s.evaluated, batch...)
		frontier = nil

		prev := best
		for _, c := range batch {
			if better(c, best) {
				best = c
			}
		}
		if best.Err != nil {
			// Nothing fitted yet; nothing to expand from.
			break
		}
		improved := prev.Err != nil || prev.Score-best.Score > s.cfg.MinImprovement
		s.log.Debug().Int("round", round).Str("best", best.Order.String()).Bool("improved", improved).Msg("stepwise round")
		if !improved {
			break
		}

		o := best.Order
		for _, delta := range [][3]int{
			{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}, {0, 0, -1},
			{1, 0, 1}, {-1, 0, -1}, {0, 1, 0}, {0, -1, 0},
		} {
			push(arima.Order{P: o.P + delta[0], D: o.D + delta[1], Q: o.Q + delta[2]})
		}
	}
	return nil
}

// evaluate fits orders concurrently. Each worker fits its own copy of the
// values; results are stored by index so the outcome does not depend on
// scheduling.
func (s *searcher) evaluate(ctx context.Context, orders []arima.Order) ([]Candidate, error) {
	out := make([]Candidate, len(orders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.cfg.Workers, 1))

	crit := s.criterion()
	for i, order := range orders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values := append([]float64(nil), s.values...)
			fitted, err := s.fitter.Fit(values, order)
			s.cfg.Metrics.FitDone(component, err)
			s.cfg.Metrics.CandidateDone()

			c := Candidate{Order: order, Score: math.Inf(1), Err: err}
			if err == nil {
				c.Score = crit.score(fitted.InformationCriteria())
				if math.IsNaN(c.Score) || math.IsInf(c.Score, 0) {
					c.Err = fmt.Errorf("%w: %s scored %v", arima.ErrNotConverged, order, c.Score)
					c.Score = math.Inf(1)
				}
			}
			if c.Err != nil {
				s.log.Debug().Err(c.Err).Str("order", order.String()).Msg("candidate skipped")
			} else {
				s.log.Debug().Str("order", order.String()).Float64("score", c.Score).Msg("candidate fitted")
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
