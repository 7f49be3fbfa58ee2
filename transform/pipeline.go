package transform

import (
	"fmt"
	"math"
	"time"

	"github.com/sartorproj/goforecast/timeseries"
)

// Pipeline applies transforms in sequence and remembers them so the result
// can be mapped back to the original scale.
type Pipeline struct {
	steps []Step
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Steps returns the applied steps in application order.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// Log applies Log and records it.
func (p *Pipeline) Log(s *timeseries.Series) (*timeseries.Series, error) {
	out, err := Log(s)
	if err != nil {
		return nil, err
	}
	p.steps = append(p.steps, Step{Kind: KindLog})
	return out, nil
}

// Difference applies Difference and records it with its anchors.
func (p *Pipeline) Difference(s *timeseries.Series, lag int) (*timeseries.Series, error) {
	out, step, err := Difference(s, lag)
	if err != nil {
		return nil, err
	}
	p.steps = append(p.steps, step)
	return out, nil
}

// Scale applies Scale and records it.
func (p *Pipeline) Scale(s *timeseries.Series, factor float64) (*timeseries.Series, error) {
	out, err := Scale(s, factor)
	if err != nil {
		return nil, err
	}
	p.steps = append(p.steps, Step{Kind: KindScale, Factor: factor})
	return out, nil
}

// Invert undoes every recorded step in reverse order. A differencing step is
// undone by integrating from its recorded anchors, so the output regains the
// dropped leading observations.
func (p *Pipeline) Invert(s *timeseries.Series) (*timeseries.Series, error) {
	cur := s.Copy()
	for i := len(p.steps) - 1; i >= 0; i-- {
		step := p.steps[i]
		switch step.Kind {
		case KindLog:
			for j, v := range cur.Values {
				cur.Values[j] = math.Exp(v)
			}
		case KindScale:
			for j, v := range cur.Values {
				cur.Values[j] = v / step.Factor
			}
		case KindDifference:
			values := IntegrateDifference(step.Anchors, cur.Values)
			var timestamps []time.Time
			if len(step.AnchorTimes)+len(cur.Timestamps) > 0 {
				timestamps = append(append(timestamps, step.AnchorTimes...), cur.Timestamps...)
				if len(timestamps) != len(values) {
					return nil, fmt.Errorf("invert difference: %d timestamps for %d values: %w",
						len(timestamps), len(values), timeseries.ErrLengthMismatch)
				}
			}
			cur = &timeseries.Series{Timestamps: timestamps, Values: values, Name: cur.Name}
		default:
			return nil, fmt.Errorf("invert: unknown transform %v", step.Kind)
		}
	}
	return cur, nil
}

// Pointwise reports whether every recorded step maps values one to one.
func (p *Pipeline) Pointwise() bool {
	for _, step := range p.steps {
		if step.Kind == KindDifference {
			return false
		}
	}
	return true
}

// InvertValue maps a single transformed value back to the original scale.
func (p *Pipeline) InvertValue(v float64) (float64, error) {
	if !p.Pointwise() {
		return 0, ErrNotPointwise
	}
	for i := len(p.steps) - 1; i >= 0; i-- {
		switch p.steps[i].Kind {
		case KindLog:
			v = math.Exp(v)
		case KindScale:
			v /= p.steps[i].Factor
		}
	}
	return v, nil
}
