// Package curve provides the initial term structure consumed by the
// simulation: discount factors P(0,t) and instantaneous forwards f(0,t).
//
// Times are year fractions from today. Building curves from market quotes
// and day-count handling are the caller's concern.
package curve

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Provider is the initial zero-coupon curve.
type Provider interface {
	// Discount returns P(0,t).
	Discount(t float64) float64
	// Forward returns the instantaneous forward rate f(0,t) = -d/dt ln P(0,t).
	Forward(t float64) float64
}

// ZeroRate returns the continuously compounded zero rate to t. At t = 0 it
// returns the short end of the forward curve.
func ZeroRate(p Provider, t float64) float64 {
	if t <= 0 {
		return p.Forward(0)
	}
	return -math.Log(p.Discount(t)) / t
}

// Flat is a curve with a constant continuously compounded rate.
type Flat struct {
	Rate float64
}

func NewFlat(rate float64) *Flat {
	return &Flat{Rate: rate}
}

func (f *Flat) Discount(t float64) float64 { return math.Exp(-f.Rate * t) }
func (f *Flat) Forward(t float64) float64  { return f.Rate }

// DefaultDifferenceStep is the bump used to differentiate yield functions.
const DefaultDifferenceStep = 1e-5

// Yield wraps a maturity -> continuously compounded yield function. The
// forward is obtained by a central finite difference of t*y(t), one-sided
// near zero.
type Yield struct {
	fn   func(t float64) float64
	step float64
}

func NewYield(fn func(t float64) float64) *Yield {
	return &Yield{fn: fn, step: DefaultDifferenceStep}
}

// WithStep returns a copy using h as the finite-difference bump.
func (y *Yield) WithStep(h float64) *Yield {
	return &Yield{fn: y.fn, step: h}
}

func (y *Yield) Discount(t float64) float64 {
	if t == 0 {
		return 1
	}
	return math.Exp(-y.fn(t) * t)
}

func (y *Yield) Forward(t float64) float64 {
	h := y.step
	lo := t - h
	if lo < 0 {
		lo = 0
	}
	hi := t + h
	return (hi*y.fn(hi) - lo*y.fn(lo)) / (hi - lo)
}

// NewZeroRates builds a Yield from zero rate pillars, interpolated
// linearly and held flat outside the pillars.
func NewZeroRates(times, rates []float64) (*Yield, error) {
	if len(times) == 0 || len(times) != len(rates) {
		return nil, fmt.Errorf("%w: need matching non-empty times and rates, got %d and %d", errNodes, len(times), len(rates))
	}
	for i, t := range times {
		if !(t >= 0) || math.IsInf(t, 0) || (i > 0 && !(t > times[i-1])) {
			return nil, fmt.Errorf("%w: pillar %d at %v is out of order", errNodes, i, t)
		}
	}
	ts := append([]float64(nil), times...)
	rs := append([]float64(nil), rates...)
	return NewYield(func(t float64) float64 {
		i := sort.SearchFloat64s(ts, t)
		switch {
		case i == 0:
			return rs[0]
		case i == len(ts):
			return rs[len(rs)-1]
		}
		w := (t - ts[i-1]) / (ts[i] - ts[i-1])
		return rs[i-1] + w*(rs[i]-rs[i-1])
	}), nil
}

// Nodes interpolates log discount factors linearly between pillars, which
// gives piecewise flat forwards. The curve is anchored at P(0,0) = 1 and
// extrapolated with the last segment's forward.
type Nodes struct {
	times []float64
	logDF []float64
}

var errNodes = errors.New("curve: invalid nodes")

func NewNodes(times, discounts []float64) (*Nodes, error) {
	if len(times) == 0 || len(times) != len(discounts) {
		return nil, fmt.Errorf("%w: need matching non-empty times and discounts, got %d and %d", errNodes, len(times), len(discounts))
	}

	n := &Nodes{
		times: make([]float64, 0, len(times)+1),
		logDF: make([]float64, 0, len(times)+1),
	}
	n.times = append(n.times, 0)
	n.logDF = append(n.logDF, 0)

	prev := 0.0
	for i, t := range times {
		if !(t > prev) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("%w: pillar %d at %v is not after %v", errNodes, i, t, prev)
		}
		df := discounts[i]
		if !(df > 0) || math.IsInf(df, 0) {
			return nil, fmt.Errorf("%w: discount %d is %v", errNodes, i, df)
		}
		n.times = append(n.times, t)
		n.logDF = append(n.logDF, math.Log(df))
		prev = t
	}
	return n, nil
}

// segment returns i such that t lies in [times[i], times[i+1]), clamped to
// the first and last segments.
func (n *Nodes) segment(t float64) int {
	i := sort.SearchFloat64s(n.times, t)
	if i < len(n.times) && n.times[i] == t {
		if i == len(n.times)-1 {
			return i - 1
		}
		return i
	}
	i--
	if i < 0 {
		return 0
	}
	if i > len(n.times)-2 {
		return len(n.times) - 2
	}
	return i
}

func (n *Nodes) segmentForward(i int) float64 {
	return (n.logDF[i] - n.logDF[i+1]) / (n.times[i+1] - n.times[i])
}

func (n *Nodes) Discount(t float64) float64 {
	i := n.segment(t)
	return math.Exp(n.logDF[i] - n.segmentForward(i)*(t-n.times[i]))
}

func (n *Nodes) Forward(t float64) float64 {
	return n.segmentForward(n.segment(t))
}

// NelsonSiegel is the four-parameter Nelson-Siegel curve with analytic
// yield and forward.
type NelsonSiegel struct {
	Beta0, Beta1, Beta2, Tau float64
}

func (ns *NelsonSiegel) Yield(t float64) float64 {
	if t <= 0 {
		return ns.Beta0 + ns.Beta1
	}
	u := t / ns.Tau
	e := math.Exp(-u)
	l := -math.Expm1(-u) / u
	return ns.Beta0 + ns.Beta1*l + ns.Beta2*(l-e)
}

func (ns *NelsonSiegel) Discount(t float64) float64 {
	return math.Exp(-ns.Yield(t) * t)
}

func (ns *NelsonSiegel) Forward(t float64) float64 {
	u := t / ns.Tau
	e := math.Exp(-u)
	return ns.Beta0 + ns.Beta1*e + ns.Beta2*u*e
}
