package hjm

import (
	"errors"
	"fmt"
	"sort"
)

// Volatility is the per-factor instantaneous volatility sigma(t, r).
// Implementations must be pure and safe for concurrent use.
type Volatility interface {
	Factors() int
	// Evaluate writes sigma(t, r) into dst (len Factors()).
	Evaluate(t, r float64, dst []float64)
}

// Constant ignores time and rate. It reduces the model to multi-factor
// Gaussian HJM.
type Constant []float64

func (c Constant) Factors() int { return len(c) }

func (c Constant) Evaluate(t, r float64, dst []float64) {
	copy(dst, c)
}

// Piecewise is constant between time breaks: Values[i] applies on
// [Breaks[i-1], Breaks[i]) and the last entry applies from the last break on.
type Piecewise struct {
	breaks []float64
	values [][]float64
}

var errVolatility = errors.New("hjm: invalid volatility")

func NewPiecewise(breaks []float64, values [][]float64) (*Piecewise, error) {
	if len(values) != len(breaks)+1 {
		return nil, fmt.Errorf("%w: %d breaks need %d buckets, got %d", errVolatility, len(breaks), len(breaks)+1, len(values))
	}
	if !sort.Float64sAreSorted(breaks) {
		return nil, fmt.Errorf("%w: breaks must be increasing", errVolatility)
	}
	for i := 1; i < len(breaks); i++ {
		if breaks[i] == breaks[i-1] {
			return nil, fmt.Errorf("%w: duplicate break %v", errVolatility, breaks[i])
		}
	}
	n := len(values[0])
	for i, v := range values {
		if len(v) != n {
			return nil, fmt.Errorf("%w: bucket %d has %d factors, want %d", errVolatility, i, len(v), n)
		}
	}
	return &Piecewise{breaks: breaks, values: values}, nil
}

func (p *Piecewise) Factors() int { return len(p.values[0]) }

func (p *Piecewise) Evaluate(t, r float64, dst []float64) {
	i := sort.Search(len(p.breaks), func(i int) bool { return p.breaks[i] > t })
	copy(dst, p.values[i])
}

// Linear is the local volatility sigma_i(t, r) = Level_i + Skew_i * r.
type Linear struct {
	Level []float64
	Skew  []float64
}

func NewLinear(level, skew []float64) (*Linear, error) {
	if len(level) != len(skew) {
		return nil, fmt.Errorf("%w: level has %d factors, skew has %d", errVolatility, len(level), len(skew))
	}
	return &Linear{Level: level, Skew: skew}, nil
}

func (l *Linear) Factors() int { return len(l.Level) }

func (l *Linear) Evaluate(t, r float64, dst []float64) {
	for i := range l.Level {
		dst[i] = l.Level[i] + l.Skew[i]*r
	}
}

// Func adapts an arbitrary function.
type Func struct {
	N  int
	Fn func(t, r float64, dst []float64)
}

func (f Func) Factors() int { return f.N }

func (f Func) Evaluate(t, r float64, dst []float64) {
	f.Fn(t, r, dst)
}
