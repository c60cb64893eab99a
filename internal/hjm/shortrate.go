package hjm

import (
	"fmt"
	"math"

	"github.com/san-kum/hjmsim/internal/curve"
	"gonum.org/v1/gonum/mat"
)

// DiscountMode selects how discount factor paths are aggregated.
type DiscountMode string

const (
	// Sequential multiplies step factors along the time axis.
	Sequential DiscountMode = "sequential"
	// MatMul sums log factors with a lower-triangular matrix of ones and
	// exponentiates, removing the sequential dependency.
	MatMul DiscountMode = "matmul"
)

func ParseDiscountMode(s string) (DiscountMode, error) {
	switch DiscountMode(s) {
	case "", Sequential:
		return Sequential, nil
	case MatMul:
		return MatMul, nil
	}
	return "", fmt.Errorf("hjm: unknown discount mode %q", s)
}

// ShortRates returns r(t_i) = f(0,t_i) + sum(x(t_i)) as [samples, times].
func ShortRates(c curve.Provider, layout StateLayout, times []float64, states []*mat.Dense) *mat.Dense {
	samples, _ := states[0].Dims()
	rates := mat.NewDense(samples, len(times), nil)
	for i, t := range times {
		f := c.Forward(t)
		for s := 0; s < samples; s++ {
			r := f
			for _, x := range layout.X(states[i].RawRowView(s)) {
				r += x
			}
			rates.Set(s, i, r)
		}
	}
	return rates
}

// stepLengths returns dt_i = t_i - t_{i-1} with dt_0 = 0.
func stepLengths(times []float64) []float64 {
	dt := make([]float64, len(times))
	for i := 1; i < len(times); i++ {
		dt[i] = times[i] - times[i-1]
	}
	return dt
}

// DiscountFactors aggregates exp(-r(t_i)·dt_i) along each row of rates.
// The first column is exactly 1.
func DiscountFactors(times []float64, rates *mat.Dense, mode DiscountMode) *mat.Dense {
	if mode == MatMul {
		return discountMatMul(times, rates)
	}
	return discountSequential(times, rates)
}

func discountSequential(times []float64, rates *mat.Dense) *mat.Dense {
	samples, k := rates.Dims()
	dt := stepLengths(times)
	out := mat.NewDense(samples, k, nil)
	for s := 0; s < samples; s++ {
		r := rates.RawRowView(s)
		d := out.RawRowView(s)
		acc := 1.0
		for i := 0; i < k; i++ {
			acc *= math.Exp(-r[i] * dt[i])
			d[i] = acc
		}
	}
	return out
}

func discountMatMul(times []float64, rates *mat.Dense) *mat.Dense {
	samples, k := rates.Dims()
	dt := stepLengths(times)

	logs := mat.NewDense(samples, k, nil)
	logs.Apply(func(i, j int, v float64) float64 {
		return -v * dt[j]
	}, rates)

	ones := make([]float64, k*k)
	for i := range ones {
		ones[i] = 1
	}
	lower := mat.NewTriDense(k, mat.Lower, ones)

	var cum mat.Dense
	cum.Mul(logs, lower.T())
	cum.Apply(func(i, j int, v float64) float64 {
		return math.Exp(v)
	}, &cum)
	return &cum
}
