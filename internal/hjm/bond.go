package hjm

import (
	"math"

	"github.com/san-kum/hjmsim/internal/curve"
	"gonum.org/v1/gonum/mat"
)

// smallRate is the |k·tau| below which G switches to its series expansion.
const smallRate = 1e-8

// G returns (1 - exp(-k·tau)) / k, which tends to tau as k -> 0.
func G(k, tau float64) float64 {
	z := k * tau
	if math.Abs(z) < smallRate {
		return tau * (1 - 0.5*z)
	}
	return -math.Expm1(-z) / k
}

// BondPrice reconstitutes P(t, T) from one path's state. With T = t it is
// exactly 1.
func BondPrice(c curve.Provider, k []float64, t, T float64, s []float64) float64 {
	n := len(k)
	layout := StateLayout{N: n}
	g := make([]float64, n)
	for i := range g {
		g[i] = G(k[i], T-t)
	}
	return c.Discount(T) / c.Discount(t) * math.Exp(-reconstitutionExponent(layout, g, s))
}

// reconstitutionExponent returns x·G + 0.5 Gᵀ y G.
func reconstitutionExponent(layout StateLayout, g []float64, s []float64) float64 {
	n := layout.N
	x := layout.X(s)
	y := layout.Y(s)

	term1 := 0.0
	for i := 0; i < n; i++ {
		term1 += x[i] * g[i]
	}
	term2 := 0.0
	for i := 0; i < n; i++ {
		row := 0.0
		for j := 0; j < n; j++ {
			row += y[i*n+j] * g[j]
		}
		term2 += g[i] * row
	}
	return term1 + 0.5*term2
}

// Surface holds bond prices indexed by (sample, maturity, time), with
// maturities measured from each time.
type Surface struct {
	Samples    int
	Maturities int
	Times      int
	data       []float64
}

func NewSurface(samples, maturities, times int) *Surface {
	return &Surface{
		Samples:    samples,
		Maturities: maturities,
		Times:      times,
		data:       make([]float64, samples*maturities*times),
	}
}

func (s *Surface) index(sample, maturity, time int) int {
	return (sample*s.Maturities+maturity)*s.Times + time
}

func (s *Surface) At(sample, maturity, time int) float64 {
	return s.data[s.index(sample, maturity, time)]
}

func (s *Surface) Set(sample, maturity, time int, v float64) {
	s.data[s.index(sample, maturity, time)] = v
}

// Sample returns the [maturities, times] slice of one path. It shares
// storage with the surface.
func (s *Surface) Sample(sample int) *mat.Dense {
	size := s.Maturities * s.Times
	return mat.NewDense(s.Maturities, s.Times, s.data[sample*size:(sample+1)*size])
}
