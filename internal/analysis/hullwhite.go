package analysis

import (
	"math"

	"github.com/san-kum/hjmsim/internal/curve"
	"github.com/san-kum/hjmsim/internal/hjm"
)

// HullWhiteY returns the auxiliary variance state
// y(t) = sigma²/(2k) (1 - exp(-2kt)).
func HullWhiteY(k, sigma, t float64) float64 {
	return sigma * sigma * hjm.G(2*k, t)
}

// HullWhiteVarX equals HullWhiteY: in one factor the variance of x is the
// integrated y dynamics.
func HullWhiteVarX(k, sigma, t float64) float64 {
	return HullWhiteY(k, sigma, t)
}

// HullWhiteMeanX returns E[x(t)] = sigma²/(2k²) (1 - exp(-kt))².
func HullWhiteMeanX(k, sigma, t float64) float64 {
	g := hjm.G(k, t)
	return 0.5 * sigma * sigma * g * g
}

func HullWhiteMeanShortRate(c curve.Provider, k, sigma, t float64) float64 {
	return c.Forward(t) + HullWhiteMeanX(k, sigma, t)
}

// HullWhiteBond returns P(t, T) given x(t) in the one-factor model with
// y(t) taken from its closed form.
func HullWhiteBond(c curve.Provider, k, sigma, x, t, T float64) float64 {
	g := hjm.G(k, T-t)
	y := HullWhiteY(k, sigma, t)
	return c.Discount(T) / c.Discount(t) * math.Exp(-x*g-0.5*y*g*g)
}

// EulerMeanShortRate runs the mean of the Euler recursion for the
// one-factor constant-volatility model over grid and returns
// f(0, grid[last]) + E[x]. Antithetic sampling reproduces this value up to
// rounding, which separates discretization bias from sampling noise.
func EulerMeanShortRate(c curve.Provider, k, sigma float64, grid []float64) float64 {
	x, y := 0.0, 0.0
	for i := 1; i < len(grid); i++ {
		dt := grid[i] - grid[i-1]
		x, y = x+dt*(y-k*x), y+dt*(sigma*sigma-2*k*y)
	}
	return c.Forward(grid[len(grid)-1]) + x
}
