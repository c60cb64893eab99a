package hjm

import (
	"github.com/san-kum/hjmsim/internal/curve"
	"github.com/san-kum/hjmsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// StateLayout indexes the flat state of an n-factor model: x occupies the
// first n entries, y the following n*n entries in row-major order.
type StateLayout struct {
	N int
}

func (l StateLayout) Dim() int { return l.N + l.N*l.N }

func (l StateLayout) X(s []float64) []float64 { return s[:l.N] }

func (l StateLayout) Y(s []float64) []float64 { return s[l.N : l.N+l.N*l.N] }

func (l StateLayout) YIndex(i, j int) int { return l.N + i*l.N + j }

// Dynamics is the joint (x, y) diffusion. It implements dynamo.Process and
// is safe for concurrent use.
type Dynamics struct {
	layout StateLayout
	k      []float64
	rho    []float64
	sqrtRho   []float64
	vol    Volatility
	curve  curve.Provider
	vols   *dynamo.StatePool
}

func newDynamics(k []float64, rho mat.Symmetric, root mat.Matrix, vol Volatility, c curve.Provider) *Dynamics {
	n := len(k)
	d := &Dynamics{
		layout: StateLayout{N: n},
		k:      append([]float64(nil), k...),
		rho:    make([]float64, n*n),
		sqrtRho:   make([]float64, n*n),
		vol:    vol,
		curve:  c,
		vols:   dynamo.NewStatePool(n),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.rho[i*n+j] = rho.At(i, j)
			d.sqrtRho[i*n+j] = root.At(i, j)
		}
	}
	return d
}

func (d *Dynamics) Layout() StateLayout { return d.layout }

func (d *Dynamics) Dim() int { return d.layout.Dim() }

func (d *Dynamics) Factors() int { return d.layout.N }

// ShortRate returns r(t) = f(0,t) + sum(x).
func (d *Dynamics) ShortRate(t float64, s dynamo.State) float64 {
	r := d.curve.Forward(t)
	for _, x := range d.layout.X(s) {
		r += x
	}
	return r
}

// Drift computes
//
//	drift_x[i]   = sum_j y[i,j] - k[i] x[i]
//	drift_y[i,j] = rho[i,j] v[i] v[j] - (k[i] + k[j]) y[i,j]
//
// with v = sigma(t, r(t)).
func (d *Dynamics) Drift(t float64, s dynamo.State, dst dynamo.State) {
	n := d.layout.N
	x := d.layout.X(s)
	y := d.layout.Y(s)

	buf := d.vols.Get()
	v := *buf
	d.vol.Evaluate(t, d.ShortRate(t, s), v)

	for i := 0; i < n; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += y[i*n+j]
		}
		dst[i] = sum - d.k[i]*x[i]
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dst[n+i*n+j] = d.rho[i*n+j]*v[i]*v[j] - (d.k[i]+d.k[j])*y[i*n+j]
		}
	}
	d.vols.Put(buf)
}

// Diffusion writes the (n+n²) x n loading matrix. The x block is B·diag(v)
// with B·Bᵀ = Rho (the Cholesky factor unless Rho is singular); the y rows
// are zero since y follows a deterministic ODE given v.
func (d *Dynamics) Diffusion(t float64, s dynamo.State, dst []float64) {
	n := d.layout.N
	for i := range dst {
		dst[i] = 0
	}

	buf := d.vols.Get()
	v := *buf
	d.vol.Evaluate(t, d.ShortRate(t, s), v)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dst[i*n+j] = d.sqrtRho[i*n+j] * v[j]
		}
	}
	d.vols.Put(buf)
}
