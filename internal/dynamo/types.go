package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Process is an Itô diffusion over a flat state of Dim() entries driven by
// Factors() independent Brownian motions.
type Process interface {
	Dim() int
	Factors() int
	// Drift writes mu(t, x) into dst (len Dim()).
	Drift(t float64, x State, dst State)
	// Diffusion writes Sigma(t, x) into dst as a row-major Dim() x Factors() matrix.
	Diffusion(t float64, x State, dst []float64)
}

// StepWorker advances single sample paths. It owns scratch memory and must
// not be shared between goroutines.
type StepWorker interface {
	// Step writes the state at t+dt into dst. dw holds the Brownian
	// increments over the step, already scaled by sqrt(dt).
	Step(x State, t, dt float64, dw []float64, dst State)
}

type Integrator interface {
	Name() string
	NewWorker(p Process) StepWorker
}

// Gaussian produces standard normal draws. Implementations must return the
// same matrix for the same arguments on every call.
type Gaussian interface {
	Normals(rows, cols int) *mat.Dense
}

// DimensionLimited is implemented by generators that support at most
// MaxDims columns per draw, such as low-discrepancy sequences.
type DimensionLimited interface {
	MaxDims() int
}
