package integrators

import "github.com/san-kum/hjmsim/internal/dynamo"

// EulerMaruyama is the first-order scheme
//
//	x(t+dt) = x(t) + mu(t, x) dt + Sigma(t, x) dW
type EulerMaruyama struct{}

func NewEulerMaruyama() *EulerMaruyama {
	return &EulerMaruyama{}
}

func (e *EulerMaruyama) Name() string { return "euler" }

func (e *EulerMaruyama) NewWorker(p dynamo.Process) dynamo.StepWorker {
	return &eulerWorker{
		p:         p,
		factors:   p.Factors(),
		drift:     make(dynamo.State, p.Dim()),
		diffusion: make([]float64, p.Dim()*p.Factors()),
	}
}

type eulerWorker struct {
	p         dynamo.Process
	factors   int
	drift     dynamo.State
	diffusion []float64
}

func (w *eulerWorker) Step(x dynamo.State, t, dt float64, dw []float64, dst dynamo.State) {
	w.p.Drift(t, x, w.drift)
	w.p.Diffusion(t, x, w.diffusion)

	m := w.factors
	for i := range x {
		next := x[i] + dt*w.drift[i]
		row := w.diffusion[i*m : (i+1)*m]
		for j, s := range row {
			next += s * dw[j]
		}
		dst[i] = next
	}
}
