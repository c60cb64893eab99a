// Package dynamo provides core simulation primitives for stochastic
// differential equations.
//
// The package defines the fundamental interfaces and types shared by the
// path simulator and the models it drives:
//
//   - [State]: flat vector representing one sample path's state
//   - [Process]: Itô diffusion dX = mu(t, X) dt + Sigma(t, X) dW
//   - [Integrator]: discretization scheme producing per-worker [StepWorker]s
//   - [Gaussian]: injected source of standard normal increments
//   - [StatePool]: scratch vectors reused across steps
//
// # Example
//
//	model, _ := hjm.New(params)
//	s := sim.New(model.Dynamics(), integrators.NewEulerMaruyama(), random.NewPseudo(42, 0))
//	result, _ := s.Run(ctx, cfg)
//
// # Thread Safety
//
// Process implementations must be safe for concurrent use: the simulator
// advances disjoint slices of the sample batch from several goroutines.
// StepWorker values are owned by exactly one goroutine.
package dynamo
