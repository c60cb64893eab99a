package sim

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/san-kum/hjmsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Simulator advances a batch of sample paths of a process across a refined
// time grid with externally supplied Gaussian increments.
type Simulator struct {
	process    dynamo.Process
	integrator dynamo.Integrator
	gauss      dynamo.Gaussian
	minChunk   int
}

func New(process dynamo.Process, integrator dynamo.Integrator, gauss dynamo.Gaussian) *Simulator {
	return &Simulator{
		process:    process,
		integrator: integrator,
		gauss:      gauss,
		minChunk:   DefaultMinChunk,
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.process.Factors() < 1 {
		return dynamo.ErrNoFactors
	}
	if cfg.NumSamples <= 0 {
		return fmt.Errorf("%w: got %d", dynamo.ErrNumSamples, cfg.NumSamples)
	}
	if cfg.InitialState != nil && len(cfg.InitialState) != s.process.Dim() {
		return fmt.Errorf("%w: initial state has %d entries, process has %d", dynamo.ErrDimensionMismatch, len(cfg.InitialState), s.process.Dim())
	}
	return nil
}

// Run simulates cfg.NumSamples paths and returns the states at the
// requested times. All Gaussian draws are taken before stepping, so the
// result does not depend on cfg.Workers.
//
// ctx is consulted once before any work starts; the step loop itself is not
// interruptible.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	grid, mask, err := TimeGrid(cfg.Times, cfg.TimeStep)
	if err != nil {
		return nil, err
	}

	dim := s.process.Dim()
	factors := s.process.Factors()
	steps := len(grid) - 1
	samples := cfg.NumSamples

	if lim, ok := s.gauss.(dynamo.DimensionLimited); ok && factors*steps > lim.MaxDims() {
		return nil, fmt.Errorf("%w: %d factors x %d steps needs %d columns, generator supports %d",
			dynamo.ErrTooManyDimensions, factors, steps, factors*steps, lim.MaxDims())
	}

	var z *mat.Dense
	if steps > 0 {
		z = s.gauss.Normals(samples, factors*steps)
	}

	cur := mat.NewDense(samples, dim, nil)
	next := mat.NewDense(samples, dim, nil)
	if cfg.InitialState != nil {
		for r := 0; r < samples; r++ {
			copy(cur.RawRowView(r), cfg.InitialState)
		}
	}

	result := &Result{
		Times:  append([]float64(nil), cfg.Times...),
		States: make([]*mat.Dense, 0, len(cfg.Times)),
		Grid:   grid,
		Mask:   mask,
	}
	if mask[0] {
		result.States = append(result.States, mat.DenseCopyOf(cur))
	}

	nworkers := cfg.Workers
	if nworkers == 0 {
		nworkers = runtime.NumCPU()
	}
	spans := dynamo.Partition(samples, nworkers, s.minChunk)
	workers := make([]dynamo.StepWorker, len(spans))
	increments := make([][]float64, len(spans))
	for i := range spans {
		workers[i] = s.integrator.NewWorker(s.process)
		increments[i] = make([]float64, factors)
	}

	for i := 0; i < steps; i++ {
		t := grid[i]
		dt := grid[i+1] - grid[i]
		sqrtDt := math.Sqrt(dt)
		offset := i * factors

		err := dynamo.ParallelFor(spans, func(w int, span dynamo.Span) error {
			step := workers[w]
			dw := increments[w]
			for r := span.Start; r < span.End; r++ {
				zr := z.RawRowView(r)[offset : offset+factors]
				for j, v := range zr {
					dw[j] = v * sqrtDt
				}
				step.Step(cur.RawRowView(r), t, dt, dw, next.RawRowView(r))
			}
			return nil
		})
		if err != nil {
			return result, err
		}
		cur, next = next, cur
		result.StepsTaken++

		if cfg.ValidateState {
			for r := 0; r < samples; r++ {
				if !dynamo.State(cur.RawRowView(r)).IsValid() {
					return result, &dynamo.SimulationError{Step: i, Time: grid[i+1], Sample: r, Wrapped: dynamo.ErrInvalidState}
				}
			}
		}

		if mask[i+1] {
			result.States = append(result.States, mat.DenseCopyOf(cur))
		}
	}

	return result, nil
}
