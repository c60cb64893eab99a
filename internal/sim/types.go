package sim

import (
	"github.com/san-kum/hjmsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// DefaultMinChunk is the smallest batch slice handed to a worker.
const DefaultMinChunk = 256

type Config struct {
	// Times are the requested output times, strictly increasing and >= 0.
	Times []float64
	// TimeStep is the largest Euler step on the refined grid.
	TimeStep   float64
	NumSamples int
	// Workers bounds the goroutines advancing the batch. Zero uses every CPU
	// and one or less runs serially.
	Workers int
	// InitialState seeds every path at t = 0; nil means the zero state.
	InitialState  dynamo.State
	ValidateState bool
}

type Result struct {
	// Times are the requested output times and States[i] the
	// [samples, dim] batch at Times[i].
	Times  []float64
	States []*mat.Dense
	// Grid is the refined simulation grid and Mask marks requested times on it.
	Grid       []float64
	Mask       []bool
	StepsTaken int
}
