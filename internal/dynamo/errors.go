package dynamo

import "errors"

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector holding NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNoFactors indicates a process without Brownian drivers.
	ErrNoFactors = errors.New("dynamo: at least one factor is required")

	// ErrInvalidTimes indicates an empty, unordered, negative or non-finite time grid.
	ErrInvalidTimes = errors.New("dynamo: times must be a non-empty, strictly increasing sequence of non-negative values")

	// ErrMissingTimeStep indicates an Euler run without a positive time step.
	ErrMissingTimeStep = errors.New("dynamo: time_step is required for euler simulation")

	// ErrMeanReversion indicates a non-positive or non-finite mean-reversion entry.
	ErrMeanReversion = errors.New("dynamo: mean reversion entries must be positive")

	// ErrCorrelation indicates a correlation matrix that cannot be factorized.
	ErrCorrelation = errors.New("dynamo: correlation matrix is not a valid positive definite correlation")

	// ErrDimensionMismatch indicates mismatched factor, state or matrix dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrNumSamples indicates a non-positive sample count.
	ErrNumSamples = errors.New("dynamo: num_samples must be positive")

	// ErrMissingCurve indicates a model built without an initial curve.
	ErrMissingCurve = errors.New("dynamo: initial curve is required")

	// ErrTooManyDimensions indicates a run needing more Gaussian columns than
	// the generator supports.
	ErrTooManyDimensions = errors.New("dynamo: random generator dimension limit exceeded")

	// ErrUnknownRandomType indicates an unsupported random number generator type.
	ErrUnknownRandomType = errors.New("dynamo: unknown random type")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Sample  int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
