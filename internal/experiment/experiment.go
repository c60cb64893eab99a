package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/hjmsim/internal/config"
	"github.com/san-kum/hjmsim/internal/dynamo"
	"github.com/san-kum/hjmsim/internal/hjm"
	"github.com/san-kum/hjmsim/internal/metrics"
)

// Plan is everything needed to run one configuration.
type Plan struct {
	Model   *hjm.Model
	Sample  hjm.SampleConfig
	Gauss   dynamo.Gaussian
	Metrics []metrics.Metric
}

// Outcome is the result of a run.
type Outcome struct {
	Paths   *hjm.Paths
	Metrics map[string]float64
	Elapsed time.Duration
}

type Experiment struct {
	cfg    *config.Config
	plan   *Plan
	logger *slog.Logger
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg, logger: slog.Default()}
}

// WithLogger replaces the default logger.
func (e *Experiment) WithLogger(l *slog.Logger) *Experiment {
	e.logger = l
	return e
}

func (e *Experiment) Setup(r *Registry) error {
	plan, err := r.Build(e.cfg)
	if err != nil {
		return fmt.Errorf("setup %s: %w", e.cfg.Name, err)
	}
	e.plan = plan
	return nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Plan returns the built plan, or nil before Setup.
func (e *Experiment) Plan() *Plan { return e.plan }

// Run simulates the configuration. Cancelling ctx returns ctx.Err()
// immediately; the simulation goroutine finishes in the background and its
// result is dropped.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if e.plan == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	type result struct {
		paths *hjm.Paths
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()

	e.logger.Debug("simulation started",
		"name", e.cfg.Name,
		"factors", e.plan.Model.Factors(),
		"samples", e.plan.Sample.NumSamples,
		"time_step", e.plan.Sample.TimeStep,
		"random_type", e.cfg.RandomType,
	)

	go func() {
		paths, err := e.plan.Model.Sample(ctx, e.plan.Sample, e.plan.Gauss)
		done <- result{paths: paths, err: err}
	}()

	select {
	case <-ctx.Done():
		e.logger.Warn("simulation cancelled", "name", e.cfg.Name, "after", time.Since(start))
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		out := &Outcome{
			Paths:   res.paths,
			Metrics: metrics.Collect(res.paths, e.plan.Metrics),
			Elapsed: time.Since(start),
		}
		e.logger.Info("simulation finished",
			"name", e.cfg.Name,
			"steps", res.paths.Steps,
			"elapsed", out.Elapsed,
		)
		return out, nil
	}
}
