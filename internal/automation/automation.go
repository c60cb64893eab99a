package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/san-kum/hjmsim/internal/analysis"
	"github.com/san-kum/hjmsim/internal/config"
	"github.com/san-kum/hjmsim/internal/experiment"
	"gopkg.in/yaml.v3"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep picks a base configuration (a config file, else a preset,
// else the default) and overrides selected fields.
type ScenarioStep struct {
	Preset       string    `yaml:"preset"`
	Config       string    `yaml:"config"`
	SaveAs       string    `yaml:"save_as"`
	NumSamples   int       `yaml:"num_samples"`
	TimeStep     float64   `yaml:"time_step"`
	Seed         uint64    `yaml:"seed"`
	RandomType   string    `yaml:"random_type"`
	DiscountMode string    `yaml:"discount_mode"`
	Times        []float64 `yaml:"times"`
	CurveTimes   []float64 `yaml:"curve_times"`
}

// StepResult pairs a resolved configuration with its outcome.
type StepResult struct {
	Config  *config.Config
	Outcome *experiment.Outcome
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Resolve builds the configuration of one step. A config file is read over
// the step's preset when both are given; on its own it must carry time_step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", s.Preset, config.ListPresets())
		}
	}
	switch {
	case s.Config != "" && cfg != nil:
		loaded, err := config.LoadOver(s.Config, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case s.Config != "":
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case cfg == nil:
		cfg = config.DefaultConfig()
	}

	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	if s.NumSamples != 0 {
		cfg.NumSamples = s.NumSamples
	}
	if s.TimeStep != 0 {
		cfg.TimeStep = s.TimeStep
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.RandomType != "" {
		cfg.RandomType = s.RandomType
	}
	if s.DiscountMode != "" {
		cfg.DiscountMode = s.DiscountMode
	}
	if len(s.Times) > 0 {
		cfg.Times = append([]float64(nil), s.Times...)
	}
	if len(s.CurveTimes) > 0 {
		cfg.CurveTimes = append([]float64(nil), s.CurveTimes...)
	}
	return cfg, nil
}

func runConfig(ctx context.Context, cfg *config.Config, registry *experiment.Registry, logger *slog.Logger) (*experiment.Outcome, error) {
	exp := experiment.New(cfg).WithLogger(logger)
	if err := exp.Setup(registry); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the results gathered so far.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *slog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "name", cfg.Name)

		out, err := runConfig(ctx, cfg, registry, logger)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Config: cfg, Outcome: out})
	}

	return results, nil
}

// TimeStepSweep reruns Base at each time step and measures the error of the
// mean short rate at the last output time.
type TimeStepSweep struct {
	Base      *config.Config
	TimeSteps []float64
}

// SweepResult holds one point of a convergence study
type SweepResult struct {
	TimeStep  float64
	Steps     int
	MeanRate  float64
	StdErr    float64
	Reference float64
	Error     float64
}

// HasClosedForm reports whether cfg is a one-factor constant volatility
// model, whose mean short rate is known exactly.
func HasClosedForm(cfg *config.Config) bool {
	return len(cfg.MeanReversion) == 1 && cfg.Volatility.Kind == "constant" && len(cfg.Volatility.Sigma) == 1
}

// RunSweep executes the sweep. The reference is the Hull-White mean when
// available and otherwise the run with the smallest time step, in which case
// that run reports zero error.
func RunSweep(ctx context.Context, sweep *TimeStepSweep, registry *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if len(sweep.TimeSteps) == 0 {
		return nil, fmt.Errorf("sweep needs at least one time step")
	}
	steps := append([]float64(nil), sweep.TimeSteps...)
	sort.Sort(sort.Reverse(sort.Float64Slice(steps)))

	results := make([]SweepResult, 0, len(steps))
	for i, dt := range steps {
		cfg := sweep.Base.Clone()
		cfg.TimeStep = dt

		out, err := runConfig(ctx, cfg, registry, logger)
		if err != nil {
			return results, fmt.Errorf("time step %g: %w", dt, err)
		}
		last := len(out.Paths.Times) - 1
		results = append(results, SweepResult{
			TimeStep: dt,
			Steps:    out.Paths.Steps,
			MeanRate: analysis.ColumnMeans(out.Paths.Rates)[last],
			StdErr:   analysis.StdErrors(out.Paths.Rates)[last],
		})
		logger.Info("sweep point", "step", i+1, "of", len(steps), "time_step", dt)
	}

	var ref float64
	if HasClosedForm(sweep.Base) {
		plan, err := registry.Build(sweep.Base)
		if err != nil {
			return results, err
		}
		last := sweep.Base.Times[len(sweep.Base.Times)-1]
		ref = analysis.HullWhiteMeanShortRate(plan.Model.Curve(), sweep.Base.MeanReversion[0], sweep.Base.Volatility.Sigma[0], last)
	} else {
		ref = results[len(results)-1].MeanRate
	}
	for i := range results {
		results[i].Reference = ref
		results[i].Error = math.Abs(results[i].MeanRate - ref)
	}
	return results, nil
}
