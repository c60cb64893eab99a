package automation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/hjmsim/internal/config"
	"github.com/san-kum/hjmsim/internal/dynamo"
	"github.com/san-kum/hjmsim/internal/experiment"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	content := `name: smoke
description: two quick runs
steps:
  - preset: hull_white
    num_samples: 32
    time_step: 0.25
    save_as: hw_quick
  - preset: two_factor
    num_samples: 16
    random_type: pseudo
    times: [0.5, 1]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "smoke" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), quiet())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Config.Name != "hw_quick" {
		t.Errorf("save_as not applied: %s", results[0].Config.Name)
	}
	if rows, cols := results[1].Outcome.Paths.Rates.Dims(); rows != 16 || cols != 2 {
		t.Errorf("second step rates are %dx%d", rows, cols)
	}
}

func TestLoadScenarioInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: empty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err == nil {
		t.Error("expected error for scenario without steps")
	}
}

func TestRunScenarioStopsOnError(t *testing.T) {
	sc := &Scenario{
		Name: "broken",
		Steps: []ScenarioStep{
			{Preset: "hull_white", NumSamples: 8, TimeStep: 0.5},
			{Preset: "missing"},
			{Preset: "hull_white"},
		},
	}
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), quiet())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 1 {
		t.Errorf("expected the first result to be kept, got %d", len(results))
	}
}

func TestResolveFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	base := config.GetPreset("local_vol")
	if err := config.Save(path, base); err != nil {
		t.Fatal(err)
	}

	cfg, err := ScenarioStep{Config: path, Seed: 99}.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Volatility.Kind != "linear" || cfg.Seed != 99 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestResolveConfigOverPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("num_samples: 16\nseed: 5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ScenarioStep{Preset: "local_vol", Config: path}.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.NumSamples != 16 || cfg.Seed != 5 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Volatility.Kind != "linear" || cfg.TimeStep != 0.02 {
		t.Errorf("preset values lost: %+v", cfg)
	}
}

func TestRunScenarioConfigWithoutTimeStep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no_step.yaml")
	if err := os.WriteFile(path, []byte("num_samples: 8\ntimes: [1]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	sc := &Scenario{Name: "no_step", Steps: []ScenarioStep{{Config: path}}}
	_, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), quiet())
	if !errors.Is(err, dynamo.ErrMissingTimeStep) {
		t.Fatalf("expected ErrMissingTimeStep, got %v", err)
	}

	sc.Steps[0].TimeStep = 0.5
	if _, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), quiet()); err != nil {
		t.Errorf("explicit step time_step: %v", err)
	}
}

func TestRunSweepHullWhite(t *testing.T) {
	base := config.DefaultConfig()
	base.Times = []float64{5}
	base.CurveTimes = nil
	base.NumSamples = 200
	base.RandomType = "antithetic"

	results, err := RunSweep(context.Background(), &TimeStepSweep{
		Base:      base,
		TimeSteps: []float64{0.05, 0.5, 0.1},
	}, experiment.NewRegistry(), quiet())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].TimeStep != 0.5 || results[2].TimeStep != 0.05 {
		t.Errorf("expected steps sorted coarse to fine, got %v %v", results[0].TimeStep, results[2].TimeStep)
	}
	for i := 1; i < len(results); i++ {
		if !(results[i].Error < results[i-1].Error) {
			t.Errorf("error did not shrink: %v -> %v", results[i-1].Error, results[i].Error)
		}
		if results[i].Steps <= results[i-1].Steps {
			t.Errorf("finer step should take more steps")
		}
	}
	if results[2].Error > 1e-4 {
		t.Errorf("fine error too large: %v", results[2].Error)
	}
}

func TestRunSweepWithoutClosedForm(t *testing.T) {
	base := config.GetPreset("two_factor")
	base.NumSamples = 16
	base.Times = []float64{1}
	base.CurveTimes = nil

	results, err := RunSweep(context.Background(), &TimeStepSweep{
		Base:      base,
		TimeSteps: []float64{0.25, 0.1},
	}, experiment.NewRegistry(), quiet())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if results[1].Error != 0 || results[0].Reference != results[1].MeanRate {
		t.Errorf("finest run should be the reference: %+v", results)
	}
	if HasClosedForm(base) {
		t.Error("two factor preset has no closed form")
	}
}

func TestRunSweepEmpty(t *testing.T) {
	if _, err := RunSweep(context.Background(), &TimeStepSweep{Base: config.DefaultConfig()}, experiment.NewRegistry(), quiet()); err == nil {
		t.Error("expected error for empty sweep")
	}
}
