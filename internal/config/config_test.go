package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Curve.Kind != "flat" || cfg.Curve.Rate != 0.01 {
		t.Errorf("unexpected curve %+v", cfg.Curve)
	}
	if cfg.MeanReversion[0] != 0.03 || cfg.Volatility.Sigma[0] != 0.01 {
		t.Errorf("unexpected factor setup %v %v", cfg.MeanReversion, cfg.Volatility.Sigma)
	}
	if cfg.TimeStep <= 0 {
		t.Error("time_step should be positive")
	}
	if cfg.NumSamples <= 0 {
		t.Error("num_samples should be positive")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("two_factor")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Curve.Kind != "nelson_siegel" || loaded.Curve.Tau != 2 {
		t.Errorf("curve not round-tripped: %+v", loaded.Curve)
	}
	if loaded.Correlation[0][1] != -0.3 {
		t.Errorf("correlation not round-tripped: %v", loaded.Correlation)
	}
	if loaded.Seed != 7 || loaded.DiscountMode != "matmul" {
		t.Errorf("run settings not round-tripped: seed=%d mode=%s", loaded.Seed, loaded.DiscountMode)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := writeFile(path, "num_samples: 12\n"); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NumSamples != 12 {
		t.Errorf("expected 12 samples, got %d", cfg.NumSamples)
	}
	if cfg.Curve.Kind != "flat" || cfg.MeanReversion[0] != 0.03 {
		t.Errorf("model defaults not kept: %+v", cfg)
	}
	if cfg.TimeStep != 0 {
		t.Errorf("a file without time_step must not get a default, got %v", cfg.TimeStep)
	}
}

func TestLoadOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := writeFile(path, "num_samples: 12\nseed: 9\ntimes: [1, 3]\n"); err != nil {
		t.Fatal(err)
	}
	base := GetPreset("two_factor")
	cfg, err := LoadOver(path, base)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.NumSamples != 12 || cfg.Seed != 9 || len(cfg.Times) != 2 || cfg.Times[1] != 3 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Curve.Kind != "nelson_siegel" || cfg.TimeStep != base.TimeStep || cfg.Correlation[0][1] != -0.3 {
		t.Errorf("preset values not kept: %+v", cfg)
	}
	if base.NumSamples != 5000 || len(base.Times) != 6 {
		t.Error("base was modified")
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := writeFile(path, "times: [1, 2\n"); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("curve_nodes")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Volatility.Kind != "piecewise" {
		t.Errorf("expected piecewise volatility, got %s", cfg.Volatility.Kind)
	}

	cfg.Volatility.Values[0][0] = 1
	cfg.Times[0] = 99
	again := GetPreset("curve_nodes")
	if again.Volatility.Values[0][0] == 1 || again.Times[0] == 99 {
		t.Error("GetPreset must return an independent copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1] > presets[i] {
			t.Errorf("presets not sorted: %v", presets)
		}
	}
	for _, name := range presets {
		if GetPreset(name).Name != name {
			t.Errorf("preset %s carries name %s", name, GetPreset(name).Name)
		}
	}
}

func TestParseEnv(t *testing.T) {
	t.Setenv("HJM_SEED", "123")
	t.Setenv("HJM_NUM_SAMPLES", "64")
	t.Setenv("HJM_RANDOM_TYPE", "halton")

	e, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if e.DataDir != DefaultDataDir {
		t.Errorf("expected default data dir, got %q", e.DataDir)
	}

	cfg := DefaultConfig()
	e.Apply(cfg)
	if cfg.Seed != 123 || cfg.NumSamples != 64 || cfg.RandomType != "halton" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.TimeStep != DefaultTimeStep {
		t.Errorf("unset override changed time step to %v", cfg.TimeStep)
	}
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("HJM_TIME_STEP", "fast")
	_, err := ParseEnv()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
