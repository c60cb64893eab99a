package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/hjmsim/internal/config"
	"github.com/spf13/cobra"
)

func modelCommand(t *testing.T, presetName, file string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	addModelFlags(cmd)
	preset, configFile, env = presetName, file, config.Env{}
	t.Cleanup(func() { preset, configFile = "", "" })
	return cmd
}

func TestResolveConfigLayersFileOverPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("num_samples: 32\nseed: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cmd := modelCommand(t, "two_factor", path)
	if err := cmd.Flags().Set("workers", "2"); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.NumSamples != 32 || cfg.Seed != 3 {
		t.Errorf("file values not applied: samples=%d seed=%d", cfg.NumSamples, cfg.Seed)
	}
	if cfg.Curve.Kind != "nelson_siegel" || len(cfg.MeanReversion) != 2 || cfg.TimeStep != 0.05 {
		t.Errorf("preset values lost: %+v", cfg)
	}
	if cfg.Workers != 2 {
		t.Errorf("flag not applied: workers=%d", cfg.Workers)
	}
}

func TestResolveConfigFileWithoutPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("num_samples: 32\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(modelCommand(t, "", path))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.TimeStep != 0 {
		t.Errorf("time_step must come from the file, got %v", cfg.TimeStep)
	}

	cmd := modelCommand(t, "", path)
	if err := cmd.Flags().Set("dt", "0.1"); err != nil {
		t.Fatal(err)
	}
	cfg, err = resolveConfig(cmd)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.TimeStep != 0.1 {
		t.Errorf("expected flag time step, got %v", cfg.TimeStep)
	}
}

func TestResolveConfigUnknownPreset(t *testing.T) {
	if _, err := resolveConfig(modelCommand(t, "missing", "")); err == nil {
		t.Error("expected error for unknown preset")
	}
}
