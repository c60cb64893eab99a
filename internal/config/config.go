package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNumSamples   = 10000
	DefaultTimeStep     = 0.05
	DefaultRandomType   = "pseudo"
	DefaultDiscountMode = "sequential"
	DefaultDataDir      = "data"
)

// Config is a complete run description as stored in YAML run files.
type Config struct {
	Name          string           `yaml:"name"`
	Curve         CurveConfig      `yaml:"curve"`
	MeanReversion []float64        `yaml:"mean_reversion"`
	Volatility    VolatilityConfig `yaml:"volatility"`
	Correlation   [][]float64      `yaml:"correlation,omitempty"`
	Times         []float64        `yaml:"times"`
	CurveTimes    []float64        `yaml:"curve_times,omitempty"`
	NumSamples    int              `yaml:"num_samples"`
	TimeStep      float64          `yaml:"time_step"`
	RandomType    string           `yaml:"random_type"`
	Seed          uint64           `yaml:"seed"`
	Skip          int              `yaml:"skip,omitempty"`
	DiscountMode  string           `yaml:"discount_mode"`
	Workers       int              `yaml:"workers,omitempty"`
	ValidateState bool             `yaml:"validate_state,omitempty"`
}

// CurveConfig selects an initial curve. Kind is one of flat, nodes, yield
// or nelson_siegel.
//
// nodes reads Times and Discounts; yield reads Times and Rates as
// continuously compounded zero rates, linearly interpolated.
type CurveConfig struct {
	Kind      string    `yaml:"kind"`
	Rate      float64   `yaml:"rate,omitempty"`
	Times     []float64 `yaml:"times,omitempty"`
	Discounts []float64 `yaml:"discounts,omitempty"`
	Rates     []float64 `yaml:"rates,omitempty"`
	Beta0     float64   `yaml:"beta0,omitempty"`
	Beta1     float64   `yaml:"beta1,omitempty"`
	Beta2     float64   `yaml:"beta2,omitempty"`
	Tau       float64   `yaml:"tau,omitempty"`
}

// VolatilityConfig selects sigma(t, r). Kind is one of constant,
// piecewise or linear.
type VolatilityConfig struct {
	Kind   string      `yaml:"kind"`
	Sigma  []float64   `yaml:"sigma,omitempty"`
	Breaks []float64   `yaml:"breaks,omitempty"`
	Values [][]float64 `yaml:"values,omitempty"`
	Level  []float64   `yaml:"level,omitempty"`
	Skew   []float64   `yaml:"skew,omitempty"`
}

// DefaultConfig is the one-factor Hull-White setup: k = 0.03, sigma = 0.01
// on a flat 1% curve.
func DefaultConfig() *Config {
	return &Config{
		Name:          "hull_white",
		Curve:         CurveConfig{Kind: "flat", Rate: 0.01},
		MeanReversion: []float64{0.03},
		Volatility:    VolatilityConfig{Kind: "constant", Sigma: []float64{0.01}},
		Times:         []float64{0.5, 1, 2, 3, 4, 5},
		CurveTimes:    []float64{0, 1, 2, 5, 10},
		NumSamples:    DefaultNumSamples,
		TimeStep:      DefaultTimeStep,
		RandomType:    DefaultRandomType,
		Seed:          42,
		DiscountMode:  DefaultDiscountMode,
	}
}

// Load reads a run file over the defaults. time_step has no default here:
// a file without it leaves TimeStep zero and the run fails with
// dynamo.ErrMissingTimeStep.
func Load(path string) (*Config, error) {
	base := DefaultConfig()
	base.TimeStep = 0
	return LoadOver(path, base)
}

// LoadOver reads a run file on top of a copy of base. Keys missing from the
// file keep the values of base; lists in the file replace those of base.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Curve.Times = cloneFloats(c.Curve.Times)
	out.Curve.Discounts = cloneFloats(c.Curve.Discounts)
	out.Curve.Rates = cloneFloats(c.Curve.Rates)
	out.MeanReversion = cloneFloats(c.MeanReversion)
	out.Volatility.Sigma = cloneFloats(c.Volatility.Sigma)
	out.Volatility.Breaks = cloneFloats(c.Volatility.Breaks)
	out.Volatility.Values = cloneRows(c.Volatility.Values)
	out.Volatility.Level = cloneFloats(c.Volatility.Level)
	out.Volatility.Skew = cloneFloats(c.Volatility.Skew)
	out.Correlation = cloneRows(c.Correlation)
	out.Times = cloneFloats(c.Times)
	out.CurveTimes = cloneFloats(c.CurveTimes)
	return &out
}

func cloneFloats(s []float64) []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s...)
}

func cloneRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = cloneFloats(r)
	}
	return out
}

// Env holds the HJM_* environment overrides. Zero values leave the file
// configuration untouched.
type Env struct {
	Seed       uint64  `env:"HJM_SEED"`
	NumSamples int     `env:"HJM_NUM_SAMPLES"`
	TimeStep   float64 `env:"HJM_TIME_STEP"`
	RandomType string  `env:"HJM_RANDOM_TYPE"`
	DataDir    string  `env:"HJM_DATA_DIR" envDefault:"data"`
}

// ParseEnv loads the overrides from the process environment.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// Apply copies the set overrides into cfg.
func (e Env) Apply(cfg *Config) {
	if e.Seed != 0 {
		cfg.Seed = e.Seed
	}
	if e.NumSamples != 0 {
		cfg.NumSamples = e.NumSamples
	}
	if e.TimeStep != 0 {
		cfg.TimeStep = e.TimeStep
	}
	if e.RandomType != "" {
		cfg.RandomType = e.RandomType
	}
}
