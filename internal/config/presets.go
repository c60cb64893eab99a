package config

import "sort"

var Presets = map[string]*Config{
	"hull_white": DefaultConfig(),
	"two_factor": {
		Name: "two_factor",
		Curve: CurveConfig{
			Kind: "nelson_siegel", Beta0: 0.04, Beta1: -0.02, Beta2: 0.01, Tau: 2,
		},
		MeanReversion: []float64{0.03, 0.5},
		Volatility:    VolatilityConfig{Kind: "constant", Sigma: []float64{0.008, 0.012}},
		Correlation:   [][]float64{{1, -0.3}, {-0.3, 1}},
		Times:         []float64{0.25, 0.5, 1, 2, 5, 10},
		CurveTimes:    []float64{0, 0.5, 1, 2, 5, 10, 20},
		NumSamples:    5000,
		TimeStep:      0.05,
		RandomType:    "antithetic",
		Seed:          7,
		DiscountMode:  "matmul",
	},
	"local_vol": {
		Name:          "local_vol",
		Curve:         CurveConfig{Kind: "flat", Rate: 0.03},
		MeanReversion: []float64{0.05},
		Volatility:    VolatilityConfig{Kind: "linear", Level: []float64{0.004}, Skew: []float64{0.2}},
		Times:         []float64{1, 2, 5, 10},
		CurveTimes:    []float64{0, 1, 5, 10},
		NumSamples:    5000,
		TimeStep:      0.02,
		RandomType:    "pseudo",
		Seed:          11,
		DiscountMode:  "sequential",
		ValidateState: true,
	},
	"curve_nodes": {
		Name: "curve_nodes",
		Curve: CurveConfig{
			Kind:      "nodes",
			Times:     []float64{0.5, 1, 2, 5, 10, 30},
			Discounts: []float64{0.991, 0.981, 0.958, 0.889, 0.77, 0.42},
		},
		MeanReversion: []float64{0.1},
		Volatility: VolatilityConfig{
			Kind:   "piecewise",
			Breaks: []float64{1, 5},
			Values: [][]float64{{0.006}, {0.009}, {0.011}},
		},
		Times:        []float64{0.5, 1, 2, 5, 10},
		CurveTimes:   []float64{0, 1, 2, 5, 10},
		NumSamples:   5000,
		TimeStep:     0.05,
		RandomType:   "antithetic",
		Seed:         3,
		DiscountMode: "sequential",
	},
	"yield_curve": {
		Name: "yield_curve",
		Curve: CurveConfig{
			Kind:  "yield",
			Times: []float64{0, 1, 5, 10, 30},
			Rates: []float64{0.015, 0.02, 0.028, 0.032, 0.035},
		},
		MeanReversion: []float64{0.05, 0.8},
		Volatility:    VolatilityConfig{Kind: "constant", Sigma: []float64{0.007, 0.01}},
		Correlation:   [][]float64{{1, 0.5}, {0.5, 1}},
		Times:         []float64{1, 2, 3, 4, 5},
		CurveTimes:    []float64{0, 2, 5, 10},
		NumSamples:    4000,
		TimeStep:      0.05,
		RandomType:    "pseudo",
		Seed:          5,
		DiscountMode:  "matmul",
	},
	"quasi": {
		Name:          "quasi",
		Curve:         CurveConfig{Kind: "flat", Rate: 0.01},
		MeanReversion: []float64{0.03},
		Volatility:    VolatilityConfig{Kind: "constant", Sigma: []float64{0.01}},
		Times:         []float64{1, 2, 5},
		NumSamples:    2048,
		TimeStep:      0.1,
		RandomType:    "halton",
		Seed:          1,
		Skip:          64,
		DiscountMode:  "sequential",
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
