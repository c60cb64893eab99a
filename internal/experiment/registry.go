package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/hjmsim/internal/config"
	"github.com/san-kum/hjmsim/internal/curve"
	"github.com/san-kum/hjmsim/internal/dynamo"
	"github.com/san-kum/hjmsim/internal/hjm"
	"github.com/san-kum/hjmsim/internal/metrics"
	"github.com/san-kum/hjmsim/internal/random"
	"gonum.org/v1/gonum/mat"
)

type Registry struct {
	curves       map[string]func(config.CurveConfig) (curve.Provider, error)
	volatilities map[string]func(config.VolatilityConfig) (hjm.Volatility, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		curves:       make(map[string]func(config.CurveConfig) (curve.Provider, error)),
		volatilities: make(map[string]func(config.VolatilityConfig) (hjm.Volatility, error)),
	}

	r.curves["flat"] = func(c config.CurveConfig) (curve.Provider, error) {
		return curve.NewFlat(c.Rate), nil
	}
	r.curves["nodes"] = func(c config.CurveConfig) (curve.Provider, error) {
		n, err := curve.NewNodes(c.Times, c.Discounts)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	r.curves["yield"] = func(c config.CurveConfig) (curve.Provider, error) {
		y, err := curve.NewZeroRates(c.Times, c.Rates)
		if err != nil {
			return nil, err
		}
		return y, nil
	}
	r.curves["nelson_siegel"] = func(c config.CurveConfig) (curve.Provider, error) {
		if !(c.Tau > 0) {
			return nil, fmt.Errorf("nelson_siegel: tau must be positive, got %v", c.Tau)
		}
		return &curve.NelsonSiegel{Beta0: c.Beta0, Beta1: c.Beta1, Beta2: c.Beta2, Tau: c.Tau}, nil
	}

	r.volatilities["constant"] = func(v config.VolatilityConfig) (hjm.Volatility, error) {
		return hjm.Constant(append([]float64(nil), v.Sigma...)), nil
	}
	r.volatilities["piecewise"] = func(v config.VolatilityConfig) (hjm.Volatility, error) {
		p, err := hjm.NewPiecewise(v.Breaks, v.Values)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	r.volatilities["linear"] = func(v config.VolatilityConfig) (hjm.Volatility, error) {
		l, err := hjm.NewLinear(v.Level, v.Skew)
		if err != nil {
			return nil, err
		}
		return l, nil
	}

	return r
}

func (r *Registry) GetCurve(c config.CurveConfig) (curve.Provider, error) {
	fn, ok := r.curves[c.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown curve: %s", c.Kind)
	}
	return fn(c)
}

func (r *Registry) GetVolatility(v config.VolatilityConfig) (hjm.Volatility, error) {
	fn, ok := r.volatilities[v.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown volatility: %s", v.Kind)
	}
	return fn(v)
}

func (r *Registry) GetGenerator(kind string, seed uint64, skip int) (dynamo.Gaussian, error) {
	return random.New(random.Type(kind), seed, skip)
}

func (r *Registry) ListCurves() []string { return sortedKeys(r.curves) }

func (r *Registry) ListVolatilities() []string { return sortedKeys(r.volatilities) }

func (r *Registry) ListRandomTypes() []string {
	types := random.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns the summary metrics for cfg. One-factor constant
// volatility runs are also compared against Hull-White.
func (r *Registry) DefaultMetrics(cfg *config.Config, c curve.Provider) []metrics.Metric {
	ms := []metrics.Metric{
		metrics.NewMeanRate(),
		metrics.NewRateStdErr(),
		metrics.NewMeanDiscount(),
		metrics.NewRepricingError(c),
		metrics.NewInvalidPaths(),
	}
	if len(cfg.CurveTimes) > 0 {
		ms = append(ms, metrics.NewBondMartingaleError(c))
	}
	if cfg.Volatility.Kind == "constant" && len(cfg.MeanReversion) == 1 && len(cfg.Volatility.Sigma) == 1 {
		ms = append(ms, metrics.NewHullWhiteGap(c, cfg.MeanReversion[0], cfg.Volatility.Sigma[0]))
	}
	return ms
}

// Build turns a run configuration into a model, its sampling settings and
// the Gaussian generator.
func (r *Registry) Build(cfg *config.Config) (*Plan, error) {
	c, err := r.GetCurve(cfg.Curve)
	if err != nil {
		return nil, err
	}
	vol, err := r.GetVolatility(cfg.Volatility)
	if err != nil {
		return nil, err
	}

	var rho mat.Symmetric
	if len(cfg.Correlation) > 0 {
		sym, err := hjm.CorrelationFromRows(cfg.Correlation)
		if err != nil {
			return nil, err
		}
		rho = sym
	}

	model, err := hjm.New(hjm.Params{
		MeanReversion: cfg.MeanReversion,
		Volatility:    vol,
		Correlation:   rho,
		Curve:         c,
	})
	if err != nil {
		return nil, err
	}

	mode, err := hjm.ParseDiscountMode(cfg.DiscountMode)
	if err != nil {
		return nil, err
	}
	gauss, err := r.GetGenerator(cfg.RandomType, cfg.Seed, cfg.Skip)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Model: model,
		Sample: hjm.SampleConfig{
			Times:         cfg.Times,
			CurveTimes:    cfg.CurveTimes,
			NumSamples:    cfg.NumSamples,
			TimeStep:      cfg.TimeStep,
			Workers:       cfg.Workers,
			DiscountMode:  mode,
			ValidateState: cfg.ValidateState,
		},
		Gauss:   gauss,
		Metrics: r.DefaultMetrics(cfg, c),
	}, nil
}
