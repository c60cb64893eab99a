package hjm

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/hjmsim/internal/curve"
	"github.com/san-kum/hjmsim/internal/dynamo"
	"github.com/san-kum/hjmsim/internal/integrators"
	"github.com/san-kum/hjmsim/internal/sim"
	"gonum.org/v1/gonum/mat"
)

// Model is a validated Quasi-Gaussian HJM model. Its configuration is
// read-only after New and shared by every simulation.
type Model struct {
	k        []float64
	curve    curve.Provider
	dynamics *Dynamics
}

func New(p Params) (*Model, error) {
	root, err := p.Validate()
	if err != nil {
		return nil, err
	}
	rho := p.Correlation
	if rho == nil {
		rho = Identity(len(p.MeanReversion))
	}
	k := append([]float64(nil), p.MeanReversion...)
	return &Model{
		k:        k,
		curve:    p.Curve,
		dynamics: newDynamics(k, rho, root, p.Volatility, p.Curve),
	}, nil
}

func (m *Model) Factors() int { return len(m.k) }

func (m *Model) MeanReversion() []float64 { return append([]float64(nil), m.k...) }

func (m *Model) Curve() curve.Provider { return m.curve }

// Dynamics exposes the joint state process for direct simulation.
func (m *Model) Dynamics() *Dynamics { return m.dynamics }

// SampleConfig describes one simulation call.
type SampleConfig struct {
	Times         []float64
	CurveTimes    []float64
	NumSamples    int
	TimeStep      float64
	Workers       int
	DiscountMode  DiscountMode
	ValidateState bool
}

// Paths is the output of a simulation. Rates and Discounts are
// [samples, times]; Bonds is nil unless curve times were requested.
type Paths struct {
	Times      []float64
	CurveTimes []float64
	Rates      *mat.Dense
	Discounts  *mat.Dense
	Bonds      *Surface
	States     []*mat.Dense
	Steps      int
}

// Sample runs the Euler-Maruyama simulation and assembles rates, discount
// factors and, when cfg.CurveTimes is set, the bond surface.
func (m *Model) Sample(ctx context.Context, cfg SampleConfig, gauss dynamo.Gaussian) (*Paths, error) {
	for i, tau := range cfg.CurveTimes {
		if !(tau >= 0) || math.IsInf(tau, 0) {
			return nil, fmt.Errorf("%w: curve_times[%d] = %v", dynamo.ErrInvalidTimes, i, tau)
		}
	}

	s := sim.New(m.dynamics, integrators.NewEulerMaruyama(), gauss)
	res, err := s.Run(ctx, sim.Config{
		Times:         cfg.Times,
		TimeStep:      cfg.TimeStep,
		NumSamples:    cfg.NumSamples,
		Workers:       cfg.Workers,
		ValidateState: cfg.ValidateState,
	})
	if err != nil {
		return nil, err
	}

	layout := m.dynamics.Layout()
	rates := ShortRates(m.curve, layout, res.Times, res.States)
	paths := &Paths{
		Times:     res.Times,
		Rates:     rates,
		Discounts: DiscountFactors(res.Times, rates, cfg.DiscountMode),
		States:    res.States,
		Steps:     res.StepsTaken,
	}
	if len(cfg.CurveTimes) > 0 {
		paths.CurveTimes = append([]float64(nil), cfg.CurveTimes...)
		paths.Bonds = m.BondSurface(res.Times, cfg.CurveTimes, res.States)
	}
	return paths, nil
}

// SampleRates returns rate_paths and discount_factor_paths, both
// [samples, times].
func (m *Model) SampleRates(ctx context.Context, cfg SampleConfig, gauss dynamo.Gaussian) (*mat.Dense, *mat.Dense, error) {
	cfg.CurveTimes = nil
	paths, err := m.Sample(ctx, cfg, gauss)
	if err != nil {
		return nil, nil, err
	}
	return paths.Rates, paths.Discounts, nil
}

// SampleBondCurves is Sample with a mandatory set of curve times.
func (m *Model) SampleBondCurves(ctx context.Context, cfg SampleConfig, gauss dynamo.Gaussian) (*Paths, error) {
	if len(cfg.CurveTimes) == 0 {
		return nil, fmt.Errorf("%w: curve_times is required for bond curves", dynamo.ErrInvalidTimes)
	}
	return m.Sample(ctx, cfg, gauss)
}

// BondSurface reconstitutes P(t_i, t_i + tau_j) for every path in states,
// where states[i] holds the batch at times[i].
func (m *Model) BondSurface(times, curveTimes []float64, states []*mat.Dense) *Surface {
	layout := m.dynamics.Layout()
	samples, _ := states[0].Dims()
	surface := NewSurface(samples, len(curveTimes), len(times))

	g := make([]float64, len(m.k))
	for i, t := range times {
		p0t := m.curve.Discount(t)
		for j, tau := range curveTimes {
			ratio := m.curve.Discount(t+tau) / p0t
			for l, k := range m.k {
				g[l] = G(k, tau)
			}
			for s := 0; s < samples; s++ {
				e := reconstitutionExponent(layout, g, states[i].RawRowView(s))
				surface.Set(s, j, i, ratio*math.Exp(-e))
			}
		}
	}
	return surface
}
