package metrics

import (
	"math"

	"github.com/san-kum/hjmsim/internal/analysis"
	"github.com/san-kum/hjmsim/internal/curve"
	"github.com/san-kum/hjmsim/internal/hjm"
)

// Metric summarizes a simulation into one number.
type Metric interface {
	Name() string
	Observe(p *hjm.Paths)
	Value() float64
	Reset()
}

// Collect observes p with every metric and returns the values by name.
func Collect(p *hjm.Paths, ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		m.Observe(p)
		out[m.Name()] = m.Value()
	}
	return out
}

func lastColumn(p *hjm.Paths) int {
	return len(p.Times) - 1
}

// MeanRate is the sample mean of the short rate at the last output time.
type MeanRate struct {
	value float64
}

func NewMeanRate() *MeanRate { return &MeanRate{} }

func (m *MeanRate) Name() string { return "mean_rate" }

func (m *MeanRate) Observe(p *hjm.Paths) {
	m.value = analysis.ColumnMeans(p.Rates)[lastColumn(p)]
}

func (m *MeanRate) Value() float64 { return m.value }
func (m *MeanRate) Reset()         { m.value = 0 }

// RateStdErr is the standard error of MeanRate.
type RateStdErr struct {
	value float64
}

func NewRateStdErr() *RateStdErr { return &RateStdErr{} }

func (r *RateStdErr) Name() string { return "rate_stderr" }

func (r *RateStdErr) Observe(p *hjm.Paths) {
	r.value = analysis.StdErrors(p.Rates)[lastColumn(p)]
}

func (r *RateStdErr) Value() float64 { return r.value }
func (r *RateStdErr) Reset()         { r.value = 0 }

// MeanDiscount is the sample mean of the discount factor at the last
// output time.
type MeanDiscount struct {
	value float64
}

func NewMeanDiscount() *MeanDiscount { return &MeanDiscount{} }

func (m *MeanDiscount) Name() string { return "mean_discount" }

func (m *MeanDiscount) Observe(p *hjm.Paths) {
	m.value = analysis.ColumnMeans(p.Discounts)[lastColumn(p)]
}

func (m *MeanDiscount) Value() float64 { return m.value }
func (m *MeanDiscount) Reset()         { m.value = 0 }

// RepricingError is the relative gap between the mean simulated discount
// factor and the initial curve at the last output time. It includes the
// bias of the right-point rate integration.
type RepricingError struct {
	curve curve.Provider
	value float64
}

func NewRepricingError(c curve.Provider) *RepricingError {
	return &RepricingError{curve: c}
}

func (r *RepricingError) Name() string { return "repricing_error" }

func (r *RepricingError) Observe(p *hjm.Paths) {
	last := lastColumn(p)
	want := r.curve.Discount(p.Times[last])
	got := analysis.ColumnMeans(p.Discounts)[last]
	r.value = math.Abs(got-want) / want
}

func (r *RepricingError) Value() float64 { return r.value }
func (r *RepricingError) Reset()         { r.value = 0 }

// BondMartingaleError is the largest relative gap, across maturities, of
// E[D(t) P(t, t+tau)] against P(0, t+tau) at the last output time. It is
// zero when no bond surface was produced.
type BondMartingaleError struct {
	curve curve.Provider
	value float64
}

func NewBondMartingaleError(c curve.Provider) *BondMartingaleError {
	return &BondMartingaleError{curve: c}
}

func (b *BondMartingaleError) Name() string { return "bond_martingale_error" }

func (b *BondMartingaleError) Observe(p *hjm.Paths) {
	if p.Bonds == nil {
		return
	}
	last := lastColumn(p)
	t := p.Times[last]
	n := p.Bonds.Samples
	for j, tau := range p.CurveTimes {
		sum := 0.0
		for s := 0; s < n; s++ {
			sum += p.Discounts.At(s, last) * p.Bonds.At(s, j, last)
		}
		want := b.curve.Discount(t + tau)
		if gap := math.Abs(sum/float64(n)-want) / want; gap > b.value || math.IsNaN(gap) {
			b.value = gap
		}
	}
}

func (b *BondMartingaleError) Value() float64 { return b.value }
func (b *BondMartingaleError) Reset()         { b.value = 0 }

// HullWhiteGap is the absolute gap between MeanRate and the closed-form
// one-factor mean short rate.
type HullWhiteGap struct {
	curve curve.Provider
	k     float64
	sigma float64
	value float64
}

func NewHullWhiteGap(c curve.Provider, k, sigma float64) *HullWhiteGap {
	return &HullWhiteGap{curve: c, k: k, sigma: sigma}
}

func (h *HullWhiteGap) Name() string { return "hull_white_gap" }

func (h *HullWhiteGap) Observe(p *hjm.Paths) {
	last := lastColumn(p)
	want := analysis.HullWhiteMeanShortRate(h.curve, h.k, h.sigma, p.Times[last])
	h.value = math.Abs(analysis.ColumnMeans(p.Rates)[last] - want)
}

func (h *HullWhiteGap) Value() float64 { return h.value }
func (h *HullWhiteGap) Reset()         { h.value = 0 }

// InvalidPaths counts sample paths whose rates contain NaN or Inf.
type InvalidPaths struct {
	count int
}

func NewInvalidPaths() *InvalidPaths { return &InvalidPaths{} }

func (v *InvalidPaths) Name() string { return "invalid_paths" }

func (v *InvalidPaths) Observe(p *hjm.Paths) {
	rows, _ := p.Rates.Dims()
	for s := 0; s < rows; s++ {
		for _, r := range p.Rates.RawRowView(s) {
			if math.IsNaN(r) || math.IsInf(r, 0) {
				v.count++
				break
			}
		}
	}
}

func (v *InvalidPaths) Value() float64 { return float64(v.count) }
func (v *InvalidPaths) Reset()         { v.count = 0 }
