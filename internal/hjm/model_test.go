package hjm_test

import (
	"context"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/hjmsim/internal/analysis"
	"github.com/san-kum/hjmsim/internal/curve"
	"github.com/san-kum/hjmsim/internal/dynamo"
	"github.com/san-kum/hjmsim/internal/hjm"
	"github.com/san-kum/hjmsim/internal/random"
	"github.com/san-kum/hjmsim/internal/sim"
	"gonum.org/v1/gonum/mat"
)

func grid(step, end float64) []float64 {
	n := int(math.Round(end / step))
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i+1) * step
	}
	return times
}

var _ = Describe("Model", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("construction", func() {
		It("rejects an empty factor set", func() {
			_, err := hjm.New(hjm.Params{Volatility: hjm.Constant{}, Curve: curve.NewFlat(0.01)})
			Expect(err).To(MatchError(dynamo.ErrNoFactors))
		})

		It("defaults the correlation to the identity", func() {
			m, err := hjm.New(hjm.Params{
				MeanReversion: []float64{0.1, 0.2},
				Volatility:    hjm.Constant{0.01, 0.01},
				Curve:         curve.NewFlat(0.01),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Factors()).To(Equal(2))
			Expect(m.Dynamics().Dim()).To(Equal(6))
		})
	})

	Describe("with zero volatility", func() {
		var (
			nodes *curve.Nodes
			model *hjm.Model
		)

		BeforeEach(func() {
			var err error
			nodes, err = curve.NewNodes([]float64{1, 3, 10}, []float64{0.99, 0.95, 0.8})
			Expect(err).NotTo(HaveOccurred())
			model, err = hjm.New(hjm.Params{
				MeanReversion: []float64{0.05, 0.5},
				Volatility:    hjm.Constant{0, 0},
				Curve:         nodes,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("reproduces the initial forward curve", func() {
			times := []float64{0.5, 1, 2.5, 7}
			rates, discounts, err := model.SampleRates(ctx, hjm.SampleConfig{
				Times:      times,
				NumSamples: 4,
				TimeStep:   0.1,
			}, random.NewPseudo(1, 0))
			Expect(err).NotTo(HaveOccurred())

			for s := 0; s < 4; s++ {
				for i, t := range times {
					Expect(rates.At(s, i)).To(Equal(nodes.Forward(t)))
				}
				Expect(discounts.At(s, 0)).To(Equal(1.0))
			}
		})

		It("prices bonds off the initial curve", func() {
			paths, err := model.SampleBondCurves(ctx, hjm.SampleConfig{
				Times:      []float64{1, 2},
				CurveTimes: []float64{0.5, 2},
				NumSamples: 2,
				TimeStep:   0.25,
			}, random.NewPseudo(1, 0))
			Expect(err).NotTo(HaveOccurred())

			want := nodes.Discount(4) / nodes.Discount(2)
			Expect(paths.Bonds.At(1, 1, 1)).To(BeNumerically("~", want, 1e-14))
		})
	})

	Describe("sampling", func() {
		var model *hjm.Model

		BeforeEach(func() {
			rho, err := hjm.CorrelationFromRows([][]float64{{1, 0.4}, {0.4, 1}})
			Expect(err).NotTo(HaveOccurred())
			model, err = hjm.New(hjm.Params{
				MeanReversion: []float64{0.03, 0.3},
				Volatility:    hjm.Constant{0.01, 0.015},
				Correlation:   rho,
				Curve:         curve.NewFlat(0.02),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns outputs shaped by samples, maturities and times", func() {
			paths, err := model.Sample(ctx, hjm.SampleConfig{
				Times:      []float64{0.5, 1, 2},
				CurveTimes: []float64{0, 1, 5, 10},
				NumSamples: 7,
				TimeStep:   0.1,
			}, random.NewPseudo(3, 0))
			Expect(err).NotTo(HaveOccurred())

			r, c := paths.Rates.Dims()
			Expect([]int{r, c}).To(Equal([]int{7, 3}))
			r, c = paths.Discounts.Dims()
			Expect([]int{r, c}).To(Equal([]int{7, 3}))
			Expect(paths.Bonds.Samples).To(Equal(7))
			Expect(paths.Bonds.Maturities).To(Equal(4))
			Expect(paths.Bonds.Times).To(Equal(3))
			Expect(paths.States).To(HaveLen(3))
			Expect(paths.Steps).To(Equal(20))
		})

		It("prices the zero tenor bond at exactly one", func() {
			paths, err := model.SampleBondCurves(ctx, hjm.SampleConfig{
				Times:      []float64{0.5, 1, 2},
				CurveTimes: []float64{0, 1},
				NumSamples: 16,
				TimeStep:   0.1,
			}, random.NewPseudo(5, 0))
			Expect(err).NotTo(HaveOccurred())

			for s := 0; s < 16; s++ {
				for i := 0; i < 3; i++ {
					Expect(paths.Bonds.At(s, 0, i)).To(Equal(1.0))
				}
			}
		})

		It("starts every discount path at one", func() {
			_, discounts, err := model.SampleRates(ctx, hjm.SampleConfig{
				Times:      []float64{0.25, 1},
				NumSamples: 8,
				TimeStep:   0.05,
			}, random.NewPseudo(5, 0))
			Expect(err).NotTo(HaveOccurred())
			for s := 0; s < 8; s++ {
				Expect(discounts.At(s, 0)).To(Equal(1.0))
			}
		})

		It("is reproducible for a fixed seed and worker count", func() {
			cfg := hjm.SampleConfig{
				Times:      []float64{1, 2},
				NumSamples: 300,
				TimeStep:   0.1,
				Workers:    1,
			}
			a, _, err := model.SampleRates(ctx, cfg, random.NewPseudo(11, 0))
			Expect(err).NotTo(HaveOccurred())
			cfg.Workers = 4
			b, _, err := model.SampleRates(ctx, cfg, random.NewPseudo(11, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(a, b)).To(BeTrue())

			c, _, err := model.SampleRates(ctx, cfg, random.NewPseudo(12, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(a, c)).To(BeFalse())
		})

		It("agrees across discount modes", func() {
			cfg := hjm.SampleConfig{
				Times:      grid(0.25, 3),
				NumSamples: 32,
				TimeStep:   0.05,
			}
			_, seq, err := model.SampleRates(ctx, cfg, random.NewPseudo(2, 0))
			Expect(err).NotTo(HaveOccurred())
			cfg.DiscountMode = hjm.MatMul
			_, mm, err := model.SampleRates(ctx, cfg, random.NewPseudo(2, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.EqualApprox(seq, mm, 1e-13)).To(BeTrue())
		})

		It("requires curve times for bond curves", func() {
			_, err := model.SampleBondCurves(ctx, hjm.SampleConfig{
				Times:      []float64{1},
				NumSamples: 1,
				TimeStep:   0.1,
			}, random.NewPseudo(1, 0))
			Expect(err).To(MatchError(dynamo.ErrInvalidTimes))
		})

		It("rejects negative curve times", func() {
			_, err := model.Sample(ctx, hjm.SampleConfig{
				Times:      []float64{1},
				CurveTimes: []float64{-1},
				NumSamples: 1,
				TimeStep:   0.1,
			}, random.NewPseudo(1, 0))
			Expect(err).To(MatchError(dynamo.ErrInvalidTimes))
		})

		It("propagates simulator validation errors", func() {
			_, _, err := model.SampleRates(ctx, hjm.SampleConfig{
				Times:      []float64{1},
				NumSamples: 1,
			}, random.NewPseudo(1, 0))
			Expect(err).To(MatchError(dynamo.ErrMissingTimeStep))
		})
	})

	Describe("one factor with constant volatility", func() {
		const (
			k     = 0.03
			sigma = 0.01
		)
		var (
			flat  *curve.Flat
			model *hjm.Model
		)

		BeforeEach(func() {
			var err error
			flat = curve.NewFlat(0.01)
			model, err = hjm.New(hjm.Params{
				MeanReversion: []float64{k},
				Volatility:    hjm.Constant{sigma},
				Curve:         flat,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		meanRate := func(step float64) float64 {
			rates, _, err := model.SampleRates(ctx, hjm.SampleConfig{
				Times:      []float64{5},
				NumSamples: 1000,
				TimeStep:   step,
			}, random.NewAntithetic(7, 0))
			Expect(err).NotTo(HaveOccurred())
			return analysis.ColumnMeans(rates)[0]
		}

		It("matches the Euler mean exactly under antithetic sampling", func() {
			g, _, err := sim.TimeGrid([]float64{5}, 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(meanRate(0.1)).To(BeNumerically("~", analysis.EulerMeanShortRate(flat, k, sigma, g), 1e-12))
		})

		It("converges to the Hull-White mean short rate", func() {
			exact := analysis.HullWhiteMeanShortRate(flat, k, sigma, 5)
			Expect(exact).To(BeNumerically("~", 0.011078, 1e-6))

			coarse := math.Abs(meanRate(0.1) - exact)
			fine := math.Abs(meanRate(0.025) - exact)
			Expect(coarse).To(BeNumerically("<", 1e-4))
			Expect(fine).To(BeNumerically("<", coarse))
		})

		It("tracks the closed-form y state", func() {
			paths, err := model.Sample(ctx, hjm.SampleConfig{
				Times:      []float64{1, 5},
				NumSamples: 2,
				TimeStep:   0.01,
			}, random.NewPseudo(1, 0))
			Expect(err).NotTo(HaveOccurred())

			y := paths.States[1].At(0, 1)
			Expect(y).To(BeNumerically("~", analysis.HullWhiteY(k, sigma, 5), 5e-7))
			Expect(paths.States[1].At(1, 1)).To(Equal(y))
		})

		It("reconstitutes Hull-White bond prices", func() {
			paths, err := model.SampleBondCurves(ctx, hjm.SampleConfig{
				Times:      []float64{2},
				CurveTimes: []float64{3},
				NumSamples: 4,
				TimeStep:   0.01,
			}, random.NewPseudo(9, 0))
			Expect(err).NotTo(HaveOccurred())

			for s := 0; s < 4; s++ {
				x := paths.States[0].At(s, 0)
				want := analysis.HullWhiteBond(flat, k, sigma, x, 2, 5)
				Expect(paths.Bonds.At(s, 0, 0)).To(BeNumerically("~", want, 1e-6))
			}
		})

		It("keeps discounted bonds close to the initial curve", func() {
			paths, err := model.SampleBondCurves(ctx, hjm.SampleConfig{
				Times:      grid(0.05, 2),
				CurveTimes: []float64{3},
				NumSamples: 4000,
				TimeStep:   0.05,
			}, random.NewAntithetic(21, 0))
			Expect(err).NotTo(HaveOccurred())

			last := len(paths.Times) - 1
			sum := 0.0
			for s := 0; s < 4000; s++ {
				sum += paths.Discounts.At(s, last) * paths.Bonds.At(s, 0, last)
			}
			Expect(sum / 4000).To(BeNumerically("~", flat.Discount(5), 2e-3*flat.Discount(5)))
		})
	})

	Describe("with the halton generator", func() {
		var model *hjm.Model

		BeforeEach(func() {
			var err error
			model, err = hjm.New(hjm.Params{
				MeanReversion: []float64{0.03, 0.1},
				Volatility:    hjm.Constant{0.01, 0.005},
				Curve:         curve.NewFlat(0.02),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("runs when factors times steps fills the sequence", func() {
			rates, _, err := model.SampleRates(ctx, hjm.SampleConfig{
				Times:      []float64{1, 5},
				NumSamples: 8,
				TimeStep:   0.01,
			}, random.NewHalton(1, 0))
			Expect(err).NotTo(HaveOccurred())
			r, c := rates.Dims()
			Expect([]int{r, c}).To(Equal([]int{8, 2}))
		})

		It("returns an error instead of exceeding the sequence dimension", func() {
			sample := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("panic: %v", r)
					}
				}()
				_, _, err = model.SampleRates(ctx, hjm.SampleConfig{
					Times:      []float64{1, 5, 10},
					NumSamples: 8,
					TimeStep:   0.01,
				}, random.NewHalton(1, 0))
				return err
			}
			Expect(sample()).To(MatchError(dynamo.ErrTooManyDimensions))
		})
	})
})
