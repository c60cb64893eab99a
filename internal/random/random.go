// Package random provides the standard normal generators injected into the
// path simulator.
//
// Every generator is a pure function of its seed: two calls with the same
// shape return identical matrices.
package random

import (
	"fmt"
	"sort"

	"github.com/san-kum/hjmsim/internal/dynamo"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/samplemv"
)

type Type string

const (
	Pseudo     Type = "pseudo"
	Antithetic Type = "antithetic"
	Halton     Type = "halton"
)

var constructors = map[Type]func(seed uint64, skip int) dynamo.Gaussian{
	Pseudo:     func(seed uint64, skip int) dynamo.Gaussian { return NewPseudo(seed, skip) },
	Antithetic: func(seed uint64, skip int) dynamo.Gaussian { return NewAntithetic(seed, skip) },
	Halton:     func(seed uint64, skip int) dynamo.Gaussian { return NewHalton(seed, skip) },
}

// New returns the generator registered under kind.
func New(kind Type, seed uint64, skip int) (dynamo.Gaussian, error) {
	fn, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownRandomType, kind)
	}
	if skip < 0 {
		skip = 0
	}
	return fn(seed, skip), nil
}

func Types() []Type {
	types := make([]Type, 0, len(constructors))
	for t := range constructors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// PseudoNormal draws row-major from a seeded PCG source. Skip discards that
// many leading draws.
type PseudoNormal struct {
	seed uint64
	skip int
}

func NewPseudo(seed uint64, skip int) *PseudoNormal {
	return &PseudoNormal{seed: seed, skip: skip}
}

func (p *PseudoNormal) Normals(rows, cols int) *mat.Dense {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(p.seed)}
	for i := 0; i < p.skip; i++ {
		dist.Rand()
	}

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = dist.Rand()
	}
	return mat.NewDense(rows, cols, data)
}

// AntitheticNormal pairs every pseudo-random row z with -z. With an odd row
// count the last pseudo-random row stays unpaired.
type AntitheticNormal struct {
	base *PseudoNormal
}

func NewAntithetic(seed uint64, skip int) *AntitheticNormal {
	return &AntitheticNormal{base: NewPseudo(seed, skip)}
}

func (a *AntitheticNormal) Normals(rows, cols int) *mat.Dense {
	half := (rows + 1) / 2
	base := a.base.Normals(half, cols)

	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < half; r++ {
		copy(out.RawRowView(r), base.RawRowView(r))
	}
	for r := half; r < rows; r++ {
		src := base.RawRowView(r - half)
		dst := out.RawRowView(r)
		for j, v := range src {
			dst[j] = -v
		}
	}
	return out
}

// HaltonMaxDims is the number of Halton dimensions gonum provides bases for.
const HaltonMaxDims = 1000

// HaltonNormal maps Owen-scrambled Halton points through the standard
// normal quantile. Each column is one dimension of the sequence, so a
// simulation consumes factors*steps dimensions and is bounded by MaxDims.
// Skip drops leading points.
type HaltonNormal struct {
	seed uint64
	skip int
}

func NewHalton(seed uint64, skip int) *HaltonNormal {
	return &HaltonNormal{seed: seed, skip: skip}
}

func (h *HaltonNormal) MaxDims() int { return HaltonMaxDims }

// Normals panics when cols exceeds MaxDims; callers check the limit first.
func (h *HaltonNormal) Normals(rows, cols int) *mat.Dense {
	if cols > HaltonMaxDims {
		panic(fmt.Sprintf("random: halton supports at most %d dimensions, got %d", HaltonMaxDims, cols))
	}
	batch := mat.NewDense(rows+h.skip, cols, nil)
	samplemv.Halton{
		Kind: samplemv.Owen,
		Q:    unitNormal{dim: cols},
		Src:  rand.NewSource(h.seed),
	}.Sample(batch)

	if h.skip == 0 {
		return batch
	}
	return mat.DenseCopyOf(batch.Slice(h.skip, rows+h.skip, 0, cols))
}

// unitNormal is the quantile transform of a standard normal vector with
// independent components.
type unitNormal struct {
	dim int
}

func (u unitNormal) Dim() int { return u.dim }

func (u unitNormal) Quantile(x, p []float64) []float64 {
	if x == nil {
		x = make([]float64, len(p))
	}
	for i, v := range p {
		x[i] = distuv.UnitNormal.Quantile(v)
	}
	return x
}
