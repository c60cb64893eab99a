package random

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/hjmsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

func sameBits(a, b *mat.Dense) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if math.Float64bits(a.At(i, j)) != math.Float64bits(b.At(i, j)) {
				return false
			}
		}
	}
	return true
}

func TestNewUnknownType(t *testing.T) {
	if _, err := New("sobol", 1, 0); !errors.Is(err, dynamo.ErrUnknownRandomType) {
		t.Errorf("expected ErrUnknownRandomType, got %v", err)
	}
	for _, kind := range Types() {
		if _, err := New(kind, 1, 0); err != nil {
			t.Errorf("New(%s): %v", kind, err)
		}
	}
}

func TestGeneratorsAreReproducible(t *testing.T) {
	for _, kind := range Types() {
		t.Run(string(kind), func(t *testing.T) {
			g, _ := New(kind, 7, 0)
			a := g.Normals(16, 5)
			b := g.Normals(16, 5)
			if !sameBits(a, b) {
				t.Error("same seed produced different draws")
			}
			r, c := a.Dims()
			if r != 16 || c != 5 {
				t.Errorf("shape %dx%d, want 16x5", r, c)
			}
		})
	}
}

func TestPseudoSeedsDiffer(t *testing.T) {
	a := NewPseudo(1, 0).Normals(4, 4)
	b := NewPseudo(2, 0).Normals(4, 4)
	if sameBits(a, b) {
		t.Error("different seeds produced identical draws")
	}
}

func TestPseudoSkip(t *testing.T) {
	full := NewPseudo(11, 0).Normals(1, 10)
	skipped := NewPseudo(11, 3).Normals(1, 7)
	for j := 0; j < 7; j++ {
		if full.At(0, j+3) != skipped.At(0, j) {
			t.Fatalf("draw %d: skip did not discard leading draws", j)
		}
	}
}

func TestPseudoMoments(t *testing.T) {
	z := NewPseudo(42, 0).Normals(20000, 2)
	var sum, sumSq float64
	for _, v := range z.RawMatrix().Data {
		sum += v
		sumSq += v * v
	}
	n := float64(len(z.RawMatrix().Data))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if math.Abs(mean) > 0.03 {
		t.Errorf("mean %v too far from 0", mean)
	}
	if math.Abs(variance-1) > 0.05 {
		t.Errorf("variance %v too far from 1", variance)
	}
}

func TestAntitheticPairs(t *testing.T) {
	z := NewAntithetic(5, 0).Normals(10, 3)
	for r := 0; r < 5; r++ {
		for j := 0; j < 3; j++ {
			if z.At(r, j) != -z.At(r+5, j) {
				t.Fatalf("row %d col %d is not paired", r, j)
			}
		}
	}

	odd := NewAntithetic(5, 0).Normals(5, 3)
	for r := 0; r < 2; r++ {
		for j := 0; j < 3; j++ {
			if odd.At(r, j) != -odd.At(r+3, j) {
				t.Fatalf("odd batch row %d col %d is not paired", r, j)
			}
		}
	}
}

func TestHaltonSkip(t *testing.T) {
	full := NewHalton(3, 0).Normals(8, 2)
	skipped := NewHalton(3, 2).Normals(6, 2)
	for r := 0; r < 6; r++ {
		for j := 0; j < 2; j++ {
			if math.Float64bits(full.At(r+2, j)) != math.Float64bits(skipped.At(r, j)) {
				t.Fatalf("row %d col %d: skip did not drop leading points", r, j)
			}
		}
	}
}

func TestHaltonDimensionLimit(t *testing.T) {
	h := NewHalton(1, 0)
	var g dynamo.Gaussian = h
	lim, ok := g.(dynamo.DimensionLimited)
	if !ok || lim.MaxDims() != HaltonMaxDims {
		t.Fatalf("halton should report a limit of %d", HaltonMaxDims)
	}

	z := h.Normals(4, HaltonMaxDims)
	if rows, cols := z.Dims(); rows != 4 || cols != HaltonMaxDims {
		t.Fatalf("got %dx%d", rows, cols)
	}
	for j := 0; j < HaltonMaxDims; j++ {
		if v := z.At(3, j); math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("column %d is not finite: %v", j, v)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("expected a panic above the limit")
		}
	}()
	h.Normals(4, HaltonMaxDims+1)
}

func TestPseudoHasNoDimensionLimit(t *testing.T) {
	var g dynamo.Gaussian = NewPseudo(1, 0)
	if _, ok := g.(dynamo.DimensionLimited); ok {
		t.Error("pseudo generator should not be dimension limited")
	}
}
