package hjm

import (
	"math"
	"testing"

	"github.com/san-kum/hjmsim/internal/curve"
	"gonum.org/v1/gonum/mat"
)

func TestParseDiscountMode(t *testing.T) {
	for in, want := range map[string]DiscountMode{"": Sequential, "sequential": Sequential, "matmul": MatMul} {
		got, err := ParseDiscountMode(in)
		if err != nil || got != want {
			t.Errorf("ParseDiscountMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDiscountMode("trapezoid"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestShortRates(t *testing.T) {
	nodes, err := curve.NewNodes([]float64{1, 2}, []float64{0.98, 0.95})
	if err != nil {
		t.Fatalf("NewNodes: %v", err)
	}
	layout := StateLayout{N: 2}
	times := []float64{0.5, 1.5}
	states := []*mat.Dense{
		mat.NewDense(2, layout.Dim(), nil),
		mat.NewDense(2, layout.Dim(), nil),
	}
	states[1].Set(1, 0, 0.01)
	states[1].Set(1, 1, 0.002)

	rates := ShortRates(nodes, layout, times, states)
	if got, want := rates.At(0, 0), nodes.Forward(0.5); got != want {
		t.Errorf("r[0,0] = %v, want %v", got, want)
	}
	if got, want := rates.At(1, 1), nodes.Forward(1.5)+0.012; math.Abs(got-want) > 1e-15 {
		t.Errorf("r[1,1] = %v, want %v", got, want)
	}
}

func TestDiscountFactors(t *testing.T) {
	times := []float64{0, 0.5, 1.5, 2}
	rates := mat.NewDense(2, 4, []float64{
		0.01, 0.02, 0.03, 0.04,
		-0.01, 0.0, 0.05, 0.02,
	})

	seq := DiscountFactors(times, rates, Sequential)
	mm := DiscountFactors(times, rates, MatMul)

	for s := 0; s < 2; s++ {
		if seq.At(s, 0) != 1 || mm.At(s, 0) != 1 {
			t.Errorf("sample %d: first discount factor must be exactly 1", s)
		}
	}

	want := math.Exp(-(0.02*0.5 + 0.03*1 + 0.04*0.5))
	if got := seq.At(0, 3); math.Abs(got-want) > 1e-15 {
		t.Errorf("sequential D = %v, want %v", got, want)
	}
	if !mat.EqualApprox(seq, mm, 1e-14) {
		t.Errorf("modes disagree:\n%v\n%v", mat.Formatted(seq), mat.Formatted(mm))
	}
}

func TestDiscountFactorsSingleTime(t *testing.T) {
	rates := mat.NewDense(3, 1, []float64{0.1, 0.2, 0.3})
	for _, mode := range []DiscountMode{Sequential, MatMul} {
		d := DiscountFactors([]float64{2}, rates, mode)
		for s := 0; s < 3; s++ {
			if d.At(s, 0) != 1 {
				t.Errorf("%s: D[%d,0] = %v, want 1", mode, s, d.At(s, 0))
			}
		}
	}
}
