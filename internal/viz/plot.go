package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/hjmsim/internal/analysis"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultHeight = 12
	DefaultWidth  = 72
)

var palette = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Yellow,
	asciigraph.Green,
	asciigraph.Magenta,
	asciigraph.Red,
	asciigraph.Blue,
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func finiteRange(values []float64) (lo, hi float64, ok bool) {
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, ok
}

// clean replaces infinities with NaN, which asciigraph leaves as gaps.
func clean(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsInf(v, 0) {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

func plotMany(series [][]float64, caption string) string {
	if len(series) == 0 || len(series[0]) == 0 {
		return Subtle.Render("no data")
	}
	for i := range series {
		series[i] = clean(series[i])
	}
	colors := make([]asciigraph.AnsiColor, len(series))
	for i := range colors {
		colors[i] = palette[i%len(palette)]
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(DefaultHeight),
		asciigraph.Width(DefaultWidth),
		asciigraph.Precision(4),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	)
}

// PlotPaths charts the first n rows of a [samples, times] matrix.
func PlotPaths(m *mat.Dense, n int, caption string) string {
	rows, _ := m.Dims()
	if n > rows {
		n = rows
	}
	series := make([][]float64, n)
	for r := 0; r < n; r++ {
		series[r] = append([]float64(nil), m.RawRowView(r)...)
	}
	return plotMany(series, caption)
}

// PlotBand charts the mean with its quantile band.
func PlotBand(b analysis.Band, caption string) string {
	return plotMany([][]float64{
		append([]float64(nil), b.Mean...),
		append([]float64(nil), b.Lower...),
		append([]float64(nil), b.Upper...),
	}, caption)
}

// PlotCurve charts a single series such as a bond curve across tenors.
func PlotCurve(values []float64, caption string) string {
	return plotMany([][]float64{append([]float64(nil), values...)}, caption)
}

// Caption formats "name @ t=..." style captions.
func Caption(name string, t float64) string {
	return fmt.Sprintf("%s @ t=%g", name, t)
}
