package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ColumnMeans averages each column of a [samples, times] matrix.
func ColumnMeans(m mat.Matrix) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	for j := range out {
		out[j] = stat.Mean(mat.Col(nil, j, m), nil)
	}
	return out
}

// ColumnStd returns the sample standard deviation of each column. A single
// row yields zeros.
func ColumnStd(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, c)
	if r < 2 {
		return out
	}
	for j := range out {
		out[j] = stat.StdDev(mat.Col(nil, j, m), nil)
	}
	return out
}

// StdErrors returns the standard error of each column mean.
func StdErrors(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := ColumnStd(m)
	for j := range out {
		out[j] /= math.Sqrt(float64(r))
	}
	return out
}

// Quantiles returns the empirical p-quantile of each column.
func Quantiles(m mat.Matrix, p float64) []float64 {
	_, c := m.Dims()
	out := make([]float64, c)
	for j := range out {
		col := mat.Col(nil, j, m)
		sort.Float64s(col)
		out[j] = stat.Quantile(p, stat.Empirical, col, nil)
	}
	return out
}

// Band is a pointwise summary of a path matrix.
type Band struct {
	Mean  []float64
	Lower []float64
	Upper []float64
}

// Summarize returns the column means together with the [alpha, 1-alpha]
// quantile band.
func Summarize(m mat.Matrix, alpha float64) Band {
	return Band{
		Mean:  ColumnMeans(m),
		Lower: Quantiles(m, alpha),
		Upper: Quantiles(m, 1-alpha),
	}
}
