package hjm

import (
	"fmt"
	"math"

	"github.com/san-kum/hjmsim/internal/curve"
	"github.com/san-kum/hjmsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const (
	unitDiagonalTolerance = 1e-12
	// eigenvalues above -psdTolerance count as zero in singular correlations
	psdTolerance = 1e-10
)

// Params configures a model. Correlation defaults to the identity.
type Params struct {
	MeanReversion []float64
	Volatility    Volatility
	Correlation   mat.Symmetric
	Curve         curve.Provider
}

// Validate checks the parameters and returns a square root B of the
// correlation matrix with B·Bᵀ = Rho. Positive definite matrices yield the
// lower Cholesky factor. Singular positive semi-definite matrices fall back
// to V·sqrt(Λ) from the symmetric eigendecomposition; anything with a
// negative eigenvalue is rejected with ErrCorrelation.
func (p Params) Validate() (mat.Matrix, error) {
	n := len(p.MeanReversion)
	if n == 0 {
		return nil, dynamo.ErrNoFactors
	}
	for i, k := range p.MeanReversion {
		if !(k > 0) || math.IsInf(k, 0) {
			return nil, fmt.Errorf("%w: mean_reversion[%d] = %v", dynamo.ErrMeanReversion, i, k)
		}
	}
	if p.Volatility == nil {
		return nil, fmt.Errorf("%w: volatility is required", dynamo.ErrDimensionMismatch)
	}
	if got := p.Volatility.Factors(); got != n {
		return nil, fmt.Errorf("%w: volatility has %d factors, mean reversion has %d", dynamo.ErrDimensionMismatch, got, n)
	}
	if p.Curve == nil {
		return nil, dynamo.ErrMissingCurve
	}

	rho := p.Correlation
	if rho == nil {
		rho = Identity(n)
	}
	if rho.SymmetricDim() != n {
		return nil, fmt.Errorf("%w: correlation is %dx%d, want %dx%d", dynamo.ErrDimensionMismatch, rho.SymmetricDim(), rho.SymmetricDim(), n, n)
	}
	for i := 0; i < n; i++ {
		if !(math.Abs(rho.At(i, i)-1) <= unitDiagonalTolerance) {
			return nil, fmt.Errorf("%w: diagonal entry %d is %v", dynamo.ErrCorrelation, i, rho.At(i, i))
		}
		for j := 0; j < i; j++ {
			if v := rho.At(i, j); !(math.Abs(v) <= 1) {
				return nil, fmt.Errorf("%w: entry (%d,%d) is %v", dynamo.ErrCorrelation, i, j, v)
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(rho); ok {
		l := mat.NewTriDense(n, mat.Lower, nil)
		chol.LTo(l)
		return l, nil
	}
	return semiDefiniteRoot(rho)
}

func semiDefiniteRoot(rho mat.Symmetric) (*mat.Dense, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(rho, true); !ok {
		return nil, fmt.Errorf("%w: eigendecomposition failed", dynamo.ErrCorrelation)
	}
	values := eig.Values(nil)
	for i, v := range values {
		if v < -psdTolerance {
			return nil, fmt.Errorf("%w: not positive semi-definite (eigenvalue %d is %v)", dynamo.ErrCorrelation, i, v)
		}
	}

	var root mat.Dense
	eig.VectorsTo(&root)
	n := len(values)
	for j, v := range values {
		scale := math.Sqrt(math.Max(v, 0))
		for i := 0; i < n; i++ {
			root.Set(i, j, root.At(i, j)*scale)
		}
	}
	return &root, nil
}

func Identity(n int) *mat.SymDense {
	id := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		id.SetSym(i, i, 1)
	}
	return id
}

// CorrelationFromRows builds a correlation matrix from square, symmetric rows.
func CorrelationFromRows(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("%w: correlation is empty", dynamo.ErrDimensionMismatch)
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: correlation row %d has %d entries, want %d", dynamo.ErrDimensionMismatch, i, len(row), n)
		}
		data = append(data, row...)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			if rows[i][j] != rows[j][i] {
				return nil, fmt.Errorf("%w: entries (%d,%d) and (%d,%d) differ", dynamo.ErrCorrelation, i, j, j, i)
			}
		}
	}
	return mat.NewSymDense(n, data), nil
}
