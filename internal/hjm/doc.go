// Package hjm implements the multi-factor Quasi-Gaussian Heath-Jarrow-Morton
// model in its Markovian state-space form.
//
// With n factors the state of one sample path is the flat vector
//
//	[x_0 .. x_{n-1}, y_00, y_01, .. y_{n-1,n-1}]
//
// where x carries the stochastic shocks and y (row-major) accumulates the
// variance-covariance of x through a deterministic ODE. The short rate is
// r(t) = f(0,t) + sum(x) and zero-coupon bonds are reconstituted in closed
// form:
//
//	P(t,T) = P(0,T)/P(0,t) * exp(-x·G - 0.5 Gᵀ y G),  G_i = (1 - exp(-k_i (T-t))) / k_i
//
// # Example
//
//	model, err := hjm.New(hjm.Params{
//		MeanReversion: []float64{0.03},
//		Volatility:    hjm.Constant{0.01},
//		Curve:         curve.NewFlat(0.01),
//	})
//	paths, err := model.SampleBondCurves(ctx, hjm.SampleConfig{
//		Times:      []float64{0, 1, 2, 5},
//		CurveTimes: []float64{0, 1, 5},
//		NumSamples: 10000,
//		TimeStep:   0.1,
//	}, random.NewPseudo(42, 0))
//
// # Numerical degeneracies
//
// Degenerate inputs are not rejected once a model is built: a volatility
// function returning NaN or Inf, or curve values of zero, propagate as
// NaN/Inf into the outputs. Zero volatility is valid and produces
// deterministic paths equal to the initial forward curve.
package hjm
