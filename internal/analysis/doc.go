// Package analysis provides reference values and batch statistics for
// simulated rate paths.
//
//   - [HullWhiteY], [HullWhiteMeanX], [HullWhiteVarX]: moments of the
//     one-factor constant-volatility model
//   - [HullWhiteMeanShortRate], [HullWhiteBond]: closed-form rate and bond
//     prices under the same model
//   - [EulerMeanShortRate]: the mean short rate implied by the discretized
//     recursion on a given grid
//   - [ColumnMeans], [ColumnStd], [StdErrors], [Quantiles]: per-time
//     statistics over [samples, times] matrices
//
// # Convergence
//
// Monte Carlo means converge to the Hull-White values as the step shrinks:
//
//	want := analysis.HullWhiteMeanShortRate(c, k, sigma, t)
//	got := analysis.ColumnMeans(paths.Rates)[len(paths.Times)-1]
package analysis
