// Package viz renders simulated rate paths in the terminal.
//
//   - [PlotPaths], [PlotBand], [PlotCurve]: asciigraph charts
//   - [MetricsTable]: styled metric summary
//   - [Viewer]: Bubble Tea pager over samples and outputs
//
// # Key Bindings
//
//	h/l, left/right - Previous/next sample
//	j/k, down/up    - Previous/next output time (bond view)
//	tab             - Cycle rates, discounts, bonds, band
//	q               - Quit
package viz
