// Package analysis derives diagnostics from oscillator trajectories.
//
//   - [Panels]: the six time series plotted for every run
//   - [PowerSpectrum], [DominantFrequency]: spectrum of a sampled signal
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [PhasePortrait], [PoincareSection]: phase space views of a result
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda := analysis.LyapunovExponent(dyn, integ, x0, dt, duration, 1e-8)
//	if lambda > 0 {
//	    // System is chaotic
//	}
package analysis
