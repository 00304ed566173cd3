// Package analysis looks for sustained oscillation in a tracking run.
//
//   - [DominantFrequency]: strongest non-DC frequency of an error trace
//   - [GrowthRate]: exponential growth or decay of a trace's envelope
//   - [GainSweep]: oscillation amplitude across a range of one gain
//   - [ErrorPortrait]: error against its derivative for one axis
//
// # Detecting Instability
//
// A positive growth rate on the error trace means the loop is ringing up:
//
//	freq, _ := analysis.DominantFrequency(errY, dt)
//	if analysis.GrowthRate(errY, dt) > 0 {
//	    // oscillating at freq Hz and growing
//	}
package analysis
