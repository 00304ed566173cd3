// Package viz is the interactive terminal host for the tracking loop.
//
// The host runs a Bubble Tea program that ticks a [dynamo.Loop] at a fixed
// rate, draws the sensor cross and target on a Braille [Canvas], and charts
// both axis errors.
//
// # Key Bindings
//
//	Arrows/hjkl - Move the target
//	Tab         - Select kp, ki or kd
//	A           - Select axis (x, y, both)
//	+/-         - Nudge the selected gain by 0.01
//	Space       - Pause/Resume
//	.           - Single step while paused
//	R           - Reset array and traces
//	T           - Cycle color themes
//	?           - Show help overlay
package viz
