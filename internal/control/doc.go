// Package control provides the per-axis feedback controller.
//
// [PID] turns an axis error into a velocity correction:
//
//	integral  += err * dt
//	derivative = (err - lastErr) / dt
//	out        = Kp*err + Ki*integral + Kd*derivative
//
// # Usage
//
//	pid := control.NewPID(0.25, 0.1, 0.1)
//	out := pid.Update(errY, dt) // called once per tick
//
// A time step that is zero or negative is replaced with [MinDt] before use,
// so the derivative term is always defined. A NaN or infinite time step is
// ignored like a non-finite error.
//
// Gains can be changed at any tick boundary through [PID.SetParam],
// [PID.SetGains] or [PID.Nudge]. The integral and last error survive gain
// changes and are only cleared by [PID.Reset].
package control
