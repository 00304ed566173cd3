// Package dynamo runs the closed tracking loop of the sensor cross.
//
// One [Loop.Tick] performs, strictly in order:
//
//  1. sample the [sensor.Array] against the target to get (errX, errY)
//  2. feed each error to its axis [control.PID]
//  3. optionally scale the outputs by signal strength
//  4. integrate outputs into velocity and velocity into position
//
// The host owns the clock and the target. It calls Tick once per frame and
// reads a [Snapshot] back for display; stopping is just not calling Tick.
//
// # Example
//
//	loop, _ := dynamo.NewLoop(dynamo.DefaultConfig())
//	snap, err := loop.Tick(vmath.V2(540, 460), 1.0/60)
//
// [Simulator] drives a Loop headlessly from a scripted [Trajectory] and
// collects metrics, and [Sweep] runs several configurations concurrently.
//
// # Thread Safety
//
// Loop and Simulator instances are NOT thread-safe. Gains may be changed
// between ticks from the same goroutine. [Sweep] gives every run its own Loop.
package dynamo
