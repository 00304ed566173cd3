// Package sensor models the cross-shaped proximity sensor array.
//
// Each sensor reports an inverse-distance signal strength:
//
//	signal(d) = falloff / (d + falloff)
//
// which is 1 at the sensor itself and decays towards 0 with distance. The
// [Array] samples four sensors placed a fixed offset above, right of, below
// and left of its center, and reduces them to two signed axis errors:
//
//   - [Sample.ErrorY] is positive when the target is below the array
//   - [Sample.ErrorX] is positive when the target is right of the array
//
// Measurement jitter can be injected with a seeded [Noise] source. Noise is
// applied to the axis differential only, never to the raw readings.
package sensor
