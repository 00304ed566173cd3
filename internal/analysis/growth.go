package analysis

import "math"

// GrowthRate estimates the exponential rate (1/s) at which the envelope of
// series grows. The series is split into windows; the envelope is the peak
// |value| of each window and the rate is the least-squares slope of its log.
// Positive means ringing up, negative means decaying.
func GrowthRate(series []float64, dt float64) float64 {
	const windows = 8
	if len(series) < 2*windows || dt <= 0 {
		return 0
	}

	size := len(series) / windows
	var ts, logs []float64
	for w := 0; w < windows; w++ {
		peak := 0.0
		for _, v := range series[w*size : (w+1)*size] {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
		if peak <= 0 || math.IsInf(peak, 0) || math.IsNaN(peak) {
			continue
		}
		ts = append(ts, (float64(w)+0.5)*float64(size)*dt)
		logs = append(logs, math.Log(peak))
	}

	if len(ts) < 2 {
		return 0
	}
	return slope(ts, logs)
}

func slope(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sx, sy, sxx, sxy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxx += xs[i] * xs[i]
		sxy += xs[i] * ys[i]
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}
