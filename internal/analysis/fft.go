package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT returns the discrete Fourier transform of data, zero-padded to the
// next power of two.
func FFT(data []float64) []complex128 {
	n := nextPow2(len(data))
	padded := make([]float64, n)
	copy(padded, data)
	return fft.FFTReal(padded)
}

func PowerSpectrum(data []float64) []float64 {
	spectrum := FFT(data)
	ps := make([]float64, len(spectrum)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}

	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// component of series sampled every dt seconds, with its amplitude.
// The mean is removed first. Short or flat series return 0, 0.
func DominantFrequency(series []float64, dt float64) (freq, amplitude float64) {
	if len(series) < 4 || dt <= 0 {
		return 0, 0
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	n := 2 * len(ps)

	best := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[best] || best == 0 {
			best = k
		}
	}
	if best == 0 || ps[best] < 1e-12 {
		return 0, 0
	}

	freq = float64(best) / (float64(n) * dt)
	amplitude = 2 * ps[best] / float64(len(series))
	return freq, amplitude
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
