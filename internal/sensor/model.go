package sensor

import (
	"math"
	"math/rand"
)

const (
	DefaultFalloff        = 100.0
	DefaultNoiseAmplitude = 0.005
)

// Model is the inverse-distance signal law.
type Model struct {
	Falloff float64
}

func NewModel() Model {
	return Model{Falloff: DefaultFalloff}
}

// Signal maps a non-negative distance to a reading in (0, 1].
// Negative distances are treated as 0.
func (m Model) Signal(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return m.Falloff / (distance + m.Falloff)
}

// SignalSq is Signal for a pre-squared distance.
func (m Model) SignalSq(distanceSq float64) float64 {
	if distanceSq < 0 {
		distanceSq = 0
	}
	return m.Signal(math.Sqrt(distanceSq))
}

// Signal evaluates the default model.
func Signal(distance float64) float64 {
	return NewModel().Signal(distance)
}

// Noise perturbs a value with bounded uniform jitter from a seeded source.
// Not safe for concurrent use.
type Noise struct {
	Amplitude float64
	rng       *rand.Rand
}

func NewNoise(seed int64, amplitude float64) *Noise {
	if amplitude < 0 {
		amplitude = -amplitude
	}
	return &Noise{
		Amplitude: amplitude,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Apply returns value + u with u uniform in [-Amplitude, +Amplitude).
func (n *Noise) Apply(value float64) float64 {
	if n == nil || n.Amplitude == 0 {
		return value
	}
	return value + (2*n.rng.Float64()-1)*n.Amplitude
}
