package sensor

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/crosstrack/internal/vmath"
)

// DefaultErrorGain scales a reading differential (roughly [-1, 1]) into an
// error the PID controllers consume directly.
const DefaultErrorGain = 200.0

var ErrInvalidOffset = errors.New("sensor: offset must be a finite, non-negative number")

// Sensor indices, clockwise from the top.
const (
	Top = iota
	Right
	Bottom
	Left
	NumSensors
)

var sensorNames = [NumSensors]string{"top", "right", "bottom", "left"}

func Name(i int) string {
	if i < 0 || i >= NumSensors {
		return "unknown"
	}
	return sensorNames[i]
}

// Sample is one reduction of the four readings into axis errors.
type Sample struct {
	Readings [NumSensors]float64
	ErrorX   float64
	ErrorY   float64
}

// Mean is the average of the four raw readings.
func (s Sample) Mean() float64 {
	sum := 0.0
	for _, r := range s.Readings {
		sum += r
	}
	return sum / NumSensors
}

// Array is the sensor cross. Sensor positions are derived from Position and
// the offset on every call and never stored.
type Array struct {
	Position vmath.Vec2
	Gain     float64
	Model    Model

	offset float64
	noise  *Noise
}

func NewArray(position vmath.Vec2, offset float64) (*Array, error) {
	if math.IsNaN(offset) || math.IsInf(offset, 0) || offset < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidOffset, offset)
	}
	return &Array{
		Position: position,
		Gain:     DefaultErrorGain,
		Model:    NewModel(),
		offset:   offset,
	}, nil
}

func (a *Array) Offset() float64 { return a.offset }

// SetNoise enables jitter on the axis differentials. nil disables it.
func (a *Array) SetNoise(n *Noise) { a.noise = n }

func (a *Array) Noisy() bool { return a.noise != nil }

// Sensors returns the four sensor positions, clockwise from the top.
func (a *Array) Sensors() [NumSensors]vmath.Vec2 {
	p, o := a.Position, a.offset
	return [NumSensors]vmath.Vec2{
		Top:    p.Add(vmath.V2(0, -o)),
		Right:  p.Add(vmath.V2(o, 0)),
		Bottom: p.Add(vmath.V2(0, o)),
		Left:   p.Add(vmath.V2(-o, 0)),
	}
}

// Sample reads all four sensors against target and derives the axis errors.
//
// The Y error is bottom minus top, un-inverted. The X error is left minus
// right, inverted, so a target to the right yields a positive X error.
func (a *Array) Sample(target vmath.Vec2) Sample {
	var s Sample
	for i, pos := range a.Sensors() {
		s.Readings[i] = a.Model.SignalSq(pos.DistSq(target))
	}

	dy := s.Readings[Bottom] - s.Readings[Top]
	dx := s.Readings[Left] - s.Readings[Right]
	if a.noise != nil {
		dy = a.noise.Apply(dy)
		dx = a.noise.Apply(dx)
	}

	s.ErrorY = a.Gain * dy
	s.ErrorX = -a.Gain * dx
	return s
}
