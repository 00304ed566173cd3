package dynamo

import (
	"fmt"
	"math"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/sensor"
	"github.com/san-kum/crosstrack/internal/vmath"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisBoth
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisBoth:
		return "both"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Snapshot is a read-only copy of the loop after a tick.
type Snapshot struct {
	Tick     int                        `json:"tick"`
	Time     float64                    `json:"time"`
	Dt       float64                    `json:"dt"`
	Target   vmath.Vec2                 `json:"target"`
	Position vmath.Vec2                 `json:"position"`
	Velocity vmath.Vec2                 `json:"velocity"`
	ErrorX   float64                    `json:"error_x"`
	ErrorY   float64                    `json:"error_y"`
	OutputX  float64                    `json:"output_x"`
	OutputY  float64                    `json:"output_y"`
	Scale    float64                    `json:"scale"`
	Readings [sensor.NumSensors]float64 `json:"readings"`
	X        control.PIDState           `json:"x"`
	Y        control.PIDState           `json:"y"`
}

// Distance is how far the array center is from the target.
func (s Snapshot) Distance() float64 {
	return s.Position.Sub(s.Target).Len()
}

func (s Snapshot) IsValid() bool {
	return s.Position.IsFinite() && s.Velocity.IsFinite()
}

// Trajectory supplies the target position over simulated time.
type Trajectory interface {
	At(t float64) vmath.Vec2
}

type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(s Snapshot)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// ScaleConfig ties responsiveness to signal strength: the weaker the mean
// reading, the larger the scale, clamped to [Min, Max].
type ScaleConfig struct {
	Enabled bool
	Min     float64
	Max     float64
}

// Config is everything needed to build a Loop.
type Config struct {
	Start          vmath.Vec2
	Offset         float64
	ErrorGain      float64
	Falloff        float64
	X              control.Gains
	Y              control.Gains
	Noise          bool
	NoiseAmplitude float64
	Seed           int64
	Scale          ScaleConfig
	MinDt          float64
}

func DefaultConfig() Config {
	gains := control.Gains{P: 0.25, I: 0.1, D: 0.1}
	return Config{
		Start:          vmath.V2(540, 360),
		Offset:         20,
		ErrorGain:      sensor.DefaultErrorGain,
		Falloff:        sensor.DefaultFalloff,
		X:              gains,
		Y:              gains,
		NoiseAmplitude: sensor.DefaultNoiseAmplitude,
		Seed:           1,
		Scale: ScaleConfig{
			Enabled: false,
			Min:     1,
			Max:     1e4,
		},
		MinDt: control.MinDt,
	}
}

func (c Config) Validate() error {
	if !c.Start.IsFinite() {
		return fmt.Errorf("%w: start %v is not finite", ErrInvalidConfig, c.Start)
	}
	if math.IsNaN(c.Offset) || math.IsInf(c.Offset, 0) || c.Offset < 0 {
		return fmt.Errorf("%w: offset %v", ErrInvalidOffset, c.Offset)
	}
	if !finite(c.ErrorGain) || c.ErrorGain <= 0 {
		return fmt.Errorf("%w: error gain must be positive, got %v", ErrInvalidConfig, c.ErrorGain)
	}
	if !finite(c.Falloff) || c.Falloff <= 0 {
		return fmt.Errorf("%w: falloff must be positive, got %v", ErrInvalidConfig, c.Falloff)
	}
	if err := c.X.Validate(); err != nil {
		return fmt.Errorf("x gains: %w", err)
	}
	if err := c.Y.Validate(); err != nil {
		return fmt.Errorf("y gains: %w", err)
	}
	if c.Noise && (!finite(c.NoiseAmplitude) || c.NoiseAmplitude < 0) {
		return fmt.Errorf("%w: noise amplitude %v", ErrInvalidConfig, c.NoiseAmplitude)
	}
	if c.Scale.Enabled {
		if !finite(c.Scale.Min) || !finite(c.Scale.Max) || c.Scale.Min <= 0 || c.Scale.Min > c.Scale.Max {
			return fmt.Errorf("%w: scale range [%v, %v]", ErrInvalidConfig, c.Scale.Min, c.Scale.Max)
		}
	}
	if !finite(c.MinDt) || c.MinDt <= 0 {
		return fmt.Errorf("%w: min dt must be positive, got %v", ErrInvalidConfig, c.MinDt)
	}
	return nil
}

// RunConfig controls a headless fixed-step run.
type RunConfig struct {
	Dt            float64
	Duration      float64
	ValidateState bool
	// KeepSnapshots records every tick in Result.Snapshots.
	KeepSnapshots bool
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Dt:            1.0 / 60,
		Duration:      10.0,
		ValidateState: true,
		KeepSnapshots: true,
	}
}

type Result struct {
	Snapshots  []Snapshot
	Final      Snapshot
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
