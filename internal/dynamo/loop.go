package dynamo

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/sensor"
	"github.com/san-kum/crosstrack/internal/vmath"
)

// Loop is the sensor cross plus its two axis controllers.
type Loop struct {
	cfg   Config
	array *sensor.Array
	x, y  *control.PID

	velocity vmath.Vec2
	target   vmath.Vec2
	sample   sensor.Sample
	output   vmath.Vec2
	scale    float64
	dt       float64
	tick     int
	t        float64

	log *zap.Logger
}

func NewLoop(cfg Config) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	array, err := sensor.NewArray(cfg.Start, cfg.Offset)
	if err != nil {
		return nil, err
	}
	array.Gain = cfg.ErrorGain
	array.Model = sensor.Model{Falloff: cfg.Falloff}

	l := &Loop{
		cfg:   cfg,
		array: array,
		x:     control.NewPIDFromGains(cfg.X),
		y:     control.NewPIDFromGains(cfg.Y),
		log:   zap.NewNop(),
	}
	l.reset()
	return l, nil
}

func (l *Loop) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	l.log = log
}

func (l *Loop) Config() Config { return l.cfg }

// Tick advances the loop by dt towards target and returns the new snapshot.
// dt <= 0 is replaced with the configured minimum step; NaN or Inf is
// rejected with ErrInvalidDt and leaves the state untouched.
func (l *Loop) Tick(target vmath.Vec2, dt float64) (Snapshot, error) {
	if !target.IsFinite() {
		return l.Snapshot(), fmt.Errorf("%w: %v", ErrInvalidTarget, target)
	}
	if !finite(dt) {
		return l.Snapshot(), fmt.Errorf("%w: got %v", ErrInvalidDt, dt)
	}
	if dt <= 0 {
		l.log.Debug("clamping time step", zap.Float64("dt", dt), zap.Float64("min_dt", l.cfg.MinDt), zap.Int("tick", l.tick))
		dt = l.cfg.MinDt
	}

	s := l.array.Sample(target)

	outX := l.x.Update(s.ErrorX, dt)
	outY := l.y.Update(s.ErrorY, dt)

	scale := ScaleFactor(s.Mean(), l.cfg.Scale)

	l.velocity = l.velocity.Add(vmath.V2(outX, outY).Scale(scale * dt))
	l.array.Position = l.array.Position.Add(l.velocity.Scale(dt))

	l.target = target
	l.sample = s
	l.output = vmath.V2(outX, outY)
	l.scale = scale
	l.dt = dt
	l.tick++
	l.t += dt

	return l.Snapshot(), nil
}

// ScaleFactor maps the mean sensor reading to a velocity scale. Weak signal
// (far from target) means a large scale. Disabled scaling returns 1.
func ScaleFactor(mean float64, sc ScaleConfig) float64 {
	if !sc.Enabled {
		return 1
	}
	scale := 1.0
	if mean != 0 {
		scale = 0.01/mean + 0.08
	}
	if scale > sc.Max {
		scale = sc.Max
	}
	if scale < sc.Min {
		scale = sc.Min
	}
	return scale
}

func (l *Loop) Snapshot() Snapshot {
	return Snapshot{
		Tick:     l.tick,
		Time:     l.t,
		Dt:       l.dt,
		Target:   l.target,
		Position: l.array.Position,
		Velocity: l.velocity,
		ErrorX:   l.sample.ErrorX,
		ErrorY:   l.sample.ErrorY,
		OutputX:  l.output.X,
		OutputY:  l.output.Y,
		Scale:    l.scale,
		Readings: l.sample.Readings,
		X:        l.x.State(),
		Y:        l.y.State(),
	}
}

func (l *Loop) Position() vmath.Vec2 { return l.array.Position }
func (l *Loop) Velocity() vmath.Vec2 { return l.velocity }
func (l *Loop) Offset() float64      { return l.array.Offset() }

// Sensors returns the current sensor positions, clockwise from the top.
func (l *Loop) Sensors() [sensor.NumSensors]vmath.Vec2 {
	return l.array.Sensors()
}

// PID exposes one axis controller. AxisBoth returns the X controller.
func (l *Loop) PID(axis Axis) *control.PID {
	if axis == AxisY {
		return l.y
	}
	return l.x
}

func (l *Loop) Gains(axis Axis) control.Gains {
	return l.PID(axis).Gains()
}

// SetGains replaces the gain triple of one or both axes. Integral and last
// error are kept.
func (l *Loop) SetGains(axis Axis, g control.Gains) error {
	for _, p := range l.controllers(axis) {
		if err := p.SetGains(g); err != nil {
			return err
		}
	}
	l.log.Info("gains updated", zap.Stringer("axis", axis), zap.Stringer("gains", g))
	return nil
}

// Nudge steps one named gain (kp, ki, kd) on one or both axes, clamped at 0.
func (l *Loop) Nudge(axis Axis, name string, delta float64) error {
	for _, p := range l.controllers(axis) {
		if err := p.Nudge(name, delta); err != nil {
			return err
		}
	}
	l.log.Debug("gain nudged", zap.Stringer("axis", axis), zap.String("param", name), zap.Float64("delta", delta))
	return nil
}

func (l *Loop) controllers(axis Axis) []*control.PID {
	switch axis {
	case AxisX:
		return []*control.PID{l.x}
	case AxisY:
		return []*control.PID{l.y}
	default:
		return []*control.PID{l.x, l.y}
	}
}

// Reset returns the array to its start position at rest and clears both
// controllers' accumulators. Current gains are kept.
func (l *Loop) Reset() {
	l.reset()
	l.x.Reset()
	l.y.Reset()
}

func (l *Loop) reset() {
	l.array.Position = l.cfg.Start
	l.velocity = vmath.Zero
	l.target = l.cfg.Start
	l.sample = sensor.Sample{}
	l.output = vmath.Zero
	l.scale = 1
	l.dt = 0
	l.tick = 0
	l.t = 0
	if l.cfg.Noise {
		l.array.SetNoise(sensor.NewNoise(l.cfg.Seed, l.cfg.NoiseAmplitude))
	} else {
		l.array.SetNoise(nil)
	}
}
