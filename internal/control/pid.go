package control

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinDt replaces any non-positive time step.
	MinDt = 1e-3

	// GainStep is the operator increment for a single gain.
	GainStep = 0.01
)

var (
	ErrNegativeGain = errors.New("control: gain must be non-negative")
	ErrUnknownParam = errors.New("control: unknown param")
)

// Gains is the (p, i, d) triple. It is swapped as one unit.
type Gains struct {
	P float64 `yaml:"p" json:"p"`
	I float64 `yaml:"i" json:"i"`
	D float64 `yaml:"d" json:"d"`
}

func (g Gains) Validate() error {
	for _, v := range []float64{g.P, g.I, g.D} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %+v", ErrNegativeGain, g)
		}
	}
	return nil
}

func (g Gains) String() string {
	return fmt.Sprintf("p=%.2f i=%.2f d=%.2f", g.P, g.I, g.D)
}

// PIDState is a read-only view of a controller for display.
type PIDState struct {
	Gains
	Integral   float64 `json:"integral"`
	LastError  float64 `json:"last_error"`
	Derivative float64 `json:"derivative"`
}

// PID is a single-axis controller. Gains may be changed between updates
// without touching the accumulated integral or last error.
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	integral   float64
	lastErr    float64
	derivative float64
}

func NewPID(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

func NewPIDFromGains(g Gains) *PID {
	return NewPID(g.P, g.I, g.D)
}

// ClampDt maps dt <= 0 to MinDt. NaN passes through unchanged.
func ClampDt(dt float64) float64 {
	if dt <= 0 {
		return MinDt
	}
	return dt
}

// Update advances the controller by dt and returns the control output.
// A non-finite error or dt is dropped so NaN never reaches the accumulators.
func (p *PID) Update(err, dt float64) float64 {
	if math.IsNaN(err) || math.IsInf(err, 0) || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return 0
	}
	dt = ClampDt(dt)

	p.integral += err * dt
	p.derivative = (err - p.lastErr) / dt
	p.lastErr = err

	return p.Kp*err + p.Ki*p.integral + p.Kd*p.derivative
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.lastErr = 0
	p.derivative = 0
}

func (p *PID) Integral() float64  { return p.integral }
func (p *PID) LastError() float64 { return p.lastErr }

func (p *PID) Gains() Gains {
	return Gains{P: p.Kp, I: p.Ki, D: p.Kd}
}

func (p *PID) SetGains(g Gains) error {
	if err := g.Validate(); err != nil {
		return err
	}
	p.Kp, p.Ki, p.Kd = g.P, g.I, g.D
	return nil
}

func (p *PID) State() PIDState {
	return PIDState{
		Gains:      p.Gains(),
		Integral:   p.integral,
		LastError:  p.lastErr,
		Derivative: p.derivative,
	}
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp": p.Kp,
		"ki": p.Ki,
		"kd": p.Kd,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("%w: %s=%v", ErrNegativeGain, name, value)
	}
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return nil
}

// Nudge shifts one gain by delta, never going below zero.
func (p *PID) Nudge(name string, delta float64) error {
	params := p.GetParams()
	v, ok := params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return p.SetParam(name, math.Max(0, roundGain(v+delta)))
}

// roundGain drops float noise from repeated 0.01 steps.
func roundGain(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
