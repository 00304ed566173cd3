// Package target provides scripted pointer paths for headless runs.
//
// Every trajectory is a pure function of simulated time, so one value can be
// shared across concurrent runs.
package target

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/vmath"
)

// Static holds the target at one point.
type Static struct {
	Point vmath.Vec2
}

func (s Static) At(float64) vmath.Vec2 { return s.Point }

// Step holds From until time T, then jumps to To.
type Step struct {
	From, To vmath.Vec2
	T        float64
}

func (s Step) At(t float64) vmath.Vec2 {
	if t < s.T {
		return s.From
	}
	return s.To
}

// Circle moves around Center once every Period seconds.
type Circle struct {
	Center vmath.Vec2
	Radius float64
	Period float64
}

func (c Circle) At(t float64) vmath.Vec2 {
	if c.Period <= 0 {
		return c.Center.Add(vmath.V2(c.Radius, 0))
	}
	w := 2 * math.Pi / c.Period
	return c.Center.Add(vmath.V2(c.Radius*math.Cos(w*t), c.Radius*math.Sin(w*t)))
}

// Lissajous traces A*sin(Fx*t + Phase), B*sin(Fy*t) around Center.
type Lissajous struct {
	Center vmath.Vec2
	A, B   float64
	Fx, Fy float64
	Phase  float64
}

func (l Lissajous) At(t float64) vmath.Vec2 {
	return l.Center.Add(vmath.V2(l.A*math.Sin(l.Fx*t+l.Phase), l.B*math.Sin(l.Fy*t)))
}

// Waypoints visits each point for Dwell seconds, then stays on the last one.
type Waypoints struct {
	Points []vmath.Vec2
	Dwell  float64
}

func (w Waypoints) At(t float64) vmath.Vec2 {
	if len(w.Points) == 0 {
		return vmath.Zero
	}
	if w.Dwell <= 0 || t < 0 {
		return w.Points[0]
	}
	i := int(t / w.Dwell)
	if i >= len(w.Points) {
		i = len(w.Points) - 1
	}
	return w.Points[i]
}

// Spec is the serialisable description of a trajectory.
type Spec struct {
	Kind   string       `yaml:"kind" json:"kind"`
	Center vmath.Vec2   `yaml:"center" json:"center"`
	To     vmath.Vec2   `yaml:"to" json:"to"`
	Radius float64      `yaml:"radius" json:"radius"`
	Period float64      `yaml:"period" json:"period"`
	At     float64      `yaml:"at" json:"at"`
	Points []vmath.Vec2 `yaml:"points" json:"points"`
	Dwell  float64      `yaml:"dwell" json:"dwell"`
}

var builders = map[string]func(Spec) (dynamo.Trajectory, error){
	"static": func(s Spec) (dynamo.Trajectory, error) { return Static{Point: s.Center}, nil },
	"step": func(s Spec) (dynamo.Trajectory, error) {
		return Step{From: s.Center, To: s.To, T: s.At}, nil
	},
	"circle": func(s Spec) (dynamo.Trajectory, error) {
		if s.Period <= 0 {
			return nil, fmt.Errorf("circle: period must be positive, got %v", s.Period)
		}
		return Circle{Center: s.Center, Radius: s.Radius, Period: s.Period}, nil
	},
	"lissajous": func(s Spec) (dynamo.Trajectory, error) {
		if s.Period <= 0 {
			return nil, fmt.Errorf("lissajous: period must be positive, got %v", s.Period)
		}
		w := 2 * math.Pi / s.Period
		return Lissajous{Center: s.Center, A: s.Radius, B: s.Radius * 0.6, Fx: 3 * w, Fy: 2 * w, Phase: math.Pi / 2}, nil
	},
	"waypoints": func(s Spec) (dynamo.Trajectory, error) {
		if len(s.Points) == 0 {
			return nil, fmt.Errorf("waypoints: no points")
		}
		return Waypoints{Points: s.Points, Dwell: s.Dwell}, nil
	},
}

// Build turns a Spec into a trajectory.
func Build(s Spec) (dynamo.Trajectory, error) {
	fn, ok := builders[s.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown trajectory: %s", s.Kind)
	}
	return fn(s)
}

func Kinds() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
