// Package metrics scores how well the array follows its target.
package metrics

import (
	"math"

	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/vmath"
)

// TrackingError is the RMS distance between array and target.
type TrackingError struct {
	name    string
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{name: "tracking_error"}
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(s dynamo.Snapshot) {
	e.sumSq += s.Position.DistSq(s.Target)
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *TrackingError) Reset() {
	e.sumSq = 0
	e.samples = 0
}

// MaxOvershoot is the furthest the array travels past the target, measured
// along the line from where it was when the target last moved.
type MaxOvershoot struct {
	name   string
	origin vmath.Vec2
	target vmath.Vec2
	seen   bool
	max    float64
}

func NewMaxOvershoot() *MaxOvershoot {
	return &MaxOvershoot{name: "max_overshoot"}
}

func (m *MaxOvershoot) Name() string { return m.name }

func (m *MaxOvershoot) Observe(s dynamo.Snapshot) {
	if !m.seen || s.Target != m.target {
		prev := s.Position.Sub(s.Velocity.Scale(s.Dt))
		m.origin = prev
		m.target = s.Target
		m.seen = true
	}

	dir := m.target.Sub(m.origin)
	n := dir.Len()
	if n == 0 {
		return
	}
	past := s.Position.Sub(m.target).Dot(dir) / n
	if past > m.max {
		m.max = past
	}
}

func (m *MaxOvershoot) Value() float64 { return m.max }

func (m *MaxOvershoot) Reset() {
	m.origin = vmath.Zero
	m.target = vmath.Zero
	m.seen = false
	m.max = 0
}

// SettlingTime is the time from which the distance stays within threshold.
// A run that ends outside the band reports its last observed time.
type SettlingTime struct {
	name      string
	threshold float64
	inside    bool
	enteredAt float64
	last      float64
}

func NewSettlingTime(threshold float64) *SettlingTime {
	return &SettlingTime{name: "settling_time", threshold: threshold, inside: true}
}

func (st *SettlingTime) Name() string { return st.name }

func (st *SettlingTime) Observe(s dynamo.Snapshot) {
	st.last = s.Time
	if s.Distance() > st.threshold {
		st.inside = false
		return
	}
	if !st.inside {
		st.inside = true
		st.enteredAt = s.Time
	}
}

func (st *SettlingTime) Value() float64 {
	if st.inside {
		return st.enteredAt
	}
	return st.last
}

func (st *SettlingTime) Reset() {
	st.inside = true
	st.enteredAt = 0
	st.last = 0
}

// Divergence is the fraction of ticks with distance above bound.
type Divergence struct {
	name       string
	bound      float64
	violations int
	samples    int
}

func NewDivergence(bound float64) *Divergence {
	return &Divergence{name: "divergence", bound: bound}
}

func (d *Divergence) Name() string { return d.name }

func (d *Divergence) Observe(s dynamo.Snapshot) {
	d.samples++
	if dist := s.Distance(); math.IsNaN(dist) || dist > d.bound {
		d.violations++
	}
}

func (d *Divergence) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return float64(d.violations) / float64(d.samples)
}

func (d *Divergence) Reset() {
	d.violations = 0
	d.samples = 0
}

// Standard returns one of each metric, in report order.
func Standard(settleBand, divergeBound float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewTrackingError(),
		NewMaxOvershoot(),
		NewSettlingTime(settleBand),
		NewControlEffort(),
		NewDivergence(divergeBound),
	}
}

// ByName builds a single metric from its report name.
func ByName(name string, settleBand, divergeBound float64) (dynamo.Metric, bool) {
	for _, m := range Standard(settleBand, divergeBound) {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}
