// Package trace keeps the scrolling value history shown next to the loop:
// one Series per plotted quantity, fed by a Recorder on every tick.
package trace

import "sync"

// Sentinel bounds of an empty series. The first value replaces both.
const (
	EmptyMax = -1e7
	EmptyMin = 1e7
)

// Series is a value history with running bounds. With a positive capacity
// only the newest values are kept; the bounds still cover everything
// appended since the last Reset.
type Series struct {
	mu       sync.RWMutex
	name     string
	capacity int
	values   []float64
	min, max float64
}

func NewSeries(name string, capacity int) *Series {
	s := &Series{name: name, capacity: capacity}
	s.Reset()
	return s
}

func (s *Series) Name() string { return s.name }

// Append adds v and reports whether the bounds changed.
func (s *Series) Append(v float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity > 0 && len(s.values) >= s.capacity {
		copy(s.values, s.values[1:])
		s.values = s.values[:len(s.values)-1]
	}
	s.values = append(s.values, v)

	changed := false
	if v < s.min {
		s.min = v
		changed = true
	}
	if v > s.max {
		s.max = v
		changed = true
	}
	return changed
}

// At returns the i-th kept value, or 0 when i is out of range.
func (s *Series) At(i int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.values) {
		return 0
	}
	return s.values[i]
}

func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Values returns a copy of the kept values, oldest first.
func (s *Series) Values() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Tail returns a copy of the newest n values.
func (s *Series) Tail(n int) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(s.values) {
		n = len(s.values)
	}
	out := make([]float64, n)
	copy(out, s.values[len(s.values)-n:])
	return out
}

// Min and Max return the raw running bounds, sentinels included.
func (s *Series) Min() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.min
}

func (s *Series) Max() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.max
}

// Bounds returns the bounds for labelling, with 0 in place of a sentinel.
func (s *Series) Bounds() (lo, hi float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo, hi = s.min, s.max
	if lo == EmptyMin {
		lo = 0
	}
	if hi == EmptyMax {
		hi = 0
	}
	return lo, hi
}

func (s *Series) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = s.values[:0]
	s.min = EmptyMin
	s.max = EmptyMax
}
