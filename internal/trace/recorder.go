package trace

import (
	"fmt"

	"github.com/san-kum/crosstrack/internal/dynamo"
)

// Names of the series a Recorder keeps.
const (
	ErrorX    = "error_x"
	ErrorY    = "error_y"
	PositionX = "position_x"
	PositionY = "position_y"
	Velocity  = "velocity"
	OutputX   = "output_x"
	OutputY   = "output_y"
	Distance  = "distance"
)

var recorded = []string{ErrorX, ErrorY, PositionX, PositionY, Velocity, OutputX, OutputY, Distance}

// Recorder is a dynamo.Observer that appends every tick to its series.
type Recorder struct {
	series map[string]*Series
}

func NewRecorder(capacity int) *Recorder {
	r := &Recorder{series: make(map[string]*Series, len(recorded))}
	for _, name := range recorded {
		r.series[name] = NewSeries(name, capacity)
	}
	return r
}

func (r *Recorder) OnTick(s dynamo.Snapshot) {
	r.series[ErrorX].Append(s.ErrorX)
	r.series[ErrorY].Append(s.ErrorY)
	r.series[PositionX].Append(s.Position.X)
	r.series[PositionY].Append(s.Position.Y)
	r.series[Velocity].Append(s.Velocity.Len())
	r.series[OutputX].Append(s.OutputX)
	r.series[OutputY].Append(s.OutputY)
	r.series[Distance].Append(s.Distance())
}

// Series returns the named series or an error listing the valid names.
func (r *Recorder) Series(name string) (*Series, error) {
	s, ok := r.series[name]
	if !ok {
		return nil, fmt.Errorf("unknown series %q (have %v)", name, recorded)
	}
	return s, nil
}

func (r *Recorder) Names() []string {
	out := make([]string, len(recorded))
	copy(out, recorded)
	return out
}

func (r *Recorder) Reset() {
	for _, s := range r.series {
		s.Reset()
	}
}
