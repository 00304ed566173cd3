package dynamo

import (
	"errors"
	"fmt"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/sensor"
)

// Domain errors for loop operations.
var (
	// ErrInvalidTarget indicates a target with NaN or Inf coordinates.
	ErrInvalidTarget = errors.New("dynamo: target must be finite")

	// ErrInvalidDt indicates a NaN or infinite time step from the host clock.
	ErrInvalidDt = errors.New("dynamo: time step must be finite")

	// ErrInvalidConfig indicates a loop or run configuration that cannot be used.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrUnstable indicates the array position or velocity diverged.
	ErrUnstable = errors.New("dynamo: loop unstable (state diverged)")

	ErrInvalidOffset = sensor.ErrInvalidOffset
	ErrNegativeGain  = control.ErrNegativeGain
)

// SimError wraps an error with the tick it happened on.
type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error {
	return e.Err
}
