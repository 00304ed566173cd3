package dynamo

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Simulator drives a Loop at a fixed step from a scripted trajectory.
type Simulator struct {
	loop      *Loop
	metrics   []Metric
	observers []Observer
}

func NewSimulator(loop *Loop) *Simulator {
	return &Simulator{
		loop:      loop,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) Loop() *Loop            { return s.loop }

// Run resets the loop and ticks it for cfg.Duration seconds.
func (s *Simulator) Run(ctx context.Context, traj Trajectory, cfg RunConfig) (*Result, error) {
	if err := validateRunConfig(cfg); err != nil {
		return nil, err
	}

	steps := stepCount(cfg)
	result := &Result{
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}
	if cfg.KeepSnapshots {
		result.Snapshots = make([]Snapshot, 0, steps+1)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	s.loop.Reset()
	snap := s.loop.Snapshot()
	snap.Target = traj.At(0)
	if cfg.KeepSnapshots {
		result.Snapshots = append(result.Snapshots, snap)
	}

	s.loop.log.Debug("run started", zap.Int("steps", steps), zap.Float64("dt", cfg.Dt))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.Final = snap
			return result, ctx.Err()
		default:
		}

		target := traj.At(snap.Time)
		next, err := s.loop.Tick(target, cfg.Dt)
		if err != nil {
			result.Errors = append(result.Errors, SimError{Time: snap.Time, Step: i, Message: err.Error(), Err: err})
			break
		}

		if cfg.ValidateState && !next.IsValid() {
			result.Errors = append(result.Errors, SimError{Time: next.Time, Step: i, Message: "invalid state (NaN/Inf)", Err: ErrUnstable})
			s.loop.log.Warn("loop diverged", zap.Int("step", i), zap.Float64("t", next.Time))
			break
		}

		for _, m := range s.metrics {
			m.Observe(next)
		}
		for _, obs := range s.observers {
			obs.OnTick(next)
		}

		snap = next
		result.StepsTaken++
		if cfg.KeepSnapshots {
			result.Snapshots = append(result.Snapshots, snap)
		}
	}

	result.Final = snap
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback ticks until the duration elapses or callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, traj Trajectory, cfg RunConfig, callback func(Snapshot) bool) error {
	if err := validateRunConfig(cfg); err != nil {
		return err
	}

	s.loop.Reset()
	t := 0.0

	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		snap, err := s.loop.Tick(traj.At(t), cfg.Dt)
		if err != nil {
			return err
		}
		t = snap.Time

		if cfg.ValidateState && !snap.IsValid() {
			return SimError{Time: t, Step: snap.Tick, Message: "invalid state (NaN/Inf)", Err: ErrUnstable}
		}

		if !callback(snap) {
			return nil
		}
	}

	return nil
}

func validateRunConfig(cfg RunConfig) error {
	if !finite(cfg.Dt) || cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if !finite(cfg.Duration) || cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	return nil
}

func stepCount(cfg RunConfig) int {
	return int(math.Floor(cfg.Duration/cfg.Dt + 1e-9))
}
