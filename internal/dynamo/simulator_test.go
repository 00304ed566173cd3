package dynamo

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/vmath"
)

type staticTarget struct{ p vmath.Vec2 }

func (s staticTarget) At(float64) vmath.Vec2 { return s.p }

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(s Snapshot) {
	t.count++
	t.sum += s.Distance()
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

type countingObserver struct{ ticks []int }

func (c *countingObserver) OnTick(s Snapshot) { c.ticks = append(c.ticks, s.Tick) }

func newTestSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	loop, err := NewLoop(cfg)
	if err != nil {
		t.Fatalf("new loop: %v", err)
	}
	return NewSimulator(loop)
}

func TestSimulatorRun(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())

	cfg := RunConfig{Dt: 0.1, Duration: 1.0, KeepSnapshots: true}
	result, err := sim.Run(context.Background(), staticTarget{vmath.V2(540, 460)}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Snapshots) != 11 {
		t.Errorf("expected 11 snapshots, got %d", len(result.Snapshots))
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}
	if result.Final.Tick != 10 {
		t.Errorf("expected final tick 10, got %d", result.Final.Tick)
	}
	if result.Final.Position.Y <= 360 {
		t.Errorf("array should move towards a target below, y=%.3f", result.Final.Position.Y)
	}
}

func TestSimulatorRun_ResetsBetweenRuns(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	cfg := RunConfig{Dt: 0.05, Duration: 2, KeepSnapshots: false}
	traj := staticTarget{vmath.V2(600, 300)}

	a, err := sim.Run(context.Background(), traj, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := sim.Run(context.Background(), traj, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a.Final != b.Final {
		t.Errorf("repeated runs differ: %+v vs %+v", a.Final, b.Final)
	}
	if len(a.Snapshots) != 0 {
		t.Errorf("snapshots kept although disabled: %d", len(a.Snapshots))
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())

	tests := []struct {
		name string
		cfg  RunConfig
	}{
		{"zero dt", RunConfig{Dt: 0, Duration: 1.0}},
		{"negative dt", RunConfig{Dt: -0.1, Duration: 1.0}},
		{"zero duration", RunConfig{Dt: 0.1, Duration: 0}},
		{"negative duration", RunConfig{Dt: 0.1, Duration: -1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), staticTarget{}, tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSimulatorMetricsAndObservers(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())

	metric := &testMetric{}
	obs := &countingObserver{}
	sim.AddMetric(metric)
	sim.AddObserver(obs)

	cfg := RunConfig{Dt: 0.1, Duration: 1.0}
	result, err := sim.Run(context.Background(), staticTarget{vmath.V2(500, 360)}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
	if len(obs.ticks) != 10 || obs.ticks[0] != 1 || obs.ticks[9] != 10 {
		t.Errorf("unexpected observer ticks %v", obs.ticks)
	}
}

func TestSimulatorDetectsDivergence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.X = control.Gains{P: 1e308}
	cfg.Y = cfg.X
	sim := newTestSimulator(t, cfg)

	result, err := sim.Run(context.Background(), staticTarget{vmath.V2(640, 460)},
		RunConfig{Dt: 1, Duration: 10, ValidateState: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected divergence error")
	}
	if !errors.Is(result.Errors[0], ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", result.Errors[0])
	}
	if result.StepsTaken >= 10 {
		t.Errorf("run should stop early, took %d steps", result.StepsTaken)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, staticTarget{}, RunConfig{Dt: 0.1, Duration: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatorRunWithCallback(t *testing.T) {
	sim := newTestSimulator(t, DefaultConfig())

	calls := 0
	err := sim.RunWithCallback(context.Background(), staticTarget{vmath.V2(540, 400)},
		RunConfig{Dt: 0.1, Duration: 10}, func(s Snapshot) bool {
			calls++
			return calls < 5
		})
	if err != nil {
		t.Fatalf("callback run failed: %v", err)
	}
	if calls != 5 {
		t.Errorf("expected 5 callbacks, got %d", calls)
	}
}

func TestSweepKeepsOrder(t *testing.T) {
	gains := []control.Gains{
		{P: 0.25, I: 0.1, D: 0.1},
		{P: 1, I: 0, D: 1},
		{P: 0.5, I: 0.05, D: 0.5},
	}
	traj := staticTarget{vmath.V2(600, 420)}
	run := RunConfig{Dt: 1.0 / 60, Duration: 3}

	jobs := make([]Job, len(gains))
	for i, g := range gains {
		cfg := DefaultConfig()
		cfg.X, cfg.Y = g, g
		jobs[i] = Job{Config: cfg, Traj: traj, Run: run}
	}

	results, err := Sweep(context.Background(), jobs, 2)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	for i, job := range jobs {
		want, err := newTestSimulator(t, job.Config).Run(context.Background(), traj, run)
		if err != nil {
			t.Fatal(err)
		}
		if results[i].Final != want.Final {
			t.Errorf("job %d: sweep result differs from sequential run", i)
		}
	}
}

func TestSweepPropagatesConfigError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Offset = -1
	_, err := Sweep(context.Background(), []Job{{Config: cfg, Traj: staticTarget{}, Run: DefaultRunConfig()}}, 1)
	if !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("expected ErrInvalidOffset, got %v", err)
	}
}

func TestEnsembleSeeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise = true
	e := NewEnsemble(cfg, 3, 100)

	results, err := e.Run(context.Background(), staticTarget{vmath.V2(560, 380)}, RunConfig{Dt: 0.05, Duration: 1}, nil)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Final == results[1].Final {
		t.Error("different seeds should give different noisy runs")
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error", Err: ErrUnstable}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrUnstable) {
		t.Error("SimError should unwrap to its cause")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"default", func(*Config) {}, nil},
		{"nan offset", func(c *Config) { c.Offset = math.NaN() }, ErrInvalidOffset},
		{"zero error gain", func(c *Config) { c.ErrorGain = 0 }, ErrInvalidConfig},
		{"negative error gain", func(c *Config) { c.ErrorGain = -200 }, ErrInvalidConfig},
		{"zero falloff", func(c *Config) { c.Falloff = 0 }, ErrInvalidConfig},
		{"zero min dt", func(c *Config) { c.MinDt = 0 }, ErrInvalidConfig},
		{"negative noise", func(c *Config) { c.Noise = true; c.NoiseAmplitude = -1 }, ErrInvalidConfig},
		{"nan start", func(c *Config) { c.Start = vmath.V2(math.NaN(), 0) }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
