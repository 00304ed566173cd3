// Package automation runs scripted batches of tracking runs: YAML scenarios
// and Monte Carlo trials over perturbed start positions.
package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/crosstrack/internal/config"
	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/target"
	"github.com/san-kum/crosstrack/internal/vmath"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run: a preset plus optional overrides.
type ScenarioStep struct {
	Preset   string         `yaml:"preset"`
	Gains    *control.Gains `yaml:"gains"`
	Target   *target.Spec   `yaml:"target"`
	Noise    *bool          `yaml:"noise"`
	Seed     int64          `yaml:"seed"`
	Duration float64        `yaml:"duration"`
	Dt       float64        `yaml:"dt"`
	SaveAs   string         `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: no steps", path)
	}
	return &scenario, nil
}

// Config resolves the step into a full configuration.
func (s ScenarioStep) Config() (*config.Config, error) {
	name := s.Preset
	if name == "" {
		name = "reference"
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}

	if s.Gains != nil {
		cfg.SetGains(*s.Gains)
	}
	if s.Target != nil {
		cfg.Target = *s.Target
	}
	if s.Noise != nil {
		cfg.Noise.Enabled = *s.Noise
	}
	if s.Seed != 0 {
		cfg.Noise.Seed = s.Seed
	}
	if s.Duration > 0 {
		cfg.Run.Duration = s.Duration
	}
	if s.Dt > 0 {
		cfg.Run.Dt = s.Dt
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Label names the step for storage: SaveAs, else the preset.
func (s ScenarioStep) Label() string {
	if s.SaveAs != "" {
		return s.SaveAs
	}
	if s.Preset != "" {
		return s.Preset
	}
	return "reference"
}

type StepResult struct {
	Step   ScenarioStep
	Config *config.Config
	Result *dynamo.Result
}

// RunScenario executes all steps in order. metrics builds a fresh metric
// set per step and may be nil.
func RunScenario(ctx context.Context, scenario *Scenario, metrics func() []dynamo.Metric, log *zap.Logger) ([]StepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log.Info("scenario step", zap.String("scenario", scenario.Name), zap.Int("step", i+1),
			zap.Int("of", len(scenario.Steps)), zap.String("label", step.Label()))

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		traj, err := cfg.Trajectory()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		loop, err := dynamo.NewLoop(cfg.LoopConfig())
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		loop.SetLogger(log)
		sim := dynamo.NewSimulator(loop)
		if metrics != nil {
			for _, m := range metrics() {
				sim.AddMetric(m)
			}
		}

		result, err := sim.Run(ctx, traj, cfg.RunSettings(true))
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Step: step, Config: cfg, Result: result})
	}

	return results, nil
}

// MonteCarloConfig perturbs the start position of Base uniformly within
// ±Perturbation on each axis and gives every trial its own noise seed.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	// StableBound is the largest final distance still counted as tracking.
	StableBound float64
	Seed        int64
}

type MonteCarloResult struct {
	TrialID  int
	Start    vmath.Vec2
	Final    vmath.Vec2
	Distance float64
	Stable   bool
}

// RunMonteCarlo executes all trials concurrently.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("monte carlo: need at least one trial, got %d", cfg.NumTrials)
	}
	traj, err := cfg.Base.Trajectory()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	base := cfg.Base.LoopConfig()
	run := cfg.Base.RunSettings(false)
	run.ValidateState = true

	jobs := make([]dynamo.Job, cfg.NumTrials)
	starts := make([]vmath.Vec2, cfg.NumTrials)
	for trial := range jobs {
		c := base
		c.Start = base.Start.Add(vmath.V2(
			(rng.Float64()-0.5)*2*cfg.Perturbation,
			(rng.Float64()-0.5)*2*cfg.Perturbation,
		))
		c.Seed = cfg.Seed + int64(trial)
		starts[trial] = c.Start
		jobs[trial] = dynamo.Job{Config: c, Traj: traj, Run: run}
	}

	out, err := dynamo.Sweep(ctx, jobs, 0)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(out))
	for i, res := range out {
		d := res.Final.Distance()
		results[i] = MonteCarloResult{
			TrialID:  i,
			Start:    starts[i],
			Final:    res.Final.Position,
			Distance: d,
			Stable:   len(res.Errors) == 0 && d <= cfg.StableBound,
		}
	}
	return results, nil
}

// MonteCarloStats counts stable and unstable trials.
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
