// Package config loads run settings from YAML and maps them onto the loop.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/sensor"
	"github.com/san-kum/crosstrack/internal/target"
	"github.com/san-kum/crosstrack/internal/vmath"
)

const (
	DefaultDt       = 1.0 / 60
	DefaultDuration = 10.0
	DefaultOffset   = 20.0
	DefaultKp       = 0.25
	DefaultKi       = 0.1
	DefaultKd       = 0.1
	DefaultScaleMin = 1.0
	DefaultScaleMax = 1e4
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Array      ArrayConfig      `yaml:"array"`
	Controller ControllerConfig `yaml:"controller"`
	Scale      ScaleConfig      `yaml:"scale"`
	Noise      NoiseConfig      `yaml:"noise"`
	Target     target.Spec      `yaml:"target"`
	Run        RunConfig        `yaml:"run"`
}

type ArrayConfig struct {
	Start     vmath.Vec2 `yaml:"start"`
	Offset    float64    `yaml:"offset"`
	ErrorGain float64    `yaml:"error_gain"`
	Falloff   float64    `yaml:"falloff"`
}

type ControllerConfig struct {
	X     control.Gains `yaml:"x"`
	Y     control.Gains `yaml:"y"`
	MinDt float64       `yaml:"min_dt"`
}

type ScaleConfig struct {
	Enabled bool    `yaml:"enabled"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

type NoiseConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Amplitude float64 `yaml:"amplitude"`
	Seed      int64   `yaml:"seed"`
}

type RunConfig struct {
	Dt       float64 `yaml:"dt"`
	Duration float64 `yaml:"duration"`
	Validate bool    `yaml:"validate"`
}

func DefaultConfig() *Config {
	gains := control.Gains{P: DefaultKp, I: DefaultKi, D: DefaultKd}
	start := vmath.V2(540, 360)
	return &Config{
		Array: ArrayConfig{
			Start:     start,
			Offset:    DefaultOffset,
			ErrorGain: sensor.DefaultErrorGain,
			Falloff:   sensor.DefaultFalloff,
		},
		Controller: ControllerConfig{
			X:     gains,
			Y:     gains,
			MinDt: control.MinDt,
		},
		Scale: ScaleConfig{
			Min: DefaultScaleMin,
			Max: DefaultScaleMax,
		},
		Noise: NoiseConfig{
			Amplitude: sensor.DefaultNoiseAmplitude,
			Seed:      1,
		},
		Target: target.Spec{
			Kind:   "static",
			Center: vmath.V2(640, 460),
		},
		Run: RunConfig{
			Dt:       DefaultDt,
			Duration: DefaultDuration,
			Validate: true,
		},
	}
}

// Load reads a YAML file over the defaults, so missing keys keep their
// default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoopConfig maps the file settings onto the loop configuration.
func (c *Config) LoopConfig() dynamo.Config {
	return dynamo.Config{
		Start:          c.Array.Start,
		Offset:         c.Array.Offset,
		ErrorGain:      c.Array.ErrorGain,
		Falloff:        c.Array.Falloff,
		X:              c.Controller.X,
		Y:              c.Controller.Y,
		Noise:          c.Noise.Enabled,
		NoiseAmplitude: c.Noise.Amplitude,
		Seed:           c.Noise.Seed,
		Scale: dynamo.ScaleConfig{
			Enabled: c.Scale.Enabled,
			Min:     c.Scale.Min,
			Max:     c.Scale.Max,
		},
		MinDt: c.Controller.MinDt,
	}
}

func (c *Config) RunSettings(keepSnapshots bool) dynamo.RunConfig {
	return dynamo.RunConfig{
		Dt:            c.Run.Dt,
		Duration:      c.Run.Duration,
		ValidateState: c.Run.Validate,
		KeepSnapshots: keepSnapshots,
	}
}

func (c *Config) Trajectory() (dynamo.Trajectory, error) {
	return target.Build(c.Target)
}

// SetGains applies one gain triple to both axes.
func (c *Config) SetGains(g control.Gains) {
	c.Controller.X = g
	c.Controller.Y = g
}

func (c *Config) Validate() error {
	if err := c.LoopConfig().Validate(); err != nil {
		return err
	}
	if !positive(c.Run.Dt) || !positive(c.Run.Duration) {
		return fmt.Errorf("%w: run dt and duration must be positive (dt=%v duration=%v)", ErrInvalid, c.Run.Dt, c.Run.Duration)
	}
	if _, err := c.Trajectory(); err != nil {
		return fmt.Errorf("%w: target: %v", ErrInvalid, err)
	}
	return nil
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
