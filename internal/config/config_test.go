package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
	"github.com/san-kum/crosstrack/internal/vmath"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Run.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Controller.X != (control.Gains{P: DefaultKp, I: DefaultKi, D: DefaultKd}) {
		t.Errorf("unexpected default gains %+v", cfg.Controller.X)
	}
}

func TestLoopConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Noise.Enabled = true
	cfg.Noise.Seed = 42
	cfg.Scale.Enabled = true

	lc := cfg.LoopConfig()
	want := dynamo.DefaultConfig()
	want.Noise = true
	want.Seed = 42
	want.Scale.Enabled = true

	if lc != want {
		t.Errorf("LoopConfig() = %+v\nwant %+v", lc, want)
	}

	rc := cfg.RunSettings(true)
	if rc.Dt != DefaultDt || rc.Duration != DefaultDuration || !rc.ValidateState || !rc.KeepSnapshots {
		t.Errorf("unexpected run settings %+v", rc)
	}
}

func TestLoadOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	yml := `
controller:
  x: {p: 1, i: 0, d: 1}
target:
  kind: circle
  center: {x: 100, y: 200}
  radius: 50
  period: 5
run:
  duration: 3
`
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Controller.X != (control.Gains{P: 1, I: 0, D: 1}) {
		t.Errorf("x gains = %+v", cfg.Controller.X)
	}
	if cfg.Controller.Y.P != DefaultKp {
		t.Errorf("y gains should keep defaults, got %+v", cfg.Controller.Y)
	}
	if cfg.Target.Center != vmath.V2(100, 200) || cfg.Target.Kind != "circle" {
		t.Errorf("target = %+v", cfg.Target)
	}
	if cfg.Run.Duration != 3 || cfg.Run.Dt != DefaultDt {
		t.Errorf("run = %+v", cfg.Run)
	}
	if cfg.Array.Offset != DefaultOffset {
		t.Errorf("offset = %v, want default", cfg.Array.Offset)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := GetPreset("noisy")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.LoopConfig() != cfg.LoopConfig() {
		t.Errorf("loop config changed across save/load")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("run: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"negative offset", func(c *Config) { c.Array.Offset = -1 }, dynamo.ErrInvalidOffset},
		{"negative gain", func(c *Config) { c.Controller.Y.I = -0.1 }, dynamo.ErrNegativeGain},
		{"zero dt", func(c *Config) { c.Run.Dt = 0 }, ErrInvalid},
		{"nan dt", func(c *Config) { c.Run.Dt = math.NaN() }, ErrInvalid},
		{"infinite duration", func(c *Config) { c.Run.Duration = math.Inf(1) }, ErrInvalid},
		{"nan duration", func(c *Config) { c.Run.Duration = math.NaN() }, ErrInvalid},
		{"zero error gain", func(c *Config) { c.Array.ErrorGain = 0 }, dynamo.ErrInvalidConfig},
		{"negative error gain", func(c *Config) { c.Array.ErrorGain = -200 }, dynamo.ErrInvalidConfig},
		{"unknown target", func(c *Config) { c.Target.Kind = "spiral" }, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	if len(names) != 5 {
		t.Errorf("expected 5 presets, got %v", names)
	}
	for _, name := range names {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s missing", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}

	a := GetPreset("reference")
	a.Controller.X.P = 99
	if GetPreset("reference").Controller.X.P == 99 {
		t.Error("presets should not share state")
	}

	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if !GetPreset("noisy").Noise.Enabled || !GetPreset("scaled").Scale.Enabled {
		t.Error("noisy/scaled presets should enable their features")
	}
}
