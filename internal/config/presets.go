package config

import (
	"sort"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/target"
	"github.com/san-kum/crosstrack/internal/vmath"
)

// Presets build complete configurations by name. Each call returns a fresh
// value, so callers may modify it.
var Presets = map[string]func() *Config{
	"reference": DefaultConfig,
	"sluggish": func() *Config {
		c := DefaultConfig()
		c.SetGains(control.Gains{P: 0.3, I: 0, D: 1.5})
		c.Run.Duration = 20
		return c
	},
	"aggressive": func() *Config {
		c := DefaultConfig()
		c.SetGains(control.Gains{P: 2, I: 0.05, D: 1})
		c.Target = orbit()
		return c
	},
	"noisy": func() *Config {
		c := DefaultConfig()
		c.SetGains(control.Gains{P: 1, I: 0, D: 1})
		c.Noise.Enabled = true
		c.Run.Duration = 20
		return c
	},
	"scaled": func() *Config {
		c := DefaultConfig()
		c.SetGains(control.Gains{P: 1, I: 0, D: 1})
		c.Scale.Enabled = true
		c.Target = orbit()
		return c
	},
}

func orbit() target.Spec {
	return target.Spec{Kind: "circle", Center: vmath.V2(540, 360), Radius: 120, Period: 12}
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
