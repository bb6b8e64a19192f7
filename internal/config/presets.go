package config

import "sort"

// Presets are named variations of the default configuration.
var Presets = map[string]func(*Config){
	"default": func(c *Config) {},
	"damped": func(c *Config) {
		c.Oscillator.Damping = 0.2
		c.Solver.Duration = 200
	},
	"kicked": func(c *Config) {
		c.Initial.ThetaDot = 1.0
	},
	"stiff": func(c *Config) {
		c.Oscillator.Alpha = 20
		c.Solver.Duration = 100
	},
	"heavy": func(c *Config) {
		c.Oscillator.Gamma = 0.5
	},
	"short": func(c *Config) {
		c.Solver.Duration = 50
		c.Solver.Samples = 500
	},
	"fixed-step": func(c *Config) {
		c.Integrator = "rk4"
		c.Solver.Adaptive = false
		c.Solver.Dt = 0.005
		c.Solver.Duration = 100
	},
	"long-bar": func(c *Config) {
		c.Linkage.BarLength = 20
		c.Animation.YMax = 30
	},
}

// GetPreset returns a fresh config with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
