package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/linkage"
	"github.com/san-kum/linksim/internal/physics"
)

const (
	DefaultIntegrator = "rk45"
	DefaultDuration   = 500.0
	DefaultSamples    = 2000
	DefaultRelTol     = 1e-8
	DefaultAbsTol     = 1e-10
	DefaultDt         = 0.01
	DefaultMaxDt      = 0.1
	DefaultMinDt      = 1e-12

	DefaultFrames     = 1000
	DefaultIntervalMS = 20
	DefaultHistory    = 200
)

type Config struct {
	Integrator string           `yaml:"integrator" toml:"integrator"`
	Oscillator OscillatorConfig `yaml:"oscillator" toml:"oscillator"`
	Initial    InitialConfig    `yaml:"initial" toml:"initial"`
	Solver     SolverConfig     `yaml:"solver" toml:"solver"`
	Linkage    linkage.Params   `yaml:"linkage" toml:"linkage"`
	Animation  AnimationConfig  `yaml:"animation" toml:"animation"`
}

type OscillatorConfig struct {
	Alpha   float64 `yaml:"alpha" toml:"alpha"`
	Beta    float64 `yaml:"beta" toml:"beta"`
	Gamma   float64 `yaml:"gamma" toml:"gamma"`
	Lambda1 float64 `yaml:"lambda1" toml:"lambda1"`
	Lambda2 float64 `yaml:"lambda2" toml:"lambda2"`
	Damping float64 `yaml:"damping" toml:"damping"`
}

type InitialConfig struct {
	Theta    float64 `yaml:"theta" toml:"theta"`
	ThetaDot float64 `yaml:"theta_dot" toml:"theta_dot"`
	Mu       float64 `yaml:"mu" toml:"mu"`
	MuDot    float64 `yaml:"mu_dot" toml:"mu_dot"`
}

type SolverConfig struct {
	Duration float64 `yaml:"duration" toml:"duration"`
	Samples  int     `yaml:"samples" toml:"samples"`
	RelTol   float64 `yaml:"rtol" toml:"rtol"`
	AbsTol   float64 `yaml:"atol" toml:"atol"`
	Dt       float64 `yaml:"dt" toml:"dt"`
	MaxDt    float64 `yaml:"max_dt" toml:"max_dt"`
	MinDt    float64 `yaml:"min_dt" toml:"min_dt"`
	Adaptive bool    `yaml:"adaptive" toml:"adaptive"`
}

// AnimationConfig drives the linkage render loop. The view box is in
// linkage units.
type AnimationConfig struct {
	Frames     int     `yaml:"frames" toml:"frames"`
	IntervalMS int     `yaml:"interval_ms" toml:"interval_ms"`
	History    int     `yaml:"history" toml:"history"`
	XMin       float64 `yaml:"x_min" toml:"x_min"`
	XMax       float64 `yaml:"x_max" toml:"x_max"`
	YMin       float64 `yaml:"y_min" toml:"y_min"`
	YMax       float64 `yaml:"y_max" toml:"y_max"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: DefaultIntegrator,
		Oscillator: OscillatorConfig{
			Alpha:   physics.DefaultAlpha,
			Beta:    physics.DefaultBeta,
			Gamma:   physics.DefaultGamma,
			Lambda1: physics.DefaultLambda1,
			Lambda2: physics.DefaultLambda2,
			Damping: physics.DefaultDamping,
		},
		Solver: SolverConfig{
			Duration: DefaultDuration,
			Samples:  DefaultSamples,
			RelTol:   DefaultRelTol,
			AbsTol:   DefaultAbsTol,
			Dt:       DefaultDt,
			MaxDt:    DefaultMaxDt,
			MinDt:    DefaultMinDt,
			Adaptive: true,
		},
		Linkage: linkage.DefaultParams(),
		Animation: AnimationConfig{
			Frames:     DefaultFrames,
			IntervalMS: DefaultIntervalMS,
			History:    DefaultHistory,
			XMin:       -5,
			XMax:       10,
			YMin:       -10,
			YMax:       20,
		},
	}
}

// Load reads a yaml or toml file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if isTOML(path) {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) Validate() error {
	if err := c.Linkage.Validate(); err != nil {
		return err
	}
	if err := c.Pendulum().Validate(); err != nil {
		return err
	}
	if c.Solver.Duration <= 0 {
		return fmt.Errorf("solver duration must be positive, got %g", c.Solver.Duration)
	}
	if c.Solver.Adaptive {
		if c.Solver.Samples < 2 {
			return fmt.Errorf("solver needs at least 2 samples, got %d", c.Solver.Samples)
		}
		if c.Solver.RelTol <= 0 {
			return fmt.Errorf("solver rtol must be positive, got %g", c.Solver.RelTol)
		}
	} else if c.Solver.Dt <= 0 {
		return fmt.Errorf("solver dt must be positive, got %g", c.Solver.Dt)
	}
	if c.Animation.IntervalMS <= 0 {
		return fmt.Errorf("animation interval must be positive, got %d", c.Animation.IntervalMS)
	}
	return nil
}

// Pendulum builds the oscillator described by the config.
func (c *Config) Pendulum() *physics.SpringPendulum {
	p := physics.NewSpringPendulum()
	p.Alpha = c.Oscillator.Alpha
	p.Beta = c.Oscillator.Beta
	p.Gamma = c.Oscillator.Gamma
	p.Lambda1 = c.Oscillator.Lambda1
	p.Lambda2 = c.Oscillator.Lambda2
	p.Damping = c.Oscillator.Damping
	return p
}

func (c *Config) InitState() dynamo.State {
	return dynamo.State{c.Initial.Theta, c.Initial.ThetaDot, c.Initial.Mu, c.Initial.MuDot}
}

// SimConfig converts the solver section for the simulator.
func (c *Config) SimConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Duration = c.Solver.Duration
	cfg.Samples = c.Solver.Samples
	cfg.Tolerance = c.Solver.RelTol
	cfg.AbsTolerance = c.Solver.AbsTol
	cfg.Dt = c.Solver.Dt
	cfg.MaxDt = c.Solver.MaxDt
	cfg.MinDt = c.Solver.MinDt
	cfg.Adaptive = c.Solver.Adaptive
	return cfg
}
