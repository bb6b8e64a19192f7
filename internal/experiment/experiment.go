package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/linksim/internal/config"
	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/storage"
)

type Config struct {
	Model      string
	Integrator string
	InitState  []float64
	Params     map[string]float64
	Sim        dynamo.Config
}

// FromConfig describes a spring pendulum run from a loaded configuration.
func FromConfig(c *config.Config) Config {
	return Config{
		Model:      SpringPendulum,
		Integrator: c.Integrator,
		InitState:  c.InitState(),
		Params:     c.Pendulum().GetParams(),
		Sim:        c.SimConfig(),
	}
}

type validator interface {
	Validate() error
}

type Experiment struct {
	cfg       Config
	dyn       dynamo.System
	simulator *dynamo.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup applies the configured parameters to dyn and builds the simulator.
func (e *Experiment) Setup(dyn dynamo.System, integrator dynamo.Integrator, metrics []dynamo.Metric) error {
	if len(e.cfg.Params) > 0 {
		c, ok := dyn.(dynamo.Configurable)
		if !ok {
			return fmt.Errorf("model %s takes no parameters", e.cfg.Model)
		}
		for k, v := range e.cfg.Params {
			if err := c.SetParam(k, v); err != nil {
				return err
			}
		}
	}
	if v, ok := dyn.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	e.dyn = dyn
	e.simulator = dynamo.New(dyn, integrator)
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

// Build looks the model and integrator up in reg and sets the experiment up
// with the registry's default metrics.
func Build(reg *Registry, cfg Config) (*Experiment, error) {
	dyn, err := reg.GetModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	e := New(cfg)
	if err := e.Setup(dyn, integ, reg.DefaultMetrics(dyn)); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Model, err)
	}
	return e, nil
}

func (e *Experiment) initState() dynamo.State {
	if e.cfg.InitState == nil {
		return make(dynamo.State, e.dyn.StateDim())
	}
	x0 := make(dynamo.State, len(e.cfg.InitState))
	copy(x0, e.cfg.InitState)
	return x0
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.initState(), e.cfg.Sim)
}

// Job wraps the experiment for dynamo.RunAll.
func (e *Experiment) Job(name string) dynamo.Job {
	return dynamo.Job{Name: name, Sim: e.simulator, X0: e.initState(), Config: e.cfg.Sim}
}

// System returns the configured dynamics, or nil before Setup.
func (e *Experiment) System() dynamo.System { return e.dyn }

func (e *Experiment) Simulator() *dynamo.Simulator { return e.simulator }

// RunSpec describes the experiment for the run store.
func (e *Experiment) RunSpec() storage.RunSpec {
	spec := storage.RunSpec{
		Model:      e.cfg.Model,
		Integrator: e.cfg.Integrator,
		Config:     e.cfg.Sim,
		Initial:    e.initState(),
	}
	if c, ok := e.dyn.(dynamo.Configurable); ok {
		spec.Params = c.GetParams()
	}
	return spec
}
