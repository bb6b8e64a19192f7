package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/linksim/internal/config"
	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/experiment"
	"github.com/san-kum/linksim/internal/metrics"
	"github.com/san-kum/linksim/internal/storage"
)

// Scenario defines a scripted sequence of oscillator runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep starts from a preset and overrides what it sets. Zero values
// keep the preset's choice.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Integrator string             `yaml:"integrator"`
	Duration   float64            `yaml:"duration"`
	Samples    int                `yaml:"samples"`
	Dt         float64            `yaml:"dt"`
	Adaptive   *bool              `yaml:"adaptive"`
	InitState  []float64          `yaml:"init_state"`
	Params     map[string]float64 `yaml:"params"`
	Save       bool               `yaml:"save"`
}

// StepResult is the outcome of one scenario step. RunID is empty unless the
// step was saved.
type StepResult struct {
	Name   string
	RunID  string
	Result *dynamo.Result
	Drift  metrics.DriftSummary
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Config resolves the step against its preset.
func (s ScenarioStep) Config() (*config.Config, error) {
	preset := s.Preset
	if preset == "" {
		preset = "default"
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", preset)
	}

	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.Duration > 0 {
		cfg.Solver.Duration = s.Duration
	}
	if s.Samples > 0 {
		cfg.Solver.Samples = s.Samples
	}
	if s.Dt > 0 {
		cfg.Solver.Dt = s.Dt
	}
	if s.Adaptive != nil {
		cfg.Solver.Adaptive = *s.Adaptive
	}
	if s.InitState != nil {
		if len(s.InitState) != 4 {
			return nil, fmt.Errorf("init_state has %d values, want 4", len(s.InitState))
		}
		cfg.Initial = config.InitialConfig{
			Theta:    s.InitState[0],
			ThetaDot: s.InitState[1],
			Mu:       s.InitState[2],
			MuDot:    s.InitState[3],
		}
	}
	return cfg, cfg.Validate()
}

// RunScenario executes the steps in order and stops at the first failure.
// Steps marked save are written to store when it is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store, logger kitlog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		level.Info(logger).Log("msg", "running step", "step", i+1, "of", len(scenario.Steps), "name", name)

		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		expCfg := experiment.FromConfig(cfg)
		for k, v := range step.Params {
			expCfg.Params[k] = v
		}

		exp, err := experiment.Build(registry, expCfg)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		var energy []float64
		if h, ok := exp.System().(dynamo.Hamiltonian); ok {
			energy = metrics.EnergyTrace(h, result.States)
		}
		sr := StepResult{Name: name, Result: result, Drift: metrics.DriftStats(energy)}

		if step.Save && store != nil {
			if sr.RunID, err = store.Save(exp.RunSpec(), result, energy); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			level.Debug(logger).Log("msg", "step saved", "step", i+1, "run", sr.RunID)
		}

		results = append(results, sr)
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial state of a base configuration.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
	Parallelism  int
}

// MonteCarloResult holds the outcome of one perturbed run.
type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	Drift      float64
	Stable     bool
}

// RunMonteCarlo runs the trials concurrently with uniformly perturbed
// initial states. A trial is stable when its state stays bounded and finite.
func RunMonteCarlo(ctx context.Context, cfg MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	if cfg.NumTrials <= 0 {
		return nil, fmt.Errorf("number of trials must be positive, got %d", cfg.NumTrials)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	base := experiment.FromConfig(cfg.Base)
	jobs := make([]dynamo.Job, cfg.NumTrials)
	inits := make([]dynamo.State, cfg.NumTrials)
	for trial := range jobs {
		initState := make(dynamo.State, len(base.InitState))
		for i, v := range base.InitState {
			initState[i] = v + (rng.Float64()-0.5)*2*cfg.Perturbation
		}
		inits[trial] = initState

		expCfg := base
		expCfg.InitState = initState
		exp, err := experiment.Build(registry, expCfg)
		if err != nil {
			return nil, err
		}
		jobs[trial] = exp.Job(fmt.Sprintf("trial %d", trial))
	}

	runs, err := dynamo.RunAll(ctx, jobs, cfg.Parallelism)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for trial, res := range runs {
		final := res.Final()
		results[trial] = MonteCarloResult{
			TrialID:    trial,
			InitState:  inits[trial],
			FinalState: final,
			Drift:      res.EnergyDrift,
			Stable:     res.Metrics["bounded"] == 1 && final.IsValid() && !math.IsNaN(res.EnergyDrift),
		}
	}
	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
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
