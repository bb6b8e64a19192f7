package dynamo

import (
	"context"
	"errors"
	"fmt"
	"math"
)

type Simulator struct {
	dyn        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(dyn System, integrator Integrator) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// System returns the simulated dynamics.
func (s *Simulator) System() System { return s.dyn }

// Run integrates from x0 at t=0 up to cfg.Duration. On failure the partial
// result recorded so far is returned together with the error.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("state has %d components, system wants %d: %w", len(x0), s.dyn.StateDim(), ErrDimensionMismatch)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	if cfg.Adaptive {
		return s.runAdaptive(ctx, x0, cfg)
	}
	return s.runFixed(ctx, x0, cfg)
}

func (s *Simulator) runFixed(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := newResult(steps + 1)
	rec := s.newRecorder(result, x0)

	x := x0.Clone()
	t := 0.0
	rec.record(x, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		default:
		}

		newX := s.integrator.Step(rec.counted, x, nil, t, cfg.Dt)
		if cfg.ValidateState && !newX.IsValid() {
			return result, &SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: ErrInvalidState}
		}

		x = newX
		t += cfg.Dt
		result.StepsTaken++
		rec.record(x, t)
	}

	return rec.finish(), nil
}

func (s *Simulator) runAdaptive(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	times := cfg.SampleTimes()
	result := newResult(len(times))
	rec := s.newRecorder(result, x0)

	if tol, ok := s.integrator.(Tolerant); ok {
		tol.SetAbsTolerance(cfg.AbsTolerance)
	}

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt
	rec.record(x, t)

	for k := 1; k < len(times); k++ {
		target := times[k]
		eps := 1e-12 * math.Max(1, math.Abs(target))

		for target-t > eps {
			select {
			case <-ctx.Done():
				return result, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
			default:
			}

			h := math.Min(dt, target-t)
			if cfg.MaxDt > 0 {
				h = math.Min(h, cfg.MaxDt)
			}
			landing := target-t <= h

			newX, next, err := s.stepAdaptive(rec.counted, x, t, h, cfg)
			if errors.Is(err, ErrStepRejected) {
				result.Rejected++
				dt = next
				if dt < cfg.MinDt {
					return result, &SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: ErrStepTooSmall}
				}
				continue
			}
			if err != nil {
				return result, &SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: err}
			}
			if cfg.ValidateState && !newX.IsValid() {
				return result, &SimulationError{Step: result.StepsTaken, Time: t, State: x.Clone(), Wrapped: ErrInvalidState}
			}

			x = newX
			result.StepsTaken++
			if landing {
				t = target
				// A clipped landing step says little about the natural step size.
				dt = math.Max(dt, next)
			} else {
				t += h
				dt = next
			}
		}

		rec.record(x, target)
	}

	return rec.finish(), nil
}

func (s *Simulator) stepAdaptive(dyn System, x State, t, dt float64, cfg Config) (State, float64, error) {
	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(dyn, x, nil, t, dt, cfg.Tolerance)
	}

	// Step doubling for fixed-step integrators.
	x1 := s.integrator.Step(dyn, x, nil, t, dt)
	xHalf := s.integrator.Step(dyn, x, nil, t, dt/2)
	x2 := s.integrator.Step(dyn, xHalf, nil, t+dt/2, dt/2)

	errNorm := x1.Sub(x2).Norm() / (cfg.AbsTolerance + cfg.Tolerance*x2.Norm())
	if errNorm > 1 {
		return x, dt / 2, ErrStepRejected
	}

	next := dt
	if errNorm < 0.1 {
		next = dt * 2
		if cfg.MaxDt > 0 {
			next = math.Min(next, cfg.MaxDt)
		}
	}
	return x2, next, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive {
		if cfg.Tolerance <= 0 {
			return fmt.Errorf("tolerance must be positive for adaptive stepping")
		}
		if cfg.Samples < 2 {
			return fmt.Errorf("adaptive stepping needs at least 2 samples, got %d", cfg.Samples)
		}
	}
	return nil
}

func newResult(capacity int) *Result {
	return &Result{
		States:  make([]State, 0, capacity),
		Times:   make([]float64, 0, capacity),
		Metrics: make(map[string]float64),
	}
}

// recorder appends samples, feeds metrics and observers and tracks the
// largest absolute energy deviation from the first sample.
type recorder struct {
	sim     *Simulator
	result  *Result
	counted *countingSystem
	ham     Hamiltonian
	e0      float64
}

func (s *Simulator) newRecorder(result *Result, x0 State) *recorder {
	r := &recorder{
		sim:     s,
		result:  result,
		counted: &countingSystem{System: s.dyn},
	}
	if h, ok := s.dyn.(Hamiltonian); ok {
		r.ham = h
		r.e0 = h.Energy(x0)
	}
	return r
}

func (r *recorder) record(x State, t float64) {
	r.result.States = append(r.result.States, x.Clone())
	r.result.Times = append(r.result.Times, t)

	for _, m := range r.sim.metrics {
		m.Observe(x, nil, t)
	}
	for _, obs := range r.sim.observers {
		obs.OnStep(x, nil, t)
	}

	if r.ham != nil {
		drift := math.Abs(r.ham.Energy(x) - r.e0)
		if drift > r.result.EnergyDrift {
			r.result.EnergyDrift = drift
		}
	}
}

func (r *recorder) finish() *Result {
	for _, m := range r.sim.metrics {
		r.result.Metrics[m.Name()] = m.Value()
	}
	r.result.Evaluations = r.counted.calls
	return r.result
}

type countingSystem struct {
	System
	calls int
}

func (c *countingSystem) Derive(x State, u Control, t float64) State {
	c.calls++
	return c.System.Derive(x, u, t)
}
