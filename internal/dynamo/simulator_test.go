package dynamo

import (
	"context"
	"errors"
	"math"
	"testing"
)

type decay struct{}

func (d *decay) Derive(x State, u Control, t float64) State { return State{-x[0]} }
func (d *decay) StateDim() int                              { return 1 }
func (d *decay) ControlDim() int                            { return 0 }

type oscillator struct{}

func (o *oscillator) Derive(x State, u Control, t float64) State { return State{x[1], -x[0]} }
func (o *oscillator) StateDim() int                              { return 2 }
func (o *oscillator) ControlDim() int                            { return 0 }
func (o *oscillator) Energy(x State) float64                     { return 0.5 * (x[0]*x[0] + x[1]*x[1]) }

type eulerStep struct{}

func (e *eulerStep) Step(dyn System, x State, u Control, t, dt float64) State {
	dx := dyn.Derive(x, u, t)
	out := make(State, len(x))
	for i := range x {
		out[i] = x[i] + dt*dx[i]
	}
	return out
}

type midpointStep struct{}

func (m *midpointStep) Step(dyn System, x State, u Control, t, dt float64) State {
	k1 := dyn.Derive(x, u, t)
	mid := make(State, len(x))
	for i := range x {
		mid[i] = x[i] + 0.5*dt*k1[i]
	}
	k2 := dyn.Derive(mid, u, t+0.5*dt)
	out := make(State, len(x))
	for i := range x {
		out[i] = x[i] + dt*k2[i]
	}
	return out
}

type blowUp struct{}

func (b *blowUp) Derive(x State, u Control, t float64) State { return State{math.NaN()} }
func (b *blowUp) StateDim() int                              { return 1 }
func (b *blowUp) ControlDim() int                            { return 0 }

func TestSimulatorRun(t *testing.T) {
	sim := New(&decay{}, &eulerStep{})

	cfg := Config{Dt: 0.1, Duration: 1.0}
	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}
	if result.Evaluations != 10 {
		t.Errorf("expected 10 derivative evaluations, got %d", result.Evaluations)
	}

	finalState := result.Final()[0]
	expected := math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&decay{}, &eulerStep{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"adaptive without tolerance", Config{Dt: 0.1, Duration: 1.0, Adaptive: true, Samples: 10}},
		{"adaptive without samples", Config{Dt: 0.1, Duration: 1.0, Adaptive: true, Tolerance: 1e-6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), State{1.0}, tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorDimensionMismatch(t *testing.T) {
	sim := New(&oscillator{}, &eulerStep{})
	_, err := sim.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

type countMetric struct {
	count int
	sum   float64
}

func (c *countMetric) Name() string { return "test" }
func (c *countMetric) Observe(x State, u Control, t float64) {
	c.count++
	c.sum += x[0]
}
func (c *countMetric) Value() float64 {
	if c.count == 0 {
		return 0
	}
	return c.sum / float64(c.count)
}
func (c *countMetric) Reset() {
	c.count = 0
	c.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	sim := New(&decay{}, &eulerStep{})

	metric := &countMetric{}
	sim.AddMetric(metric)

	result, err := sim.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 11 {
		t.Errorf("expected 11 observations, got %d", metric.count)
	}
}

type timeObserver struct{ times []float64 }

func (o *timeObserver) OnStep(x State, u Control, t float64) { o.times = append(o.times, t) }

func TestSimulatorObservers(t *testing.T) {
	sim := New(&decay{}, &eulerStep{})
	obs := &timeObserver{}
	sim.AddObserver(obs)

	result, err := sim.Run(context.Background(), State{1.0}, Config{Dt: 0.25, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(obs.times) != len(result.Times) {
		t.Fatalf("observer saw %d samples, result has %d", len(obs.times), len(result.Times))
	}
	for i := range obs.times {
		if obs.times[i] != result.Times[i] {
			t.Errorf("sample %d: observer t=%v, result t=%v", i, obs.times[i], result.Times[i])
		}
	}
}

func TestSimulatorAdaptiveEndsAtHorizon(t *testing.T) {
	sim := New(&decay{}, &midpointStep{})

	cfg := DefaultConfig()
	cfg.Adaptive = true
	cfg.Duration = 500
	cfg.Samples = 2000
	cfg.Tolerance = 1e-4
	cfg.AbsTolerance = 1e-6
	cfg.Dt = 0.1

	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	grid := cfg.SampleTimes()
	if len(result.Times) != len(grid) {
		t.Fatalf("expected %d samples, got %d", len(grid), len(result.Times))
	}
	if last := result.Times[len(result.Times)-1]; last != 500 {
		t.Errorf("last sample at t=%v, want exactly 500", last)
	}
	for i := range grid {
		if result.Times[i] != grid[i] {
			t.Fatalf("sample %d at t=%v, grid has %v", i, result.Times[i], grid[i])
		}
	}
}

func TestSimulatorAdaptiveSamples(t *testing.T) {
	sim := New(&oscillator{}, &midpointStep{})

	cfg := DefaultConfig()
	cfg.Adaptive = true
	cfg.Duration = 2 * math.Pi
	cfg.Samples = 50
	cfg.Tolerance = 1e-8
	cfg.Dt = 0.1

	result, err := sim.Run(context.Background(), State{1, 0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Times) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(result.Times))
	}
	if result.Times[0] != 0 || result.Times[49] != cfg.Duration {
		t.Errorf("sample grid should span [0, %f], got [%f, %f]", cfg.Duration, result.Times[0], result.Times[49])
	}
	for i := 1; i < len(result.Times); i++ {
		want := cfg.Duration * float64(i) / 49
		if math.Abs(result.Times[i]-want) > 1e-9 {
			t.Fatalf("sample %d at %f, want %f", i, result.Times[i], want)
		}
	}

	final := result.Final()
	if math.Abs(final[0]-1) > 1e-4 || math.Abs(final[1]) > 1e-4 {
		t.Errorf("expected to return to (1, 0) after one period, got %v", final)
	}
	if result.EnergyDrift > 1e-4 {
		t.Errorf("energy drift too large: %e", result.EnergyDrift)
	}
}

func TestSimulatorInvalidStateStops(t *testing.T) {
	sim := New(&blowUp{}, &eulerStep{})
	cfg := Config{Dt: 0.1, Duration: 1.0, ValidateState: true}

	result, err := sim.Run(context.Background(), State{1.0}, cfg)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected *SimulationError, got %T", err)
	}
	if simErr.Step != 0 {
		t.Errorf("expected failure at step 0, got %d", simErr.Step)
	}
	if len(result.States) != 1 {
		t.Errorf("expected only the initial sample, got %d", len(result.States))
	}
}

func TestSimulatorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(&decay{}, &eulerStep{})
	_, err := sim.Run(ctx, State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if !errors.Is(err, ErrContextCanceled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
}

func TestRunAll(t *testing.T) {
	jobs := make([]Job, 4)
	for i := range jobs {
		jobs[i] = Job{
			Name:   "decay",
			Sim:    New(&decay{}, &eulerStep{}),
			X0:     State{float64(i + 1)},
			Config: Config{Dt: 0.01, Duration: 1.0},
		}
	}

	results, err := RunAll(context.Background(), jobs, 2)
	if err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("expected %d results, got %d", len(jobs), len(results))
	}
	for i, r := range results {
		if r.States[0][0] != float64(i+1) {
			t.Errorf("result %d out of order: starts at %f", i, r.States[0][0])
		}
	}
}

func TestRunAllPropagatesError(t *testing.T) {
	jobs := []Job{
		{Name: "ok", Sim: New(&decay{}, &eulerStep{}), X0: State{1}, Config: Config{Dt: 0.1, Duration: 1}},
		{Name: "bad", Sim: New(&decay{}, &eulerStep{}), X0: State{1}, Config: Config{Dt: 0, Duration: 1}},
	}
	if _, err := RunAll(context.Background(), jobs, 0); err == nil {
		t.Fatal("expected error from invalid job")
	}
}
