package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/linksim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int   { return 2 }
func (h *harmonicOscillator) ControlDim() int { return 0 }

func (h *harmonicOscillator) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	finalEnergy := dyn.Energy(x)
	drift := math.Abs(finalEnergy-initialEnergy) / initialEnergy

	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	t.Run("accepted step grows dt", func(t *testing.T) {
		x, next, err := NewRK45().StepAdaptive(dyn, x0, nil, 0, 0.01, 1e-6)
		if err != nil {
			t.Fatalf("StepAdaptive returned error: %v", err)
		}
		if !x.IsValid() || x[0] == x0[0] {
			t.Errorf("accepted step did not advance: %v", x)
		}
		if next <= 0.01 {
			t.Errorf("easy step should suggest a larger dt, got %f", next)
		}
	})

	t.Run("rejected step keeps state and shrinks dt", func(t *testing.T) {
		x, next, err := NewRK45().StepAdaptive(dyn, x0, nil, 0, 0.1, 1e-8)
		if !errors.Is(err, dynamo.ErrStepRejected) {
			t.Fatalf("expected ErrStepRejected, got %v", err)
		}
		if x[0] != x0[0] || x[1] != x0[1] {
			t.Errorf("rejected step must return the input state, got %v", x)
		}
		if next <= 0 || next >= 0.1 {
			t.Errorf("rejected step should shrink dt, got %f", next)
		}
	})
}

func TestRK45_VsRK4_Accuracy(t *testing.T) {
	rk4 := NewRK4()
	rk45 := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x4 := x0.Clone()
	x45 := x0.Clone()
	dt := 0.1

	for i := 0; i < 100; i++ {
		x4 = rk4.Step(dyn, x4, nil, float64(i)*dt, dt)
		x45 = rk45.Step(dyn, x45, nil, float64(i)*dt, dt)
	}

	t.Logf("RK4 final: [%.6f, %.6f]", x4[0], x4[1])
	t.Logf("RK45 final: [%.6f, %.6f]", x45[0], x45[1])

	e4 := (&harmonicOscillator{}).Energy(x4)
	e45 := (&harmonicOscillator{}).Energy(x45)

	if math.Abs(e45-1.0) > math.Abs(e4-1.0) {
		t.Log("Warning: RK45 not more accurate than RK4 for this case")
	}
}

func TestRK45_RejectsLargeStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, err := integrator.StepAdaptive(dyn, x0, nil, 0, 3.0, 1e-10)
	if !errors.Is(err, dynamo.ErrStepRejected) {
		t.Fatalf("expected ErrStepRejected, got %v", err)
	}
	if newDt >= 3.0 {
		t.Errorf("rejected step should shrink dt, got %f", newDt)
	}
	if x[0] != x0[0] || x[1] != x0[1] {
		t.Errorf("rejected step must not advance the state, got %v", x)
	}
}

func TestRK45_AbsTolerance(t *testing.T) {
	loose := NewRK45()
	loose.SetAbsTolerance(1e-3)
	tight := NewRK45()
	tight.SetAbsTolerance(1e-12)

	dyn := &harmonicOscillator{}
	x0 := dynamo.State{0.0, 0.0}

	_, dtLoose, errLoose := loose.StepAdaptive(dyn, dynamo.State{1e-4, 0}, nil, 0, 0.5, 1e-12)
	_, dtTight, _ := tight.StepAdaptive(dyn, dynamo.State{1e-4, 0}, nil, 0, 0.5, 1e-12)
	if errLoose != nil {
		t.Fatalf("loose tolerance should accept the step: %v", errLoose)
	}
	if dtTight >= dtLoose {
		t.Errorf("tighter atol should suggest a smaller step: %f >= %f", dtTight, dtLoose)
	}

	x, _, err := tight.StepAdaptive(dyn, x0, nil, 0, 0.5, 1e-12)
	if err != nil || x[0] != 0 || x[1] != 0 {
		t.Errorf("rest state should stay at rest, got %v (%v)", x, err)
	}
}
