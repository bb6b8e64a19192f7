package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_Arithmetic(t *testing.T) {
	a := State{1, 2, 3}
	b := State{4, 5, 6}

	sum := a.Add(b)
	if sum[0] != 5 || sum[1] != 7 || sum[2] != 9 {
		t.Errorf("Add failed: got %v", sum)
	}

	diff := b.Sub(a)
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}

	scaled := a.Scale(2)
	if scaled[0] != 2 || scaled[1] != 4 || scaled[2] != 6 {
		t.Errorf("Scale failed: got %v", scaled)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("DefaultConfig has invalid Dt")
	}
	if cfg.Duration <= 0 {
		t.Error("DefaultConfig has invalid Duration")
	}
	if cfg.Tolerance <= 0 {
		t.Error("DefaultConfig has invalid Tolerance")
	}
}

func TestConfig_SampleTimes(t *testing.T) {
	cfg := Config{Duration: 500, Samples: 2000}
	times := cfg.SampleTimes()

	if len(times) != 2000 {
		t.Fatalf("expected 2000 times, got %d", len(times))
	}
	if times[0] != 0 || times[len(times)-1] != 500 {
		t.Errorf("grid must include both ends, got %f..%f", times[0], times[len(times)-1])
	}
	step := 500.0 / 1999.0
	if math.Abs(times[1]-step) > 1e-12 {
		t.Errorf("spacing = %f, want %f", times[1], step)
	}
}

func TestResult_Component(t *testing.T) {
	r := &Result{States: []State{{1, 2}, {3, 4}, {5}}}
	got := r.Component(1)
	want := []float64{2, 4, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Component(1)[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if (&Result{}).Final() != nil {
		t.Error("Final of empty result should be nil")
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Time: 1.5, Step: 150, Wrapped: ErrStepTooSmall}
	expected := "step 150 (t=1.5000): dynamo: adaptive timestep below minimum"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrStepTooSmall) {
		t.Error("SimulationError should unwrap to its cause")
	}
}
