package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// Control is an external input vector. The systems in this module are
// autonomous and receive a nil Control.
type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// AdaptiveIntegrator takes one error-controlled step. On success it returns
// the new state and the suggested next dt. When the step fails the error
// test it returns ErrStepRejected together with a smaller dt to retry with.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, u Control, t, dt, tol float64) (State, float64, error)
}

// Tolerant is implemented by adaptive integrators that accept an absolute
// tolerance next to the relative one passed to StepAdaptive.
type Tolerant interface {
	SetAbsTolerance(atol float64)
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64
	Duration      float64
	Samples       int
	Seed          int64
	Tolerance     float64
	AbsTolerance  float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Samples:       1000,
		Tolerance:     1e-6,
		AbsTolerance:  1e-9,
		MaxDt:         0.1,
		MinDt:         1e-10,
		Adaptive:      false,
		ValidateState: true,
	}
}

// SampleTimes returns the evenly spaced output grid used by adaptive runs,
// including both 0 and Duration.
func (c Config) SampleTimes() []float64 {
	n := c.Samples
	if n < 2 {
		n = 2
	}
	grid := floats.Span(make([]float64, n), 0, c.Duration)
	// Span accumulates rounding; the last sample must be the horizon itself.
	grid[n-1] = c.Duration
	return grid
}

type Result struct {
	States      []State
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Rejected    int
	Evaluations int
}

// Component extracts one coordinate of every recorded state.
func (r *Result) Component(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, s := range r.States {
		if i < len(s) {
			out[k] = s[i]
		}
	}
	return out
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
