package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/linksim/internal/dynamo"
)

// EnergyTrace evaluates h at every state.
func EnergyTrace(h dynamo.Hamiltonian, states []dynamo.State) []float64 {
	trace := make([]float64, len(states))
	for i, x := range states {
		trace[i] = h.Energy(x)
	}
	return trace
}

// Drift returns E(t) - E(0) for every sample of trace.
func Drift(trace []float64) []float64 {
	if len(trace) == 0 {
		return nil
	}
	drift := make([]float64, len(trace))
	copy(drift, trace)
	floats.AddConst(-trace[0], drift)
	return drift
}

type DriftSummary struct {
	Initial float64
	Final   float64
	MaxAbs  float64
	RMS     float64
	Mean    float64
	StdDev  float64
}

// DriftStats summarises the deviation of trace from its first sample.
func DriftStats(trace []float64) DriftSummary {
	if len(trace) == 0 {
		return DriftSummary{}
	}
	drift := Drift(trace)

	s := DriftSummary{
		Initial: trace[0],
		Final:   trace[len(trace)-1],
		MaxAbs:  math.Max(floats.Max(drift), -floats.Min(drift)),
		RMS:     floats.Norm(drift, 2) / math.Sqrt(float64(len(drift))),
	}
	if len(drift) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(drift, nil)
	} else {
		s.Mean = drift[0]
	}
	return s
}

// MeanEnergy averages the energy over all observed samples.
type MeanEnergy struct {
	h       dynamo.Hamiltonian
	total   float64
	samples int
}

func NewMeanEnergy(h dynamo.Hamiltonian) *MeanEnergy {
	return &MeanEnergy{h: h}
}

func (e *MeanEnergy) Name() string { return "mean_energy" }

func (e *MeanEnergy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	e.total += e.h.Energy(x)
	e.samples++
}

func (e *MeanEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *MeanEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift records the largest |E(t) - E(0)| seen while a simulation
// runs. Systems without an energy function leave it at zero.
type EnergyDrift struct {
	initialEnergy float64
	maxDrift      float64
	samples       int
	dyn           dynamo.System
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{dyn: dyn}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	h, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := h.Energy(x)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initialEnergy))
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
