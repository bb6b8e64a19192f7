package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/integrators"
	"github.com/san-kum/linksim/internal/metrics"
	"github.com/san-kum/linksim/internal/physics"
)

// SpringPendulum is the registry name of the bar and spring oscillator.
const SpringPendulum = "spring_pendulum"

// boundedLimit flags runs whose state leaves a physically sensible range.
const boundedLimit = 1e3

type Registry struct {
	models      map[string]func() dynamo.System
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() dynamo.System),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.models[SpringPendulum] = func() dynamo.System { return physics.NewSpringPendulum() }

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() dynamo.Integrator { return integrators.NewRK45() }

	return r
}

func (r *Registry) GetModel(name string) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

// GetIntegrator returns a fresh integrator. Integrators keep scratch state,
// so concurrent runs each need their own.
func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns the metrics worth recording for dyn.
func (r *Registry) DefaultMetrics(dyn dynamo.System) []dynamo.Metric {
	ms := []dynamo.Metric{metrics.NewBounded(boundedLimit)}
	if h, ok := dyn.(dynamo.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergyDrift(dyn), metrics.NewMeanEnergy(h))
	}
	if f, ok := dyn.(metrics.ForceModel); ok {
		ms = append(ms, metrics.NewSpringLoad(f))
	}
	return ms
}
