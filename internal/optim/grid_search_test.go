package optim

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/experiment"
)

func builder(reg *experiment.Registry) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := dynamo.DefaultConfig()
		cfg.Dt = 0.01
		cfg.Duration = 20
		return experiment.Build(reg, experiment.Config{
			Model:      experiment.SpringPendulum,
			Integrator: "rk4",
			InitState:  []float64{0.5, 0, 0, 0},
			Params:     params,
			Sim:        cfg,
		})
	}
}

func TestCombinations(t *testing.T) {
	g := NewGridSearch([]string{"alpha", "beta"}, [][]float64{{1, 2}, {7, 8, 9}})
	combos := g.combinations()
	if len(combos) != 6 {
		t.Fatalf("got %d combinations, want 6", len(combos))
	}
	if combos[0]["alpha"] != 1 || combos[0]["beta"] != 7 {
		t.Errorf("first = %v", combos[0])
	}
	if combos[5]["alpha"] != 2 || combos[5]["beta"] != 9 {
		t.Errorf("last = %v", combos[5])
	}
}

func TestSweepDamping(t *testing.T) {
	values := []float64{0, 0.5, 1}
	points, err := Sweep(context.Background(), "damping", values, 2, builder(experiment.NewRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != len(values) {
		t.Fatalf("got %d points", len(points))
	}

	for i, p := range points {
		if p.Params["damping"] != values[i] {
			t.Errorf("point %d damping = %v, want %v", i, p.Params["damping"], values[i])
		}
		if len(p.Final) != 4 {
			t.Errorf("point %d final state %v", i, p.Final)
		}
	}

	if loss := points[0].Metrics[EnergyLoss]; math.Abs(loss) > 1e-3 {
		t.Errorf("undamped energy loss = %v", loss)
	}
	for _, p := range points[1:] {
		if loss := p.Metrics[EnergyLoss]; loss < 1e-2 {
			t.Errorf("damping %v lost only %v", p.Params["damping"], loss)
		}
	}
}

func TestSearch(t *testing.T) {
	g := NewGridSearch([]string{"damping"}, [][]float64{{1, 0}})
	best, val, err := g.Search(context.Background(), builder(experiment.NewRegistry()), EnergyLoss)
	if err != nil {
		t.Fatal(err)
	}
	if best["damping"] != 0 {
		t.Errorf("best = %v (%v), want damping 0", best, val)
	}

	if _, _, err := g.Search(context.Background(), builder(experiment.NewRegistry()), "nope"); err == nil {
		t.Error("unknown metric accepted")
	}
}

func TestEvaluateErrors(t *testing.T) {
	g := NewGridSearch([]string{"damping"}, nil)
	if _, err := g.Evaluate(context.Background(), builder(experiment.NewRegistry())); err == nil {
		t.Error("mismatched ranges accepted")
	}

	g = NewGridSearch([]string{"gamma"}, [][]float64{{-1}})
	if _, err := g.Evaluate(context.Background(), builder(experiment.NewRegistry())); err == nil {
		t.Error("invalid parameter accepted")
	}
}
