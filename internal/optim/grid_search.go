package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/experiment"
	"github.com/san-kum/linksim/internal/metrics"
)

// EnergyLoss is the metric name for E(0) − E(T), added to every point.
const EnergyLoss = "energy_loss"

// Point is one evaluated parameter combination.
type Point struct {
	Params  map[string]float64
	Metrics map[string]float64
	Final   dynamo.State
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	limit      int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// SetParallelism caps the number of simulations in flight. Zero or less
// runs every combination at once.
func (g *GridSearch) SetParallelism(n int) { g.limit = n }

// combinations expands the grid in row-major order, the last parameter
// varying fastest.
func (g *GridSearch) combinations() []map[string]float64 {
	combos := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(combos)*len(g.ranges[depth]))
		for _, base := range combos {
			for _, val := range g.ranges[depth] {
				params := make(map[string]float64, len(base)+1)
				for k, v := range base {
					params[k] = v
				}
				params[name] = val
				next = append(next, params)
			}
		}
		combos = next
	}
	return combos
}

// Evaluate runs one experiment per grid point concurrently and returns the
// points in grid order.
func (g *GridSearch) Evaluate(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
) ([]Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("%d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	combos := g.combinations()
	exps := make([]*experiment.Experiment, len(combos))
	jobs := make([]dynamo.Job, len(combos))
	for i, params := range combos {
		exp, err := buildExperiment(params)
		if err != nil {
			return nil, fmt.Errorf("point %v: %w", params, err)
		}
		exps[i] = exp
		jobs[i] = exp.Job(fmt.Sprintf("point %v", params))
	}

	results, err := dynamo.RunAll(ctx, jobs, g.limit)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(combos))
	for i, res := range results {
		m := make(map[string]float64, len(res.Metrics)+1)
		for k, v := range res.Metrics {
			m[k] = v
		}
		if h, ok := exps[i].System().(dynamo.Hamiltonian); ok && len(res.States) > 0 {
			trace := metrics.EnergyTrace(h, []dynamo.State{res.States[0], res.Final()})
			m[EnergyLoss] = trace[0] - trace[1]
		}
		points[i] = Point{Params: combos[i], Metrics: m, Final: res.Final()}
	}
	return points, nil
}

// Search evaluates the grid and returns the point minimising metricName.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	metricName string,
) (map[string]float64, float64, error) {
	points, err := g.Evaluate(ctx, buildExperiment)
	if err != nil {
		return nil, 0, err
	}
	return Best(points, metricName)
}

// Best returns the point minimising metricName.
func Best(points []Point, metricName string) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	for _, p := range points {
		val, ok := p.Metrics[metricName]
		if !ok {
			return nil, 0, fmt.Errorf("metric %s not recorded", metricName)
		}
		if val < best {
			best = val
			bestParams = p.Params
		}
	}
	return bestParams, best, nil
}

// Sweep evaluates a single parameter over values.
func Sweep(
	ctx context.Context,
	param string,
	values []float64,
	parallelism int,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
) ([]Point, error) {
	g := NewGridSearch([]string{param}, [][]float64{values})
	g.SetParallelism(parallelism)
	return g.Evaluate(ctx, buildExperiment)
}
