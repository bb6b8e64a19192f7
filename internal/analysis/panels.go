package analysis

import (
	"math"

	"github.com/san-kum/linksim/internal/dynamo"
	"github.com/san-kum/linksim/internal/metrics"
	"github.com/san-kum/linksim/internal/physics"
)

type Series struct {
	Name   string
	Values []float64
}

// Panel is one subplot: a few series sharing the time axis.
type Panel struct {
	Title  string
	YLabel string
	Times  []float64
	Series []Series
}

// Panels builds the six standard views of an oscillator run: θ and μ,
// energy drift, θ̇, μ̇, the height of the suspended mass and the
// elongation of the horizontal spring.
func Panels(res *dynamo.Result, p *physics.SpringPendulum) []Panel {
	n := len(res.States)
	height := make([]float64, n)
	elongation := make([]float64, n)
	for i, x := range res.States {
		height[i] = p.MassHeight(x)
		elongation[i] = p.HorizontalElongation(x)
	}

	drift := metrics.Drift(metrics.EnergyTrace(p, res.States))

	panel := func(title, ylabel string, series ...Series) Panel {
		return Panel{Title: title, YLabel: ylabel, Times: res.Times, Series: series}
	}

	return []Panel{
		panel("Angle and mass displacement", "θ, μ",
			Series{"θ", res.Component(physics.Theta)},
			Series{"μ", res.Component(physics.Mu)}),
		panel("Energy drift", "E(t) - E(0)", Series{"ΔE", drift}),
		panel("Angular velocity", "θ'", Series{"θ'", res.Component(physics.ThetaDot)}),
		panel("Mass velocity", "μ'", Series{"μ'", res.Component(physics.MuDot)}),
		panel("Suspended mass height", "sin θ - μ", Series{"height", height}),
		panel("Horizontal spring elongation", "-(cos θ - λ2)", Series{"elongation", elongation}),
	}
}

// Range returns the smallest and largest finite value over all series.
func (p Panel) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range p.Series {
		for _, v := range s.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}
