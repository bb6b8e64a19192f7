package integrators

import "github.com/san-kum/linksim/internal/dynamo"

// tableau is an explicit Runge-Kutta scheme in Butcher form. Row s of a
// holds the weights of the earlier stages used to build stage s.
type tableau struct {
	a [][]float64
	b []float64
	c []float64
}

var (
	eulerTableau = tableau{
		a: [][]float64{{}},
		b: []float64{1},
		c: []float64{0},
	}

	classicRK4 = tableau{
		a: [][]float64{
			{},
			{0.5},
			{0, 0.5},
			{0, 0, 1},
		},
		b: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		c: []float64{0, 0.5, 0.5, 1},
	}
)

// explicitRK steps any explicit tableau. Stage derivatives and the stage
// state are kept between calls and only reallocated when the dimension
// changes; the returned state is always fresh.
type explicitRK struct {
	tab   tableau
	k     []dynamo.State
	stage dynamo.State
}

func newExplicitRK(tab tableau) explicitRK {
	return explicitRK{tab: tab, k: make([]dynamo.State, len(tab.b))}
}

func (r *explicitRK) ensureScratch(n int) {
	if len(r.stage) == n {
		return
	}
	for s := range r.k {
		r.k[s] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

// Stages is the number of derivative evaluations per step.
func (r *explicitRK) Stages() int { return len(r.tab.b) }

func (r *explicitRK) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	for s, row := range r.tab.a {
		in := x
		if len(row) > 0 {
			copy(r.stage, x)
			for j, a := range row {
				if a == 0 {
					continue
				}
				for i := 0; i < n; i++ {
					r.stage[i] += dt * a * r.k[j][i]
				}
			}
			in = r.stage
		}
		copy(r.k[s], dyn.Derive(in, u, t+r.tab.c[s]*dt))
	}

	out := x.Clone()
	for s, b := range r.tab.b {
		for i := 0; i < n; i++ {
			out[i] += dt * b * r.k[s][i]
		}
	}
	return out
}

// Euler is the forward Euler method, first order.
type Euler struct{ explicitRK }

func NewEuler() *Euler {
	return &Euler{newExplicitRK(eulerTableau)}
}

// RK4 is the classic fourth order Runge-Kutta method.
type RK4 struct{ explicitRK }

func NewRK4() *RK4 {
	return &RK4{newExplicitRK(classicRK4)}
}
