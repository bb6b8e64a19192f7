package analysis

import (
	"math"

	"github.com/san-kum/linksim/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent using the
// trajectory separation method. A positive value indicates chaos.
//
// Algorithm:
// 1. Run two nearby trajectories
// 2. After every step measure their separation and accumulate ln(d/d0)
// 3. Pull the perturbed trajectory back to distance d0 along the same direction
// 4. λ ≈ Σ ln(d/d0) / t
func LyapunovExponent(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	perturbation float64,
) float64 {
	if len(x0) == 0 || dt <= 0 || duration <= 0 || perturbation <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	for i := range xp {
		xp[i] += perturbation / math.Sqrt(float64(len(xp)))
	}
	d0 := xp.Sub(x).Norm()

	t := 0.0
	sumLog := 0.0

	for t < duration {
		x = integ.Step(dyn, x, nil, t, dt)
		xp = integ.Step(dyn, xp, nil, t, dt)
		t += dt

		if !x.IsValid() || !xp.IsValid() {
			return math.NaN()
		}

		sep := xp.Sub(x).Norm()
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)

		scale := d0 / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	return sumLog / t
}
