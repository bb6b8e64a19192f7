package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/linksim/internal/dynamo"
)

// Indices into the SpringPendulum state vector.
const (
	Theta = iota
	ThetaDot
	Mu
	MuDot
)

// Non-dimensional defaults.
const (
	DefaultAlpha   = 2.0 // vertical spring, k1 L / mg
	DefaultBeta    = 9.0 // horizontal spring, k2 L / mg
	DefaultGamma   = 2.0 // mass ratio M/m
	DefaultLambda1 = 1.0
	DefaultLambda2 = 1.0
	DefaultDamping = 0.0

	// DefaultInertia is 1 + 1/3: point mass at the tip plus the bar itself.
	DefaultInertia = 4.0 / 3.0
)

// SpringPendulum is a bar of angle θ coupled to a suspended mass of vertical
// displacement μ through two unilateral springs. Each spring only pulls once
// its effective length exceeds its natural length (λ1 vertical, λ2
// horizontal).
//
// State: [θ, θ̇, μ, μ̇], time is the non-dimensional τ.
type SpringPendulum struct {
	Alpha   float64
	Beta    float64
	Gamma   float64
	Lambda1 float64
	Lambda2 float64
	Damping float64
	Inertia float64
}

func NewSpringPendulum() *SpringPendulum {
	return &SpringPendulum{
		Alpha:   DefaultAlpha,
		Beta:    DefaultBeta,
		Gamma:   DefaultGamma,
		Lambda1: DefaultLambda1,
		Lambda2: DefaultLambda2,
		Damping: DefaultDamping,
		Inertia: DefaultInertia,
	}
}

func (p *SpringPendulum) StateDim() int   { return 4 }
func (p *SpringPendulum) ControlDim() int { return 0 }

func (p *SpringPendulum) DefaultState() dynamo.State { return dynamo.State{0, 0, 0, 0} }

// Validate rejects parameter sets the equations cannot be evaluated with.
func (p *SpringPendulum) Validate() error {
	if p.Inertia <= 0 {
		return fmt.Errorf("inertia %g: %w", p.Inertia, dynamo.ErrParameterBounds)
	}
	if p.Gamma <= 0 {
		return fmt.Errorf("gamma %g: %w", p.Gamma, dynamo.ErrParameterBounds)
	}
	if p.Alpha < 0 || p.Beta < 0 || p.Damping < 0 {
		return fmt.Errorf("spring constants and damping must be non-negative: %w", dynamo.ErrParameterBounds)
	}
	return nil
}

// EffectiveLengths returns the spring lengths floored at their natural
// lengths.
func (p *SpringPendulum) EffectiveLengths(x dynamo.State) (vert, horiz float64) {
	sin, cos := math.Sincos(x[Theta])
	vert = math.Max(sin-x[Mu], p.Lambda1)
	horiz = math.Max(cos, p.Lambda2)
	return vert, horiz
}

// SpringForces returns the forces of both springs. Each is exactly zero
// while its effective length sits on the floor.
func (p *SpringPendulum) SpringForces(x dynamo.State) (vert, horiz float64) {
	lv, lh := p.EffectiveLengths(x)
	return p.Alpha * (lv - p.Lambda1), p.Beta * (lh - p.Lambda2)
}

func (p *SpringPendulum) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta, thetaDot, muDot := x[Theta], x[ThetaDot], x[MuDot]
	sin, cos := math.Sincos(theta)

	fVert, fHoriz := p.SpringForces(x)

	torque := -sin - fVert*cos - fHoriz*sin - p.Damping*thetaDot
	thetaDDot := torque / p.Inertia
	muDDot := p.Gamma*fVert - 1

	return dynamo.State{thetaDot, thetaDDot, muDot, muDDot}
}

// Energy is a first integral of Derive when Damping is zero and the
// horizontal spring stays slack (always the case for λ2 >= 1). The μ degree
// of freedom carries the factor 1/γ that μ̈ = γF − 1 implies.
func (p *SpringPendulum) Energy(x dynamo.State) float64 {
	lv, lh := p.EffectiveLengths(x)

	kinetic := 0.5*p.Inertia*x[ThetaDot]*x[ThetaDot] + 0.5*x[MuDot]*x[MuDot]/p.Gamma
	potential := -math.Cos(x[Theta]) +
		0.5*p.Alpha*(lv-p.Lambda1)*(lv-p.Lambda1) +
		0.5*p.Beta*(lh-p.Lambda2)*(lh-p.Lambda2) +
		x[Mu]/p.Gamma

	return kinetic + potential
}

// MassHeight is the height of the suspended mass above the ground, sin θ − μ.
func (p *SpringPendulum) MassHeight(x dynamo.State) float64 {
	return math.Sin(x[Theta]) - x[Mu]
}

// HorizontalElongation is −(cos θ − λ2).
func (p *SpringPendulum) HorizontalElongation(x dynamo.State) float64 {
	return -(math.Cos(x[Theta]) - p.Lambda2)
}

func (p *SpringPendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"alpha":   p.Alpha,
		"beta":    p.Beta,
		"gamma":   p.Gamma,
		"lambda1": p.Lambda1,
		"lambda2": p.Lambda2,
		"damping": p.Damping,
		"inertia": p.Inertia,
	}
}

func (p *SpringPendulum) SetParam(name string, value float64) error {
	switch name {
	case "alpha":
		p.Alpha = value
	case "beta":
		p.Beta = value
	case "gamma":
		p.Gamma = value
	case "lambda1":
		p.Lambda1 = value
	case "lambda2":
		p.Lambda2 = value
	case "damping":
		p.Damping = value
	case "inertia":
		p.Inertia = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}
