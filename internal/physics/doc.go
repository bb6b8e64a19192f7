// Package physics provides the mass-spring-pendulum model.
//
// [SpringPendulum] implements [dynamo.System], [dynamo.Hamiltonian] and
// [dynamo.Configurable]. Its springs are unilateral: the effective length of
// each spring is floored at its natural length, so a spring only pulls once
// stretched.
//
// # Energy Conservation
//
// With zero damping the energy is conserved along exact trajectories and
// can be used to judge the integrator:
//
//	dyn := physics.NewSpringPendulum()
//	e0 := dyn.Energy(x0)
package physics
