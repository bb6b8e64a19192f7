// Package dynamo provides core simulation primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Simulator]: orchestrates simulation runs
//
// # Example
//
//	dyn := physics.NewSpringPendulum()
//	integ := integrators.NewRK45()
//	sim := dynamo.New(dyn, integ)
//	result, _ := sim.Run(ctx, x0, cfg)
//
// # Sampling
//
// With [Config.Adaptive] set, the simulator lands exactly on [Config.Samples]
// evenly spaced output times between 0 and [Config.Duration] and records the
// state only there. Fixed-step runs record every step.
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. For parallel simulations,
// use [RunAll] with one simulator per job.
package dynamo
