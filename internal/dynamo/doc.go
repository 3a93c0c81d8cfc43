// Package dynamo provides the core primitives shared by the arm model,
// the controllers, the simulator and the reach driver.
//
// The package defines:
//
//   - [State]: vector of joint positions or velocities, or a full ODE state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Sample]: one iteration of the reach loop, as seen by metrics and observers
//   - [Metric] and [Observer]: per-step consumers of samples
//
// # Example
//
//	dyn := arm.NewOneLink()
//	integ := integrators.NewRK4()
//	x = integ.Step(dyn, x, u, t, dt)
//
// # Thread Safety
//
// None of the types here are safe for concurrent mutation. [Sample] values
// own their slices and may be handed to another goroutine.
package dynamo
