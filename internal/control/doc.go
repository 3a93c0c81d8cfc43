// Package control provides joint-force controllers for the arm.
//
// Controllers implement [Controller] and compute joint forces from joint
// feedback and a Cartesian target:
//
//   - [OSC]: operational-space control in task (Cartesian) space
//   - [Joint]: PID in joint space toward the inverse-kinematics solution
//   - [Floating]: gravity compensation only; the arm floats where it is pushed
//
// # Usage
//
//	ctrl := control.NewOSC(link, 600, 0)
//	u, err := ctrl.Control(q, dq, target, r3.Vector{})
//
// Controllers implementing [dynamo.Configurable] support live tuning.
package control
