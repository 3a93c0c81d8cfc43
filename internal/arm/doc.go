// Package arm provides the robot configuration for a single revolute link.
//
// The joint sits at [Base] and rotates about the world y axis; q = 0
// points the link straight up. [OneLink] is both the configuration
// provider used by controllers (forward kinematics, Jacobian, inertia,
// gravity) and the [dynamo.System] integrated by the simulator.
//
//	link := arm.NewOneLink()
//	ee, _ := link.Tx("EE", dynamo.State{q})
package arm
