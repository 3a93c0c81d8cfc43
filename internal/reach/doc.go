// Package reach drives an arm through a list of Cartesian targets.
//
// Each iteration polls joint feedback, asks the controller for joint
// forces, sends them, and checks whether the end-effector has dwelt near
// the current target long enough to move on. All loop state lives in a
// [LoopState] passed through [Driver.Step]; [Driver.Run] owns the
// simulator connection and releases it on every exit path.
//
//	d := reach.NewDriver(sim, link, ctrl, reach.DefaultConfig(), logger)
//	st, err := d.Run(ctx, reach.DefaultTargets())
//	// st.EETrack and st.TargetTrack hold the recorded trajectories
package reach
