package control

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/dynamo"
)

// InverseKinematics maps a Cartesian target to joint angles.
type InverseKinematics interface {
	InverseEE(xyz r3.Vector) (dynamo.State, error)
}

// Joint is a PID in joint space. The Cartesian target is converted with
// inverse kinematics on every call, and the output is scaled by the joint
// inertia so gains are independent of the link mass.
type Joint struct {
	Model arm.Model
	IK    InverseKinematics
	Kp    float64
	Ki    float64
	Kd    float64
	Dt    float64

	integral dynamo.State
	lastGoal dynamo.State
}

// NewJoint returns a joint-space PID. A zero kd selects 2*sqrt(kp), the
// critically damped gain.
func NewJoint(model arm.Model, ik InverseKinematics, kp, ki, kd, dt float64) *Joint {
	if kd == 0 {
		kd = 2 * math.Sqrt(kp)
	}
	return &Joint{
		Model: model,
		IK:    ik,
		Kp:    kp,
		Ki:    ki,
		Kd:    kd,
		Dt:    dt,
	}
}

func (j *Joint) Control(q, dq dynamo.State, targetPos, targetVel r3.Vector) (dynamo.Control, error) {
	n := j.Model.N()
	if err := checkFeedback(n, q, dq); err != nil {
		return nil, err
	}

	goal, err := j.IK.InverseEE(targetPos)
	if err != nil {
		return nil, err
	}
	if len(goal) != n {
		return nil, ErrDimensionMismatch
	}

	// the integral is meaningless across a target change
	if !goalEqual(goal, j.lastGoal) {
		j.Reset()
		j.lastGoal = goal.Clone()
	}
	if j.integral == nil {
		j.integral = make(dynamo.State, n)
	}

	M, err := j.Model.M(q)
	if err != nil {
		return nil, err
	}
	g, err := j.Model.G(q)
	if err != nil {
		return nil, err
	}

	u := make(dynamo.Control, n)
	for i := 0; i < n; i++ {
		e := wrapAngle(goal[i] - q[i])
		j.integral[i] += e * j.Dt
		accel := j.Kp*e + j.Ki*j.integral[i] - j.Kd*dq[i]
		u[i] = M.At(i, i)*accel + g[i]
	}
	return u, nil
}

// Reset clears the integral term.
func (j *Joint) Reset() {
	j.integral = nil
	j.lastGoal = nil
}

func (j *Joint) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": j.Kp,
		"Ki": j.Ki,
		"Kd": j.Kd,
	}
}

func (j *Joint) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		j.Kp = value
	case "Ki":
		j.Ki = value
	case "Kd":
		j.Kd = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func goalEqual(a, b dynamo.State) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// wrapAngle maps an angle difference into [-pi, pi].
func wrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
