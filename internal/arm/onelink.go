package arm

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Frame names understood by Tx and J.
const (
	FrameJoint = "joint0"
	FrameLink  = "link0"
	FrameEE    = "EE"
)

var (
	ErrUnknownFrame      = errors.New("arm: unknown frame")
	ErrDimensionMismatch = errors.New("arm: joint vector has wrong length")
	ErrUnreachable       = errors.New("arm: position has no defined joint angle")
)

// Kinematics is the forward kinematics the reach driver needs.
type Kinematics interface {
	Tx(name string, q dynamo.State) (r3.Vector, error)
}

// Model is the full configuration used by controllers.
type Model interface {
	Kinematics
	N() int
	J(name string, q dynamo.State) (*mat.Dense, error)
	M(q dynamo.State) (*mat.Dense, error)
	G(q dynamo.State) (dynamo.State, error)
}

type OneLink struct {
	Length  float64 // joint axis to end-effector
	COM     float64 // joint axis to centre of mass
	Mass    float64
	Inertia float64 // about the centre of mass
	Damping float64
	Gravity float64
	Base    r3.Vector
}

func NewOneLink() *OneLink {
	const length = 0.37
	mass := 1.0
	return &OneLink{
		Length:  length,
		COM:     length / 2,
		Mass:    mass,
		Inertia: mass * length * length / 12,
		Damping: 0.01,
		Gravity: 9.81,
		Base:    r3.Vector{X: 0, Y: 0, Z: 0.1},
	}
}

func (l *OneLink) N() int { return 1 }

func (l *OneLink) StateDim() int   { return 2 }
func (l *OneLink) ControlDim() int { return 1 }

func (l *OneLink) radius(name string) (float64, error) {
	switch name {
	case FrameJoint:
		return 0, nil
	case FrameLink:
		return l.COM, nil
	case FrameEE:
		return l.Length, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFrame, name)
}

func (l *OneLink) check(q dynamo.State) error {
	if len(q) != l.N() {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(q), l.N())
	}
	return nil
}

// Tx returns the world position of the named frame.
func (l *OneLink) Tx(name string, q dynamo.State) (r3.Vector, error) {
	if err := l.check(q); err != nil {
		return r3.Vector{}, err
	}
	r, err := l.radius(name)
	if err != nil {
		return r3.Vector{}, err
	}
	s, c := math.Sincos(q[0])
	return l.Base.Add(r3.Vector{X: s, Y: 0, Z: c}.Mul(r)), nil
}

// J returns the 3xN position Jacobian of the named frame.
func (l *OneLink) J(name string, q dynamo.State) (*mat.Dense, error) {
	if err := l.check(q); err != nil {
		return nil, err
	}
	r, err := l.radius(name)
	if err != nil {
		return nil, err
	}
	s, c := math.Sincos(q[0])
	return mat.NewDense(3, 1, []float64{r * c, 0, -r * s}), nil
}

// JointInertia is the link inertia about the joint axis.
func (l *OneLink) JointInertia() float64 {
	return l.Inertia + l.Mass*l.COM*l.COM
}

// M returns the NxN joint-space inertia matrix.
func (l *OneLink) M(q dynamo.State) (*mat.Dense, error) {
	if err := l.check(q); err != nil {
		return nil, err
	}
	return mat.NewDense(1, 1, []float64{l.JointInertia()}), nil
}

// G returns the generalized gravity force dV/dq. The equation of motion is
// M ddq = u - G(q) - b dq, so a controller cancels gravity by adding G.
func (l *OneLink) G(q dynamo.State) (dynamo.State, error) {
	if err := l.check(q); err != nil {
		return nil, err
	}
	return dynamo.State{-l.Mass * l.Gravity * l.COM * math.Sin(q[0])}, nil
}

// InverseEE returns the joint angle whose end-effector is closest to xyz.
func (l *OneLink) InverseEE(xyz r3.Vector) (dynamo.State, error) {
	d := xyz.Sub(l.Base)
	if d.X == 0 && d.Z == 0 {
		return nil, ErrUnreachable
	}
	return dynamo.State{math.Atan2(d.X, d.Z)}, nil
}

// Derive implements dynamo.System for x = [q, dq].
func (l *OneLink) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	q, dq := x[0], x[1]

	torque := 0.0
	if len(u) > 0 {
		torque = u[0]
	}
	grav := -l.Mass * l.Gravity * l.COM * math.Sin(q)
	ddq := (torque - grav - l.Damping*dq) / l.JointInertia()

	return dynamo.State{dq, ddq}
}

func (l *OneLink) Energy(x dynamo.State) float64 {
	ke := 0.5 * l.JointInertia() * x[1] * x[1]
	pe := l.Mass * l.Gravity * l.COM * math.Cos(x[0])
	return ke + pe
}

func (l *OneLink) GetParams() map[string]float64 {
	return map[string]float64{
		"length":  l.Length,
		"com":     l.COM,
		"mass":    l.Mass,
		"inertia": l.Inertia,
		"damping": l.Damping,
		"gravity": l.Gravity,
	}
}

func (l *OneLink) SetParam(name string, value float64) error {
	switch name {
	case "length":
		l.Length = value
	case "com":
		l.COM = value
	case "mass":
		l.Mass = value
	case "inertia":
		l.Inertia = value
	case "damping":
		l.Damping = value
	case "gravity":
		l.Gravity = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
