package control

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// OSC is an operational-space controller for the end-effector position:
//
//	Mx = (J M^-1 J^T)^+
//	u  = J^T Mx (kp (x* - x) + kv (v* - J dq)) + G(q)
//
// The task-space inertia is a pseudo-inverse because a one-link arm only
// spans one Cartesian direction.
type OSC struct {
	Model        arm.Model
	Kp           float64
	Kv           float64
	Frame        string
	SVDThreshold float64
}

// NewOSC returns an OSC on the end-effector frame. A zero kv selects
// sqrt(kp).
func NewOSC(model arm.Model, kp, kv float64) *OSC {
	if kv == 0 {
		kv = math.Sqrt(kp)
	}
	return &OSC{
		Model:        model,
		Kp:           kp,
		Kv:           kv,
		Frame:        arm.FrameEE,
		SVDThreshold: 0.005,
	}
}

func (o *OSC) Control(q, dq dynamo.State, targetPos, targetVel r3.Vector) (dynamo.Control, error) {
	n := o.Model.N()
	if err := checkFeedback(n, q, dq); err != nil {
		return nil, err
	}

	xyz, err := o.Model.Tx(o.Frame, q)
	if err != nil {
		return nil, err
	}
	J, err := o.Model.J(o.Frame, q)
	if err != nil {
		return nil, err
	}
	M, err := o.Model.M(q)
	if err != nil {
		return nil, err
	}
	g, err := o.Model.G(q)
	if err != nil {
		return nil, err
	}

	var mInv mat.Dense
	if err := mInv.Inverse(M); err != nil {
		return nil, fmt.Errorf("invert joint inertia: %w", err)
	}

	var jm, mxInv mat.Dense
	jm.Mul(J, &mInv)
	mxInv.Mul(&jm, J.T())

	mx, err := pinv(&mxInv, o.SVDThreshold)
	if err != nil {
		return nil, err
	}

	var dx mat.VecDense
	dx.MulVec(J, mat.NewVecDense(n, dq.Clone()))

	errPos := vec(targetPos.Sub(xyz))
	errVel := vec(targetVel)
	errVel.SubVec(errVel, &dx)

	task := mat.NewVecDense(3, nil)
	task.AddScaledVec(task, o.Kp, errPos)
	task.AddScaledVec(task, o.Kv, errVel)

	var force, torque mat.VecDense
	force.MulVec(mx, task)
	torque.MulVec(J.T(), &force)

	u := make(dynamo.Control, n)
	for i := range u {
		u[i] = torque.AtVec(i) + g[i]
	}
	return u, nil
}

// pinv is the SVD pseudo-inverse with small singular values dropped.
func pinv(a mat.Matrix, threshold float64) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, ErrSingular
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)

	inv := make([]float64, len(vals))
	kept := 0
	for i, s := range vals {
		if s > threshold {
			inv[i] = 1 / s
			kept++
		}
	}
	if kept == 0 {
		return nil, ErrSingular
	}

	var vs, out mat.Dense
	vs.Mul(&v, mat.NewDiagDense(len(inv), inv))
	out.Mul(&vs, u.T())
	return &out, nil
}

func (o *OSC) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": o.Kp,
		"Kv": o.Kv,
	}
}

func (o *OSC) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		o.Kp = value
	case "Kv":
		o.Kv = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
