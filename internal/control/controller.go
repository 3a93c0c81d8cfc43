package control

import (
	"errors"

	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrDimensionMismatch = errors.New("control: feedback length does not match the arm")
	ErrSingular          = errors.New("control: task-space inertia is singular")
)

type Controller interface {
	Control(q, dq dynamo.State, targetPos, targetVel r3.Vector) (dynamo.Control, error)
}

func checkFeedback(n int, q, dq dynamo.State) error {
	if len(q) != n || len(dq) != n {
		return ErrDimensionMismatch
	}
	return nil
}

func vec(v r3.Vector) *mat.VecDense {
	return mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
}
