package reach_test

import (
	"context"
	"errors"

	"github.com/golang/geo/r3"

	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/simulator"
)

// fakeSim records lifecycle calls. The kinematics fake reads its marker to
// place the end-effector on or off the current target.
type fakeSim struct {
	connects    int
	disconnects int
	feedbacks   int
	forces      []dynamo.Control
	marker      r3.Vector
	markerSets  int

	connectErr  error
	feedbackErr error
	forceErr    error
}

func (f *fakeSim) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connects++
	return nil
}

func (f *fakeSim) Disconnect() error {
	f.disconnects++
	return nil
}

func (f *fakeSim) GetFeedback(ctx context.Context) (simulator.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return simulator.Feedback{}, err
	}
	if f.feedbackErr != nil {
		return simulator.Feedback{}, f.feedbackErr
	}
	f.feedbacks++
	return simulator.Feedback{
		Q:    dynamo.State{0},
		DQ:   dynamo.State{0},
		Time: float64(f.feedbacks) * 0.001,
	}, nil
}

func (f *fakeSim) SendForces(ctx context.Context, u dynamo.Control) error {
	if f.forceErr != nil {
		return f.forceErr
	}
	f.forces = append(f.forces, u)
	return nil
}

func (f *fakeSim) SetXYZ(name string, xyz r3.Vector) error {
	if name != "target" {
		return simulator.ErrUnknownMarker
	}
	f.marker = xyz
	f.markerSets++
	return nil
}

// fakeKin puts the end-effector on the marker unless far returns true for
// the current feedback count.
type fakeKin struct {
	sim *fakeSim
	far func(n int) bool
	err error
}

func (k *fakeKin) Tx(name string, q dynamo.State) (r3.Vector, error) {
	if k.err != nil {
		return r3.Vector{}, k.err
	}
	if k.far != nil && k.far(k.sim.feedbacks) {
		return k.sim.marker.Add(r3.Vector{X: 1}), nil
	}
	return k.sim.marker, nil
}

type fakeCtrl struct {
	calls int
	err   error
}

func (c *fakeCtrl) Control(q, dq dynamo.State, targetPos, targetVel r3.Vector) (dynamo.Control, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return dynamo.Control{0.5}, nil
}

var errBoom = errors.New("boom")
