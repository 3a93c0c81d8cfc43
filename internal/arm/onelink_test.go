package arm

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/dynamo"
)

func TestOneLinkTx(t *testing.T) {
	l := NewOneLink()

	tests := []struct {
		name  string
		frame string
		q     float64
		want  r3.Vector
	}{
		{"upright", FrameEE, 0, r3.Vector{X: 0, Y: 0, Z: 0.47}},
		{"horizontal", FrameEE, math.Pi / 2, r3.Vector{X: 0.37, Y: 0, Z: 0.1}},
		{"hanging", FrameEE, math.Pi, r3.Vector{X: 0, Y: 0, Z: -0.27}},
		{"com", FrameLink, math.Pi / 2, r3.Vector{X: 0.185, Y: 0, Z: 0.1}},
		{"joint", FrameJoint, 1.0, r3.Vector{X: 0, Y: 0, Z: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Tx(tt.frame, dynamo.State{tt.q})
			if err != nil {
				t.Fatalf("Tx failed: %v", err)
			}
			if got.Distance(tt.want) > 1e-12 {
				t.Errorf("Tx(%s, %f) = %v, want %v", tt.frame, tt.q, got, tt.want)
			}
		})
	}
}

func TestOneLinkTxErrors(t *testing.T) {
	l := NewOneLink()

	if _, err := l.Tx("wrist", dynamo.State{0}); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("expected ErrUnknownFrame, got %v", err)
	}
	if _, err := l.Tx(FrameEE, dynamo.State{0, 1}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestOneLinkEERadius(t *testing.T) {
	l := NewOneLink()
	for q := -math.Pi; q < math.Pi; q += 0.1 {
		ee, err := l.Tx(FrameEE, dynamo.State{q})
		if err != nil {
			t.Fatal(err)
		}
		if r := ee.Distance(l.Base); math.Abs(r-0.37) > 1e-12 {
			t.Fatalf("q=%f: end-effector %f from base", q, r)
		}
	}
}

func TestOneLinkJacobianMatchesFiniteDifference(t *testing.T) {
	l := NewOneLink()
	q := 0.7
	h := 1e-6

	J, err := l.J(FrameEE, dynamo.State{q})
	if err != nil {
		t.Fatal(err)
	}
	plus, _ := l.Tx(FrameEE, dynamo.State{q + h})
	minus, _ := l.Tx(FrameEE, dynamo.State{q - h})
	fd := plus.Sub(minus).Mul(1 / (2 * h))

	got := r3.Vector{X: J.At(0, 0), Y: J.At(1, 0), Z: J.At(2, 0)}
	if got.Distance(fd) > 1e-8 {
		t.Errorf("J = %v, finite difference %v", got, fd)
	}
}

func TestOneLinkEquilibrium(t *testing.T) {
	l := NewOneLink()

	for _, q := range []float64{0, math.Pi} {
		dx := l.Derive(dynamo.State{q, 0}, dynamo.Control{0}, 0)
		if math.Abs(dx[0]) > 1e-10 || math.Abs(dx[1]) > 1e-10 {
			t.Errorf("q=%f: expected equilibrium, got %v", q, dx)
		}
	}
}

func TestOneLinkGravityCompensation(t *testing.T) {
	l := NewOneLink()
	q := dynamo.State{0.9}

	g, err := l.G(q)
	if err != nil {
		t.Fatal(err)
	}
	dx := l.Derive(dynamo.State{q[0], 0}, dynamo.Control{g[0]}, 0)
	if math.Abs(dx[1]) > 1e-10 {
		t.Errorf("adding G should hold the link still, got ddq=%f", dx[1])
	}

	// without compensation the link falls away from upright
	dx = l.Derive(dynamo.State{q[0], 0}, dynamo.Control{0}, 0)
	if dx[1] <= 0 {
		t.Errorf("expected positive acceleration, got %f", dx[1])
	}
}

func TestOneLinkInverseEE(t *testing.T) {
	l := NewOneLink()

	for _, q := range []float64{-2.5, -0.3, 0, 0.8, 3.0} {
		ee, _ := l.Tx(FrameEE, dynamo.State{q})
		got, err := l.InverseEE(ee)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got[0]-q) > 1e-12 {
			t.Errorf("InverseEE(Tx(%f)) = %f", q, got[0])
		}
	}

	if _, err := l.InverseEE(l.Base); !errors.Is(err, ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestOneLinkParams(t *testing.T) {
	l := NewOneLink()

	if err := l.SetParam("damping", 0.5); err != nil {
		t.Fatal(err)
	}
	if l.GetParams()["damping"] != 0.5 {
		t.Error("SetParam did not update damping")
	}
	if err := l.SetParam("stiffness", 1); err == nil {
		t.Error("expected error for unknown param")
	}
}
