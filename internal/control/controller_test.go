package control

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/integrators"
)

func eeAt(t *testing.T, l *arm.OneLink, q float64) r3.Vector {
	t.Helper()
	ee, err := l.Tx(arm.FrameEE, dynamo.State{q})
	if err != nil {
		t.Fatal(err)
	}
	return ee
}

func TestOSCAtTargetCancelsGravityOnly(t *testing.T) {
	l := arm.NewOneLink()
	ctrl := NewOSC(l, 600, 0)
	q := dynamo.State{0.6}

	u, err := ctrl.Control(q, dynamo.State{0}, eeAt(t, l, 0.6), r3.Vector{})
	if err != nil {
		t.Fatal(err)
	}
	g, _ := l.G(q)
	if math.Abs(u[0]-g[0]) > 1e-9 {
		t.Errorf("expected u=G=%f at the target, got %f", g[0], u[0])
	}
}

func TestOSCPushesTowardTarget(t *testing.T) {
	l := arm.NewOneLink()
	ctrl := NewOSC(l, 600, 0)
	q := dynamo.State{0}
	g, _ := l.G(q)

	u, err := ctrl.Control(q, dynamo.State{0}, eeAt(t, l, 0.5), r3.Vector{})
	if err != nil {
		t.Fatal(err)
	}
	if u[0]-g[0] <= 0 {
		t.Errorf("expected positive torque toward q=0.5, got %f", u[0]-g[0])
	}

	u, _ = ctrl.Control(q, dynamo.State{0}, eeAt(t, l, -0.5), r3.Vector{})
	if u[0]-g[0] >= 0 {
		t.Errorf("expected negative torque toward q=-0.5, got %f", u[0]-g[0])
	}
}

func TestOSCDampsVelocity(t *testing.T) {
	l := arm.NewOneLink()
	ctrl := NewOSC(l, 600, 0)
	q := dynamo.State{0.3}
	g, _ := l.G(q)

	u, err := ctrl.Control(q, dynamo.State{2.0}, eeAt(t, l, 0.3), r3.Vector{})
	if err != nil {
		t.Fatal(err)
	}
	// task-space damping maps back to -kv * M * dq for a single joint
	want := -ctrl.Kv*l.JointInertia()*2.0 + g[0]
	if math.Abs(u[0]-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, u[0])
	}
}

func TestOSCDefaultGains(t *testing.T) {
	ctrl := NewOSC(arm.NewOneLink(), 400, 0)
	if ctrl.Kv != 20 {
		t.Errorf("expected kv=sqrt(kp)=20, got %f", ctrl.Kv)
	}
	if err := ctrl.SetParam("Kp", 100); err != nil || ctrl.GetParams()["Kp"] != 100 {
		t.Errorf("SetParam failed: %v", err)
	}
	if err := ctrl.SetParam("Ki", 1); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestControllersRejectBadFeedback(t *testing.T) {
	l := arm.NewOneLink()
	ctrls := map[string]Controller{
		"osc":      NewOSC(l, 600, 0),
		"floating": NewFloating(l),
		"joint":    NewJoint(l, l, 100, 0, 0, 0.001),
	}

	for name, c := range ctrls {
		t.Run(name, func(t *testing.T) {
			_, err := c.Control(dynamo.State{0, 0}, dynamo.State{0}, r3.Vector{X: 0.3}, r3.Vector{})
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestFloatingHoldsPosition(t *testing.T) {
	l := arm.NewOneLink()
	l.Damping = 0
	ctrl := NewFloating(l)

	u, err := ctrl.Control(dynamo.State{1.1}, dynamo.State{0}, r3.Vector{}, r3.Vector{})
	if err != nil {
		t.Fatal(err)
	}
	dx := l.Derive(dynamo.State{1.1, 0}, u, 0)
	if math.Abs(dx[1]) > 1e-10 {
		t.Errorf("floating arm should not accelerate, got %f", dx[1])
	}
}

func TestClosedLoopConvergence(t *testing.T) {
	dt := 0.001
	tests := []struct {
		name string
		ctrl func(l *arm.OneLink) Controller
	}{
		{"osc", func(l *arm.OneLink) Controller { return NewOSC(l, 600, 0) }},
		{"joint", func(l *arm.OneLink) Controller { return NewJoint(l, l, 400, 0, 0, dt) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := arm.NewOneLink()
			ctrl := tt.ctrl(l)
			integ := integrators.NewRK4()
			target := eeAt(t, l, -0.8)

			x := dynamo.State{0, 0}
			for i := 0; i < 3000; i++ {
				u, err := ctrl.Control(x[:1], x[1:], target, r3.Vector{})
				if err != nil {
					t.Fatal(err)
				}
				x = integ.Step(l, x, u, float64(i)*dt, dt)
			}

			ee := eeAt(t, l, x[0])
			if d := ee.Distance(target); d > 0.001 {
				t.Errorf("expected convergence, distance %f", d)
			}
		})
	}
}
