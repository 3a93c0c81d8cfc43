package integrators

import (
	"math"

	"github.com/san-kum/reach/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// AdaptiveIntegrator can estimate its own local error and propose the next
// step size.
type AdaptiveIntegrator interface {
	dynamo.Integrator
	StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error)
}

// RK45 is Dormand-Prince with embedded error estimation. Used through
// Advance it covers a fixed simulator tick with as many internal steps as
// the tolerance requires.
type RK45 struct {
	Tolerance float64
	MinDt     float64

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		Tolerance: 1e-8,
		MinDt:     1e-7,
		safety:    0.9,
		minScale:  0.2,
		maxScale:  10.0,
	}
}

func (r *RK45) Name() string { return "rk45" }

// Step advances exactly dt, subdividing internally when the error estimate
// exceeds the tolerance.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	out, _ := Advance(r, dyn, x, u, t, dt, r.Tolerance, r.MinDt)
	return out
}

func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	n := len(x)

	k1 := dyn.Derive(x, u, t)

	stage := func(coef func(i int) float64) dynamo.State {
		s := make(dynamo.State, n)
		for i := 0; i < n; i++ {
			s[i] = x[i] + dt*coef(i)
		}
		return s
	}

	k2 := dyn.Derive(stage(func(i int) float64 { return b21 * k1[i] }), u, t+a2*dt)
	k3 := dyn.Derive(stage(func(i int) float64 { return b31*k1[i] + b32*k2[i] }), u, t+a3*dt)
	k4 := dyn.Derive(stage(func(i int) float64 { return b41*k1[i] + b42*k2[i] + b43*k3[i] }), u, t+a4*dt)
	k5 := dyn.Derive(stage(func(i int) float64 { return b51*k1[i] + b52*k2[i] + b53*k3[i] + b54*k4[i] }), u, t+a5*dt)
	k6 := dyn.Derive(stage(func(i int) float64 { return b61*k1[i] + b62*k2[i] + b63*k3[i] + b64*k4[i] + b65*k5[i] }), u, t+dt)

	xNew := stage(func(i int) float64 { return c1*k1[i] + c3*k3[i] + c4*k4[i] + c5*k5[i] + c6*k6[i] })
	if !xNew.IsValid() {
		return xNew, dt, dynamo.ErrInvalidState
	}

	k7 := dyn.Derive(xNew, u, t+dt)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	errRatio := errMax / tol

	var dtNew float64
	switch {
	case errRatio > 1:
		dtNew = dt * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		dtNew = dt * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		dtNew = dt * r.maxScale
	}

	return xNew, dtNew, nil
}

// Advance integrates from t to t+dt with an adaptive integrator, rejecting
// steps whose proposed size shrank and never overshooting t+dt. It returns
// the number of accepted internal steps.
func Advance(a AdaptiveIntegrator, dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol, minDt float64) (dynamo.State, int) {
	end := t + dt
	h := dt
	steps := 0
	for t < end {
		if t+h > end {
			h = end - t
		}
		next, proposed, err := a.StepAdaptive(dyn, x, u, t, h, tol)
		if err == nil && (proposed >= h || h <= minDt) {
			x = next
			t += h
			steps++
			h = proposed
			continue
		}
		if h <= minDt {
			// accept rather than stall
			x = next
			t += h
			steps++
			continue
		}
		h = math.Max(proposed, minDt)
		if err != nil {
			h = math.Max(h/2, minDt)
		}
	}
	return x, steps
}
