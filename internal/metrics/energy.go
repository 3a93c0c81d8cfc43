package metrics

import (
	"math"

	"github.com/san-kum/reach/internal/dynamo"
)

// Energy is the peak mechanical energy of the arm over the run. Systems
// that do not report energy leave it at zero.
type Energy struct {
	name    string
	dyn     dynamo.Hamiltonian
	peak    float64
	samples int
}

func NewEnergy(dyn dynamo.System) *Energy {
	e := &Energy{name: "peak_energy"}
	if h, ok := dyn.(dynamo.Hamiltonian); ok {
		e.dyn = h
	}
	return e
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.Sample) {
	if e.dyn == nil || len(s.Q) == 0 {
		return
	}
	x := append(s.Q.Clone(), s.DQ...)
	energy := e.dyn.Energy(x)
	if e.samples == 0 {
		e.peak = energy
	}
	e.peak = math.Max(e.peak, energy)
	e.samples++
}

func (e *Energy) Value() float64 {
	return e.peak
}

func (e *Energy) Reset() {
	e.peak = 0
	e.samples = 0
}
