package metrics

import (
	"math"

	"github.com/san-kum/reach/internal/dynamo"
)

// TrackingError is the RMS end-effector distance to the active target.
type TrackingError struct {
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (m *TrackingError) Name() string { return "tracking_rms" }

func (m *TrackingError) Observe(s dynamo.Sample) {
	m.sumSq += s.Distance * s.Distance
	m.samples++
}

func (m *TrackingError) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return math.Sqrt(m.sumSq / float64(m.samples))
}

func (m *TrackingError) Reset() {
	m.sumSq = 0
	m.samples = 0
}

// Arrival measures, per target, how many iterations passed between the
// target becoming active and the end-effector first entering the
// threshold. Value is the mean over targets reached so far.
type Arrival struct {
	threshold float64

	current int
	start   int
	arrived bool
	seen    bool
	times   []int
}

func NewArrival(threshold float64) *Arrival {
	return &Arrival{threshold: threshold}
}

func (a *Arrival) Name() string { return "arrival_iterations" }

func (a *Arrival) Observe(s dynamo.Sample) {
	if !a.seen || s.TargetIndex != a.current {
		a.current = s.TargetIndex
		a.start = s.Iteration
		a.arrived = false
		a.seen = true
	}
	if !a.arrived && s.Distance < a.threshold {
		a.times = append(a.times, s.Iteration-a.start)
		a.arrived = true
	}
}

func (a *Arrival) Value() float64 {
	if len(a.times) == 0 {
		return math.NaN()
	}
	sum := 0
	for _, t := range a.times {
		sum += t
	}
	return float64(sum) / float64(len(a.times))
}

// Times returns the per-target arrival iterations in visiting order.
func (a *Arrival) Times() []int {
	return append([]int(nil), a.times...)
}

func (a *Arrival) Reset() {
	a.current, a.start = 0, 0
	a.arrived, a.seen = false, false
	a.times = nil
}

// Default is the metric set attached to every run.
func Default(dyn dynamo.System, threshold float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewTrackingError(),
		NewArrival(threshold),
		NewControlEffort(),
		NewEnergy(dyn),
		NewStability(10),
		NewOscillation(),
	}
}

// Values collects metric values by name.
func Values(ms []dynamo.Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
