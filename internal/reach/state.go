package reach

import "github.com/golang/geo/r3"

// LoopState is everything the loop mutates. It is created by Driver.Start
// and owned by a single goroutine.
type LoopState struct {
	Targets       []r3.Vector // raw, before normalization
	TargetIndex   int
	Target        r3.Vector // normalized current target
	AtTargetCount int
	Count         int
	Time          float64
	Done          bool

	EETrack       []r3.Vector
	TargetTrack   []r3.Vector
	Distances     []float64
	TargetIndices []int

	// Arrivals holds the iteration at which each target was completed.
	Arrivals []int
}

func newLoopState(targets []r3.Vector) *LoopState {
	return &LoopState{
		Targets:       append([]r3.Vector(nil), targets...),
		EETrack:       make([]r3.Vector, 0, 1024),
		TargetTrack:   make([]r3.Vector, 0, 1024),
		Distances:     make([]float64, 0, 1024),
		TargetIndices: make([]int, 0, 1024),
	}
}

func (st *LoopState) record(ee r3.Vector, dist float64) {
	st.EETrack = append(st.EETrack, ee)
	st.TargetTrack = append(st.TargetTrack, st.Target)
	st.Distances = append(st.Distances, dist)
	st.TargetIndices = append(st.TargetIndices, st.TargetIndex)
}

// Len is the number of recorded iterations.
func (st *LoopState) Len() int { return len(st.EETrack) }
