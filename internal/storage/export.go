package storage

import (
	"encoding/json"
	"io"
)

type ExportPoint struct {
	Iteration   int        `json:"iteration"`
	EE          [3]float64 `json:"ee"`
	Target      [3]float64 `json:"target"`
	Distance    float64    `json:"distance"`
	TargetIndex int        `json:"target_index"`
}

type ExportData struct {
	Run        RunMetadata   `json:"run"`
	Steps      int           `json:"steps"`
	Trajectory []ExportPoint `json:"trajectory"`
}

// ExportJSON writes the run metadata and trajectory as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, traj Trajectory) error {
	data := ExportData{
		Run:        meta,
		Steps:      len(traj),
		Trajectory: make([]ExportPoint, len(traj)),
	}
	data.Run.Metrics = finite(meta.Metrics)

	for i, r := range traj {
		data.Trajectory[i] = ExportPoint{
			Iteration:   r.Iteration,
			EE:          [3]float64{r.EE.X, r.EE.Y, r.EE.Z},
			Target:      [3]float64{r.Target.X, r.Target.Y, r.Target.Z},
			Distance:    r.Distance,
			TargetIndex: r.TargetIndex,
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
