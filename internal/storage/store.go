package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
)

var (
	ErrRunNotFound  = errors.New("storage: run not found")
	ErrAmbiguousRun = errors.New("storage: run id prefix is ambiguous")
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

// Run outcome recorded in RunMetadata.Status.
const (
	StatusCompleted   = "completed"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

type RunMetadata struct {
	ID          string             `json:"id"`
	Preset      string             `json:"preset,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Integrator  string             `json:"integrator"`
	Controller  string             `json:"controller"`
	Gains       map[string]float64 `json:"gains,omitempty"`
	Targets     [][3]float64       `json:"targets"`
	Offset      [3]float64         `json:"offset"`
	Radius      float64            `json:"radius"`
	Threshold   float64            `json:"threshold"`
	Dwell       int                `json:"dwell"`
	StrictDwell bool               `json:"strict_dwell"`
	Iterations  int                `json:"iterations"`
	Arrivals    []int              `json:"arrivals"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Row is one recorded loop iteration.
type Row struct {
	Iteration   int
	EE          r3.Vector
	Target      r3.Vector
	Distance    float64
	TargetIndex int
}

type Trajectory []Row

func (t Trajectory) EE() []r3.Vector {
	out := make([]r3.Vector, len(t))
	for i, r := range t {
		out[i] = r.EE
	}
	return out
}

func (t Trajectory) Targets() []r3.Vector {
	out := make([]r3.Vector, len(t))
	for i, r := range t {
		out[i] = r.Target
	}
	return out
}

func (t Trajectory) Distances() []float64 {
	out := make([]float64, len(t))
	for i, r := range t {
		out[i] = r.Distance
	}
	return out
}

// NewTrajectory zips recorded histories into rows. The slices must have
// equal length; indices may be nil.
func NewTrajectory(ee, target []r3.Vector, dist []float64, indices []int) (Trajectory, error) {
	if len(target) != len(ee) || len(dist) != len(ee) || (indices != nil && len(indices) != len(ee)) {
		return nil, fmt.Errorf("storage: history lengths differ: ee=%d target=%d distance=%d index=%d",
			len(ee), len(target), len(dist), len(indices))
	}
	rows := make(Trajectory, len(ee))
	for i := range ee {
		rows[i] = Row{Iteration: i, EE: ee[i], Target: target[i], Distance: dist[i]}
		if indices != nil {
			rows[i].TargetIndex = indices[i]
		}
	}
	return rows, nil
}

// Save writes meta and traj under a fresh run id and returns it.
func (s *Store) Save(meta RunMetadata, traj Trajectory) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Metrics = finite(meta.Metrics)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, trajectoryFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, traj); err != nil {
		return "", err
	}
	return meta.ID, nil
}

var csvHeader = []string{"iteration", "ee_x", "ee_y", "ee_z", "target_x", "target_y", "target_z", "distance", "target_index"}

func WriteCSV(w io.Writer, traj Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range traj {
		row := []string{
			strconv.Itoa(r.Iteration),
			ff(r.EE.X), ff(r.EE.Y), ff(r.EE.Z),
			ff(r.Target.X), ff(r.Target.Y), ff(r.Target.Z),
			ff(r.Distance),
			strconv.Itoa(r.TargetIndex),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// List returns stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.readMeta(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

// Resolve expands a unique run id prefix to the full id.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, prefix, metadataFile)); err == nil {
		return prefix, nil
	}

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
		}
		return "", err
	}
	var match string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
		}
		match = entry.Name()
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	}
	return match, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	return s.readMeta(id)
}

func (s *Store) readMeta(id string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, id, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", id, err)
	}
	return &meta, nil
}

func (s *Store) LoadTrajectory(runID string) (Trajectory, error) {
	id, err := s.Resolve(runID)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, id, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

func ReadCSV(rd io.Reader) (Trajectory, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return Trajectory{}, nil
	}

	traj := make(Trajectory, 0, len(records)-1)
	for line, rec := range records[1:] {
		var vals [7]float64
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: line %d: %w", line+2, err)
			}
			vals[j] = v
		}
		it, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("storage: line %d: %w", line+2, err)
		}
		idx, err := strconv.Atoi(rec[8])
		if err != nil {
			return nil, fmt.Errorf("storage: line %d: %w", line+2, err)
		}
		traj = append(traj, Row{
			Iteration:   it,
			EE:          r3.Vector{X: vals[0], Y: vals[1], Z: vals[2]},
			Target:      r3.Vector{X: vals[3], Y: vals[4], Z: vals[5]},
			Distance:    vals[6],
			TargetIndex: idx,
		})
	}
	return traj, nil
}

func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}
