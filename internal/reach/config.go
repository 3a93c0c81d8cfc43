package reach

import (
	"fmt"

	"github.com/golang/geo/r3"
)

type Config struct {
	Offset    r3.Vector
	Radius    float64
	Threshold float64
	Dwell     int

	// StrictDwell resets the arrival counter whenever the end-effector
	// leaves the threshold. Otherwise it is reset only on target change.
	StrictDwell bool

	MaxSteps int // 0 means unbounded
	Frame    string
	Marker   string
}

func DefaultConfig() Config {
	return Config{
		Offset:    r3.Vector{X: 0, Y: 0, Z: 0.1},
		Radius:    0.37,
		Threshold: 0.01,
		Dwell:     200,
		Frame:     "EE",
		Marker:    "target",
	}
}

func (c Config) Validate() error {
	if c.Radius <= 0 {
		return fmt.Errorf("reach: radius must be positive, got %v", c.Radius)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("reach: threshold must be positive, got %v", c.Threshold)
	}
	if c.Dwell <= 0 {
		return fmt.Errorf("reach: dwell must be positive, got %d", c.Dwell)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("reach: max steps must not be negative, got %d", c.MaxSteps)
	}
	if c.Frame == "" || c.Marker == "" {
		return fmt.Errorf("reach: frame and marker names are required")
	}
	return nil
}
