package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.001
	DefaultKp        = 600.0
	DefaultRadius    = 0.37
	DefaultThreshold = 0.01
	DefaultDwell     = 200

	// DefaultTargetTime is the simulated time, in seconds, an unattended
	// run may spend on each target when max_steps is unbounded.
	DefaultTargetTime = 10.0
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Integrator string       `yaml:"integrator"`
	Controller string       `yaml:"controller"`
	Dt         float64      `yaml:"dt"`
	MaxForce   float64      `yaml:"max_force"`
	Theme      string       `yaml:"theme,omitempty"`
	Arm        ArmConfig    `yaml:"arm"`
	Gains      GainsConfig  `yaml:"gains"`
	Reach      ReachConfig  `yaml:"reach"`
	Targets    [][3]float64 `yaml:"targets"`
}

type ArmConfig struct {
	Length    float64    `yaml:"length"`
	COM       float64    `yaml:"com"`
	Mass      float64    `yaml:"mass"`
	Damping   float64    `yaml:"damping"`
	Gravity   float64    `yaml:"gravity"`
	Base      [3]float64 `yaml:"base"`
	InitialQ  float64    `yaml:"initial_q"`
	InitialDQ float64    `yaml:"initial_dq"`
}

// GainsConfig holds controller gains. Zero Kv selects the critically
// damped default; Ki is used by the joint controller only.
type GainsConfig struct {
	Kp float64 `yaml:"kp"`
	Kv float64 `yaml:"kv"`
	Ki float64 `yaml:"ki"`
}

type ReachConfig struct {
	Offset      [3]float64 `yaml:"offset"`
	Radius      float64    `yaml:"radius"`
	Threshold   float64    `yaml:"threshold"`
	Dwell       int        `yaml:"dwell"`
	StrictDwell bool       `yaml:"strict_dwell"`
	MaxSteps    int        `yaml:"max_steps"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: "rk4",
		Controller: "osc",
		Dt:         DefaultDt,
		Arm: ArmConfig{
			Length:  DefaultRadius,
			COM:     DefaultRadius / 2,
			Mass:    1,
			Damping: 0.01,
			Gravity: 9.81,
			Base:    [3]float64{0, 0, 0.1},
		},
		Gains: GainsConfig{Kp: DefaultKp},
		Reach: ReachConfig{
			Offset:    [3]float64{0, 0, 0.1},
			Radius:    DefaultRadius,
			Threshold: DefaultThreshold,
			Dwell:     DefaultDwell,
		},
		Targets: [][3]float64{
			{0.3, 0, 0.375},
			{-0.3, 0, 0.375},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadOver reads the file at path over a copy of base, so a config file
// can refine a preset.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseOver(data, base.Clone())
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	return parseOver(data, DefaultConfig())
}

func parseOver(data []byte, cfg *Config) (*Config, error) {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Dt > 0, "dt must be positive, got %v", c.Dt)
	check(c.MaxForce >= 0, "max_force must not be negative, got %v", c.MaxForce)
	check(c.Arm.Length > 0, "arm.length must be positive, got %v", c.Arm.Length)
	check(c.Arm.Mass > 0, "arm.mass must be positive, got %v", c.Arm.Mass)
	check(c.Arm.COM > 0 && c.Arm.COM <= c.Arm.Length, "arm.com must be in (0, length], got %v", c.Arm.COM)
	check(c.Arm.Damping >= 0, "arm.damping must not be negative, got %v", c.Arm.Damping)
	check(c.Gains.Kp > 0, "gains.kp must be positive, got %v", c.Gains.Kp)
	check(c.Gains.Kv >= 0, "gains.kv must not be negative, got %v", c.Gains.Kv)
	check(c.Reach.Radius > 0, "reach.radius must be positive, got %v", c.Reach.Radius)
	check(c.Reach.Threshold > 0, "reach.threshold must be positive, got %v", c.Reach.Threshold)
	check(c.Reach.Dwell > 0, "reach.dwell must be positive, got %d", c.Reach.Dwell)
	check(c.Reach.MaxSteps >= 0, "reach.max_steps must not be negative, got %d", c.Reach.MaxSteps)
	check(len(c.Targets) > 0, "at least one target is required")
	// the end-effector sweeps a circle of radius arm.length about arm.base
	// in the plane y = base.y
	check(math.Abs(c.Reach.Radius-c.Arm.Length) <= 1e-9*c.Arm.Length,
		"reach.radius %v does not match arm.length %v", c.Reach.Radius, c.Arm.Length)
	check(c.Reach.Offset == c.Arm.Base, "reach.offset %v does not match arm.base %v", c.Reach.Offset, c.Arm.Base)
	for i, t := range c.Targets {
		check(Vec(t) != Vec(c.Reach.Offset), "target %d coincides with reach.offset", i)
		check(t[1] == c.Reach.Offset[1], "target %d is outside the arm's x-z plane (y=%v)", i, c.Reach.Offset[1])
	}
	return errors.Join(errs...)
}

// StepBudget returns reach.max_steps, or when that is unbounded, enough
// iterations for perTarget seconds of motion plus the dwell on every
// target.
func (c *Config) StepBudget(perTarget float64) int {
	if c.Reach.MaxSteps > 0 || c.Dt <= 0 {
		return c.Reach.MaxSteps
	}
	return len(c.Targets) * (c.Reach.Dwell + int(math.Ceil(perTarget/c.Dt)))
}

func Vec(a [3]float64) r3.Vector {
	return r3.Vector{X: a[0], Y: a[1], Z: a[2]}
}

func (c *Config) TargetVectors() []r3.Vector {
	out := make([]r3.Vector, len(c.Targets))
	for i, t := range c.Targets {
		out[i] = Vec(t)
	}
	return out
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Targets = append([][3]float64(nil), c.Targets...)
	return &out
}
