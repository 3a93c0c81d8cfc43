package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/san-kum/reach/internal/dynamo"
)

var (
	ErrNotConnected      = errors.New("simulator: not connected")
	ErrAlreadyConnected  = errors.New("simulator: already connected")
	ErrDimensionMismatch = errors.New("simulator: force vector has wrong length")
	ErrUnknownMarker     = errors.New("simulator: unknown marker")
)

// Feedback is one joint-state sample.
type Feedback struct {
	Q    dynamo.State
	DQ   dynamo.State
	Time float64
}

type Interface interface {
	Connect(ctx context.Context) error
	Disconnect() error
	GetFeedback(ctx context.Context) (Feedback, error)
	SendForces(ctx context.Context, u dynamo.Control) error
	SetXYZ(name string, xyz r3.Vector) error
}

type Config struct {
	Dt        float64
	MaxForce  float64 // 0 disables clipping
	InitialQ  dynamo.State
	InitialDQ dynamo.State
	Markers   []string
}

func DefaultConfig() Config {
	return Config{
		Dt:        0.001,
		InitialQ:  dynamo.State{0},
		InitialDQ: dynamo.State{0},
		Markers:   []string{"target"},
	}
}

// Stats counts connection lifecycle calls and ticks.
type Stats struct {
	Connects    int
	Disconnects int
	Ticks       int
}

// Local simulates a joint-space system in-process. Positions occupy the
// first half of the integrated state and velocities the second half.
type Local struct {
	mu sync.Mutex

	dyn   dynamo.System
	integ dynamo.Integrator
	cfg   Config

	x         dynamo.State
	t         float64
	connected bool
	markers   map[string]r3.Vector
	stats     Stats
}

func NewLocal(dyn dynamo.System, integ dynamo.Integrator, cfg Config) (*Local, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	n := dyn.StateDim() / 2
	if len(cfg.InitialQ) == 0 {
		cfg.InitialQ = make(dynamo.State, n)
	}
	if len(cfg.InitialDQ) == 0 {
		cfg.InitialDQ = make(dynamo.State, n)
	}
	if len(cfg.InitialQ) != n || len(cfg.InitialDQ) != n {
		return nil, fmt.Errorf("initial state must have %d joints, got q=%d dq=%d", n, len(cfg.InitialQ), len(cfg.InitialDQ))
	}
	return &Local{
		dyn:     dyn,
		integ:   integ,
		cfg:     cfg,
		markers: make(map[string]r3.Vector),
	}, nil
}

func (s *Local) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return ErrAlreadyConnected
	}

	s.x = append(s.cfg.InitialQ.Clone(), s.cfg.InitialDQ...)
	s.t = 0
	s.markers = make(map[string]r3.Vector, len(s.cfg.Markers))
	for _, name := range s.cfg.Markers {
		s.markers[name] = r3.Vector{}
	}
	s.connected = true
	s.stats.Connects++
	return nil
}

func (s *Local) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	s.connected = false
	s.stats.Disconnects++
	return nil
}

func (s *Local) GetFeedback(ctx context.Context) (Feedback, error) {
	if err := ctx.Err(); err != nil {
		return Feedback{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return Feedback{}, ErrNotConnected
	}
	n := len(s.x) / 2
	return Feedback{
		Q:    s.x[:n].Clone(),
		DQ:   s.x[n:].Clone(),
		Time: s.t,
	}, nil
}

// SendForces applies u for one tick and advances the simulation.
func (s *Local) SendForces(ctx context.Context, u dynamo.Control) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if len(u) != s.dyn.ControlDim() {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(u), s.dyn.ControlDim())
	}

	applied := s.clip(u).Float32()
	next := s.integ.Step(s.dyn, s.x, applied, s.t, s.cfg.Dt)
	if !next.IsValid() {
		return &dynamo.StepError{Step: s.stats.Ticks, Time: s.t, State: s.x.Clone(), Wrapped: dynamo.ErrInvalidState}
	}

	s.x = next
	s.t += s.cfg.Dt
	s.stats.Ticks++
	return nil
}

func (s *Local) clip(u dynamo.Control) dynamo.Control {
	out := make(dynamo.Control, len(u))
	for i, v := range u {
		if s.cfg.MaxForce > 0 {
			v = math.Max(-s.cfg.MaxForce, math.Min(s.cfg.MaxForce, v))
		}
		out[i] = v
	}
	return out
}

func (s *Local) SetXYZ(name string, xyz r3.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if _, ok := s.markers[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMarker, name)
	}
	s.markers[name] = xyz
	return nil
}

// Marker returns the last position set for a marker.
func (s *Local) Marker(name string) (r3.Vector, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.markers[name]
	return v, ok
}

func (s *Local) Markers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.markers))
	for name := range s.markers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Local) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Local) Dt() float64 { return s.cfg.Dt }
