package reach

import (
	"context"
	"errors"
	"fmt"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/control"
	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/simulator"
)

type Driver struct {
	iface  simulator.Interface
	kin    arm.Kinematics
	ctrl   control.Controller
	cfg    Config
	logger golog.Logger

	metrics   []dynamo.Metric
	observers []dynamo.Observer
}

// NewDriver wires the loop's collaborators. A nil logger discards output.
func NewDriver(iface simulator.Interface, kin arm.Kinematics, ctrl control.Controller, cfg Config, logger golog.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{
		iface:  iface,
		kin:    kin,
		ctrl:   ctrl,
		cfg:    cfg,
		logger: logger,
	}
}

func (d *Driver) AddMetric(m dynamo.Metric) {
	d.metrics = append(d.metrics, m)
}

func (d *Driver) AddObserver(o dynamo.Observer) {
	d.observers = append(d.observers, o)
}

func (d *Driver) Metrics() []dynamo.Metric {
	return d.metrics
}

func (d *Driver) Config() Config { return d.cfg }

// SetTarget normalizes raw and places the simulator's target marker there.
func (d *Driver) SetTarget(raw r3.Vector) (r3.Vector, error) {
	xyz, err := Normalize(raw, d.cfg.Offset, d.cfg.Radius)
	if err != nil {
		return r3.Vector{}, err
	}
	d.logger.Infow("target set", "raw", fmtVec(raw), "xyz", fmtVec(xyz))
	if err := d.iface.SetXYZ(d.cfg.Marker, xyz); err != nil {
		return r3.Vector{}, fmt.Errorf("%w: set %q: %w", ErrSimulatorUnreachable, d.cfg.Marker, err)
	}
	return xyz, nil
}

// Start builds the loop state and sets the first target. The simulator
// must already be connected.
func (d *Driver) Start(targets []r3.Vector) (*LoopState, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	for _, m := range d.metrics {
		m.Reset()
	}

	st := newLoopState(targets)
	xyz, err := d.SetTarget(st.Targets[0])
	if err != nil {
		return st, newLoopError(st, kindOf(err), err)
	}
	st.Target = xyz
	return st, nil
}

// Step runs one iteration. It is a no-op once st.Done is set.
func (d *Driver) Step(ctx context.Context, st *LoopState) error {
	if st.Done {
		return nil
	}

	fb, err := d.iface.GetFeedback(ctx)
	if err != nil {
		return newLoopError(st, ErrSimulatorUnreachable, err)
	}

	u, err := d.ctrl.Control(fb.Q, fb.DQ, st.Target, r3.Vector{})
	if err != nil {
		return newLoopError(st, ErrControllerFailed, err)
	}
	if err := d.iface.SendForces(ctx, u.Float32()); err != nil {
		if errors.Is(err, dynamo.ErrInvalidState) {
			return newLoopError(st, ErrSimulationDiverged, err)
		}
		return newLoopError(st, ErrSimulatorUnreachable, err)
	}

	ee, err := d.kin.Tx(d.cfg.Frame, fb.Q)
	if err != nil {
		return newLoopError(st, ErrKinematicsFailed, err)
	}
	dist := ee.Distance(st.Target)
	st.Time = fb.Time

	if dist < d.cfg.Threshold {
		st.AtTargetCount++
		if st.AtTargetCount%50 == 0 {
			d.logger.Debugw("holding target", "index", st.TargetIndex, "count", st.AtTargetCount)
		}
		if st.AtTargetCount >= d.cfg.Dwell {
			st.Arrivals = append(st.Arrivals, st.Count)
			st.TargetIndex++
			if st.TargetIndex >= len(st.Targets) {
				st.Done = true
				d.logger.Infow("all targets reached", "iterations", st.Count, "time", st.Time)
				return nil
			}
			xyz, err := d.SetTarget(st.Targets[st.TargetIndex])
			if err != nil {
				return newLoopError(st, kindOf(err), err)
			}
			st.Target = xyz
			d.logger.Infow("moving to next target", "index", st.TargetIndex, "xyz", fmtVec(xyz))
			st.AtTargetCount = 0
		}
	} else if d.cfg.StrictDwell {
		st.AtTargetCount = 0
	}

	st.record(ee, dist)

	sample := dynamo.Sample{
		Iteration:   st.Count,
		Time:        st.Time,
		Q:           fb.Q.Clone(),
		DQ:          fb.DQ.Clone(),
		U:           append(dynamo.Control(nil), u...),
		EE:          ee,
		Target:      st.Target,
		Distance:    dist,
		TargetIndex: st.TargetIndex,
		AtTarget:    st.AtTargetCount,
	}
	for _, m := range d.metrics {
		m.Observe(sample)
	}
	for _, o := range d.observers {
		o.OnStep(sample)
	}

	st.Count++
	return nil
}

// Run connects, drives the arm through targets and disconnects. The
// returned state holds whatever was recorded, also when err is non-nil.
// A canceled ctx yields ctx.Err().
func (d *Driver) Run(ctx context.Context, targets []r3.Vector) (st *LoopState, err error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	if err := d.iface.Connect(ctx); err != nil {
		return nil, newLoopError(nil, ErrSimulatorUnreachable, err)
	}
	defer func() {
		if derr := d.iface.Disconnect(); derr != nil {
			d.logger.Warnw("disconnect failed", "error", derr)
			if err == nil {
				err = fmt.Errorf("%w: disconnect: %w", ErrSimulatorUnreachable, derr)
			}
		}
	}()

	st, err = d.Start(targets)
	if err != nil {
		return st, err
	}
	d.logger.Infow("running", "targets", len(st.Targets), "first", fmtVec(st.Target))

	for !st.Done {
		if err := ctx.Err(); err != nil {
			d.logger.Infow("interrupted", "iterations", st.Count, "target", st.TargetIndex)
			return st, err
		}
		if d.cfg.MaxSteps > 0 && st.Count >= d.cfg.MaxSteps {
			return st, newLoopError(st, ErrStepBudget, nil)
		}
		if err := d.Step(ctx, st); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				d.logger.Infow("interrupted", "iterations", st.Count, "target", st.TargetIndex)
				return st, ctxErr
			}
			d.logger.Errorw("step failed", "error", err)
			return st, err
		}
	}
	return st, nil
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, ErrDegenerateTarget):
		return ErrDegenerateTarget
	case errors.Is(err, ErrSimulatorUnreachable):
		return ErrSimulatorUnreachable
	}
	return err
}
