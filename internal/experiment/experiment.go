package experiment

import (
	"context"
	"errors"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/zap"

	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/config"
	"github.com/san-kum/reach/internal/control"
	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/metrics"
	"github.com/san-kum/reach/internal/reach"
	"github.com/san-kum/reach/internal/simulator"
	"github.com/san-kum/reach/internal/storage"
)

// Experiment is one fully wired reach run: arm, simulator, controller and
// driver built from a config.
type Experiment struct {
	cfg    *config.Config
	preset string
	logger golog.Logger

	link   *arm.OneLink
	sim    *simulator.Local
	ctrl   control.Controller
	driver *reach.Driver
}

// Result is what a run leaves behind. State is nil only if the run could
// not start.
type Result struct {
	State    *reach.LoopState
	Metrics  map[string]float64
	Err      error
	Started  time.Time
	Duration time.Duration
}

func (r *Result) Status() string {
	switch {
	case r.Err == nil:
		return storage.StatusCompleted
	case errors.Is(r.Err, context.Canceled), errors.Is(r.Err, context.DeadlineExceeded):
		return storage.StatusInterrupted
	default:
		return storage.StatusFailed
	}
}

func New(cfg *config.Config, reg *Registry, logger golog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	link := NewArm(cfg.Arm)
	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := reg.GetController(cfg.Controller, link, cfg.Gains, cfg.Dt)
	if err != nil {
		return nil, err
	}

	simCfg := simulator.DefaultConfig()
	simCfg.Dt = cfg.Dt
	simCfg.MaxForce = cfg.MaxForce
	simCfg.InitialQ = dynamo.State{cfg.Arm.InitialQ}
	simCfg.InitialDQ = dynamo.State{cfg.Arm.InitialDQ}
	sim, err := simulator.NewLocal(link, integ, simCfg)
	if err != nil {
		return nil, err
	}

	driver := reach.NewDriver(sim, link, ctrl, ReachConfig(cfg.Reach), logger)
	for _, m := range metrics.Default(link, cfg.Reach.Threshold) {
		driver.AddMetric(m)
	}

	return &Experiment{
		cfg:    cfg,
		logger: logger,
		link:   link,
		sim:    sim,
		ctrl:   ctrl,
		driver: driver,
	}, nil
}

// NewArm builds the one-link model from its config. Inertia about the
// centre of mass is that of a uniform rod.
func NewArm(c config.ArmConfig) *arm.OneLink {
	link := arm.NewOneLink()
	link.Length = c.Length
	link.COM = c.COM
	link.Mass = c.Mass
	link.Inertia = c.Mass * c.Length * c.Length / 12
	link.Damping = c.Damping
	link.Gravity = c.Gravity
	link.Base = config.Vec(c.Base)
	return link
}

func ReachConfig(c config.ReachConfig) reach.Config {
	rc := reach.DefaultConfig()
	rc.Offset = config.Vec(c.Offset)
	rc.Radius = c.Radius
	rc.Threshold = c.Threshold
	rc.Dwell = c.Dwell
	rc.StrictDwell = c.StrictDwell
	rc.MaxSteps = c.MaxSteps
	return rc
}

// WithPreset records the preset name in saved metadata.
func (e *Experiment) WithPreset(name string) *Experiment {
	e.preset = name
	return e
}

func (e *Experiment) AddObserver(o dynamo.Observer) { e.driver.AddObserver(o) }

func (e *Experiment) Config() *config.Config         { return e.cfg }
func (e *Experiment) Arm() *arm.OneLink              { return e.link }
func (e *Experiment) Simulator() *simulator.Local    { return e.sim }
func (e *Experiment) Controller() control.Controller { return e.ctrl }

// Run drives the arm through the configured targets. The returned result
// carries whatever was recorded even when the run fails or is canceled.
func (e *Experiment) Run(ctx context.Context) *Result {
	e.logger.Infow("starting run",
		"controller", e.cfg.Controller,
		"integrator", e.cfg.Integrator,
		"dt", e.cfg.Dt,
		"targets", len(e.cfg.Targets),
		"strict_dwell", e.cfg.Reach.StrictDwell)

	res := &Result{Started: time.Now()}
	res.State, res.Err = e.driver.Run(ctx, e.cfg.TargetVectors())
	res.Duration = time.Since(res.Started)
	res.Metrics = metrics.Values(e.driver.Metrics())

	iterations := 0
	if res.State != nil {
		iterations = res.State.Count
	}
	switch res.Status() {
	case storage.StatusCompleted:
		e.logger.Infow("run complete", "iterations", iterations, "elapsed", res.Duration, "metrics", res.Metrics)
	case storage.StatusInterrupted:
		e.logger.Infow("run interrupted", "iterations", iterations)
	default:
		e.logger.Errorw("run failed", "iterations", iterations, "kind", reach.Kind(res.Err), "error", res.Err)
	}
	return res
}

// Metadata describes a finished run for storage.
func (e *Experiment) Metadata(res *Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Preset:      e.preset,
		Timestamp:   res.Started,
		Dt:          e.cfg.Dt,
		Integrator:  e.cfg.Integrator,
		Controller:  e.cfg.Controller,
		Targets:     append([][3]float64(nil), e.cfg.Targets...),
		Offset:      e.cfg.Reach.Offset,
		Radius:      e.cfg.Reach.Radius,
		Threshold:   e.cfg.Reach.Threshold,
		Dwell:       e.cfg.Reach.Dwell,
		StrictDwell: e.cfg.Reach.StrictDwell,
		Status:      res.Status(),
		Metrics:     res.Metrics,
	}
	if p, ok := e.ctrl.(dynamo.Configurable); ok {
		meta.Gains = p.GetParams()
	}
	if res.State != nil {
		meta.Iterations = res.State.Count
		meta.Arrivals = append([]int(nil), res.State.Arrivals...)
	}
	if res.Err != nil {
		meta.Error = res.Err.Error()
	}
	return meta
}

// Trajectory converts the recorded history into storage rows.
func Trajectory(st *reach.LoopState) (storage.Trajectory, error) {
	if st == nil {
		return storage.Trajectory{}, nil
	}
	return storage.NewTrajectory(st.EETrack, st.TargetTrack, st.Distances, st.TargetIndices)
}

// Save stores the run and returns its id.
func (e *Experiment) Save(store *storage.Store, res *Result) (string, error) {
	traj, err := Trajectory(res.State)
	if err != nil {
		return "", err
	}
	if err := store.Init(); err != nil {
		return "", err
	}
	id, err := store.Save(e.Metadata(res), traj)
	if err != nil {
		return "", err
	}
	e.logger.Infow("run saved", "id", id, "rows", len(traj))
	return id, nil
}
