package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/edaniels/golog"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/reach/internal/config"
	"github.com/san-kum/reach/internal/experiment"
	"github.com/san-kum/reach/internal/optim"
	"github.com/san-kum/reach/internal/storage"
)

// Scenario is a scripted sequence of reach runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`

	dir string
}

// ScenarioStep is one run. Config is resolved relative to the scenario
// file and applied over Preset; Params are applied last.
type ScenarioStep struct {
	Name   string             `yaml:"name"`
	Preset string             `yaml:"preset"`
	Config string             `yaml:"config"`
	Params map[string]float64 `yaml:"params"`
	Save   bool               `yaml:"save"`
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name       string
	RunID      string
	Status     string
	Iterations int
	Arrivals   []int
	Metrics    map[string]float64
	Err        error
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: no steps", path)
	}
	scenario.dir = filepath.Dir(path)

	return &scenario, nil
}

// StepConfig builds the config a step runs with. An unbounded max_steps is
// replaced by a budget, since nobody is watching to interrupt the run.
func (s *Scenario) StepConfig(step ScenarioStep) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if step.Preset != "" {
		cfg = config.GetPreset(step.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", step.Preset)
		}
	}
	if step.Config != "" {
		path := step.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		loaded, err := config.LoadOver(path, cfg)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	for name, v := range step.Params {
		set, ok := optim.Params[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", optim.ErrUnknownParam, name)
		}
		set(cfg, v)
	}
	cfg.Reach.MaxSteps = cfg.StepBudget(config.DefaultTargetTime)
	return cfg, cfg.Validate()
}

// RunScenario executes all steps in order. A failed run is recorded and
// the scenario continues; a bad step config or a canceled ctx stops it.
func RunScenario(ctx context.Context, scenario *Scenario, store *storage.Store, logger golog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		logger.Infow("scenario step", "scenario", scenario.Name, "step", i+1, "of", len(scenario.Steps), "name", name)

		cfg, err := scenario.StepConfig(step)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		exp, err := experiment.New(cfg, nil, logger)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		exp.WithPreset(step.Preset)

		res := exp.Run(ctx)
		sr := StepResult{Name: name, Status: res.Status(), Metrics: res.Metrics, Err: res.Err}
		if res.State != nil {
			sr.Iterations = res.State.Count
			sr.Arrivals = res.State.Arrivals
		}
		if step.Save && store != nil {
			id, err := exp.Save(store, res)
			if err != nil {
				return results, fmt.Errorf("step %d (%s) save: %w", i+1, name, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)

		if err := ctx.Err(); err != nil {
			return results, err
		}
	}

	return results, nil
}

type MonteCarloConfig struct {
	Trials       int
	Perturbation float64 // half-width of the uniform initial angle offset, rad
	Seed         int64
}

type MonteCarloResult struct {
	TrialID    int
	InitialQ   float64
	Status     string
	Iterations int
	Metrics    map[string]float64
}

// RunMonteCarlo repeats the run with the initial joint angle perturbed
// uniformly around base.Arm.InitialQ. Trials that leave max_steps
// unbounded get a step budget so a trial that never arrives still ends.
func RunMonteCarlo(ctx context.Context, base *config.Config, mc MonteCarloConfig, logger golog.Logger) ([]MonteCarloResult, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	results := make([]MonteCarloResult, 0, mc.Trials)

	rng := rand.New(rand.NewSource(mc.Seed))
	if mc.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < mc.Trials; trial++ {
		cfg := base.Clone()
		cfg.Arm.InitialQ += (rng.Float64() - 0.5) * 2 * mc.Perturbation
		cfg.Reach.MaxSteps = cfg.StepBudget(config.DefaultTargetTime)

		exp, err := experiment.New(cfg, nil, nil)
		if err != nil {
			return nil, err
		}
		res := exp.Run(ctx)

		r := MonteCarloResult{
			TrialID:  trial,
			InitialQ: cfg.Arm.InitialQ,
			Status:   res.Status(),
			Metrics:  res.Metrics,
		}
		if res.State != nil {
			r.Iterations = res.State.Count
		}
		results = append(results, r)

		if err := ctx.Err(); err != nil {
			return results, err
		}
		if (trial+1)%10 == 0 {
			logger.Infow("monte carlo", "done", trial+1, "of", mc.Trials)
		}
	}

	return results, nil
}

// MonteCarloStats counts trials that reached every target.
func MonteCarloStats(results []MonteCarloResult) (completed int, incomplete int) {
	for _, r := range results {
		if r.Status == storage.StatusCompleted {
			completed++
		} else {
			incomplete++
		}
	}
	return
}
