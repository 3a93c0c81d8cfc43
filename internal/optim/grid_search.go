package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/edaniels/golog"
	"go.uber.org/zap"

	"github.com/san-kum/reach/internal/config"
	"github.com/san-kum/reach/internal/experiment"
	"github.com/san-kum/reach/internal/storage"
)

var (
	ErrUnknownParam = errors.New("optim: unknown parameter")
	ErrNoCandidate  = errors.New("optim: no candidate completed")
)

// Setter applies one swept value to a config.
type Setter func(cfg *config.Config, v float64)

var Params = map[string]Setter{
	"kp":        func(c *config.Config, v float64) { c.Gains.Kp = v },
	"kv":        func(c *config.Config, v float64) { c.Gains.Kv = v },
	"ki":        func(c *config.Config, v float64) { c.Gains.Ki = v },
	"max_force": func(c *config.Config, v float64) { c.MaxForce = v },
	"dt":        func(c *config.Config, v float64) { c.Dt = v },
	"threshold": func(c *config.Config, v float64) { c.Reach.Threshold = v },
	"damping":   func(c *config.Config, v float64) { c.Arm.Damping = v },
	"max_steps": func(c *config.Config, v float64) { c.Reach.MaxSteps = int(v) },
}

// Candidate is one evaluated grid point. Score is +Inf when the run did
// not complete or the metric is undefined.
type Candidate struct {
	Params     map[string]float64
	Score      float64
	Status     string
	Iterations int
	Err        error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
	logger     golog.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(params), len(ranges))
	}
	for i, name := range params {
		if _, ok := Params[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParam, name)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: no values for %q", name)
		}
	}
	return &GridSearch{
		paramNames: params,
		ranges:     ranges,
		workers:    1,
		logger:     zap.NewNop().Sugar(),
	}, nil
}

// ParseGrid reads "name=v1,v2,..." into a parameter name and its values.
func ParseGrid(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("optim: grid %q is not name=v1,v2,...", s)
	}
	name = strings.TrimSpace(name)
	if _, ok := Params[name]; !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownParam, name)
	}
	var vals []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("optim: grid %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

func (g *GridSearch) WithWorkers(n int) *GridSearch {
	if n < 1 {
		n = 1
	}
	g.workers = n
	return g
}

func (g *GridSearch) WithLogger(logger golog.Logger) *GridSearch {
	g.logger = logger
	return g
}

// Points enumerates the grid in row-major order.
func (g *GridSearch) Points() []map[string]float64 {
	var out []map[string]float64
	g.collect(0, map[string]float64{}, &out)
	return out
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.collect(depth+1, newParams, out)
	}
}

// Search runs one experiment per grid point on top of base and returns the
// candidate with the lowest metric value, plus every candidate sorted by
// score. Points run with cfg.StepBudget(config.DefaultTargetTime) when
// base leaves max_steps unbounded. A canceled ctx still returns the
// candidates, with the unfinished ones scored +Inf.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (Candidate, []Candidate, error) {
	points := g.Points()
	results := make([]Candidate, len(points))

	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup
	for i, p := range points {
		wg.Add(1)
		go func(idx int, params map[string]float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx] = g.evaluate(ctx, base, params, metricName)
		}(i, p)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})
	if err := ctx.Err(); err != nil {
		return Candidate{}, results, err
	}
	if len(results) == 0 || math.IsInf(results[0].Score, 1) {
		return Candidate{}, results, ErrNoCandidate
	}
	return results[0], results, nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, metricName string) Candidate {
	c := Candidate{Params: params, Score: math.Inf(1)}

	cfg := base.Clone()
	for name, v := range params {
		Params[name](cfg, v)
	}
	cfg.Reach.MaxSteps = cfg.StepBudget(config.DefaultTargetTime)
	exp, err := experiment.New(cfg, nil, nil)
	if err != nil {
		c.Status = storage.StatusFailed
		c.Err = err
		return c
	}

	res := exp.Run(ctx)
	c.Status = res.Status()
	c.Err = res.Err
	if res.State != nil {
		c.Iterations = res.State.Count
	}
	if v, ok := res.Metrics[metricName]; ok && c.Status == storage.StatusCompleted && !math.IsNaN(v) {
		c.Score = v
	}
	g.logger.Debugw("grid point", "params", params, "status", c.Status, metricName, c.Score)
	return c
}
