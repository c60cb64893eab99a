package optim

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/san-kum/hjmsim/internal/config"
	"github.com/san-kum/hjmsim/internal/experiment"
)

// Objective scores the metrics of one run; lower is better.
type Objective func(metrics map[string]float64) float64

// TargetMetric scores a run by the distance of one metric to target.
func TargetMetric(name string, target float64) Objective {
	return func(metrics map[string]float64) float64 {
		v, ok := metrics[name]
		if !ok {
			return math.Inf(1)
		}
		return math.Abs(v - target)
	}
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Point is one evaluated grid point. Err is set when the configuration was
// rejected or the run failed.
type Point struct {
	Params  map[string]float64
	Metrics map[string]float64
	Score   float64
	Err     error
}

type Result struct {
	Points    []Point
	Params    map[string]float64
	Score     float64
	Metrics   map[string]float64
	Evaluated int
	Failed    int
}

// Search runs build for every point of the grid, records each point and
// keeps the lowest score.
// Points whose configuration is rejected or whose run fails are counted in
// Failed; context cancellation aborts the search.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (*Result, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("grid has %d names and %d ranges", len(g.paramNames), len(g.ranges))
	}

	res := &Result{Score: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, objective, res); err != nil {
		return nil, err
	}
	if res.Params == nil {
		return res, fmt.Errorf("no grid point produced a finite score (%d evaluated, %d failed)", res.Evaluated, res.Failed)
	}
	return res, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
	res *Result,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		res.Evaluated++
		point := Point{Params: current, Score: math.Inf(1)}
		exp, err := build(current)
		if err != nil {
			res.Failed++
			point.Err = err
			res.Points = append(res.Points, point)
			return nil
		}

		out, err := exp.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			point.Err = err
			res.Points = append(res.Points, point)
			return nil
		}

		score := objective(out.Metrics)
		point.Metrics = out.Metrics
		point.Score = score
		res.Points = append(res.Points, point)
		if score < res.Score {
			res.Score = score
			res.Metrics = out.Metrics
			res.Params = make(map[string]float64, len(current))
			for k, v := range current {
				res.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, build, objective, res); err != nil {
			return err
		}
	}
	return nil
}

var paramPattern = regexp.MustCompile(`^(k|sigma|level|skew)(\d+)$`)

// ApplyParam sets a per-factor model parameter on cfg. Names are k<i> for
// mean reversion, sigma<i> for constant volatility and level<i> or skew<i>
// for linear volatility, with zero-based factor indices.
func ApplyParam(cfg *config.Config, name string, value float64) error {
	m := paramPattern.FindStringSubmatch(name)
	if m == nil {
		return fmt.Errorf("unknown parameter %q", name)
	}
	i, _ := strconv.Atoi(m[2])

	var target []float64
	switch m[1] {
	case "k":
		target = cfg.MeanReversion
	case "sigma":
		target = cfg.Volatility.Sigma
	case "level":
		target = cfg.Volatility.Level
	case "skew":
		target = cfg.Volatility.Skew
	}
	if i >= len(target) {
		return fmt.Errorf("parameter %q: factor %d out of range (%d)", name, i, len(target))
	}
	target[i] = value
	return nil
}

// ConfigBuilder returns a build function that clones base, applies the grid
// point and sets the experiment up against registry.
func ConfigBuilder(base *config.Config, registry *experiment.Registry) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := ApplyParam(cfg, name, params[name]); err != nil {
				return nil, err
			}
		}

		exp := experiment.New(cfg)
		if err := exp.Setup(registry); err != nil {
			return nil, err
		}
		return exp, nil
	}
}
