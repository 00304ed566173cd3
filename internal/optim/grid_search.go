// Package optim searches PID gains for the lowest tracking metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/dynamo"
)

var ErrNoCandidates = errors.New("optim: no candidates")

// Candidate is one scored point of the grid.
type Candidate struct {
	Params map[string]float64
	Gains  control.Gains
	Score  float64
}

type SearchResult struct {
	Best       Candidate
	Candidates []Candidate
}

// GridSearch tries every combination of the given gain values. Names are
// kp, ki and kd; any gain not named keeps the base value.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// SetWorkers bounds how many candidates run at once. 0 means GOMAXPROCS.
func (g *GridSearch) SetWorkers(n int) { g.workers = n }

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Search runs one headless simulation per candidate, applying the gains to
// both axes, and returns the candidate with the lowest value of metricName.
// Runs that diverge score +Inf. metrics builds a fresh metric set per run.
func (g *GridSearch) Search(
	ctx context.Context,
	base dynamo.Config,
	traj dynamo.Trajectory,
	run dynamo.RunConfig,
	metricName string,
	metrics func() []dynamo.Metric,
) (*SearchResult, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(g.paramNames), len(g.ranges))
	}

	var grid []map[string]float64
	g.searchRecursive(0, make(map[string]float64), &grid)
	if len(grid) == 0 {
		return nil, ErrNoCandidates
	}

	run.KeepSnapshots = false
	jobs := make([]dynamo.Job, len(grid))
	cands := make([]Candidate, len(grid))
	for i, params := range grid {
		gains, err := applyParams(base.X, params)
		if err != nil {
			return nil, err
		}
		cfg := base
		cfg.X, cfg.Y = gains, gains
		jobs[i] = dynamo.Job{Config: cfg, Traj: traj, Run: run, Metrics: metrics}
		cands[i] = Candidate{Params: params, Gains: gains}
	}

	results, err := dynamo.Sweep(ctx, jobs, g.workers)
	if err != nil {
		return nil, err
	}

	for i, res := range results {
		val, ok := res.Metrics[metricName]
		if !ok {
			return nil, fmt.Errorf("optim: metric %q not produced", metricName)
		}
		if len(res.Errors) > 0 || math.IsNaN(val) {
			val = math.Inf(1)
		}
		cands[i].Score = val
	}

	best := 0
	for i := range cands {
		if cands[i].Score < cands[best].Score {
			best = i
		}
	}

	return &SearchResult{Best: cands[best], Candidates: cands}, nil
}

func (g *GridSearch) searchRecursive(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		params := make(map[string]float64, len(current))
		for k, v := range current {
			params[k] = v
		}
		*out = append(*out, params)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		g.searchRecursive(depth+1, current, out)
	}
	delete(current, paramName)
}

func applyParams(base control.Gains, params map[string]float64) (control.Gains, error) {
	pid := control.NewPIDFromGains(base)
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := pid.SetParam(name, params[name]); err != nil {
			return control.Gains{}, err
		}
	}
	return pid.Gains(), nil
}

// Top returns the n best candidates, lowest score first.
func (r *SearchResult) Top(n int) []Candidate {
	sorted := make([]Candidate, len(r.Candidates))
	copy(sorted, r.Candidates)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
