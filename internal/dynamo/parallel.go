package dynamo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run inside a sweep.
type Job struct {
	Config  Config
	Traj    Trajectory
	Run     RunConfig
	Metrics func() []Metric
}

// Sweep runs every job on its own Loop, at most workers at a time
// (workers <= 0 means GOMAXPROCS). Results keep job order. The first error
// cancels the remaining jobs.
func Sweep(ctx context.Context, jobs []Job, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			loop, err := NewLoop(job.Config)
			if err != nil {
				return err
			}
			sim := NewSimulator(loop)
			if job.Metrics != nil {
				for _, m := range job.Metrics() {
					sim.AddMetric(m)
				}
			}
			res, err := sim.Run(gctx, job.Traj, job.Run)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Ensemble repeats one configuration over consecutive noise seeds.
type Ensemble struct {
	base      Config
	numRuns   int
	seedStart int64
}

func NewEnsemble(base Config, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{base: base, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, traj Trajectory, cfg RunConfig, metrics func() []Metric) ([]*Result, error) {
	jobs := make([]Job, e.numRuns)
	for i := range jobs {
		c := e.base
		c.Seed = e.seedStart + int64(i)
		jobs[i] = Job{Config: c, Traj: traj, Run: cfg, Metrics: metrics}
	}
	return Sweep(ctx, jobs, 0)
}
