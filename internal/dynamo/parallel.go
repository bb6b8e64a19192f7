package dynamo

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Job is one independent simulation for RunAll. Each job must own its
// simulator: integrators keep scratch buffers between steps.
type Job struct {
	Name   string
	Sim    *Simulator
	X0     State
	Config Config
}

// RunAll runs the jobs concurrently with at most limit in flight
// (limit <= 0 means no limit). Results are returned in job order. The first
// failing job cancels the rest.
func RunAll(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := job.Sim.Run(ctx, job.X0, job.Config)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
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
