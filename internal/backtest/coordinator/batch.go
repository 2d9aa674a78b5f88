package coordinator

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"golang.org/x/sync/errgroup"
)

// BatchOutcome is the result of one config in a batch.
type BatchOutcome struct {
	Result types.BacktestResult
	Err    error
}

// RunBatch runs cfgs with at most concurrency runs in flight. Outcomes are in
// config order. A failed run does not stop its siblings; cancelling ctx does.
func (c *Coordinator) RunBatch(ctx context.Context, cfgs []types.BacktestConfig, concurrency int) []BatchOutcome {
	outcomes := make([]BatchOutcome, len(cfgs))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, cfg := range cfgs {
		g.Go(func() error {
			result, err := c.Run(ctx, cfg)
			outcomes[i] = BatchOutcome{Result: result, Err: err}

			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}
