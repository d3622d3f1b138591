package arbitrage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pulkyeet/amm-arb/internal/metrics"
)

// Attempt is the outcome of one evaluate-then-execute pass
type Attempt struct {
	Opportunity *Opportunity
	Legs        [2]LegPlan
	// number of legs the executor accepted
	Executed int
}

// Run evaluates a and b and, on success, executes both legs strictly in order.
// a failed leg aborts the attempt; nothing is retried
func (e *Engine) Run(ctx context.Context, a, b Pool, sourceBalance uint64) (*Attempt, error) {
	opp, err := e.Evaluate(a, b, sourceBalance)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, opp)
}

// Execute submits the two legs of an already evaluated opportunity
func (e *Engine) Execute(ctx context.Context, opp *Opportunity) (*Attempt, error) {
	attempt := &Attempt{
		Opportunity: opp,
		Legs:        PlanLegs(opp, e.cfg.SlippageBps),
	}

	for i, plan := range attempt.Legs {
		if err := ctx.Err(); err != nil {
			return attempt, fmt.Errorf("before leg %d: %w", i+1, err)
		}
		err := plan.Pool.ExecuteSwap(ctx, plan.AmountIn, plan.MinAmountOut, plan.Leg)
		if err != nil {
			metrics.LegsSubmitted.WithLabelValues(plan.Leg.String(), "failed").Inc()
			e.log.Warn("leg failed",
				zap.Int("leg", i+1),
				zap.Stringer("pool", plan.Pool.Address()),
				zap.Error(err),
			)
			return attempt, fmt.Errorf("leg %d on %s: %w: %w", i+1, plan.Pool.Address().Hex(), ErrExecutionFailed, err)
		}
		metrics.LegsSubmitted.WithLabelValues(plan.Leg.String(), "ok").Inc()
		attempt.Executed++
		e.log.Info("leg submitted",
			zap.Int("leg", i+1),
			zap.Stringer("pool", plan.Pool.Address()),
			zap.Uint64("amount_in", plan.AmountIn),
			zap.Uint64("min_out", plan.MinAmountOut),
		)
	}
	return attempt, nil
}
