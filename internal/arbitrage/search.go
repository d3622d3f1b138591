package arbitrage

import (
	"fmt"
	"math"
)

// IterationTrace is emitted once per search iteration
type IterationTrace struct {
	Iteration     uint32
	Amount        uint64
	Profit        int64
	BestProfit    int64
	Step          uint64
	DeltaPercent  int64
	PriceDeltaBps float64
}

// Tracer receives per-iteration search telemetry. may be nil
type Tracer func(IterationTrace)

// searchState is the accumulator threaded through every iteration
type searchState struct {
	current    uint64
	step       uint64
	prevProfit int64
	decreasing bool
	best       ProfitResult
}

// FindOptimalAmount runs the step-halving search for the first-leg input that
// maximises realised profit between poolA and poolB.
//
// It is a bounded local search. The profit curve is not guaranteed to be
// unimodal under tiered fees, so the result is the best amount visited, not
// a global optimum. A non-positive best profit is reported as
// ErrNoArbitrageOpportunity.
func FindOptimalAmount(poolA, poolB Pool, params SearchParams, bounds ComputedBounds, trace Tracer) (OptimalAmountResult, error) {
	priceDeltaBps, aToB := PriceDelta(poolA.Price(), poolB.Price())

	poolIn, poolOut := poolB, poolA
	if aToB {
		poolIn, poolOut = poolA, poolB
	}

	maxAmount := min(
		bounds.MaxAmountIn,
		poolIn.MaxTradableAmount(priceDeltaBps, SourceToIntermediate),
		poolOut.MaxTradableAmount(priceDeltaBps, IntermediateToSource),
	)

	initial, err := EvaluateProfit(poolIn, poolOut, maxAmount)
	if err != nil {
		return OptimalAmountResult{}, err
	}
	if initial.ConsumedIn == 0 {
		return OptimalAmountResult{}, ErrNoArbitrageOpportunity
	}

	state := searchState{
		current:    maxAmount,
		step:       maxAmount / 2,
		prevProfit: initial.Profit,
		decreasing: true,
		best:       initial,
	}

	result := OptimalAmountResult{AToB: aToB, ExitReason: ExitMaxIterations}
	for i := uint32(0); i < params.MaxIterations; i++ {
		var exit ExitReason
		state, exit, err = iterate(state, i, poolIn, poolOut, params, maxAmount, trace)
		if err != nil {
			return OptimalAmountResult{}, err
		}
		result.Iterations = i + 1
		if exit != "" {
			result.ExitReason = exit
			break
		}
	}

	result.AmountIn = state.best.ConsumedIn
	result.IntermediateAmount = state.best.IntermediateOutput
	result.Profit = state.best.Profit

	if result.Profit <= 0 {
		return result, ErrNoArbitrageOpportunity
	}
	return result, nil
}

// iterate performs one move of the search and reports a non-empty exit reason when it should stop
func iterate(s searchState, i uint32, poolIn, poolOut Pool, params SearchParams, maxAmount uint64, trace Tracer) (searchState, ExitReason, error) {
	// retreat harder from a loss, refine slower from a gain
	stepMultiplier, divisor := s.step, uint64(2)
	if s.prevProfit < 0 {
		stepMultiplier, divisor = s.step+s.step/2, 4
	}

	if s.decreasing {
		if s.current > stepMultiplier {
			s.current -= stepMultiplier
		} else {
			s.current = params.MinAmount
		}
	} else if s.current > math.MaxUint64-stepMultiplier {
		s.current = maxAmount
	} else {
		s.current += stepMultiplier
	}
	s.step /= divisor

	res, err := EvaluateProfit(poolIn, poolOut, s.current)
	if err != nil {
		return s, "", err
	}
	if res.Profit > s.best.Profit {
		s.best = res
	}

	var deltaPercent int64
	if s.prevProfit != 0 {
		deltaPercent, err = percentChange(res.Profit, s.prevProfit)
		if err != nil {
			return s, "", err
		}
	}

	if res.Profit < s.prevProfit {
		s.decreasing = !s.decreasing
	}

	if trace != nil {
		trace(IterationTrace{
			Iteration:     i,
			Amount:        s.current,
			Profit:        res.Profit,
			BestProfit:    s.best.Profit,
			Step:          s.step,
			DeltaPercent:  deltaPercent,
			PriceDeltaBps: res.PriceDeltaBps,
		})
	}

	switch {
	case absInt64(deltaPercent) < int64(params.MinDeltaPercent) && i > 0:
		return s, ExitConverged, nil
	case s.step < params.MinStepSize:
		return s, ExitStepTooSmall, nil
	case s.current <= params.MinAmount || s.current >= maxAmount:
		return s, ExitOutOfRange, nil
	}

	s.prevProfit = res.Profit
	return s, "", nil
}

// percentChange is the truncated integer percent move from prev to cur
func percentChange(cur, prev int64) (int64, error) {
	diff := cur - prev
	if (prev < 0 && diff < cur) || (prev > 0 && diff > cur) {
		return 0, fmt.Errorf("profit change: %w", ErrOverflow)
	}
	if diff > math.MaxInt64/100 || diff < math.MinInt64/100 {
		return 0, fmt.Errorf("profit change: %w", ErrOverflow)
	}
	return diff * 100 / prev, nil
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
