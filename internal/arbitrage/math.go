package arbitrage

import (
	"fmt"
	"math"
)

// PriceDelta returns the spread between two prices in bps of the lower one.
// aToB is set when priceA is the cheaper side.
func PriceDelta(priceA, priceB float64) (deltaBps float64, aToB bool) {
	aToB = priceA < priceB
	lower := priceB
	if aToB {
		lower = priceA
	}
	return math.Abs(priceA-priceB) / lower * 10000, aToB
}

// MinProfitableDeltaBps is the breakeven spread for two legs with the given fee rates.
// reference figure only, the search does not gate on it
func MinProfitableDeltaBps(feeA, feeB float64) float64 {
	denominator := (1 - feeA) * (1 - feeB)
	return (1/denominator - 1) * 10000
}

// EvaluateProfit quotes amountIn through poolIn (source->intermediate)
// and the proceeds back through poolOut (intermediate->source)
func EvaluateProfit(poolIn, poolOut Pool, amountIn uint64) (ProfitResult, error) {
	first, err := poolIn.QuoteForward(amountIn, SourceToIntermediate)
	if err != nil {
		return ProfitResult{}, fmt.Errorf("quote first leg: %w", err)
	}
	second, err := poolOut.QuoteForward(first.AmountOut, IntermediateToSource)
	if err != nil {
		return ProfitResult{}, fmt.Errorf("quote second leg: %w", err)
	}

	consumed := amountIn
	if !first.FullyFilled {
		consumed = first.ConsumedIn
	}
	if consumed > math.MaxInt64 || second.AmountOut > math.MaxInt64 {
		return ProfitResult{}, fmt.Errorf("profit at %d: %w", amountIn, ErrOverflow)
	}

	deltaBps, aToB := PriceDelta(first.NewPrice, second.NewPrice)

	return ProfitResult{
		Profit:             int64(second.AmountOut) - int64(consumed),
		IntermediateOutput: first.AmountOut,
		ConsumedIn:         consumed,
		PriceDeltaBps:      math.Ceil(deltaBps),
		AToB:               aToB,
	}, nil
}
