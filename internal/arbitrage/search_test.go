package arbitrage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peak = uint64(1_000_000_000)

// hump pays back amountIn plus a bonus that peaks at peak/2
func hump(amountIn uint64, _ Leg) SwapQuote {
	out := amountIn / 2
	if amountIn < peak {
		out = amountIn + amountIn*(peak-amountIn)/peak/10
	}
	return SwapQuote{AmountOut: out, ConsumedIn: amountIn, FullyFilled: true, NewPrice: 1.1}
}

func humpPools() (*fakePool, *fakePool) {
	a := &fakePool{price: 1.0, quote: linear(1, 1, 1.0)}
	b := &fakePool{price: 1.1, quote: hump}
	return a, b
}

func TestFindOptimalAmount_Hump(t *testing.T) {
	a, b := humpPools()

	res, err := FindOptimalAmount(a, b, DefaultSearchParams(), ComputedBounds{MaxAmountIn: peak}, nil)
	require.NoError(t, err)
	assert.True(t, res.AToB)
	// a local search: it settles on the first plateau it converges at, not the peak
	assert.Equal(t, uint64(250_000_000), res.AmountIn)
	assert.Equal(t, int64(18_750_000), res.Profit)
	assert.Equal(t, res.AmountIn, res.IntermediateAmount)
	assert.Equal(t, ExitConverged, res.ExitReason)
	assert.Equal(t, uint32(8), res.Iterations)
}

func TestFindOptimalAmount_SwapsPoolsByPrice(t *testing.T) {
	a, b := humpPools()

	res, err := FindOptimalAmount(b, a, DefaultSearchParams(), ComputedBounds{MaxAmountIn: peak}, nil)
	require.NoError(t, err)
	assert.False(t, res.AToB)
	assert.Positive(t, res.Profit)
}

func TestFindOptimalAmount_TerminatesWithinMaxIterations(t *testing.T) {
	a, b := humpPools()
	params := []SearchParams{
		{MaxIterations: 0},
		{MaxIterations: 1},
		{MaxIterations: 3},
		{MaxIterations: 7, MinAmount: 10},
		{MaxIterations: 1000},
		{MaxIterations: 1000, MinDeltaPercent: 50},
		{MaxIterations: 1000, MinStepSize: peak},
		{MaxIterations: 64, MinAmount: peak},
	}
	for _, p := range params {
		res, err := FindOptimalAmount(a, b, p, ComputedBounds{MaxAmountIn: peak - 1}, nil)
		if err != nil {
			assert.ErrorIs(t, err, ErrNoArbitrageOpportunity)
		}
		assert.LessOrEqual(t, res.Iterations, p.MaxIterations)
	}
}

func TestFindOptimalAmount_ZeroIterationsKeepsInitial(t *testing.T) {
	a, b := humpPools()

	res, err := FindOptimalAmount(a, b, SearchParams{}, ComputedBounds{MaxAmountIn: peak / 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), res.Iterations)
	assert.Equal(t, ExitMaxIterations, res.ExitReason)
	assert.Equal(t, peak/4, res.AmountIn)
}

func TestFindOptimalAmount_RespectsPoolMax(t *testing.T) {
	a, b := humpPools()
	a.max = peak / 10

	var seen []uint64
	trace := func(it IterationTrace) { seen = append(seen, it.Amount) }

	res, err := FindOptimalAmount(a, b, DefaultSearchParams(), ComputedBounds{MaxAmountIn: peak}, trace)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.AmountIn, peak/10)
	require.NotEmpty(t, seen)
	for _, amount := range seen {
		assert.LessOrEqual(t, amount, peak/10)
	}
}

func TestFindOptimalAmount_UnfilledFirstLeg(t *testing.T) {
	a := &fakePool{price: 1.0, quote: func(uint64, Leg) SwapQuote {
		return SwapQuote{FullyFilled: false}
	}}
	b := &fakePool{price: 2.0, quote: linear(2, 1, 2.0)}

	_, err := FindOptimalAmount(a, b, DefaultSearchParams(), ComputedBounds{MaxAmountIn: peak}, nil)
	assert.ErrorIs(t, err, ErrNoArbitrageOpportunity)
}

func TestFindOptimalAmount_NeverSucceedsAtALoss(t *testing.T) {
	a := &fakePool{price: 1.0, quote: linear(1, 1, 1.0)}
	b := &fakePool{price: 1.1, quote: linear(99, 100, 1.1)}

	res, err := FindOptimalAmount(a, b, DefaultSearchParams(), ComputedBounds{MaxAmountIn: peak}, nil)
	assert.ErrorIs(t, err, ErrNoArbitrageOpportunity)
	assert.LessOrEqual(t, res.Profit, int64(0))
}

func TestFindOptimalAmount_BreakEvenIsNoOpportunity(t *testing.T) {
	a := &fakePool{price: 1.0, quote: linear(1, 1, 1.0)}
	b := &fakePool{price: 1.1, quote: linear(1, 1, 1.1)}

	_, err := FindOptimalAmount(a, b, DefaultSearchParams(), ComputedBounds{MaxAmountIn: peak}, nil)
	assert.ErrorIs(t, err, ErrNoArbitrageOpportunity)
}

func TestPercentChange(t *testing.T) {
	got, err := percentChange(150, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(50), got)

	got, err = percentChange(-50, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), got)

	got, err = percentChange(1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(-66), got)

	_, err = percentChange(-1<<62, 1<<62)
	assert.ErrorIs(t, err, ErrOverflow)
}
