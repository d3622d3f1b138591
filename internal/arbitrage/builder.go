package arbitrage

import (
	"math"

	"github.com/holiman/uint256"
)

// LegPlan is one swap the orchestrator will hand to a pool.
// on exact-output legs AmountIn is the input cap and MinAmountOut the exact output
type LegPlan struct {
	Pool         Pool
	Leg          Leg
	AmountIn     uint64
	MinAmountOut uint64
	ExactOutput  bool
}

func exactOutput(p Pool, leg Leg) bool {
	eo, ok := p.(ExactOutputPool)
	return ok && eo.ExactOutput(leg)
}

// scaleBps returns v*bps/10000, saturating at MaxUint64
func scaleBps(v, bps uint64) uint64 {
	out := new(uint256.Int).Mul(uint256.NewInt(v), uint256.NewInt(bps))
	out.Div(out, uint256.NewInt(10000))
	if !out.IsUint64() {
		return math.MaxUint64
	}
	return out.Uint64()
}

// PlanLegs turns a search result into the two sequential swaps.
// the second leg spends the searched intermediate amount and must return at
// least what the first one spent
func PlanLegs(opp *Opportunity, slippageBps uint64) [2]LegPlan {
	res := opp.Result

	first := LegPlan{Pool: opp.PoolIn, Leg: SourceToIntermediate}
	if exactOutput(opp.PoolIn, SourceToIntermediate) {
		// buy exactly the searched intermediate amount, slippage goes on the input cap
		first.ExactOutput = true
		first.AmountIn = scaleBps(res.AmountIn, 10000+slippageBps)
		first.MinAmountOut = res.IntermediateAmount
	} else {
		first.AmountIn = res.AmountIn
		first.MinAmountOut = scaleBps(res.IntermediateAmount, 10000-slippageBps)
	}

	second := LegPlan{
		Pool:     opp.PoolOut,
		Leg:      IntermediateToSource,
		AmountIn: res.IntermediateAmount,
	}
	if exactOutput(opp.PoolOut, IntermediateToSource) {
		// the exact source amount keeps all but slippageBps of the expected profit
		second.ExactOutput = true
		second.MinAmountOut = res.AmountIn
		if res.Profit > 0 {
			second.MinAmountOut += scaleBps(uint64(res.Profit), 10000-slippageBps)
		}
	} else {
		second.MinAmountOut = res.AmountIn
	}
	return [2]LegPlan{first, second}
}
