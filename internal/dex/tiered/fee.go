package tiered

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

// Fees are the per-stage rates of one tier, in bps
type Fees struct {
	LPFeeBps       uint64 `json:"lp_fee_bps"`
	ProtocolFeeBps uint64 `json:"protocol_fee_bps"`
	CreatorFeeBps  uint64 `json:"creator_fee_bps"`
}

// Stages lists the fees in the order the venue charges them
func (f Fees) Stages() []uint64 {
	return []uint64{f.CreatorFeeBps, f.LPFeeBps, f.ProtocolFeeBps}
}

// TotalBps sums the stages, saturating at MaxUint64 so malformed rates never wrap below the cap
func (f Fees) TotalBps() uint64 {
	return totalBps(f.Stages())
}

// FeeTier applies from MarketCapThreshold (in quote base units) upward
type FeeTier struct {
	MarketCapThreshold *uint256.Int
	Fees               Fees
}

// PoolMarketCap values the whole base supply at the pool's quote/base ratio
func PoolMarketCap(baseSupply, baseReserve, quoteReserve uint64) (*uint256.Int, error) {
	if baseReserve == 0 {
		return nil, fmt.Errorf("market cap with empty base reserve: %w", arbitrage.ErrInvalidAccount)
	}
	mc, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(quoteReserve), uint256.NewInt(baseSupply))
	if overflow {
		return nil, fmt.Errorf("market cap: %w", arbitrage.ErrOverflow)
	}
	return mc.Div(mc, uint256.NewInt(baseReserve)), nil
}

// CalculateFeeTier picks the richest tier whose threshold the market cap reaches.
// anything under the first threshold gets the first tier
func CalculateFeeTier(tiers []FeeTier, marketCap *uint256.Int) (Fees, error) {
	if len(tiers) == 0 {
		return Fees{}, fmt.Errorf("empty fee tier table: %w", arbitrage.ErrInvalidAccount)
	}

	first := tiers[0]
	if marketCap.Lt(first.MarketCapThreshold) {
		return first.Fees, nil
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if !marketCap.Lt(tiers[i].MarketCapThreshold) {
			return tiers[i].Fees, nil
		}
	}
	return first.Fees, nil
}

// ComputeFees resolves the tier that applies to a pool in its current state
func ComputeFees(tiers []FeeTier, baseSupply, baseReserve, quoteReserve uint64) (Fees, error) {
	mc, err := PoolMarketCap(baseSupply, baseReserve, quoteReserve)
	if err != nil {
		return Fees{}, err
	}
	return CalculateFeeTier(tiers, mc)
}
