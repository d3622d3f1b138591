package tiered

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

// Snapshot is the venue state read once per attempt
type Snapshot struct {
	Address      common.Address
	BaseToken    common.Address
	QuoteToken   common.Address
	BaseReserve  uint64
	QuoteReserve uint64
	// total supply of the base token, drives the fee tier
	BaseSupply uint64
	FeeTiers   []FeeTier
}

// Pool is a tiered-fee venue oriented for one trade
type Pool struct {
	snap   Snapshot
	fees   Fees
	orient arbitrage.Orientation
	exec   arbitrage.Executor
}

var _ arbitrage.Pool = (*Pool)(nil)

// NewPool validates the snapshot and resolves the fee tier it trades at.
// exec may be nil for quote-only use
func NewPool(snap Snapshot, source, intermediate common.Address, exec arbitrage.Executor) (*Pool, error) {
	orient, err := arbitrage.NewOrientation(source, intermediate, snap.BaseToken, snap.QuoteToken)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", snap.Address.Hex(), err)
	}
	if snap.BaseReserve == 0 || snap.QuoteReserve == 0 {
		return nil, fmt.Errorf("pool %s has an empty reserve: %w", snap.Address.Hex(), arbitrage.ErrInvalidAccount)
	}
	for i, tier := range snap.FeeTiers {
		if tier.MarketCapThreshold == nil {
			return nil, fmt.Errorf("pool %s tier %d has no threshold: %w", snap.Address.Hex(), i, arbitrage.ErrInvalidAccount)
		}
	}

	fees, err := ComputeFees(snap.FeeTiers, snap.BaseSupply, snap.BaseReserve, snap.QuoteReserve)
	if err != nil {
		return nil, fmt.Errorf("pool %s fees: %w", snap.Address.Hex(), err)
	}
	if fees.TotalBps() >= 10000 {
		return nil, fmt.Errorf("pool %s total fee %d bps: %w", snap.Address.Hex(), fees.TotalBps(), arbitrage.ErrInvalidAccount)
	}

	return &Pool{snap: snap, fees: fees, orient: orient, exec: exec}, nil
}

func (p *Pool) Address() common.Address { return p.snap.Address }

func (p *Pool) Kind() arbitrage.LiquidityKind { return arbitrage.Constant }

func (p *Pool) Fees() Fees { return p.fees }

func (p *Pool) Snapshot() Snapshot { return p.snap }

func (p *Pool) FeeRate() float64 {
	multiplier := 10000 - p.fees.TotalBps()
	return 1 - float64(multiplier)/10000
}

func (p *Pool) Price() float64 {
	return p.orient.Price(float64(p.snap.QuoteReserve) / float64(p.snap.BaseReserve))
}

func (p *Pool) QuoteForward(amountIn uint64, leg arbitrage.Leg) (arbitrage.SwapQuote, error) {
	res := GetAmountOut(p.snap.BaseReserve, p.snap.QuoteReserve, amountIn, p.fees.Stages(), p.orient.SwapForQuote(leg))
	return arbitrage.SwapQuote{
		AmountOut:   res.AmountOut,
		ConsumedIn:  amountIn,
		FullyFilled: true,
		NewPrice:    p.orient.Price(res.NewPrice),
	}, nil
}

func (p *Pool) QuoteInverse(amountOut uint64, leg arbitrage.Leg) (arbitrage.SwapQuote, error) {
	res, err := GetAmountIn(p.snap.BaseReserve, p.snap.QuoteReserve, amountOut, p.fees.Stages(), p.orient.SwapForQuote(leg))
	if err != nil {
		return arbitrage.SwapQuote{}, err
	}
	return arbitrage.SwapQuote{
		AmountOut:   amountOut,
		ConsumedIn:  res.AmountIn,
		FullyFilled: true,
		NewPrice:    p.orient.Price(res.NewPrice),
	}, nil
}

// MaxTradableAmount is unbounded, depth is not modelled for this venue
func (p *Pool) MaxTradableAmount(float64, arbitrage.Leg) uint64 {
	return math.MaxUint64
}

func (p *Pool) ReserveProduct() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(p.snap.BaseReserve), uint256.NewInt(p.snap.QuoteReserve))
}

// ExactOutput reports the legs that map to buy, which fixes the base amount out
func (p *Pool) ExactOutput(leg arbitrage.Leg) bool {
	return !p.orient.SwapForQuote(leg)
}

var _ arbitrage.ExactOutputPool = (*Pool)(nil)

// ExecuteSwap buys base when the leg pays in quote and sells base otherwise
func (p *Pool) ExecuteSwap(ctx context.Context, amountIn, minAmountOut uint64, leg arbitrage.Leg) error {
	if p.exec == nil {
		return arbitrage.ErrNoExecutor
	}

	var data []byte
	var err error
	if p.orient.SwapForQuote(leg) {
		data, err = PackSell(amountIn, minAmountOut)
	} else {
		data, err = PackBuy(minAmountOut, amountIn)
	}
	if err != nil {
		return err
	}

	return p.exec.Submit(ctx, arbitrage.SwapCall{
		Pool:         p.snap.Address,
		Leg:          leg,
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
		Data:         data,
	})
}
