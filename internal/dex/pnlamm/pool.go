package pnlamm

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
	Address          common.Address
	BaseToken        common.Address
	QuoteToken       common.Address
	BaseReserve      uint64
	QuoteReserve     uint64
	NeedTakePnlBase  uint64
	NeedTakePnlQuote uint64
	SwapFeeBps       uint64
}

// Pool is a single-fee venue oriented for one trade.
// reserves are kept net of undistributed pnl
type Pool struct {
	snap   Snapshot
	base   uint64
	quote  uint64
	orient arbitrage.Orientation
	exec   arbitrage.Executor
}

var _ arbitrage.Pool = (*Pool)(nil)

func NewPool(snap Snapshot, source, intermediate common.Address, exec arbitrage.Executor) (*Pool, error) {
	orient, err := arbitrage.NewOrientation(source, intermediate, snap.BaseToken, snap.QuoteToken)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", snap.Address.Hex(), err)
	}
	if snap.SwapFeeBps >= feeDenominator {
		return nil, fmt.Errorf("pool %s fee %d bps: %w", snap.Address.Hex(), snap.SwapFeeBps, arbitrage.ErrInvalidAccount)
	}

	base, quote, err := ReservesWithoutPnl(snap.BaseReserve, snap.QuoteReserve, snap.NeedTakePnlBase, snap.NeedTakePnlQuote)
	if err != nil {
		return nil, fmt.Errorf("pool %s: %w", snap.Address.Hex(), err)
	}
	if base == 0 || quote == 0 {
		return nil, fmt.Errorf("pool %s has an empty reserve: %w", snap.Address.Hex(), arbitrage.ErrInvalidAccount)
	}

	return &Pool{snap: snap, base: base, quote: quote, orient: orient, exec: exec}, nil
}

func (p *Pool) Address() common.Address { return p.snap.Address }

func (p *Pool) Kind() arbitrage.LiquidityKind { return arbitrage.Constant }

func (p *Pool) Snapshot() Snapshot { return p.snap }

// TradableReserves are the reserves the math runs on
func (p *Pool) TradableReserves() (base, quote uint64) { return p.base, p.quote }

func (p *Pool) FeeRate() float64 {
	return 1 - float64(feeDenominator-p.snap.SwapFeeBps)/feeDenominator
}

func (p *Pool) Price() float64 {
	return p.orient.Price(float64(p.quote) / float64(p.base))
}

func (p *Pool) QuoteForward(amountIn uint64, leg arbitrage.Leg) (arbitrage.SwapQuote, error) {
	res, err := GetAmountOut(p.base, p.quote, amountIn, p.snap.SwapFeeBps, p.orient.SwapForQuote(leg))
	if err != nil {
		return arbitrage.SwapQuote{}, err
	}
	return arbitrage.SwapQuote{
		AmountOut:   res.AmountOut,
		ConsumedIn:  amountIn,
		FullyFilled: true,
		NewPrice:    p.orient.Price(res.NewPrice),
	}, nil
}

func (p *Pool) QuoteInverse(amountOut uint64, leg arbitrage.Leg) (arbitrage.SwapQuote, error) {
	res, err := GetAmountIn(p.base, p.quote, amountOut, p.snap.SwapFeeBps, p.orient.SwapForQuote(leg))
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

func (p *Pool) MaxTradableAmount(float64, arbitrage.Leg) uint64 {
	return math.MaxUint64
}

func (p *Pool) ReserveProduct() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(p.base), uint256.NewInt(p.quote))
}

func (p *Pool) ExecuteSwap(ctx context.Context, amountIn, minAmountOut uint64, leg arbitrage.Leg) error {
	if p.exec == nil {
		return arbitrage.ErrNoExecutor
	}
	data, err := PackSwap(p.orient.TokenIn(leg), amountIn, minAmountOut)
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
