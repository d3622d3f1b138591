package pnlamm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

var (
	poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	coin     = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	pc       = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

type stubExecutor struct {
	calls []arbitrage.SwapCall
	err   error
}

func (s *stubExecutor) Submit(_ context.Context, call arbitrage.SwapCall) error {
	s.calls = append(s.calls, call)
	return s.err
}

func testSnapshot() Snapshot {
	return Snapshot{
		Address:          poolAddr,
		BaseToken:        coin,
		QuoteToken:       pc,
		BaseReserve:      12794417033873 + 1_000,
		QuoteReserve:     14623638931098 + 2_000,
		NeedTakePnlBase:  1_000,
		NeedTakePnlQuote: 2_000,
		SwapFeeBps:       fee,
	}
}

func TestNewPool_Validation(t *testing.T) {
	_, err := NewPool(testSnapshot(), coin, coin, nil)
	assert.ErrorIs(t, err, arbitrage.ErrTokenMintMismatch)

	snap := testSnapshot()
	snap.SwapFeeBps = 10000
	_, err = NewPool(snap, pc, coin, nil)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)

	snap = testSnapshot()
	snap.NeedTakePnlBase = snap.BaseReserve + 1
	_, err = NewPool(snap, pc, coin, nil)
	assert.ErrorIs(t, err, arbitrage.ErrOverflow)

	snap = testSnapshot()
	snap.NeedTakePnlQuote = snap.QuoteReserve
	_, err = NewPool(snap, pc, coin, nil)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)
}

func TestPool_QuotesOnPnlAdjustedReserves(t *testing.T) {
	p, err := NewPool(testSnapshot(), coin, pc, nil)
	require.NoError(t, err)

	base, quote := p.TradableReserves()
	assert.Equal(t, uint64(12794417033873), base)
	assert.Equal(t, uint64(14623638931098), quote)
	assert.InDelta(t, 0.0025, p.FeeRate(), 1e-12)

	// source is coin, so the first leg sells coin for pc
	q, err := p.QuoteForward(4770695067, arbitrage.SourceToIntermediate)
	require.NoError(t, err)
	assert.Equal(t, uint64(5437108676), q.AmountOut)
	assert.InDelta(t, 1/1.142119494768333, q.NewPrice, 1e-12)

	inv, err := p.QuoteInverse(5437108676, arbitrage.SourceToIntermediate)
	require.NoError(t, err)
	assert.Equal(t, uint64(4770695067), inv.ConsumedIn)
}

func TestPool_PriceOrientation(t *testing.T) {
	fromPc, err := NewPool(testSnapshot(), pc, coin, nil)
	require.NoError(t, err)
	fromCoin, err := NewPool(testSnapshot(), coin, pc, nil)
	require.NoError(t, err)

	assert.InDelta(t, 14623638931098.0/12794417033873.0, fromPc.Price(), 1e-12)
	assert.InDelta(t, 12794417033873.0/14623638931098.0, fromCoin.Price(), 1e-12)
}

func TestPool_ExecuteSwapPaysTheLegToken(t *testing.T) {
	exec := &stubExecutor{}
	p, err := NewPool(testSnapshot(), pc, coin, exec)
	require.NoError(t, err)

	require.NoError(t, p.ExecuteSwap(context.Background(), 500, 400, arbitrage.SourceToIntermediate))
	require.NoError(t, p.ExecuteSwap(context.Background(), 400, 500, arbitrage.IntermediateToSource))
	require.Len(t, exec.calls, 2)

	method := ABI.Methods["swap"]
	args, err := method.Inputs.Unpack(exec.calls[0].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, pc, args[0])
	assert.Equal(t, big.NewInt(500), args[1])
	assert.Equal(t, big.NewInt(400), args[2])

	args, err = method.Inputs.Unpack(exec.calls[1].Data[4:])
	require.NoError(t, err)
	assert.Equal(t, coin, args[0])
	assert.Equal(t, arbitrage.IntermediateToSource, exec.calls[1].Leg)
}

func TestPool_ExecuteSwapPropagatesExecutorError(t *testing.T) {
	boom := errors.New("reverted: slippage")
	p, err := NewPool(testSnapshot(), pc, coin, &stubExecutor{err: boom})
	require.NoError(t, err)

	err = p.ExecuteSwap(context.Background(), 1, 1, arbitrage.SourceToIntermediate)
	assert.ErrorIs(t, err, boom)
}
