package tiered

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

var (
	poolAddr   = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	baseToken  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	quoteToken = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type recordingExecutor struct {
	calls []arbitrage.SwapCall
}

func (r *recordingExecutor) Submit(_ context.Context, call arbitrage.SwapCall) error {
	r.calls = append(r.calls, call)
	return nil
}

func testSnapshot() Snapshot {
	return Snapshot{
		Address:      poolAddr,
		BaseToken:    baseToken,
		QuoteToken:   quoteToken,
		BaseReserve:  35722696881401,
		QuoteReserve: 942150070694,
		BaseSupply:   1_000_000_000_000_000,
		FeeTiers: []FeeTier{
			{MarketCapThreshold: uint256.NewInt(0), Fees: Fees{LPFeeBps: 20, ProtocolFeeBps: 5, CreatorFeeBps: 5}},
		},
	}
}

func TestNewPool_Validation(t *testing.T) {
	other := common.HexToAddress("0x00000000000000000000000000000000000000d1")

	_, err := NewPool(testSnapshot(), quoteToken, quoteToken, nil)
	assert.ErrorIs(t, err, arbitrage.ErrTokenMintMismatch)

	_, err = NewPool(testSnapshot(), other, baseToken, nil)
	assert.ErrorIs(t, err, arbitrage.ErrTokenMintMismatch)

	snap := testSnapshot()
	snap.FeeTiers = nil
	_, err = NewPool(snap, quoteToken, baseToken, nil)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)

	snap = testSnapshot()
	snap.BaseReserve = 0
	_, err = NewPool(snap, quoteToken, baseToken, nil)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)
}

func TestPool_SourceIsQuote(t *testing.T) {
	p, err := NewPool(testSnapshot(), quoteToken, baseToken, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.003, p.FeeRate(), 1e-12)
	assert.InDelta(t, 942150070694.0/35722696881401.0, p.Price(), 1e-15)

	q, err := p.QuoteForward(677970243, arbitrage.SourceToIntermediate)
	require.NoError(t, err)
	assert.Equal(t, uint64(25610754742), q.AmountOut)
	assert.Equal(t, uint64(677970243), q.ConsumedIn)
	assert.True(t, q.FullyFilled)
	assert.Less(t, q.NewPrice, 1.0)

	inv, err := p.QuoteInverse(25610754894, arbitrage.SourceToIntermediate)
	require.NoError(t, err)
	assert.Equal(t, uint64(677970243), inv.ConsumedIn)
}

func TestPool_SourceIsBaseInvertsPrice(t *testing.T) {
	asQuote, err := NewPool(testSnapshot(), quoteToken, baseToken, nil)
	require.NoError(t, err)
	asBase, err := NewPool(testSnapshot(), baseToken, quoteToken, nil)
	require.NoError(t, err)

	assert.InDelta(t, 1/asQuote.Price(), asBase.Price(), 1e-9)

	// selling base is the second leg from the quote side and the first from the base side
	a, err := asQuote.QuoteForward(567208523, arbitrage.IntermediateToSource)
	require.NoError(t, err)
	b, err := asBase.QuoteForward(567208523, arbitrage.SourceToIntermediate)
	require.NoError(t, err)
	assert.Equal(t, a.AmountOut, b.AmountOut)
	assert.InDelta(t, 1/a.NewPrice, b.NewPrice, 1e-6)
}

func TestPool_Bounds(t *testing.T) {
	p, err := NewPool(testSnapshot(), quoteToken, baseToken, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(math.MaxUint64), p.MaxTradableAmount(120, arbitrage.SourceToIntermediate))
	assert.Equal(t, arbitrage.Constant, p.Kind())

	want := new(uint256.Int).Mul(uint256.NewInt(35722696881401), uint256.NewInt(942150070694))
	assert.True(t, want.Eq(p.ReserveProduct()))
}

func TestPool_ExecuteSwapEncodesBuyAndSell(t *testing.T) {
	exec := &recordingExecutor{}
	p, err := NewPool(testSnapshot(), quoteToken, baseToken, exec)
	require.NoError(t, err)

	require.NoError(t, p.ExecuteSwap(context.Background(), 1000, 900, arbitrage.SourceToIntermediate))
	require.NoError(t, p.ExecuteSwap(context.Background(), 900, 1000, arbitrage.IntermediateToSource))
	require.Len(t, exec.calls, 2)

	buy := exec.calls[0]
	assert.Equal(t, ABI.Methods["buy"].ID, buy.Data[:4])
	args, err := ABI.Methods["buy"].Inputs.Unpack(buy.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(900), args[0])
	assert.Equal(t, big.NewInt(1000), args[1])

	sell := exec.calls[1]
	assert.Equal(t, ABI.Methods["sell"].ID, sell.Data[:4])
	args, err = ABI.Methods["sell"].Inputs.Unpack(sell.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(900), args[0])
	assert.Equal(t, big.NewInt(1000), args[1])
	assert.Equal(t, poolAddr, sell.Pool)
}

func TestPool_ExecuteSwapWithoutExecutor(t *testing.T) {
	p, err := NewPool(testSnapshot(), quoteToken, baseToken, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, p.ExecuteSwap(context.Background(), 1, 1, arbitrage.SourceToIntermediate), arbitrage.ErrNoExecutor)
}

func TestNewPool_RejectsWrappingFeeStages(t *testing.T) {
	snap := testSnapshot()
	snap.FeeTiers = []FeeTier{
		{MarketCapThreshold: uint256.NewInt(0), Fees: Fees{CreatorFeeBps: math.MaxUint64, LPFeeBps: 1}},
	}
	_, err := NewPool(snap, quoteToken, baseToken, nil)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)

	snap.FeeTiers[0].Fees = Fees{LPFeeBps: 5000, ProtocolFeeBps: 5000}
	_, err = NewPool(snap, quoteToken, baseToken, nil)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)
}

func TestPool_ExactOutputOnBuyLegs(t *testing.T) {
	p, err := NewPool(testSnapshot(), quoteToken, baseToken, nil)
	require.NoError(t, err)
	// source is quote: paying quote buys base
	assert.True(t, p.ExactOutput(arbitrage.SourceToIntermediate))
	assert.False(t, p.ExactOutput(arbitrage.IntermediateToSource))

	p, err = NewPool(testSnapshot(), baseToken, quoteToken, nil)
	require.NoError(t, err)
	assert.False(t, p.ExactOutput(arbitrage.SourceToIntermediate))
	assert.True(t, p.ExactOutput(arbitrage.IntermediateToSource))
}
