package snapshot

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/dex/pnlamm"
	"github.com/pulkyeet/amm-arb/internal/dex/tiered"
	"github.com/pulkyeet/amm-arb/internal/eth"
)

var (
	pool  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	base  = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	quote = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

// chainStub answers eth_call by method selector
type chainStub struct {
	outputs map[string][]byte
	calls   int
}

func (c *chainStub) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.calls++
	out, ok := c.outputs[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (c *chainStub) set(t *testing.T, contract abi.ABI, method string, values ...interface{}) {
	t.Helper()
	out, err := contract.Methods[method].Outputs.Pack(values...)
	require.NoError(t, err)
	c.outputs[string(contract.Methods[method].ID)] = out
}

func tieredChain(t *testing.T) *chainStub {
	erc20, err := abi.JSON(strings.NewReader(eth.ERC20ABI))
	require.NoError(t, err)

	c := &chainStub{outputs: map[string][]byte{}}
	c.set(t, tiered.ABI, "getReserves", big.NewInt(35722696881401), big.NewInt(942150070694))
	c.set(t, tiered.ABI, "baseToken", base)
	c.set(t, tiered.ABI, "quoteToken", quote)
	c.set(t, tiered.ABI, "feeTiers",
		[]*big.Int{big.NewInt(0), big.NewInt(1_000_000_000_000)},
		[]uint64{20, 20},
		[]uint64{5, 5},
		[]uint64{95, 5},
	)
	c.set(t, erc20, "totalSupply", big.NewInt(1_000_000_000_000_000))
	return c
}

func TestTieredSnapshot(t *testing.T) {
	chain := tieredChain(t)
	r, err := NewReader(chain, 16, nil)
	require.NoError(t, err)

	snap, err := r.TieredSnapshot(context.Background(), pool, 100)
	require.NoError(t, err)
	assert.Equal(t, base, snap.BaseToken)
	assert.Equal(t, quote, snap.QuoteToken)
	assert.Equal(t, uint64(35722696881401), snap.BaseReserve)
	assert.Equal(t, uint64(942150070694), snap.QuoteReserve)
	assert.Equal(t, uint64(1_000_000_000_000_000), snap.BaseSupply)
	require.Len(t, snap.FeeTiers, 2)
	assert.Equal(t, uint64(95), snap.FeeTiers[0].Fees.CreatorFeeBps)
	assert.Equal(t, uint64(1_000_000_000_000), snap.FeeTiers[1].MarketCapThreshold.Uint64())

	// the snapshot feeds straight into a pool
	p, err := tiered.NewPool(snap, quote, base, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), p.Fees().TotalBps())
}

func TestTieredSnapshot_Cached(t *testing.T) {
	chain := tieredChain(t)
	r, err := NewReader(chain, 16, nil)
	require.NoError(t, err)

	_, err = r.TieredSnapshot(context.Background(), pool, 100)
	require.NoError(t, err)
	calls := chain.calls

	_, err = r.TieredSnapshot(context.Background(), pool, 100)
	require.NoError(t, err)
	assert.Equal(t, calls, chain.calls)

	_, err = r.TieredSnapshot(context.Background(), pool, 101)
	require.NoError(t, err)
	assert.Greater(t, chain.calls, calls)
}

func TestTieredSnapshot_MismatchedTierColumns(t *testing.T) {
	chain := tieredChain(t)
	chain.set(t, tiered.ABI, "feeTiers",
		[]*big.Int{big.NewInt(0), big.NewInt(1)},
		[]uint64{20},
		[]uint64{5, 5},
		[]uint64{5, 5},
	)
	r, err := NewReader(chain, 16, nil)
	require.NoError(t, err)

	_, err = r.TieredSnapshot(context.Background(), pool, 1)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)
}

func TestTieredSnapshot_ReserveTooLarge(t *testing.T) {
	chain := tieredChain(t)
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	chain.set(t, tiered.ABI, "getReserves", huge, big.NewInt(1))
	r, err := NewReader(chain, 16, nil)
	require.NoError(t, err)

	_, err = r.TieredSnapshot(context.Background(), pool, 1)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)
}

func TestPnlSnapshot(t *testing.T) {
	chain := &chainStub{outputs: map[string][]byte{}}
	chain.set(t, pnlamm.ABI, "getPoolState",
		base, quote,
		big.NewInt(12794417033873), big.NewInt(14623638931098),
		big.NewInt(10), big.NewInt(20),
		uint64(25),
	)
	r, err := NewReader(chain, 16, nil)
	require.NoError(t, err)

	snap, err := r.PnlSnapshot(context.Background(), pool, 7)
	require.NoError(t, err)
	assert.Equal(t, pnlamm.Snapshot{
		Address:          pool,
		BaseToken:        base,
		QuoteToken:       quote,
		BaseReserve:      12794417033873,
		QuoteReserve:     14623638931098,
		NeedTakePnlBase:  10,
		NeedTakePnlQuote: 20,
		SwapFeeBps:       25,
	}, snap)
}

func TestPnlSnapshot_UndersizedData(t *testing.T) {
	chain := &chainStub{outputs: map[string][]byte{
		string(pnlamm.ABI.Methods["getPoolState"].ID): make([]byte, 64),
	}}
	r, err := NewReader(chain, 16, nil)
	require.NoError(t, err)

	_, err = r.PnlSnapshot(context.Background(), pool, 7)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)
}
