// Package snapshot reads venue state through eth_call and turns it into
// the immutable snapshots pools are built from.
package snapshot

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/dex/pnlamm"
	"github.com/pulkyeet/amm-arb/internal/dex/tiered"
	"github.com/pulkyeet/amm-arb/internal/eth"
	"github.com/pulkyeet/amm-arb/internal/metrics"
)

type cacheKey struct {
	pool  common.Address
	block uint64
}

// Reader loads pool snapshots at a fixed block.
// snapshots are cached per (pool, block) since state at a mined block never changes
type Reader struct {
	caller ethereum.ContractCaller
	tiered *lru.Cache[cacheKey, tiered.Snapshot]
	pnl    *lru.Cache[cacheKey, pnlamm.Snapshot]
	log    *zap.Logger
}

func NewReader(caller ethereum.ContractCaller, cacheSize int, log *zap.Logger) (*Reader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t, err := lru.New[cacheKey, tiered.Snapshot](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("tiered cache: %w", err)
	}
	p, err := lru.New[cacheKey, pnlamm.Snapshot](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("pnl cache: %w", err)
	}
	return &Reader{caller: caller, tiered: t, pnl: p, log: log}, nil
}

// call packs method, runs it against pool at block and unpacks the result.
// any decoding problem is reported as invalid account data
func (r *Reader) call(ctx context.Context, contract abi.ABI, pool common.Address, block uint64, method string) ([]interface{}, error) {
	data, err := contract.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, new(big.Int).SetUint64(block))
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	unpacked, err := contract.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %v: %w", method, err, arbitrage.ErrInvalidAccount)
	}
	if want := len(contract.Methods[method].Outputs); len(unpacked) != want {
		return nil, fmt.Errorf("%s returned %d values, want %d: %w", method, len(unpacked), want, arbitrage.ErrInvalidAccount)
	}
	return unpacked, nil
}

// TieredSnapshot reads reserves, tokens, base supply and the fee tier table of a tiered venue
func (r *Reader) TieredSnapshot(ctx context.Context, pool common.Address, block uint64) (tiered.Snapshot, error) {
	key := cacheKey{pool, block}
	if snap, ok := r.tiered.Get(key); ok {
		metrics.SnapshotCacheHits.Inc()
		return snap, nil
	}

	reserves, err := r.call(ctx, tiered.ABI, pool, block, "getReserves")
	if err != nil {
		return tiered.Snapshot{}, err
	}
	baseToken, err := r.address(ctx, tiered.ABI, pool, block, "baseToken")
	if err != nil {
		return tiered.Snapshot{}, err
	}
	quoteToken, err := r.address(ctx, tiered.ABI, pool, block, "quoteToken")
	if err != nil {
		return tiered.Snapshot{}, err
	}
	tiersRaw, err := r.call(ctx, tiered.ABI, pool, block, "feeTiers")
	if err != nil {
		return tiered.Snapshot{}, err
	}

	snap := tiered.Snapshot{Address: pool, BaseToken: baseToken, QuoteToken: quoteToken}
	if snap.BaseReserve, err = asUint64(reserves[0], "baseReserve"); err != nil {
		return tiered.Snapshot{}, err
	}
	if snap.QuoteReserve, err = asUint64(reserves[1], "quoteReserve"); err != nil {
		return tiered.Snapshot{}, err
	}
	if snap.FeeTiers, err = decodeFeeTiers(tiersRaw); err != nil {
		return tiered.Snapshot{}, err
	}

	supply, err := eth.TotalSupply(ctx, r.caller, baseToken, new(big.Int).SetUint64(block))
	if err != nil {
		return tiered.Snapshot{}, fmt.Errorf("base supply: %w", err)
	}
	if !supply.IsUint64() {
		return tiered.Snapshot{}, fmt.Errorf("base supply %s: %w", supply.Dec(), arbitrage.ErrInvalidAccount)
	}
	snap.BaseSupply = supply.Uint64()

	r.tiered.Add(key, snap)
	r.log.Debug("loaded tiered snapshot",
		zap.Stringer("pool", pool),
		zap.Uint64("block", block),
		zap.Uint64("base", snap.BaseReserve),
		zap.Uint64("quote", snap.QuoteReserve),
		zap.Int("tiers", len(snap.FeeTiers)),
	)
	return snap, nil
}

// PnlSnapshot reads the full pool state of a pnl venue in one call
func (r *Reader) PnlSnapshot(ctx context.Context, pool common.Address, block uint64) (pnlamm.Snapshot, error) {
	key := cacheKey{pool, block}
	if snap, ok := r.pnl.Get(key); ok {
		metrics.SnapshotCacheHits.Inc()
		return snap, nil
	}

	state, err := r.call(ctx, pnlamm.ABI, pool, block, "getPoolState")
	if err != nil {
		return pnlamm.Snapshot{}, err
	}

	snap := pnlamm.Snapshot{Address: pool}
	var ok bool
	if snap.BaseToken, ok = state[0].(common.Address); !ok {
		return pnlamm.Snapshot{}, fmt.Errorf("baseToken type assertion failed: %w", arbitrage.ErrInvalidAccount)
	}
	if snap.QuoteToken, ok = state[1].(common.Address); !ok {
		return pnlamm.Snapshot{}, fmt.Errorf("quoteToken type assertion failed: %w", arbitrage.ErrInvalidAccount)
	}
	fields := []struct {
		dst  *uint64
		name string
	}{
		{&snap.BaseReserve, "baseReserve"},
		{&snap.QuoteReserve, "quoteReserve"},
		{&snap.NeedTakePnlBase, "needTakePnlBase"},
		{&snap.NeedTakePnlQuote, "needTakePnlQuote"},
	}
	for i, f := range fields {
		if *f.dst, err = asUint64(state[2+i], f.name); err != nil {
			return pnlamm.Snapshot{}, err
		}
	}
	if snap.SwapFeeBps, ok = state[6].(uint64); !ok {
		return pnlamm.Snapshot{}, fmt.Errorf("swapFeeBps type assertion failed: %w", arbitrage.ErrInvalidAccount)
	}

	r.pnl.Add(key, snap)
	r.log.Debug("loaded pnl snapshot",
		zap.Stringer("pool", pool),
		zap.Uint64("block", block),
		zap.Uint64("base", snap.BaseReserve),
		zap.Uint64("quote", snap.QuoteReserve),
		zap.Uint64("fee_bps", snap.SwapFeeBps),
	)
	return snap, nil
}

func (r *Reader) address(ctx context.Context, contract abi.ABI, pool common.Address, block uint64, method string) (common.Address, error) {
	out, err := r.call(ctx, contract, pool, block, method)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s type assertion failed: %w", method, arbitrage.ErrInvalidAccount)
	}
	return addr, nil
}

func asUint64(v interface{}, name string) (uint64, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s type assertion failed: %w", name, arbitrage.ErrInvalidAccount)
	}
	if b.Sign() < 0 || !b.IsUint64() {
		return 0, fmt.Errorf("%s %s does not fit 64 bits: %w", name, b, arbitrage.ErrInvalidAccount)
	}
	return b.Uint64(), nil
}

func decodeFeeTiers(raw []interface{}) ([]tiered.FeeTier, error) {
	thresholds, ok := raw[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("thresholds type assertion failed: %w", arbitrage.ErrInvalidAccount)
	}
	var columns [3][]uint64
	for i := range columns {
		if columns[i], ok = raw[1+i].([]uint64); !ok {
			return nil, fmt.Errorf("fee column %d type assertion failed: %w", i, arbitrage.ErrInvalidAccount)
		}
		if len(columns[i]) != len(thresholds) {
			return nil, fmt.Errorf("fee column %d has %d rows, want %d: %w", i, len(columns[i]), len(thresholds), arbitrage.ErrInvalidAccount)
		}
	}
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("empty fee tier table: %w", arbitrage.ErrInvalidAccount)
	}

	tiers := make([]tiered.FeeTier, len(thresholds))
	for i, th := range thresholds {
		threshold, overflow := uint256.FromBig(th)
		if overflow {
			return nil, fmt.Errorf("tier %d threshold: %w", i, arbitrage.ErrInvalidAccount)
		}
		tiers[i] = tiered.FeeTier{
			MarketCapThreshold: threshold,
			Fees: tiered.Fees{
				LPFeeBps:       columns[0][i],
				ProtocolFeeBps: columns[1][i],
				CreatorFeeBps:  columns[2][i],
			},
		}
	}
	return tiers, nil
}
