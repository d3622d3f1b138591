package backtest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/dex/pnlamm"
	"github.com/pulkyeet/amm-arb/internal/dex/tiered"
)

type feeTierJSON struct {
	Threshold   string `json:"threshold"`
	LPFeeBps    uint64 `json:"lp_fee_bps"`
	ProtocolBps uint64 `json:"protocol_fee_bps"`
	CreatorBps  uint64 `json:"creator_fee_bps"`
}

func RowFromTiered(block uint64, snap tiered.Snapshot) (PoolRow, error) {
	tiers := make([]feeTierJSON, len(snap.FeeTiers))
	for i, t := range snap.FeeTiers {
		tiers[i] = feeTierJSON{
			Threshold:   t.MarketCapThreshold.Dec(),
			LPFeeBps:    t.Fees.LPFeeBps,
			ProtocolBps: t.Fees.ProtocolFeeBps,
			CreatorBps:  t.Fees.CreatorFeeBps,
		}
	}
	encoded, err := json.Marshal(tiers)
	if err != nil {
		return PoolRow{}, fmt.Errorf("encode fee tiers: %w", err)
	}
	return PoolRow{
		BlockNumber:  int64(block),
		Kind:         KindTiered,
		Address:      snap.Address.Hex(),
		BaseToken:    snap.BaseToken.Hex(),
		QuoteToken:   snap.QuoteToken.Hex(),
		BaseReserve:  formatAmount(snap.BaseReserve),
		QuoteReserve: formatAmount(snap.QuoteReserve),
		BaseSupply:   formatAmount(snap.BaseSupply),
		FeeTiers:     string(encoded),
	}, nil
}

func RowFromPnl(block uint64, snap pnlamm.Snapshot) PoolRow {
	return PoolRow{
		BlockNumber:      int64(block),
		Kind:             KindPnl,
		Address:          snap.Address.Hex(),
		BaseToken:        snap.BaseToken.Hex(),
		QuoteToken:       snap.QuoteToken.Hex(),
		BaseReserve:      formatAmount(snap.BaseReserve),
		QuoteReserve:     formatAmount(snap.QuoteReserve),
		NeedTakePnlBase:  formatAmount(snap.NeedTakePnlBase),
		NeedTakePnlQuote: formatAmount(snap.NeedTakePnlQuote),
		SwapFeeBps:       int64(snap.SwapFeeBps),
	}
}

// Tokens returns the pair a row trades
func (r PoolRow) Tokens() (base, quote common.Address) {
	return common.HexToAddress(r.BaseToken), common.HexToAddress(r.QuoteToken)
}

func (r PoolRow) TieredSnapshot() (tiered.Snapshot, error) {
	if r.Kind != KindTiered {
		return tiered.Snapshot{}, fmt.Errorf("row %s is %q, not tiered: %w", r.Address, r.Kind, arbitrage.ErrInvalidAccount)
	}
	base, quote := r.Tokens()
	snap := tiered.Snapshot{Address: common.HexToAddress(r.Address), BaseToken: base, QuoteToken: quote}

	var err error
	if snap.BaseReserve, err = parseAmount(r.BaseReserve, "base_reserve"); err != nil {
		return tiered.Snapshot{}, err
	}
	if snap.QuoteReserve, err = parseAmount(r.QuoteReserve, "quote_reserve"); err != nil {
		return tiered.Snapshot{}, err
	}
	if snap.BaseSupply, err = parseAmount(r.BaseSupply, "base_supply"); err != nil {
		return tiered.Snapshot{}, err
	}

	var tiers []feeTierJSON
	if err := json.Unmarshal([]byte(r.FeeTiers), &tiers); err != nil {
		return tiered.Snapshot{}, fmt.Errorf("fee tiers: %v: %w", err, arbitrage.ErrInvalidAccount)
	}
	for i, t := range tiers {
		threshold, err := uint256.FromDecimal(t.Threshold)
		if err != nil {
			return tiered.Snapshot{}, fmt.Errorf("tier %d threshold %q: %w", i, t.Threshold, arbitrage.ErrInvalidAccount)
		}
		snap.FeeTiers = append(snap.FeeTiers, tiered.FeeTier{
			MarketCapThreshold: threshold,
			Fees: tiered.Fees{
				LPFeeBps:       t.LPFeeBps,
				ProtocolFeeBps: t.ProtocolBps,
				CreatorFeeBps:  t.CreatorBps,
			},
		})
	}
	return snap, nil
}

func (r PoolRow) PnlSnapshot() (pnlamm.Snapshot, error) {
	if r.Kind != KindPnl {
		return pnlamm.Snapshot{}, fmt.Errorf("row %s is %q, not pnl: %w", r.Address, r.Kind, arbitrage.ErrInvalidAccount)
	}
	if r.SwapFeeBps < 0 {
		return pnlamm.Snapshot{}, fmt.Errorf("swap_fee_bps %d: %w", r.SwapFeeBps, arbitrage.ErrInvalidAccount)
	}
	base, quote := r.Tokens()
	snap := pnlamm.Snapshot{
		Address:    common.HexToAddress(r.Address),
		BaseToken:  base,
		QuoteToken: quote,
		SwapFeeBps: uint64(r.SwapFeeBps),
	}

	fields := []struct {
		dst  *uint64
		raw  string
		name string
	}{
		{&snap.BaseReserve, r.BaseReserve, "base_reserve"},
		{&snap.QuoteReserve, r.QuoteReserve, "quote_reserve"},
		{&snap.NeedTakePnlBase, r.NeedTakePnlBase, "need_take_pnl_base"},
		{&snap.NeedTakePnlQuote, r.NeedTakePnlQuote, "need_take_pnl_quote"},
	}
	for _, f := range fields {
		v, err := parseAmount(f.raw, f.name)
		if err != nil {
			return pnlamm.Snapshot{}, err
		}
		*f.dst = v
	}
	return snap, nil
}

// BuildPool turns a row into a pool oriented for source and intermediate.
// exec may be nil for quote-only replays
func BuildPool(r PoolRow, source, intermediate common.Address, exec arbitrage.Executor) (arbitrage.Pool, error) {
	switch r.Kind {
	case KindTiered:
		snap, err := r.TieredSnapshot()
		if err != nil {
			return nil, err
		}
		return tiered.NewPool(snap, source, intermediate, exec)
	case KindPnl:
		snap, err := r.PnlSnapshot()
		if err != nil {
			return nil, err
		}
		return pnlamm.NewPool(snap, source, intermediate, exec)
	default:
		return nil, fmt.Errorf("unknown pool kind %q: %w", r.Kind, arbitrage.ErrInvalidAccount)
	}
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// empty strings read as zero so optional columns may be left blank
func parseAmount(s, name string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, s, arbitrage.ErrInvalidAccount)
	}
	return v, nil
}
