package backtest

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/amm-arb/internal/dex/pnlamm"
	"github.com/pulkyeet/amm-arb/internal/dex/tiered"
)

// SnapshotSource is satisfied by snapshot.Reader
type SnapshotSource interface {
	TieredSnapshot(ctx context.Context, pool common.Address, block uint64) (tiered.Snapshot, error)
	PnlSnapshot(ctx context.Context, pool common.Address, block uint64) (pnlamm.Snapshot, error)
}

// PoolRef names a venue and how to read it
type PoolRef struct {
	Kind    string
	Address common.Address
}

func (p PoolRef) String() string {
	return p.Kind + ":" + p.Address.Hex()
}

// ParsePoolRef parses "kind:0xaddress", e.g. "pnl:0xabc..."
func ParsePoolRef(s string) (PoolRef, error) {
	kind, addr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return PoolRef{}, fmt.Errorf("pool %q: want kind:address", s)
	}
	if kind != KindTiered && kind != KindPnl {
		return PoolRef{}, fmt.Errorf("pool %q: unknown kind %q", s, kind)
	}
	if !common.IsHexAddress(addr) {
		return PoolRef{}, fmt.Errorf("pool %q: bad address", s)
	}
	return PoolRef{Kind: kind, Address: common.HexToAddress(addr)}, nil
}

func ParsePoolRefs(list string) ([]PoolRef, error) {
	var refs []PoolRef
	for _, s := range strings.Split(list, ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		ref, err := ParsePoolRef(s)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// RecordRow reads one venue at block and converts it to a row
func RecordRow(ctx context.Context, src SnapshotSource, ref PoolRef, block uint64) (PoolRow, error) {
	switch ref.Kind {
	case KindTiered:
		snap, err := src.TieredSnapshot(ctx, ref.Address, block)
		if err != nil {
			return PoolRow{}, fmt.Errorf("snapshot %s: %w", ref, err)
		}
		return RowFromTiered(block, snap)
	case KindPnl:
		snap, err := src.PnlSnapshot(ctx, ref.Address, block)
		if err != nil {
			return PoolRow{}, fmt.Errorf("snapshot %s: %w", ref, err)
		}
		return RowFromPnl(block, snap), nil
	default:
		return PoolRow{}, fmt.Errorf("unknown pool kind %q", ref.Kind)
	}
}

// RecordBlock snapshots every ref at block, stopping at the first failure
func RecordBlock(ctx context.Context, src SnapshotSource, refs []PoolRef, block uint64) ([]PoolRow, error) {
	rows := make([]PoolRow, 0, len(refs))
	for _, ref := range refs {
		row, err := RecordRow(ctx, src, ref, block)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
