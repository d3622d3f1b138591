package arbitrage

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
)

// BalanceReader reads the executing account's native and source-token balances
type BalanceReader interface {
	NativeBalance(ctx context.Context) (*uint256.Int, error)
	SourceBalance(ctx context.Context) (*uint256.Int, error)
}

// BalanceSnapshot is the account's aggregate value at one point in time
type BalanceSnapshot struct {
	Native *uint256.Int
	Source *uint256.Int
}

// Total is native + source. a sum that does not fit 256 bits is an error
func (b BalanceSnapshot) Total() (*uint256.Int, error) {
	total, overflow := new(uint256.Int).AddOverflow(b.Native, b.Source)
	if overflow {
		return nil, ErrOverflow
	}
	return total, nil
}

func CaptureBalances(ctx context.Context, r BalanceReader) (BalanceSnapshot, error) {
	native, err := r.NativeBalance(ctx)
	if err != nil {
		return BalanceSnapshot{}, fmt.Errorf("native balance: %w", err)
	}
	source, err := r.SourceBalance(ctx)
	if err != nil {
		return BalanceSnapshot{}, fmt.Errorf("source balance: %w", err)
	}
	return BalanceSnapshot{Native: native, Source: source}, nil
}

// VerifyBalances rejects an attempt that left the account worse off than before.
// it is independent of the search's own profit estimate
func VerifyBalances(ctx context.Context, r BalanceReader, before BalanceSnapshot) (BalanceSnapshot, error) {
	after, err := CaptureBalances(ctx, r)
	if err != nil {
		return BalanceSnapshot{}, err
	}
	start, err := before.Total()
	if err != nil {
		return after, err
	}
	end, err := after.Total()
	if err != nil {
		return after, err
	}
	if end.Lt(start) {
		return after, fmt.Errorf("balance dropped from %s to %s: %w", start.Dec(), end.Dec(), ErrVerificationFailed)
	}
	return after, nil
}
