package eth

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

// AccountBalances reads the executing account's balances at the latest block
type AccountBalances struct {
	Client      *Client
	Account     common.Address
	SourceToken common.Address
}

var _ arbitrage.BalanceReader = (*AccountBalances)(nil)

func (a *AccountBalances) NativeBalance(ctx context.Context) (*uint256.Int, error) {
	bal, err := a.Client.BalanceAt(ctx, a.Account, nil)
	if err != nil {
		return nil, err
	}
	out, overflow := uint256.FromBig(bal)
	if overflow {
		return nil, arbitrage.ErrOverflow
	}
	return out, nil
}

func (a *AccountBalances) SourceBalance(ctx context.Context) (*uint256.Int, error) {
	return TokenBalance(ctx, a.Client, a.SourceToken, a.Account, nil)
}
