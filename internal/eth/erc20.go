package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var erc20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		panic(fmt.Sprintf("parse erc20 abi: %v", err))
	}
	erc20ABI = parsed
}

func callUint(ctx context.Context, caller ethereum.ContractCaller, token common.Address, blockNum *big.Int, method string, args ...interface{}) (*uint256.Int, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, blockNum)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	unpacked, err := erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(unpacked) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(unpacked))
	}
	v, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s type assertion failed", method)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%s does not fit 256 bits", method)
	}
	return out, nil
}

func TokenBalance(ctx context.Context, caller ethereum.ContractCaller, token, owner common.Address, blockNum *big.Int) (*uint256.Int, error) {
	return callUint(ctx, caller, token, blockNum, "balanceOf", owner)
}

func TotalSupply(ctx context.Context, caller ethereum.ContractCaller, token common.Address, blockNum *big.Int) (*uint256.Int, error) {
	return callUint(ctx, caller, token, blockNum, "totalSupply")
}

// FormatUnits renders a base-unit amount with the token's decimals
func FormatUnits(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// FormatSigned is FormatUnits for profits, which may be negative
func FormatSigned(amount int64, decimals int32) string {
	return decimal.New(amount, -decimals).String()
}
