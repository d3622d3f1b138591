package pnlamm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const venueABIJSON = `[
	{"name":"getPoolState","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[
		{"name":"baseToken","type":"address"},
		{"name":"quoteToken","type":"address"},
		{"name":"baseReserve","type":"uint256"},
		{"name":"quoteReserve","type":"uint256"},
		{"name":"needTakePnlBase","type":"uint256"},
		{"name":"needTakePnlQuote","type":"uint256"},
		{"name":"swapFeeBps","type":"uint64"}]},
	{"name":"swap","type":"function","stateMutability":"nonpayable",
	 "inputs":[
		{"name":"tokenIn","type":"address"},
		{"name":"amountIn","type":"uint256"},
		{"name":"minAmountOut","type":"uint256"}],
	 "outputs":[{"name":"amountOut","type":"uint256"}]}
]`

// ABI is the venue's contract interface
var ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(venueABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse pnl venue abi: %v", err))
	}
	ABI = parsed
}

// PackSwap encodes an exact-input swap paying tokenIn
func PackSwap(tokenIn common.Address, amountIn, minAmountOut uint64) ([]byte, error) {
	data, err := ABI.Pack("swap", tokenIn, new(big.Int).SetUint64(amountIn), new(big.Int).SetUint64(minAmountOut))
	if err != nil {
		return nil, fmt.Errorf("pack swap: %w", err)
	}
	return data, nil
}
