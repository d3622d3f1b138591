package tiered

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const venueABIJSON = `[
	{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"baseReserve","type":"uint256"},{"name":"quoteReserve","type":"uint256"}]},
	{"name":"baseToken","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"name":"quoteToken","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"name":"feeTiers","type":"function","stateMutability":"view","inputs":[],
	 "outputs":[
		{"name":"thresholds","type":"uint256[]"},
		{"name":"lpFeeBps","type":"uint64[]"},
		{"name":"protocolFeeBps","type":"uint64[]"},
		{"name":"creatorFeeBps","type":"uint64[]"}]},
	{"name":"buy","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"baseAmountOut","type":"uint256"},{"name":"maxQuoteAmountIn","type":"uint256"}],"outputs":[]},
	{"name":"sell","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"baseAmountIn","type":"uint256"},{"name":"minQuoteAmountOut","type":"uint256"}],"outputs":[]}
]`

// ABI is the venue's contract interface, views and swaps
var ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(venueABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse tiered venue abi: %v", err))
	}
	ABI = parsed
}

// PackBuy encodes buying exactly baseAmountOut for at most maxQuoteIn
func PackBuy(baseAmountOut, maxQuoteIn uint64) ([]byte, error) {
	data, err := ABI.Pack("buy", new(big.Int).SetUint64(baseAmountOut), new(big.Int).SetUint64(maxQuoteIn))
	if err != nil {
		return nil, fmt.Errorf("pack buy: %w", err)
	}
	return data, nil
}

// PackSell encodes selling baseAmountIn for at least minQuoteOut
func PackSell(baseAmountIn, minQuoteOut uint64) ([]byte, error) {
	data, err := ABI.Pack("sell", new(big.Int).SetUint64(baseAmountIn), new(big.Int).SetUint64(minQuoteOut))
	if err != nil {
		return nil, fmt.Errorf("pack sell: %w", err)
	}
	return data, nil
}
