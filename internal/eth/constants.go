package eth

import (
	"github.com/ethereum/go-ethereum/common"
)

// Token addresses, Ethereum mainnet
var (
	WETHAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	USDTAddress = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	DAIAddress  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

// TokenInfo bundles address + decimals for formatting
type TokenInfo struct {
	Address  common.Address
	Decimals int32
	Symbol   string
}

var KnownTokens = map[string]TokenInfo{
	"WETH": {WETHAddress, 18, "WETH"},
	"USDC": {USDCAddress, 6, "USDC"},
	"USDT": {USDTAddress, 6, "USDT"},
	"DAI":  {DAIAddress, 18, "DAI"},
}

// LookupToken resolves a symbol or a hex address
func LookupToken(s string) (TokenInfo, bool) {
	if info, ok := KnownTokens[s]; ok {
		return info, true
	}
	if !common.IsHexAddress(s) {
		return TokenInfo{}, false
	}
	addr := common.HexToAddress(s)
	for _, info := range KnownTokens {
		if info.Address == addr {
			return info, true
		}
	}
	// unknown token, assume 18 decimals
	return TokenInfo{Address: addr, Decimals: 18, Symbol: addr.Hex()[:10]}, true
}

const ERC20ABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`
