// Package dex holds what the venue math packages share.
// prices are always quote per base at this level; pools reorient them.
package dex

// AmountOutResult is a forward quote against raw reserves
type AmountOutResult struct {
	AmountOut uint64
	NewPrice  float64
}

// AmountInResult is an inverse quote against raw reserves
type AmountInResult struct {
	AmountIn uint64
	NewPrice float64
}

// Reserves orders a base/quote pair into (input, output) for the swap direction
func Reserves(base, quote uint64, swapForQuote bool) (in, out uint64) {
	if swapForQuote {
		return base, quote
	}
	return quote, base
}

// QuotePerBase flips a price measured in the output/input frame back to quote per base
func QuotePerBase(price float64, swapForQuote bool) float64 {
	if swapForQuote {
		return price
	}
	return 1 / price
}
