package pnlamm

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/dex"
)

const feeDenominator = 10000

// ReservesWithoutPnl strips the venue's undistributed profit from both sides.
// a pnl larger than its reserve means the snapshot is inconsistent
func ReservesWithoutPnl(baseReserve, quoteReserve, needTakePnlBase, needTakePnlQuote uint64) (base, quote uint64, err error) {
	if needTakePnlBase > baseReserve {
		return 0, 0, fmt.Errorf("base pnl %d exceeds reserve %d: %w", needTakePnlBase, baseReserve, arbitrage.ErrOverflow)
	}
	if needTakePnlQuote > quoteReserve {
		return 0, 0, fmt.Errorf("quote pnl %d exceeds reserve %d: %w", needTakePnlQuote, quoteReserve, arbitrage.ErrOverflow)
	}
	return baseReserve - needTakePnlBase, quoteReserve - needTakePnlQuote, nil
}

// priceAfter is the output/input reserve ratio once the swap settles
func priceAfter(inRes, outRes, amountIn, amountOut uint64, swapForQuote bool) float64 {
	newIn := new(uint256.Int).Add(uint256.NewInt(inRes), uint256.NewInt(amountIn))
	newOut := float64(outRes - amountOut)
	return dex.QuotePerBase(newOut/newIn.Float64(), swapForQuote)
}

// GetAmountOut applies the fee to the input and runs constant product on the rest
func GetAmountOut(baseReserve, quoteReserve, amountIn, feeBps uint64, swapForQuote bool) (dex.AmountOutResult, error) {
	if feeBps >= feeDenominator {
		return dex.AmountOutResult{}, fmt.Errorf("fee %d bps: %w", feeBps, arbitrage.ErrInvalidAccount)
	}
	inRes, outRes := dex.Reserves(baseReserve, quoteReserve, swapForQuote)

	withFee := new(uint256.Int).Mul(uint256.NewInt(amountIn), uint256.NewInt(feeDenominator-feeBps))
	withFee.Div(withFee, uint256.NewInt(feeDenominator))

	numerator := new(uint256.Int).Mul(uint256.NewInt(outRes), withFee)
	denominator := new(uint256.Int).Add(uint256.NewInt(inRes), withFee)
	if denominator.IsZero() {
		return dex.AmountOutResult{}, fmt.Errorf("empty input reserve: %w", arbitrage.ErrInvalidAccount)
	}
	amountOut := numerator.Div(numerator, denominator).Uint64()

	return dex.AmountOutResult{
		AmountOut: amountOut,
		NewPrice:  priceAfter(inRes, outRes, amountIn, amountOut, swapForQuote),
	}, nil
}

// GetAmountIn solves for the input, fee included, that buys exactly amountOut.
// both divisions round up so the caller never under-pays
func GetAmountIn(baseReserve, quoteReserve, amountOut, feeBps uint64, swapForQuote bool) (dex.AmountInResult, error) {
	if feeBps >= feeDenominator {
		return dex.AmountInResult{}, fmt.Errorf("fee %d bps: %w", feeBps, arbitrage.ErrInvalidAccount)
	}
	inRes, outRes := dex.Reserves(baseReserve, quoteReserve, swapForQuote)
	if amountOut >= outRes {
		return dex.AmountInResult{}, fmt.Errorf("want %d of %d: %w", amountOut, outRes, arbitrage.ErrInsufficientLiquidity)
	}

	numerator := new(uint256.Int).Mul(uint256.NewInt(inRes), uint256.NewInt(amountOut))
	beforeFee := divCeil(numerator, uint256.NewInt(outRes-amountOut))

	scaled := new(uint256.Int).Mul(beforeFee, uint256.NewInt(feeDenominator))
	amountIn := divCeil(scaled, uint256.NewInt(feeDenominator-feeBps))
	if !amountIn.IsUint64() {
		return dex.AmountInResult{}, fmt.Errorf("amount in %s: %w", amountIn.Dec(), arbitrage.ErrOverflow)
	}

	return dex.AmountInResult{
		AmountIn: amountIn.Uint64(),
		NewPrice: priceAfter(inRes, outRes, amountIn.Uint64(), amountOut, swapForQuote),
	}, nil
}

func divCeil(x, y *uint256.Int) *uint256.Int {
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(x, y, r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}
