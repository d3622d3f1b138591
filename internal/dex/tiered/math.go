package tiered

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/dex"
)

// buyFeeEpsilon keeps the fee-on-input reconstruction strictly conservative
const buyFeeEpsilon = 0.0001

func totalBps(fees []uint64) uint64 {
	var total uint64
	for _, f := range fees {
		sum, carry := bits.Add64(total, f, 0)
		if carry != 0 {
			return math.MaxUint64
		}
		total = sum
	}
	return total
}

// GetAmountOut quotes a swap of amountIn against the reserves.
//
// Selling base for quote, every fee stage is taken from the raw output and
// the new price follows the raw (pre-fee) reserve delta. Buying base with
// quote, the fee comes off the input first.
func GetAmountOut(baseReserve, quoteReserve, amountIn uint64, fees []uint64, swapForQuote bool) dex.AmountOutResult {
	inRes, outRes := dex.Reserves(baseReserve, quoteReserve, swapForQuote)
	inF, outF, amountF := float64(inRes), float64(outRes), float64(amountIn)

	var amountOut uint64
	var newPrice float64

	if swapForQuote {
		raw := float64(outF*amountF) / (inF + amountF)

		var totalFee uint64
		for _, f := range fees {
			totalFee += uint64(math.Ceil(float64(raw*float64(f)) / 10000))
		}

		gross := uint64(raw)
		switch {
		case amountIn == 0:
			amountOut = 0
		case gross <= totalFee:
			amountOut = 1
		default:
			amountOut = gross - totalFee
		}
		newPrice = (outF - raw) / (inF + amountF)
	} else {
		denominator := 1 + (float64(totalBps(fees))+buyFeeEpsilon)/10000
		net := math.Floor(amountF / denominator)

		amountOut = uint64(float64(outF*net) / (inF + net))
		newPrice = (outF - float64(amountOut)) / (inF + net)
	}

	// float rounding must never let a quote drain the output side
	if amountOut >= outRes {
		amountOut = outRes - 1
	}

	return dex.AmountOutResult{
		AmountOut: amountOut,
		NewPrice:  dex.QuotePerBase(newPrice, swapForQuote),
	}
}

// GetAmountIn solves for the input that yields at least amountOut after fees
func GetAmountIn(baseReserve, quoteReserve, amountOut uint64, fees []uint64, swapForQuote bool) (dex.AmountInResult, error) {
	inRes, outRes := dex.Reserves(baseReserve, quoteReserve, swapForQuote)
	inF, outF, wantF := float64(inRes), float64(outRes), float64(amountOut)

	if total := totalBps(fees); total >= 10000 {
		return dex.AmountInResult{}, fmt.Errorf("total fee %d bps: %w", total, arbitrage.ErrInvalidAccount)
	}
	if amountOut >= outRes {
		return dex.AmountInResult{}, fmt.Errorf("want %d of %d: %w", amountOut, outRes, arbitrage.ErrInsufficientLiquidity)
	}

	var amountIn float64

	if swapForQuote {
		denominator := 10000 - float64(totalBps(fees))
		numerator := float64(wantF * 10000)
		reversed := math.Ceil((numerator+denominator)/denominator) + 2

		if reversed >= outF {
			return dex.AmountInResult{}, fmt.Errorf("gross output %.0f of %d: %w", reversed, outRes, arbitrage.ErrInsufficientLiquidity)
		}
		amountIn = math.Ceil(float64(inF*reversed) / (outF - reversed))
	} else {
		net := math.Ceil(float64(inF*wantF) / (outF - wantF))

		var totalFee float64
		for _, f := range fees {
			totalFee += math.Ceil(float64(net*float64(f)) / 10000)
		}
		amountIn = math.Ceil(net + totalFee)
	}

	newPrice := (outF - wantF) / (inF + amountIn)

	return dex.AmountInResult{
		AmountIn: uint64(amountIn),
		NewPrice: dex.QuotePerBase(newPrice, swapForQuote),
	}, nil
}
