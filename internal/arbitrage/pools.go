package arbitrage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is a read-only snapshot of one venue, seen from the source token's side.
// Every price it reports is source per intermediate.
type Pool interface {
	Address() common.Address
	Kind() LiquidityKind
	FeeRate() float64
	Price() float64
	QuoteForward(amountIn uint64, leg Leg) (SwapQuote, error)
	QuoteInverse(amountOut uint64, leg Leg) (SwapQuote, error)
	MaxTradableAmount(priceDeltaBps float64, leg Leg) uint64
	ReserveProduct() *uint256.Int
	ExecuteSwap(ctx context.Context, amountIn, minAmountOut uint64, leg Leg) error
}

// ExactOutputPool is a venue that, on some legs, fixes the output and caps the input.
// on those legs ExecuteSwap reads amountIn as the input cap and minAmountOut as the exact output
type ExactOutputPool interface {
	Pool
	ExactOutput(leg Leg) bool
}

// SwapCall is an encoded venue call ready to be submitted
type SwapCall struct {
	Pool         common.Address
	Leg          Leg
	AmountIn     uint64
	MinAmountOut uint64
	Data         []byte
}

// Executor moves tokens for a single leg. Failures are opaque to the engine.
type Executor interface {
	Submit(ctx context.Context, call SwapCall) error
}

// Orientation maps the trade's source/intermediate tokens onto a pool's base/quote sides
type Orientation struct {
	Source       common.Address
	Intermediate common.Address
	// set when the source token sits on the quote side of the pool
	SourceIsQuote bool
}

func NewOrientation(source, intermediate, base, quote common.Address) (Orientation, error) {
	if source == intermediate {
		return Orientation{}, ErrTokenMintMismatch
	}
	if source != base && source != quote {
		return Orientation{}, ErrTokenMintMismatch
	}
	if intermediate != base && intermediate != quote {
		return Orientation{}, ErrTokenMintMismatch
	}
	return Orientation{
		Source:        source,
		Intermediate:  intermediate,
		SourceIsQuote: source == quote,
	}, nil
}

// SwapForQuote reports whether the leg sells base for quote on the venue
func (o Orientation) SwapForQuote(leg Leg) bool {
	return (leg == IntermediateToSource) == o.SourceIsQuote
}

// Price turns a venue quote/base price into source per intermediate
func (o Orientation) Price(quotePerBase float64) float64 {
	if o.SourceIsQuote {
		return quotePerBase
	}
	return 1 / quotePerBase
}

// TokenIn is the token the pool receives on the given leg
func (o Orientation) TokenIn(leg Leg) common.Address {
	if leg == SourceToIntermediate {
		return o.Source
	}
	return o.Intermediate
}
