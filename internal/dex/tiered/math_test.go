package tiered

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

var stages = []uint64{20, 5, 5}

func TestGetAmountOut_BuyBase(t *testing.T) {
	res := GetAmountOut(35722696881401, 942150070694, 677970243, stages, false)

	assert.Less(t, res.AmountOut, uint64(25610754894))
	assert.Equal(t, uint64(25610754742), res.AmountOut)
	assert.Less(t, res.NewPrice, 1.0)
}

func TestGetAmountIn_BuyBase(t *testing.T) {
	res, err := GetAmountIn(35722696881401, 942150070694, 25610754894, stages, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(677970243), res.AmountIn)
}

func TestGetAmountOut_SellBase(t *testing.T) {
	res := GetAmountOut(35683125915273, 944608044265, 567208523585, stages, true)
	assert.Equal(t, uint64(14735929285), res.AmountOut)

	res = GetAmountOut(11543520807844, 2250653386181, 7219526759, stages, true)
	assert.Equal(t, uint64(1402499398), res.AmountOut)
}

func TestGetAmountIn_SellBaseOverestimates(t *testing.T) {
	res, err := GetAmountIn(35683125915273, 944608044265, 14735929285, stages, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(567208523619), res.AmountIn)
	assert.GreaterOrEqual(t, res.AmountIn, uint64(567208523585))
}

func TestGetAmountIn_BuyBaseSecondPool(t *testing.T) {
	res, err := GetAmountIn(29886053975948, 5701860153537, 10490409765, stages, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(2008139324), res.AmountIn)
}

func TestGetAmountOut_FeesSwallowOutput(t *testing.T) {
	res := GetAmountOut(37196048340837, 753145324240, 1, stages, true)
	assert.Equal(t, uint64(1), res.AmountOut)
}

func TestGetAmountOut_ZeroInput(t *testing.T) {
	res := GetAmountOut(1000, 1000, 0, stages, true)
	assert.Zero(t, res.AmountOut)
}

func TestGetAmountOut_NeverDrainsReserve(t *testing.T) {
	cases := []struct {
		base, quote, in uint64
		sfq             bool
	}{
		{1, 1_000_000_000_000, 1 << 62, false},
		{1, 1_000_000_000_000, 1 << 62, true},
		{5, 7, 1 << 63, true},
		{1_000_000, 1_000_000, 999_999_999_999, false},
	}
	for _, tc := range cases {
		outRes := tc.quote
		if !tc.sfq {
			outRes = tc.base
		}
		for _, fees := range [][]uint64{nil, stages} {
			res := GetAmountOut(tc.base, tc.quote, tc.in, fees, tc.sfq)
			assert.Less(t, res.AmountOut, outRes)
		}
	}
}

func TestGetAmountIn_InsufficientLiquidity(t *testing.T) {
	_, err := GetAmountIn(1000, 500, 500, stages, true)
	assert.ErrorIs(t, err, arbitrage.ErrInsufficientLiquidity)

	_, err = GetAmountIn(1000, 500, 1000, stages, false)
	assert.ErrorIs(t, err, arbitrage.ErrInsufficientLiquidity)
}

func TestGetAmountIn_RejectsWrappingFees(t *testing.T) {
	_, err := GetAmountIn(35722696881401, 942150070694, 1000, []uint64{math.MaxUint64, 1, 0}, true)
	assert.ErrorIs(t, err, arbitrage.ErrInvalidAccount)
}
