package pool

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-network/psm/internal/ledger"
	"github.com/corridor-network/psm/internal/types"
)

const (
	poolAcct       = "pool"
	controllerAcct = "controller"
	traderAcct     = "trader"
)

const (
	tokenA types.TokenID = "utoken_a"
	tokenB types.TokenID = "utoken_b"
)

func newTestPool(t *testing.T, fee sdkmath.LegacyDec) (*MemoryPool, *ledger.Ledger) {
	t.Helper()
	book := ledger.New()
	book.Mint(controllerAcct, tokenA, sdkmath.NewInt(10_000_000_000))
	book.Mint(controllerAcct, tokenB, sdkmath.NewInt(10_000_000_000))
	return NewMemoryPool(book, poolAcct, controllerAcct, fee), book
}

func TestBindPullsBalanceFromController(t *testing.T) {
	p, book := newTestPool(t, sdkmath.LegacyZeroDec())

	balance := sdkmath.NewInt(1_000_000_000)
	require.NoError(t, p.Bind(tokenA, balance, MinWeight.MulRaw(10)))

	assert.True(t, p.IsBound(tokenA))
	got, err := p.GetBalance(tokenA)
	require.NoError(t, err)
	assert.True(t, got.Equal(balance))
	assert.True(t, book.BalanceOf(poolAcct, tokenA).Equal(balance))
	assert.True(t, book.BalanceOf(controllerAcct, tokenA).Equal(sdkmath.NewInt(9_000_000_000)))
}

func TestBindRejectsWeightOutsideBounds(t *testing.T) {
	p, _ := newTestPool(t, sdkmath.LegacyZeroDec())
	balance := sdkmath.NewInt(1_000_000_000)

	err := p.Bind(tokenA, balance, MinWeight.SubRaw(1))
	assert.ErrorIs(t, err, ErrWeightBounds)

	err = p.Bind(tokenA, balance, MaxWeight.AddRaw(1))
	assert.ErrorIs(t, err, ErrWeightBounds)
}

func TestBindRejectsBalanceBelowMinimum(t *testing.T) {
	p, _ := newTestPool(t, sdkmath.LegacyZeroDec())

	err := p.Bind(tokenA, MinBalance.SubRaw(1), MinWeight.MulRaw(10))
	assert.ErrorIs(t, err, ErrMinBalance)
}

func TestBindRejectsTotalWeightOverflow(t *testing.T) {
	p, _ := newTestPool(t, sdkmath.LegacyZeroDec())
	balance := sdkmath.NewInt(1_000_000_000)

	require.NoError(t, p.Bind(tokenA, balance, MaxWeight))

	err := p.Bind(tokenB, balance, MinWeight)
	assert.ErrorIs(t, err, ErrTotalWeight)
}

func TestRebindMovesBalanceDelta(t *testing.T) {
	p, book := newTestPool(t, sdkmath.LegacyZeroDec())

	require.NoError(t, p.Bind(tokenA, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))

	// Shrink the balance: the difference flows back to the controller.
	require.NoError(t, p.Rebind(tokenA, sdkmath.NewInt(400_000_000), MinWeight.MulRaw(5)))
	assert.True(t, book.BalanceOf(poolAcct, tokenA).Equal(sdkmath.NewInt(400_000_000)))
	assert.True(t, book.BalanceOf(controllerAcct, tokenA).Equal(sdkmath.NewInt(9_600_000_000)))
	assert.True(t, p.TotalWeight().Equal(MinWeight.MulRaw(5)))

	err := p.Rebind(tokenB, sdkmath.NewInt(400_000_000), MinWeight)
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestUnbindReturnsFullBalance(t *testing.T) {
	p, book := newTestPool(t, sdkmath.LegacyZeroDec())

	require.NoError(t, p.Bind(tokenA, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))
	require.NoError(t, p.Unbind(tokenA))

	assert.False(t, p.IsBound(tokenA))
	assert.True(t, p.TotalWeight().IsZero())
	assert.True(t, book.BalanceOf(controllerAcct, tokenA).Equal(sdkmath.NewInt(10_000_000_000)))
}

func TestSpotPriceReflectsBalanceRatio(t *testing.T) {
	p, _ := newTestPool(t, sdkmath.LegacyZeroDec())

	// Equal weights, 2:1 balances: one unit of B costs two units of A.
	require.NoError(t, p.Bind(tokenA, sdkmath.NewInt(2_000_000_000), MinWeight.MulRaw(10)))
	require.NoError(t, p.Bind(tokenB, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))

	spot, err := p.GetSpotPriceSansFee(tokenA, tokenB)
	require.NoError(t, err)
	assert.True(t, spot.Equal(sdkmath.LegacyNewDec(2)), "spot = %s", spot)
}

func TestSpotPriceIncludesFeeMarkup(t *testing.T) {
	fee := sdkmath.LegacyNewDecWithPrec(2, 1) // 20%
	p, _ := newTestPool(t, fee)

	require.NoError(t, p.Bind(tokenA, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))
	require.NoError(t, p.Bind(tokenB, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))

	spot, err := p.GetSpotPrice(tokenA, tokenB)
	require.NoError(t, err)
	assert.True(t, spot.Equal(sdkmath.LegacyOneDec().Quo(sdkmath.LegacyOneDec().Sub(fee))), "spot = %s", spot)
}

func TestSwapExactAmountIn(t *testing.T) {
	p, book := newTestPool(t, sdkmath.LegacyZeroDec())

	require.NoError(t, p.Bind(tokenA, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))
	require.NoError(t, p.Bind(tokenB, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))

	amountIn := sdkmath.NewInt(1_000_000)
	book.Mint(traderAcct, tokenA, amountIn)

	out, spotAfter, err := p.SwapExactAmountIn(traderAcct, tokenA, amountIn, tokenB, sdkmath.ZeroInt(), sdkmath.LegacyDec{})
	require.NoError(t, err)

	assert.True(t, out.IsPositive())
	assert.True(t, out.LT(amountIn), "price impact must make out < in at price 1")
	assert.True(t, spotAfter.GT(sdkmath.LegacyOneDec()))

	assert.True(t, book.BalanceOf(traderAcct, tokenA).IsZero())
	assert.True(t, book.BalanceOf(traderAcct, tokenB).Equal(out))
	poolB, err := p.GetBalance(tokenB)
	require.NoError(t, err)
	assert.True(t, poolB.Equal(sdkmath.NewInt(1_000_000_000).Sub(out)))
}

func TestSwapRejectionsLeaveNoPartialEffect(t *testing.T) {
	p, book := newTestPool(t, sdkmath.LegacyZeroDec())

	require.NoError(t, p.Bind(tokenA, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))
	require.NoError(t, p.Bind(tokenB, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))

	amountIn := sdkmath.NewInt(1_000_000)
	book.Mint(traderAcct, tokenA, amountIn)

	_, _, err := p.SwapExactAmountIn(traderAcct, tokenA, amountIn, tokenB, amountIn.MulRaw(2), sdkmath.LegacyDec{})
	assert.ErrorIs(t, err, types.ErrSlippage)

	_, _, err = p.SwapExactAmountIn(traderAcct, tokenA, amountIn, tokenB, sdkmath.ZeroInt(), sdkmath.LegacyOneDec())
	assert.ErrorIs(t, err, types.ErrSlippage)

	// Nothing moved on either rejection.
	assert.True(t, book.BalanceOf(traderAcct, tokenA).Equal(amountIn))
	poolA, err := p.GetBalance(tokenA)
	require.NoError(t, err)
	assert.True(t, poolA.Equal(sdkmath.NewInt(1_000_000_000)))
}

func TestSwapRequiresPublicPool(t *testing.T) {
	p, book := newTestPool(t, sdkmath.LegacyZeroDec())

	require.NoError(t, p.Bind(tokenA, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))
	require.NoError(t, p.Bind(tokenB, sdkmath.NewInt(1_000_000_000), MinWeight.MulRaw(10)))
	require.NoError(t, p.SetPublicSwap(false))

	book.Mint(traderAcct, tokenA, sdkmath.NewInt(1_000_000))
	_, _, err := p.SwapExactAmountIn(traderAcct, tokenA, sdkmath.NewInt(1_000_000), tokenB, sdkmath.ZeroInt(), sdkmath.LegacyDec{})
	assert.ErrorIs(t, err, ErrNotPublic)
}
