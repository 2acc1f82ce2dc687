package strategy

import (
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-network/psm/internal/ledger"
	"github.com/corridor-network/psm/internal/pool"
	"github.com/corridor-network/psm/internal/types"
	"github.com/corridor-network/psm/internal/vault"
)

const (
	stratAcct    = "strat"
	poolAcct     = "pool"
	vaultAcct    = "commodity_vault"
	govAddr      = "gov_addr"
	ctrlAddr     = "ctrl_addr"
	payoutAcct   = "ctrl_payout"
	successorAcc = "succ_strategy"
	traderAcct   = "trader"
)

var testParams = types.StrategyParameters{
	StandardMultiplier:  50,
	DampenedMultiplier:  47,
	BoundaryBandDivisor: 100,
	MinBindableUnits:    1_000_000,
}

// testCorridor: floor 100, cap 200, spot 150, 10 collateral per unit, unit
// scale 1. Both position prices sit at 5 collateral per base unit.
func testCorridor() types.PriceCorridor {
	return types.PriceCorridor{
		Floor:             sdkmath.NewInt(100),
		Cap:               sdkmath.NewInt(200),
		Spot:              sdkmath.NewInt(150),
		CollateralPerUnit: sdkmath.NewInt(10),
	}
}

type fixture struct {
	book  *ledger.Ledger
	pool  *pool.MemoryPool
	vault *vault.MemoryVault
	strat *Strategy
	ids   types.Identities
}

func newFixture(t *testing.T, seedCollateral int64) *fixture {
	t.Helper()

	ids := types.Identities{
		Want:       "uusdc",
		Long:       "ulong",
		Short:      "ushort",
		Governance: govAddr,
		Controller: ctrlAddr,
		Successor:  successorAcc,
		GateToken:  "ugate",
	}

	book := ledger.New()
	if seedCollateral > 0 {
		book.Mint(stratAcct, ids.Want, sdkmath.NewInt(seedCollateral))
	}

	v, err := vault.NewMemoryVault(book, vaultAcct, stratAcct, ids, testCorridor(), sdkmath.OneInt())
	require.NoError(t, err)

	ctrl := vault.NewMemoryController(map[types.TokenID]string{ids.Want: payoutAcct})
	p := pool.NewMemoryPool(book, poolAcct, stratAcct, sdkmath.LegacyZeroDec())

	s, err := New(Config{
		Params:        testParams,
		Identities:    ids,
		UnitScale:     sdkmath.OneInt(),
		Pool:          p,
		Vault:         v,
		Controller:    ctrl,
		Tokens:        book.Account(stratAcct),
		GateThreshold: sdkmath.ZeroInt(),
	})
	require.NoError(t, err)

	return &fixture{book: book, pool: p, vault: v, strat: s, ids: ids}
}

func TestDepositBindsPoolAndPreservesValue(t *testing.T) {
	f := newFixture(t, 1_000_000_000)

	require.NoError(t, f.strat.Deposit())

	// Half the collateral was escrowed for minting, the rest bound alongside
	// the minted positions.
	assert.True(t, f.pool.IsBound(f.ids.Want))
	assert.True(t, f.pool.IsBound(f.ids.Long))
	assert.True(t, f.pool.IsBound(f.ids.Short))

	collateral, err := f.pool.GetBalance(f.ids.Want)
	require.NoError(t, err)
	assert.True(t, collateral.Equal(sdkmath.NewInt(500_000_000)))
	long, err := f.pool.GetBalance(f.ids.Long)
	require.NoError(t, err)
	assert.True(t, long.Equal(sdkmath.NewInt(50_000_000)))

	// Midpoint spot: collateral carries half the pool's value, each position
	// a quarter. Scaled by 50 that is 25 and 12.5 weight units.
	wc, err := f.pool.GetDenormalizedWeight(f.ids.Want)
	require.NoError(t, err)
	assert.Equal(t, "25000000000000000000", wc.String())
	wl, err := f.pool.GetDenormalizedWeight(f.ids.Long)
	require.NoError(t, err)
	assert.Equal(t, "12500000000000000000", wl.String())

	// The round trip through mint and bind must not leak value.
	value, err := f.strat.BalanceOf()
	require.NoError(t, err)
	assert.True(t, value.Equal(sdkmath.NewInt(1_000_000_000)), "value = %s", value)
}

func TestDepositSkipsBelowBindableThreshold(t *testing.T) {
	// Half of 10^7 mints 5*10^5 of each position, under the 10^6 threshold.
	f := newFixture(t, 10_000_000)

	require.NoError(t, f.strat.Deposit())

	assert.False(t, f.pool.IsBound(f.ids.Want))
	assert.True(t, f.book.BalanceOf(stratAcct, f.ids.Want).Equal(sdkmath.NewInt(10_000_000)))
	assert.True(t, f.book.BalanceOf(vaultAcct, f.ids.Want).IsZero())
}

func TestDepositRejectedWhenSettled(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.vault.SettlePositions())

	err := f.strat.Deposit()
	assert.ErrorIs(t, err, types.ErrWrongState)
}

func TestBreakerBlocksEntryPoints(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.SetBreaker(govAddr, true))

	assert.ErrorIs(t, f.strat.Deposit(), ErrBreaker)
	assert.ErrorIs(t, f.strat.Withdraw(ctrlAddr, sdkmath.NewInt(1)), ErrBreaker)
	_, _, err := f.strat.Swap(traderAcct, f.ids.Want, sdkmath.NewInt(1), f.ids.Long, sdkmath.ZeroInt(), sdkmath.LegacyDec{})
	assert.ErrorIs(t, err, ErrBreaker)

	require.NoError(t, f.strat.SetBreaker(govAddr, false))
	assert.NoError(t, f.strat.Deposit())
}

func TestHandleBreachRequiresSettledVault(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())

	err := f.strat.HandleBreach()
	assert.ErrorIs(t, err, types.ErrWrongState)
	assert.False(t, f.strat.Flags().BreachHandled)
}

func TestHandleBreachIsOneShot(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())
	require.NoError(t, f.vault.SettlePositions())

	require.NoError(t, f.strat.HandleBreach())
	assert.True(t, f.strat.Flags().BreachHandled)

	// Everything is unbound and the matched pairs redeemed at the corridor
	// rate, restoring the original collateral.
	assert.False(t, f.pool.IsBound(f.ids.Want))
	assert.False(t, f.pool.IsBound(f.ids.Long))
	assert.False(t, f.pool.IsBound(f.ids.Short))
	assert.True(t, f.book.BalanceOf(stratAcct, f.ids.Want).Equal(sdkmath.NewInt(1_000_000_000)))
	assert.True(t, f.book.BalanceOf(stratAcct, f.ids.Long).IsZero())

	err := f.strat.HandleBreach()
	assert.ErrorIs(t, err, types.ErrWrongState)

	state, err := f.strat.State()
	require.NoError(t, err)
	assert.Equal(t, types.StateSettledHandled, state)
}

type failingFlagStore struct{}

func (failingFlagStore) SaveFlags(types.LifecycleFlags) error {
	return errors.New("store unavailable")
}

func TestBreachLatchRollsBackWhenPersistFails(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())
	f.strat.flagStore = failingFlagStore{}
	require.NoError(t, f.vault.SettlePositions())

	err := f.strat.HandleBreach()
	require.Error(t, err)

	// The latch did not stick and nothing external ran.
	assert.False(t, f.strat.Flags().BreachHandled)
	assert.True(t, f.pool.IsBound(f.ids.Want))
}

func TestWithdrawRequiresController(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())

	err := f.strat.Withdraw("someone_else", sdkmath.NewInt(1))
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	err = f.strat.Withdraw(ctrlAddr, sdkmath.ZeroInt())
	assert.ErrorIs(t, err, types.ErrZeroAmount)
}

func TestWithdrawActiveRunsFullCycle(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())

	require.NoError(t, f.strat.Withdraw(ctrlAddr, sdkmath.NewInt(100_000_000)))

	assert.True(t, f.book.BalanceOf(payoutAcct, f.ids.Want).Equal(sdkmath.NewInt(100_000_000)))

	// The allocator re-ran: the pool is fully bound again and the remaining
	// value stayed intact.
	assert.True(t, f.pool.IsBound(f.ids.Want))
	assert.True(t, f.pool.IsBound(f.ids.Long))
	value, err := f.strat.BalanceOf()
	require.NoError(t, err)
	assert.True(t, value.Equal(sdkmath.NewInt(900_000_000)), "value = %s", value)
}

func TestWithdrawSettledHandlesBreachFirst(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())
	require.NoError(t, f.vault.SettlePositions())

	require.NoError(t, f.strat.Withdraw(ctrlAddr, sdkmath.NewInt(250_000_000)))

	assert.True(t, f.strat.Flags().BreachHandled)
	assert.False(t, f.pool.IsBound(f.ids.Want))
	assert.True(t, f.book.BalanceOf(payoutAcct, f.ids.Want).Equal(sdkmath.NewInt(250_000_000)))
	assert.True(t, f.book.BalanceOf(stratAcct, f.ids.Want).Equal(sdkmath.NewInt(750_000_000)))
}

func TestWithdrawDust(t *testing.T) {
	f := newFixture(t, 1_000_000_000)

	err := f.strat.WithdrawDust(ctrlAddr, f.ids.Long)
	assert.ErrorIs(t, err, types.ErrInvariant)

	// Zero balance of a foreign token is a clean no-op.
	require.NoError(t, f.strat.WithdrawDust(ctrlAddr, "uother"))

	f.book.Mint(stratAcct, "uother", sdkmath.NewInt(777))
	require.NoError(t, f.strat.WithdrawDust(ctrlAddr, "uother"))
	assert.True(t, f.book.BalanceOf(payoutAcct, "uother").Equal(sdkmath.NewInt(777)))
	assert.True(t, f.book.BalanceOf(stratAcct, "uother").IsZero())

	err = f.strat.WithdrawDust(govAddr, "uother")
	assert.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestWithdrawAllRequiresSuccessor(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.SetSuccessor(govAddr, ""))

	err := f.strat.WithdrawAll(ctrlAddr)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestWithdrawAllHandsEverythingToSuccessor(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())

	require.NoError(t, f.strat.WithdrawAll(ctrlAddr))

	assert.False(t, f.pool.IsBound(f.ids.Want))
	assert.True(t, f.book.BalanceOf(successorAcc, f.ids.Want).Equal(sdkmath.NewInt(1_000_000_000)))
	assert.True(t, f.book.BalanceOf(stratAcct, f.ids.Want).IsZero())
	assert.True(t, f.book.BalanceOf(stratAcct, f.ids.Long).IsZero())
}

func TestUpdateCommodityAfterBreach(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())
	require.NoError(t, f.vault.SettlePositions())

	newIDs := f.ids
	newIDs.Long = "ulong_v2"
	newIDs.Short = "ushort_v2"
	newVault, err := vault.NewMemoryVault(f.book, "commodity_vault_v2", stratAcct, newIDs, testCorridor(), sdkmath.OneInt())
	require.NoError(t, err)

	err = f.strat.UpdateCommodityAfterBreach(ctrlAddr, newVault, newIDs.Long, newIDs.Short)
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	require.NoError(t, f.strat.UpdateCommodityAfterBreach(govAddr, newVault, newIDs.Long, newIDs.Short))

	// Breach handling ran implicitly, the latch re-armed, and the pool was
	// rebuilt under the new commodity's tokens.
	assert.False(t, f.strat.Flags().BreachHandled)
	assert.True(t, f.pool.IsBound(newIDs.Long))
	assert.True(t, f.pool.IsBound(newIDs.Short))
	assert.False(t, f.pool.IsBound(types.TokenID("ulong")))

	state, err := f.strat.State()
	require.NoError(t, err)
	assert.Equal(t, types.StateActive, state)

	// The re-armed latch makes a second breach cycle possible.
	require.NoError(t, newVault.SettlePositions())
	require.NoError(t, f.strat.HandleBreach())
	assert.True(t, f.strat.Flags().BreachHandled)
}

func TestUpdateCommodityRequiresSettledVault(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())

	newVault, err := vault.NewMemoryVault(f.book, "commodity_vault_v2", stratAcct, f.ids, testCorridor(), sdkmath.OneInt())
	require.NoError(t, err)

	err = f.strat.UpdateCommodityAfterBreach(govAddr, newVault, "ulong_v2", "ushort_v2")
	assert.ErrorIs(t, err, types.ErrWrongState)
}

func TestValuationUnboundRegimeUsesCorridor(t *testing.T) {
	f := newFixture(t, 0)

	// Nothing bound: 10^6 of each position priced by corridor interpolation,
	// 10 * (150-100)/100 = 5 per short unit and the mirror image for long.
	f.book.Mint(stratAcct, f.ids.Long, sdkmath.NewInt(1_000_000))
	f.book.Mint(stratAcct, f.ids.Short, sdkmath.NewInt(1_000_000))

	value, err := f.strat.BalanceOf()
	require.NoError(t, err)
	assert.True(t, value.Equal(sdkmath.NewInt(10_000_000)), "value = %s", value)
}

func TestValuationUnboundRegimeClampsSpot(t *testing.T) {
	f := newFixture(t, 0)
	f.book.Mint(stratAcct, f.ids.Long, sdkmath.NewInt(1_000_000))
	f.book.Mint(stratAcct, f.ids.Short, sdkmath.NewInt(1_000_000))

	// Spot breaches the cap: shorts are worth the full unit collateral,
	// longs nothing.
	c := testCorridor()
	c.Spot = sdkmath.NewInt(250)
	require.NoError(t, f.vault.SetCorridor(c))

	value, err := f.strat.BalanceOf()
	require.NoError(t, err)
	assert.True(t, value.Equal(sdkmath.NewInt(10_000_000)), "value = %s", value)

	short, long, err := f.strat.unitPricesLocked()
	require.NoError(t, err)
	assert.True(t, short.Equal(sdkmath.LegacyNewDec(10)))
	assert.True(t, long.IsZero())
}

func TestSwapGateEnforcement(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())
	require.NoError(t, f.strat.SetGate(govAddr, "ugate", sdkmath.NewInt(100)))

	amountIn := sdkmath.NewInt(1_000_000)
	f.book.Mint(traderAcct, f.ids.Want, amountIn)

	_, _, err := f.strat.Swap(traderAcct, f.ids.Want, amountIn, f.ids.Long, sdkmath.ZeroInt(), sdkmath.LegacyDec{})
	assert.ErrorIs(t, err, types.ErrUnauthorized)

	f.book.Mint(traderAcct, "ugate", sdkmath.NewInt(100))
	out, _, err := f.strat.Swap(traderAcct, f.ids.Want, amountIn, f.ids.Long, sdkmath.ZeroInt(), sdkmath.LegacyDec{})
	require.NoError(t, err)
	assert.True(t, out.IsPositive())
	assert.True(t, f.book.BalanceOf(traderAcct, f.ids.Long).Equal(out))
}

func TestSwapTouchingCollateralTriggersRebind(t *testing.T) {
	f := newFixture(t, 1_000_000_000)
	require.NoError(t, f.strat.Deposit())

	before, err := f.pool.GetDenormalizedWeight(f.ids.Long)
	require.NoError(t, err)

	amountIn := sdkmath.NewInt(50_000_000)
	f.book.Mint(traderAcct, f.ids.Want, amountIn)

	_, _, err = f.strat.Swap(traderAcct, f.ids.Want, amountIn, f.ids.Long, sdkmath.ZeroInt(), sdkmath.LegacyDec{})
	require.NoError(t, err)

	// More collateral and fewer longs in the pool shifts value shares, so
	// the weights moved with them.
	after, err := f.pool.GetDenormalizedWeight(f.ids.Long)
	require.NoError(t, err)
	assert.False(t, after.Equal(before))
}

func TestGovernanceSurfaceAuthorization(t *testing.T) {
	f := newFixture(t, 0)

	assert.ErrorIs(t, f.strat.SetGovernance(ctrlAddr, "x"), types.ErrUnauthorized)
	assert.ErrorIs(t, f.strat.SetBreaker(ctrlAddr, true), types.ErrUnauthorized)
	assert.ErrorIs(t, f.strat.SetGate(ctrlAddr, "g", sdkmath.OneInt()), types.ErrUnauthorized)

	require.NoError(t, f.strat.SetGovernance(govAddr, "gov_v2"))
	assert.ErrorIs(t, f.strat.SetBreaker(govAddr, true), types.ErrUnauthorized)
	require.NoError(t, f.strat.SetBreaker("gov_v2", true))
	assert.True(t, f.strat.Flags().Breaker)
}
