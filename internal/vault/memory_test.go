package vault

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-network/psm/internal/ledger"
	"github.com/corridor-network/psm/internal/types"
)

func testVault(t *testing.T) (*MemoryVault, *ledger.Ledger, types.Identities) {
	t.Helper()
	ids := types.Identities{
		Want:       "uusdc",
		Long:       "ulong",
		Short:      "ushort",
		Governance: "gov",
		Controller: "ctrl",
	}
	corridor := types.PriceCorridor{
		Floor:             sdkmath.NewInt(100),
		Cap:               sdkmath.NewInt(200),
		Spot:              sdkmath.NewInt(150),
		CollateralPerUnit: sdkmath.NewInt(10),
	}
	book := ledger.New()
	book.Mint("strat", ids.Want, sdkmath.NewInt(1_000))

	v, err := NewMemoryVault(book, "vault", "strat", ids, corridor, sdkmath.OneInt())
	require.NoError(t, err)
	return v, book, ids
}

func TestMintEscrowsCollateralAndIssuesPairs(t *testing.T) {
	v, book, ids := testVault(t)

	require.NoError(t, v.MintFromCollateralAmount(sdkmath.NewInt(100)))

	// 100 collateral at 10 per unit mints 10 of each position.
	assert.True(t, book.BalanceOf("strat", ids.Want).Equal(sdkmath.NewInt(900)))
	assert.True(t, book.BalanceOf("vault", ids.Want).Equal(sdkmath.NewInt(100)))
	assert.True(t, book.BalanceOf("strat", ids.Long).Equal(sdkmath.NewInt(10)))
	assert.True(t, book.BalanceOf("strat", ids.Short).Equal(sdkmath.NewInt(10)))
}

func TestRedeemReleasesEscrow(t *testing.T) {
	v, book, ids := testVault(t)
	require.NoError(t, v.MintFromCollateralAmount(sdkmath.NewInt(100)))

	require.NoError(t, v.RedeemPositions(sdkmath.NewInt(10)))

	assert.True(t, book.BalanceOf("strat", ids.Want).Equal(sdkmath.NewInt(1_000)))
	assert.True(t, book.BalanceOf("strat", ids.Long).IsZero())
	assert.True(t, book.BalanceOf("vault", ids.Want).IsZero())

	// Redeeming more pairs than held must fail.
	err := v.RedeemPositions(sdkmath.NewInt(1))
	assert.Error(t, err)
}

func TestMintClosedAfterSettlement(t *testing.T) {
	v, _, _ := testVault(t)
	require.NoError(t, v.SettlePositions())

	err := v.MintFromCollateralAmount(sdkmath.NewInt(100))
	assert.ErrorIs(t, err, types.ErrWrongState)

	settled, err := v.IsSettled()
	require.NoError(t, err)
	assert.True(t, settled)
}

func TestControllerRoutes(t *testing.T) {
	c := NewMemoryController(map[types.TokenID]string{"uusdc": "payout"})

	receiver, err := c.Vaults("uusdc")
	require.NoError(t, err)
	assert.Equal(t, "payout", receiver)

	_, err = c.Vaults("uother")
	assert.ErrorIs(t, err, types.ErrConfiguration)

	c.SetRoute("uother", "elsewhere")
	receiver, err = c.Vaults("uother")
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", receiver)
}
