package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-network/psm/internal/types"
)

const token types.TokenID = "utoken"

func TestMintBurnTransfer(t *testing.T) {
	l := New()

	l.Mint("alice", token, sdkmath.NewInt(100))
	assert.True(t, l.BalanceOf("alice", token).Equal(sdkmath.NewInt(100)))
	assert.True(t, l.BalanceOf("bob", token).IsZero())

	require.NoError(t, l.Transfer("alice", "bob", token, sdkmath.NewInt(40)))
	assert.True(t, l.BalanceOf("alice", token).Equal(sdkmath.NewInt(60)))
	assert.True(t, l.BalanceOf("bob", token).Equal(sdkmath.NewInt(40)))

	require.NoError(t, l.Burn("bob", token, sdkmath.NewInt(40)))
	assert.True(t, l.BalanceOf("bob", token).IsZero())
}

func TestTransferRejectsOverdraft(t *testing.T) {
	l := New()
	l.Mint("alice", token, sdkmath.NewInt(10))

	err := l.Transfer("alice", "bob", token, sdkmath.NewInt(11))
	require.Error(t, err)
	assert.True(t, l.BalanceOf("alice", token).Equal(sdkmath.NewInt(10)))

	err = l.Burn("alice", token, sdkmath.NewInt(11))
	require.Error(t, err)
}

func TestAccountViewIsBoundToOwner(t *testing.T) {
	l := New()
	l.Mint("alice", token, sdkmath.NewInt(50))
	l.Mint("bob", token, sdkmath.NewInt(5))

	acct := l.Account("alice")
	assert.Equal(t, "alice", acct.Owner())

	own, err := acct.BalanceOf(token)
	require.NoError(t, err)
	assert.True(t, own.Equal(sdkmath.NewInt(50)))

	other, err := acct.HolderBalance("bob", token)
	require.NoError(t, err)
	assert.True(t, other.Equal(sdkmath.NewInt(5)))

	require.NoError(t, acct.Transfer("bob", token, sdkmath.NewInt(50)))
	assert.True(t, l.BalanceOf("bob", token).Equal(sdkmath.NewInt(55)))
}
