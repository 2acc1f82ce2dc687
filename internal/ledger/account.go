package ledger

import (
	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// Account is one account's window onto the ledger. It satisfies the
// strategy's Tokens port.
type Account struct {
	book  *Ledger
	owner string
}

// Account returns a view bound to owner.
func (l *Ledger) Account(owner string) *Account {
	return &Account{book: l, owner: owner}
}

// Owner returns the account's ledger address.
func (a *Account) Owner() string {
	return a.owner
}

// BalanceOf returns the account's own balance of token.
func (a *Account) BalanceOf(token types.TokenID) (sdkmath.Int, error) {
	return a.book.BalanceOf(a.owner, token), nil
}

// HolderBalance returns another holder's balance of token.
func (a *Account) HolderBalance(holder string, token types.TokenID) (sdkmath.Int, error) {
	return a.book.BalanceOf(holder, token), nil
}

// Transfer moves amount of token from this account to another.
func (a *Account) Transfer(to string, token types.TokenID, amount sdkmath.Int) error {
	return a.book.Transfer(a.owner, to, token, amount)
}
