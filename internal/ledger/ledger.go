/*

This file contains a minimal in-memory token book standing in for the host
ledger in simulation mode and in tests. It tracks per-account balances for
arbitrary tokens; raw transfer mechanics are otherwise out of scope.

*/

package ledger

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/types"
)

// Ledger is a thread-safe account -> token -> balance book.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]map[types.TokenID]sdkmath.Int
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[string]map[types.TokenID]sdkmath.Int)}
}

// BalanceOf returns owner's balance of token, zero if none.
func (l *Ledger) BalanceOf(owner string, token types.TokenID) sdkmath.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(owner, token)
}

// Mint credits amount of token to owner.
func (l *Ledger) Mint(owner string, token types.TokenID, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(owner, token, l.get(owner, token).Add(amount))
}

// Burn removes amount of token from owner.
func (l *Ledger) Burn(owner string, token types.TokenID, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.get(owner, token)
	if have.LT(amount) {
		return fmt.Errorf("burn %s of %s from %s: balance %s too low", amount, token, owner, have)
	}
	l.set(owner, token, have.Sub(amount))
	return nil
}

// Transfer moves amount of token between accounts.
func (l *Ledger) Transfer(from, to string, token types.TokenID, amount sdkmath.Int) error {
	if amount.IsNegative() {
		return fmt.Errorf("transfer amount %s is negative", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.get(from, token)
	if have.LT(amount) {
		return fmt.Errorf("transfer %s of %s from %s: balance %s too low", amount, token, from, have)
	}
	l.set(from, token, have.Sub(amount))
	l.set(to, token, l.get(to, token).Add(amount))
	return nil
}

func (l *Ledger) get(owner string, token types.TokenID) sdkmath.Int {
	if acct, ok := l.balances[owner]; ok {
		if bal, ok := acct[token]; ok {
			return bal
		}
	}
	return sdkmath.ZeroInt()
}

func (l *Ledger) set(owner string, token types.TokenID, amount sdkmath.Int) {
	acct, ok := l.balances[owner]
	if !ok {
		acct = make(map[types.TokenID]sdkmath.Int)
		l.balances[owner] = acct
	}
	acct[token] = amount
}
