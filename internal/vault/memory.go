/*

This file contains the in-memory Vault implementation used in simulation
mode and in tests. It mints and redeems position pairs against the sim
ledger and lets tests move the corridor and trip settlement directly.

*/

package vault

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/ledger"
	"github.com/corridor-network/psm/internal/types"
)

// MemoryVault is a synthetic commodity instance backed by a sim ledger.
type MemoryVault struct {
	mu       sync.Mutex
	book     *ledger.Ledger
	account  string // the vault's own ledger account (escrows collateral)
	strategy string // the account minted positions are credited to
	ids      types.Identities
	corridor types.PriceCorridor
	settled  bool
	unit     sdkmath.Int // fixed-point scale of CollateralPerUnit
}

// NewMemoryVault creates a vault for the given commodity. unit is the
// fixed-point scale shared by the corridor magnitudes.
func NewMemoryVault(book *ledger.Ledger, account, strategy string, ids types.Identities, corridor types.PriceCorridor, unit sdkmath.Int) (*MemoryVault, error) {
	if err := corridor.Validate(); err != nil {
		return nil, err
	}
	if unit.IsNil() || !unit.IsPositive() {
		return nil, fmt.Errorf("%w: unit scale must be positive", types.ErrConfiguration)
	}
	return &MemoryVault{
		book:     book,
		account:  account,
		strategy: strategy,
		ids:      ids,
		corridor: corridor,
		unit:     unit,
	}, nil
}

func (v *MemoryVault) PriceFloor() (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.corridor.Floor, nil
}

func (v *MemoryVault) PriceCap() (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.corridor.Cap, nil
}

func (v *MemoryVault) PriceSpot() (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.corridor.Spot, nil
}

func (v *MemoryVault) CollateralPerUnit() (sdkmath.Int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.corridor.CollateralPerUnit, nil
}

func (v *MemoryVault) Corridor() (types.PriceCorridor, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.corridor, nil
}

func (v *MemoryVault) IsSettled() (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settled, nil
}

// MintFromCollateralAmount escrows amount of the strategy's collateral and
// mints amount*unit/collateralPerUnit of each position token to it.
func (v *MemoryVault) MintFromCollateralAmount(amount sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrZeroAmount
	}
	if v.settled {
		return fmt.Errorf("%w: commodity is settled, minting closed", types.ErrWrongState)
	}
	if err := v.book.Transfer(v.strategy, v.account, v.ids.Want, amount); err != nil {
		return err
	}
	minted := amount.Mul(v.unit).Quo(v.corridor.CollateralPerUnit)
	v.book.Mint(v.strategy, v.ids.Long, minted)
	v.book.Mint(v.strategy, v.ids.Short, minted)
	return nil
}

// RedeemPositions burns amount of matched pairs and releases the escrowed
// collateral back to the strategy.
func (v *MemoryVault) RedeemPositions(amount sdkmath.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrZeroAmount
	}
	if err := v.book.Burn(v.strategy, v.ids.Long, amount); err != nil {
		return err
	}
	if err := v.book.Burn(v.strategy, v.ids.Short, amount); err != nil {
		return err
	}
	released := amount.Mul(v.corridor.CollateralPerUnit).Quo(v.unit)
	return v.book.Transfer(v.account, v.strategy, v.ids.Want, released)
}

func (v *MemoryVault) SettlePositions() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settled = true
	return nil
}

// SetCorridor moves the oracle corridor; tests and the simulator use this to
// drive price updates.
func (v *MemoryVault) SetCorridor(c types.PriceCorridor) error {
	if err := c.Validate(); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.corridor = c
	return nil
}

// MemoryController is a static payout routing table.
type MemoryController struct {
	mu     sync.Mutex
	routes map[types.TokenID]string
}

// NewMemoryController creates a controller with the given token -> receiver
// routing.
func NewMemoryController(routes map[types.TokenID]string) *MemoryController {
	r := make(map[types.TokenID]string, len(routes))
	for k, val := range routes {
		r[k] = val
	}
	return &MemoryController{routes: r}
}

func (c *MemoryController) Vaults(token types.TokenID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	receiver, ok := c.routes[token]
	if !ok || receiver == "" {
		return "", fmt.Errorf("%w: no payout route for token %s", types.ErrConfiguration, token)
	}
	return receiver, nil
}

// SetRoute adds or replaces a payout route.
func (c *MemoryController) SetRoute(token types.TokenID, receiver string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[token] = receiver
}
