package engine

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corridor-network/psm/internal/ledger"
	"github.com/corridor-network/psm/internal/pool"
	"github.com/corridor-network/psm/internal/strategy"
	"github.com/corridor-network/psm/internal/types"
	"github.com/corridor-network/psm/internal/vault"
)

var testParams = types.StrategyParameters{
	StandardMultiplier:  50,
	DampenedMultiplier:  47,
	BoundaryBandDivisor: 100,
	MinBindableUnits:    1_000_000,
}

// countingPool wraps the in-memory pool to count rebind traffic, making the
// engine's skip-if-unchanged behavior observable.
type countingPool struct {
	*pool.MemoryPool
	rebinds int
}

func (p *countingPool) Rebind(token types.TokenID, balance, denorm sdkmath.Int) error {
	p.rebinds++
	return p.MemoryPool.Rebind(token, balance, denorm)
}

func newTestEngine(t *testing.T) (*Engine, *countingPool, *vault.MemoryVault) {
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
	book.Mint("strat", ids.Want, sdkmath.NewInt(1_000_000_000))

	v, err := vault.NewMemoryVault(book, "commodity_vault", "strat", ids, corridor, sdkmath.OneInt())
	require.NoError(t, err)
	ctrl := vault.NewMemoryController(map[types.TokenID]string{ids.Want: "payout"})
	p := &countingPool{MemoryPool: pool.NewMemoryPool(book, "pool", "strat", sdkmath.LegacyZeroDec())}

	s, err := strategy.New(strategy.Config{
		Params:        testParams,
		Identities:    ids,
		UnitScale:     sdkmath.OneInt(),
		Pool:          p,
		Vault:         v,
		Controller:    ctrl,
		Tokens:        book.Account("strat"),
		GateThreshold: sdkmath.ZeroInt(),
	})
	require.NoError(t, err)
	require.NoError(t, s.Deposit())

	e, err := NewEngine(Config{
		Strategy:   s,
		Vault:      v,
		Params:     &testParams,
		ConfigName: DefaultConfigName,
	})
	require.NoError(t, err)

	return e, p, v
}

func TestNewEngineValidatesConfig(t *testing.T) {
	_, err := NewEngine(Config{})
	assert.Error(t, err)
}

func TestRunCycleSkipsWhenCorridorUnchanged(t *testing.T) {
	e, p, _ := newTestEngine(t)

	e.RunCycle()
	first := p.rebinds
	assert.Equal(t, 3, first)

	e.RunCycle()
	assert.Equal(t, first, p.rebinds, "unchanged corridor must not issue rebinds")
}

func TestRunCycleRebalancesOnCorridorMove(t *testing.T) {
	e, p, v := newTestEngine(t)

	e.RunCycle()
	first := p.rebinds

	c, err := v.Corridor()
	require.NoError(t, err)
	c.Spot = sdkmath.NewInt(180)
	require.NoError(t, v.SetCorridor(c))

	e.RunCycle()
	assert.Equal(t, first+3, p.rebinds)

	// A spot above the midpoint shifts weight toward the long token.
	ws, err := p.GetDenormalizedWeight("ushort")
	require.NoError(t, err)
	wl, err := p.GetDenormalizedWeight("ulong")
	require.NoError(t, err)
	assert.True(t, wl.GT(ws), "short=%s long=%s", ws, wl)
}

func TestRunCycleSkipsWhenSettled(t *testing.T) {
	e, p, v := newTestEngine(t)
	require.NoError(t, v.SettlePositions())

	e.RunCycle()
	assert.Equal(t, 0, p.rebinds, "lifecycle gate must block rebalancing")
}
