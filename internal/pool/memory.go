/*

This file contains an in-memory weighted pool implementing the Pool
interface. It enforces the same per-token and total weight bounds as the
live pool at every call boundary, so the rebind scheduler's ordering
guarantees are observable in simulation and in tests.

Pricing follows the standard weighted-product invariant. Swap quoting uses
float64 for the fractional exponent; the in-memory pool is a collaborator
stand-in, not a settlement engine, so float precision is acceptable here.

*/

package pool

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/corridor-network/psm/internal/ledger"
	"github.com/corridor-network/psm/internal/types"
)

// Weight and balance bounds enforced by the pool on every call.
var (
	MinWeight      = sdkmath.NewInt(1_000_000_000_000_000_000) // one weight unit
	MaxWeight      = MinWeight.MulRaw(50)
	MaxTotalWeight = MinWeight.MulRaw(50)
	MinBalance     = sdkmath.NewInt(1_000_000)
)

var (
	ErrNotBound     = errors.New("token is not bound")
	ErrAlreadyBound = errors.New("token is already bound")
	ErrWeightBounds = errors.New("denormalized weight outside per-token bounds")
	ErrTotalWeight  = errors.New("total denormalized weight would exceed maximum")
	ErrMinBalance   = errors.New("balance below pool minimum")
	ErrNotPublic    = errors.New("pool is not public for swaps")
)

type record struct {
	balance sdkmath.Int
	denorm  sdkmath.Int
}

// MemoryPool is the in-memory Pool implementation backed by a sim ledger.
type MemoryPool struct {
	mu         sync.Mutex
	book       *ledger.Ledger
	account    string // the pool's own ledger account
	controller string // account tokens are pulled from / returned to
	swapFee    sdkmath.LegacyDec
	publicSwap bool
	records    map[types.TokenID]*record
	total      sdkmath.Int
}

// NewMemoryPool creates an empty pool whose bind/unbind flows settle against
// the given ledger accounts.
func NewMemoryPool(book *ledger.Ledger, account, controller string, swapFee sdkmath.LegacyDec) *MemoryPool {
	return &MemoryPool{
		book:       book,
		account:    account,
		controller: controller,
		swapFee:    swapFee,
		publicSwap: true,
		records:    make(map[types.TokenID]*record),
		total:      sdkmath.ZeroInt(),
	}
}

func (p *MemoryPool) Bind(token types.TokenID, balance, denorm sdkmath.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.records[token]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, token)
	}
	if err := p.checkWeight(denorm); err != nil {
		return err
	}
	if balance.LT(MinBalance) {
		return fmt.Errorf("%w: %s < %s", ErrMinBalance, balance, MinBalance)
	}
	newTotal := p.total.Add(denorm)
	if newTotal.GT(MaxTotalWeight) {
		return fmt.Errorf("%w: %s > %s", ErrTotalWeight, newTotal, MaxTotalWeight)
	}
	if err := p.book.Transfer(p.controller, p.account, token, balance); err != nil {
		return err
	}
	p.records[token] = &record{balance: balance, denorm: denorm}
	p.total = newTotal
	return nil
}

func (p *MemoryPool) Rebind(token types.TokenID, balance, denorm sdkmath.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotBound, token)
	}
	if err := p.checkWeight(denorm); err != nil {
		return err
	}
	if balance.LT(MinBalance) {
		return fmt.Errorf("%w: %s < %s", ErrMinBalance, balance, MinBalance)
	}
	// Total bound check happens before anything moves, so a mid-sequence
	// violation by a caller surfaces as a clean rejection.
	newTotal := p.total.Sub(rec.denorm).Add(denorm)
	if newTotal.GT(MaxTotalWeight) {
		return fmt.Errorf("%w: %s > %s", ErrTotalWeight, newTotal, MaxTotalWeight)
	}

	switch {
	case balance.GT(rec.balance):
		if err := p.book.Transfer(p.controller, p.account, token, balance.Sub(rec.balance)); err != nil {
			return err
		}
	case balance.LT(rec.balance):
		if err := p.book.Transfer(p.account, p.controller, token, rec.balance.Sub(balance)); err != nil {
			return err
		}
	}
	rec.balance = balance
	rec.denorm = denorm
	p.total = newTotal
	return nil
}

func (p *MemoryPool) Unbind(token types.TokenID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[token]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotBound, token)
	}
	if err := p.book.Transfer(p.account, p.controller, token, rec.balance); err != nil {
		return err
	}
	p.total = p.total.Sub(rec.denorm)
	delete(p.records, token)
	return nil
}

func (p *MemoryPool) SwapExactAmountIn(caller string, tokenIn types.TokenID, amountIn sdkmath.Int, tokenOut types.TokenID, minOut sdkmath.Int, maxPrice sdkmath.LegacyDec) (sdkmath.Int, sdkmath.LegacyDec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.publicSwap {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, ErrNotPublic
	}
	if amountIn.IsNil() || !amountIn.IsPositive() {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, types.ErrZeroAmount
	}
	in, ok := p.records[tokenIn]
	if !ok {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", ErrNotBound, tokenIn)
	}
	out, ok := p.records[tokenOut]
	if !ok {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", ErrNotBound, tokenOut)
	}

	amountOut := calcOutGivenIn(in.balance, in.denorm, out.balance, out.denorm, amountIn, p.swapFee)
	if amountOut.LT(minOut) {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, fmt.Errorf("%w: out %s < min %s", types.ErrSlippage, amountOut, minOut)
	}

	// Slippage checks run against the projected balances before anything
	// moves; a rejected swap leaves no partial effect.
	spotAfter := spotPrice(in.balance.Add(amountIn), in.denorm, out.balance.Sub(amountOut), out.denorm, p.swapFee)
	if !maxPrice.IsNil() && spotAfter.GT(maxPrice) {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, fmt.Errorf("%w: spot after %s > max %s", types.ErrSlippage, spotAfter, maxPrice)
	}

	if err := p.book.Transfer(caller, p.account, tokenIn, amountIn); err != nil {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, err
	}
	if err := p.book.Transfer(p.account, caller, tokenOut, amountOut); err != nil {
		return sdkmath.Int{}, sdkmath.LegacyDec{}, err
	}
	in.balance = in.balance.Add(amountIn)
	out.balance = out.balance.Sub(amountOut)

	return amountOut, spotAfter, nil
}

func (p *MemoryPool) GetSpotPrice(tokenIn, tokenOut types.TokenID) (sdkmath.LegacyDec, error) {
	return p.spot(tokenIn, tokenOut, p.swapFee)
}

func (p *MemoryPool) GetSpotPriceSansFee(tokenIn, tokenOut types.TokenID) (sdkmath.LegacyDec, error) {
	return p.spot(tokenIn, tokenOut, sdkmath.LegacyZeroDec())
}

func (p *MemoryPool) CalcOutGivenIn(tokenIn types.TokenID, amountIn sdkmath.Int, tokenOut types.TokenID) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.records[tokenIn]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNotBound, tokenIn)
	}
	out, ok := p.records[tokenOut]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNotBound, tokenOut)
	}
	return calcOutGivenIn(in.balance, in.denorm, out.balance, out.denorm, amountIn, p.swapFee), nil
}

func (p *MemoryPool) CalcInGivenOut(tokenIn types.TokenID, amountOut sdkmath.Int, tokenOut types.TokenID) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.records[tokenIn]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNotBound, tokenIn)
	}
	out, ok := p.records[tokenOut]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNotBound, tokenOut)
	}
	return calcInGivenOut(in.balance, in.denorm, out.balance, out.denorm, amountOut, p.swapFee), nil
}

func (p *MemoryPool) GetDenormalizedWeight(token types.TokenID) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[token]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNotBound, token)
	}
	return rec.denorm, nil
}

func (p *MemoryPool) GetBalance(token types.TokenID) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.records[token]
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrNotBound, token)
	}
	return rec.balance, nil
}

func (p *MemoryPool) IsBound(token types.TokenID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.records[token]
	return ok
}

func (p *MemoryPool) SetSwapFee(fee sdkmath.LegacyDec) error {
	if fee.IsNil() || fee.IsNegative() || fee.GTE(sdkmath.LegacyOneDec()) {
		return fmt.Errorf("%w: swap fee %s", types.ErrConfiguration, fee)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.swapFee = fee
	return nil
}

func (p *MemoryPool) SetController(controller string) error {
	if controller == "" {
		return fmt.Errorf("%w: empty controller", types.ErrConfiguration)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.controller = controller
	return nil
}

func (p *MemoryPool) SetPublicSwap(public bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publicSwap = public
	return nil
}

// TotalWeight exposes the running denormalized weight sum for tests.
func (p *MemoryPool) TotalWeight() sdkmath.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

func (p *MemoryPool) checkWeight(denorm sdkmath.Int) error {
	if denorm.IsNil() || denorm.LT(MinWeight) || denorm.GT(MaxWeight) {
		return fmt.Errorf("%w: %s", ErrWeightBounds, denorm)
	}
	return nil
}

func (p *MemoryPool) spot(tokenIn, tokenOut types.TokenID, fee sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.records[tokenIn]
	if !ok {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", ErrNotBound, tokenIn)
	}
	out, ok := p.records[tokenOut]
	if !ok {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %s", ErrNotBound, tokenOut)
	}
	return spotPrice(in.balance, in.denorm, out.balance, out.denorm, fee), nil
}

// spotPrice = (balanceIn/weightIn) / (balanceOut/weightOut) / (1 - fee).
func spotPrice(bi, wi, bo, wo sdkmath.Int, fee sdkmath.LegacyDec) sdkmath.LegacyDec {
	numer := sdkmath.LegacyNewDecFromInt(bi).Quo(sdkmath.LegacyNewDecFromInt(wi))
	denom := sdkmath.LegacyNewDecFromInt(bo).Quo(sdkmath.LegacyNewDecFromInt(wo))
	ratio := numer.Quo(denom)
	if fee.IsZero() {
		return ratio
	}
	return ratio.Quo(sdkmath.LegacyOneDec().Sub(fee))
}

// calcOutGivenIn: out = bo * (1 - (bi / (bi + in*(1-fee)))^(wi/wo)).
func calcOutGivenIn(bi, wi, bo, wo, amountIn sdkmath.Int, fee sdkmath.LegacyDec) sdkmath.Int {
	bif, wif := intToFloat(bi), intToFloat(wi)
	bof, wof := intToFloat(bo), intToFloat(wo)
	inf := intToFloat(amountIn) * (1 - fee.MustFloat64())

	y := bif / (bif + inf)
	outf := bof * (1 - math.Pow(y, wif/wof))
	return floatToInt(outf)
}

// calcInGivenOut: in = bi * ((bo/(bo-out))^(wo/wi) - 1) / (1-fee).
func calcInGivenOut(bi, wi, bo, wo, amountOut sdkmath.Int, fee sdkmath.LegacyDec) sdkmath.Int {
	bif, wif := intToFloat(bi), intToFloat(wi)
	bof, wof := intToFloat(bo), intToFloat(wo)
	outf := intToFloat(amountOut)

	y := bof / (bof - outf)
	inf := bif * (math.Pow(y, wof/wif) - 1) / (1 - fee.MustFloat64())
	return floatToInt(inf)
}

func intToFloat(v sdkmath.Int) float64 {
	f, _ := new(big.Float).SetInt(v.BigInt()).Float64()
	return f
}

func floatToInt(f float64) sdkmath.Int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return sdkmath.ZeroInt()
	}
	r, _ := big.NewFloat(f).Int(nil)
	return sdkmath.NewIntFromBigInt(r)
}
