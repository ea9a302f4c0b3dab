package liquidity

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/naru6be1/PolkaVault/internal/types"
)

// Pure share arithmetic. Everything here is integer math with explicit
// floor semantics; callers hand in a consistent snapshot and apply the
// results under the optimistic coordinator.

// MintedShares computes the LP shares minted for a deposit of
// (amountA, amountB) against the given reserves and supply.
//
// An empty pool bootstraps the share price with floor(sqrt(amountA*amountB));
// the sub-integer rounding loss is donated to the pool. A funded pool mints
// min(floor(amountA*supply/reserveA), floor(amountB*supply/reserveB)), so a
// depositor off the current price ratio is credited only for the limiting
// side. Deposits whose share count floors to zero are rejected.
func MintedShares(reserveA, reserveB, supply, amountA, amountB *big.Int) (*big.Int, error) {
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return nil, types.ErrInvalidAmount
	}

	var minted *big.Int
	if supply.Sign() == 0 {
		minted = new(big.Int).Sqrt(new(big.Int).Mul(amountA, amountB))
	} else {
		byA := new(big.Int).Div(new(big.Int).Mul(amountA, supply), reserveA)
		byB := new(big.Int).Div(new(big.Int).Mul(amountB, supply), reserveB)
		minted = byA
		if byB.Cmp(byA) < 0 {
			minted = byB
		}
	}

	if minted.Sign() <= 0 {
		return nil, types.ErrInvalidAmount
	}
	return minted, nil
}

// SharesToBurn converts a withdrawal percentage in (0, 1] into a share
// count, flooring. Fails when the percentage is out of range or the result
// floors to zero.
func SharesToBurn(lpTokens *big.Int, percentage decimal.Decimal) (*big.Int, error) {
	if percentage.Sign() <= 0 || percentage.GreaterThan(decimal.NewFromInt(1)) {
		return nil, types.ErrInvalidAmount
	}

	burn := decimal.NewFromBigInt(lpTokens, 0).Mul(percentage).Floor().BigInt()
	if burn.Sign() <= 0 {
		return nil, types.ErrInvalidAmount
	}
	return burn, nil
}

// WithdrawAmounts computes the proportional payout for burning lpToBurn
// shares: floor(reserve * lpToBurn / supply) per side. A full withdrawal
// (lpToBurn == supply) pays out the exact remaining reserves instead of
// going through the ratio, so the pool is driven to exactly empty with no
// dust left behind.
func WithdrawAmounts(reserveA, reserveB, supply, lpToBurn *big.Int) (amountAOut, amountBOut *big.Int) {
	if lpToBurn.Cmp(supply) == 0 {
		return new(big.Int).Set(reserveA), new(big.Int).Set(reserveB)
	}
	amountAOut = new(big.Int).Div(new(big.Int).Mul(reserveA, lpToBurn), supply)
	amountBOut = new(big.Int).Div(new(big.Int).Mul(reserveB, lpToBurn), supply)
	return amountAOut, amountBOut
}

// PriceRatio reports reserveB/reserveA for display, or zero for an empty
// pool. Display only; no engine decision is ever made on this value.
func PriceRatio(reserveA, reserveB *big.Int) decimal.Decimal {
	if reserveA.Sign() == 0 {
		return decimal.Zero
	}
	a := decimal.NewFromBigInt(reserveA, 0)
	b := decimal.NewFromBigInt(reserveB, 0)
	return b.DivRound(a, 18)
}
