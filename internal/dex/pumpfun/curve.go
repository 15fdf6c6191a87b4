// =============================
// File: internal/dex/pumpfun/curve.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/shopspring/decimal"
)

// divisionPrecision is the number of fractional digits kept by reserve
// divisions. Token prices on a fresh curve sit around 1e-8 SOL, so this keeps
// well over ten significant digits.
const divisionPrecision = 24

// Curve is a decimal-normalized snapshot of a constant-product bonding curve.
// Values are immutable; trades return a new Curve.
type Curve struct {
	VirtualSolReserves   decimal.Decimal // SOL
	VirtualTokenReserves decimal.Decimal // whole tokens
	TotalSupply          decimal.Decimal // whole tokens
	Bonded               bool
}

// NewCurve normalizes raw on-chain reserves using the mint's decimals.
func NewCurve(bc *BondingCurve, decimals uint8) Curve {
	return Curve{
		VirtualSolReserves:   types.LamportsToSOL(bc.VirtualSolReserves),
		VirtualTokenReserves: types.FromRawUnits(bc.VirtualTokenReserves, decimals),
		TotalSupply:          types.FromRawUnits(bc.TokenTotalSupply, decimals),
		Bonded:               bc.Complete,
	}
}

// Price is SOL per whole token.
func (c Curve) Price() (decimal.Decimal, error) {
	if !c.VirtualTokenReserves.IsPositive() {
		return decimal.Zero, ErrCurveUnavailable
	}
	return c.VirtualSolReserves.DivRound(c.VirtualTokenReserves, divisionPrecision), nil
}

// MarketCap is Price times total supply, in SOL.
func (c Curve) MarketCap() (decimal.Decimal, error) {
	price, err := c.Price()
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(c.TotalSupply), nil
}

// Tradable reports ErrCurveBonded or ErrCurveUnavailable when the curve
// cannot be traded.
func (c Curve) Tradable() error {
	if c.Bonded {
		return ErrCurveBonded
	}
	if !c.VirtualTokenReserves.IsPositive() || !c.VirtualSolReserves.IsPositive() {
		return ErrCurveUnavailable
	}
	return nil
}

// QuoteBuy returns the tokens received for solIn. The result is rounded to
// the nearest whole token, ties to even; it is the amount sent on-chain.
//
// Rounding can add up to half a token, so selling the quoted amount back may
// return slightly more than solIn (at most half a token at the post-buy
// price). This only matters for buys of a few tokens; the executor rejects
// buys whose rounding exceeds the slippage budget.
func (c Curve) QuoteBuy(solIn decimal.Decimal) (decimal.Decimal, error) {
	exact, err := c.quoteBuyExact(solIn)
	if err != nil {
		return decimal.Zero, err
	}
	return exact.RoundBank(0), nil
}

func (c Curve) quoteBuyExact(solIn decimal.Decimal) (decimal.Decimal, error) {
	if err := c.Tradable(); err != nil {
		return decimal.Zero, err
	}
	if solIn.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative SOL amount: %s", solIn)
	}

	k := c.VirtualSolReserves.Mul(c.VirtualTokenReserves)
	newSol := c.VirtualSolReserves.Add(solIn)
	newTokens := k.DivRound(newSol, divisionPrecision)

	return c.VirtualTokenReserves.Sub(newTokens), nil
}

// QuoteSell returns the SOL received for tokensIn. Not rounded.
func (c Curve) QuoteSell(tokensIn decimal.Decimal) (decimal.Decimal, error) {
	if err := c.Tradable(); err != nil {
		return decimal.Zero, err
	}
	if tokensIn.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative token amount: %s", tokensIn)
	}

	k := c.VirtualSolReserves.Mul(c.VirtualTokenReserves)
	newTokens := c.VirtualTokenReserves.Add(tokensIn)
	newSol := k.DivRound(newTokens, divisionPrecision)

	return c.VirtualSolReserves.Sub(newSol), nil
}

// ApplyBuy returns the curve after a buy of solIn that paid out tokensOut.
func (c Curve) ApplyBuy(solIn, tokensOut decimal.Decimal) (Curve, error) {
	next := c
	next.VirtualSolReserves = c.VirtualSolReserves.Add(solIn)
	next.VirtualTokenReserves = c.VirtualTokenReserves.Sub(tokensOut)
	if err := next.checkReserves(); err != nil {
		return c, err
	}
	return next, nil
}

// ApplySell returns the curve after a sell of tokensIn that paid out solOut.
func (c Curve) ApplySell(tokensIn, solOut decimal.Decimal) (Curve, error) {
	next := c
	next.VirtualTokenReserves = c.VirtualTokenReserves.Add(tokensIn)
	next.VirtualSolReserves = c.VirtualSolReserves.Sub(solOut)
	if err := next.checkReserves(); err != nil {
		return c, err
	}
	return next, nil
}

func (c Curve) checkReserves() error {
	if c.VirtualSolReserves.IsNegative() || c.VirtualTokenReserves.IsNegative() {
		return fmt.Errorf("%w: reserves would go negative (sol=%s tokens=%s)",
			ErrCurveUnavailable, c.VirtualSolReserves, c.VirtualTokenReserves)
	}
	return nil
}

// Quote returns the counter-amount of a trade: tokens out for a buy of
// amount SOL, SOL out for a sell of amount tokens.
func Quote(action Action, amount decimal.Decimal, curve Curve) (decimal.Decimal, error) {
	switch action {
	case ActionBuy:
		return curve.QuoteBuy(amount)
	case ActionSell:
		return curve.QuoteSell(amount)
	default:
		return decimal.Zero, fmt.Errorf("unknown action %q", action)
	}
}
