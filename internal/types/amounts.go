// internal/types/amounts.go
package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// SOLDecimals is the decimal count of native SOL.
const SOLDecimals = 9

var (
	// ApproxRent is the SOL kept aside whenever a token account has to be created.
	ApproxRent = decimal.RequireFromString("0.002")

	// ErrAmountOutOfRange is returned when an amount does not fit in a u64.
	ErrAmountOutOfRange = errors.New("amount out of u64 range")
)

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return FromRawUnits(lamports, SOLDecimals)
}

// SOLToLamports converts SOL to lamports, truncating any fraction of a lamport.
func SOLToLamports(sol decimal.Decimal) (uint64, error) {
	return ToRawUnits(sol, SOLDecimals)
}

// FromRawUnits scales a raw integer amount down by 10^decimals.
func FromRawUnits(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}

// ToRawUnits scales v up by 10^decimals and truncates to an integer.
func ToRawUnits(v decimal.Decimal, decimals uint8) (uint64, error) {
	if v.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrAmountOutOfRange, v)
	}
	raw := v.Shift(int32(decimals)).Truncate(0).BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOutOfRange, v)
	}
	return raw.Uint64(), nil
}
