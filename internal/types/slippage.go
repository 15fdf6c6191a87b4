// internal/types/slippage.go
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BpsDenominator is 100% expressed in basis points.
const BpsDenominator = 10_000

// PercentToBps converts a whole or fractional percentage (5 = 5%) to basis points.
func PercentToBps(percent float64) (uint16, error) {
	if percent < 0 || percent > 100 {
		return 0, fmt.Errorf("slippage must be between 0 and 100 percent, got %v", percent)
	}
	return uint16(decimal.NewFromFloat(percent).Mul(decimal.NewFromInt(100)).Round(0).IntPart()), nil
}

func bpsFraction(bps uint16) decimal.Decimal {
	return decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(BpsDenominator))
}

// InflateByBps returns v * (1 + bps/10000). Used for the maximum cost of a buy.
func InflateByBps(v decimal.Decimal, bps uint16) decimal.Decimal {
	return v.Mul(decimal.NewFromInt(1).Add(bpsFraction(bps)))
}

// DeflateByBps returns v * (1 - bps/10000), floored at zero. Used for the
// minimum proceeds of a sell.
func DeflateByBps(v decimal.Decimal, bps uint16) decimal.Decimal {
	out := v.Mul(decimal.NewFromInt(1).Sub(bpsFraction(bps)))
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
