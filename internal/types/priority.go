package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/shopspring/decimal"
)

type PriorityLevel string

const (
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

// ComputeBudget is the per-transaction compute allowance and its price.
type ComputeBudget struct {
	UnitLimit uint32 // compute units
	UnitPrice uint64 // micro-lamports per compute unit
}

// DefaultComputeBudget matches what a plain pump.fun swap needs.
var DefaultComputeBudget = ComputeBudget{UnitLimit: 100_000, UnitPrice: 1_000_000}

var priorityProfiles = map[PriorityLevel]ComputeBudget{
	PriorityLow:     {UnitLimit: 100_000, UnitPrice: 100_000},
	PriorityMedium:  {UnitLimit: 100_000, UnitPrice: 1_000_000},
	PriorityHigh:    {UnitLimit: 150_000, UnitPrice: 5_000_000},
	PriorityExtreme: {UnitLimit: 200_000, UnitPrice: 25_000_000},
}

// ComputeBudgetForLevel returns the preset budget for a named priority level.
func ComputeBudgetForLevel(level PriorityLevel) (ComputeBudget, error) {
	cb, ok := priorityProfiles[level]
	if !ok {
		return ComputeBudget{}, fmt.Errorf("unknown priority level: %s", level)
	}
	return cb, nil
}

// EffectiveUnitPrice folds a priority tip (in SOL) into the unit price: the
// tip is spread over the unit limit and added on top of UnitPrice.
func (cb ComputeBudget) EffectiveUnitPrice(priorityFee decimal.Decimal) uint64 {
	if cb.UnitLimit == 0 || !priorityFee.IsPositive() {
		return cb.UnitPrice
	}
	lamports, err := SOLToLamports(priorityFee)
	if err != nil {
		return cb.UnitPrice
	}
	// lamports -> micro-lamports per unit
	extra := decimal.NewFromUint64(lamports).
		Mul(decimal.NewFromInt(1_000_000)).
		Div(decimal.NewFromInt(int64(cb.UnitLimit))).
		Truncate(0)
	return cb.UnitPrice + uint64(extra.IntPart())
}

// Instructions builds the compute-budget directives for a transaction.
func (cb ComputeBudget) Instructions(priorityFee decimal.Decimal) []solana.Instruction {
	var instructions []solana.Instruction

	if cb.UnitLimit > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(cb.UnitLimit).Build())
	}

	if price := cb.EffectiveUnitPrice(priorityFee); price > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(price).Build())
	}

	return instructions
}
