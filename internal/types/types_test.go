package types

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSOLToLamports(t *testing.T) {
	l, err := SOLToLamports(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), l)

	// fractions of a lamport are truncated
	l, err = SOLToLamports(decimal.RequireFromString("0.0000000019"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), l)

	_, err = SOLToLamports(decimal.RequireFromString("-1"))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	_, err = SOLToLamports(decimal.RequireFromString("100000000000"))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
}

func TestRawUnitsRoundTrip(t *testing.T) {
	v := FromRawUnits(123_456_789, 6)
	assert.Equal(t, "123.456789", v.String())

	raw, err := ToRawUnits(v, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(123_456_789), raw)

	raw, err = ToRawUnits(decimal.NewFromUint64(math.MaxUint64), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), raw)
}

func TestSlippage(t *testing.T) {
	bps, err := PercentToBps(5)
	require.NoError(t, err)
	assert.Equal(t, uint16(500), bps)

	bps, err = PercentToBps(0.25)
	require.NoError(t, err)
	assert.Equal(t, uint16(25), bps)

	_, err = PercentToBps(101)
	assert.Error(t, err)

	one := decimal.NewFromInt(1)
	assert.True(t, InflateByBps(one, 500).Equal(decimal.RequireFromString("1.05")))
	assert.True(t, DeflateByBps(one, 500).Equal(decimal.RequireFromString("0.95")))
	assert.True(t, DeflateByBps(one, 10_000).IsZero())
}

func TestEffectiveUnitPrice(t *testing.T) {
	cb := ComputeBudget{UnitLimit: 100_000, UnitPrice: 1_000_000}
	assert.Equal(t, uint64(1_000_000), cb.EffectiveUnitPrice(decimal.Zero))

	// 0.0001 SOL = 100_000 lamports over 100_000 units = 1 lamport/unit
	assert.Equal(t, uint64(2_000_000), cb.EffectiveUnitPrice(decimal.RequireFromString("0.0001")))

	assert.Len(t, cb.Instructions(decimal.Zero), 2)
	assert.Len(t, ComputeBudget{}.Instructions(decimal.Zero), 0)
}

func TestComputeBudgetForLevel(t *testing.T) {
	cb, err := ComputeBudgetForLevel(PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, uint32(150_000), cb.UnitLimit)

	_, err = ComputeBudgetForLevel("turbo")
	assert.Error(t, err)
}
