package pumpfun

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccounts(t *testing.T) (CurveAccounts, solana.PublicKey) {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	accts, err := GetDefaultConfig().DeriveCurveAccounts(mint)
	require.NoError(t, err)
	return accts, solana.NewWallet().PublicKey()
}

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, "66063d1201daebea", hex.EncodeToString(BuyDiscriminator[:]))
	assert.Equal(t, "33e685a4017f83ad", hex.EncodeToString(SellDiscriminator[:]))
}

func TestSwapDataRoundTrip(t *testing.T) {
	cases := []struct {
		disc          [8]byte
		amount, limit uint64
	}{
		{BuyDiscriminator, 34_612_903_000_000, 1_050_000_000},
		{SellDiscriminator, 1, 0},
		{SellDiscriminator, math.MaxUint64, math.MaxUint64},
	}
	for _, tc := range cases {
		data := EncodeSwapData(tc.disc, tc.amount, tc.limit)
		require.Len(t, data, SwapDataLen)

		disc, amount, limit, err := DecodeSwapData(data)
		require.NoError(t, err)
		assert.Equal(t, tc.disc, disc)
		assert.Equal(t, tc.amount, amount)
		assert.Equal(t, tc.limit, limit)
	}

	_, _, _, err := DecodeSwapData(make([]byte, 23))
	assert.Error(t, err)
}

func TestSwapDataLittleEndian(t *testing.T) {
	data := EncodeSwapData(BuyDiscriminator, 0x0102030405060708, 1)
	assert.Equal(t, "66063d1201daebea"+"0807060504030201"+"0100000000000000", hex.EncodeToString(data))
}

func TestToRawAmount(t *testing.T) {
	raw, err := ToRawAmount(d("34612903"), 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(34_612_903_000_000), raw)

	_, err = ToRawAmount(d("18446744073709551616"), 0)
	assert.ErrorIs(t, err, ErrQuoteOverflow)

	_, err = ToRawAmount(d("-1"), 6)
	assert.ErrorIs(t, err, ErrQuoteOverflow)
}

func TestBuildBuyInstruction(t *testing.T) {
	cfg := GetDefaultConfig()
	curve, user := testAccounts(t)
	userATA, _, err := solana.FindAssociatedTokenAddress(user, curve.Mint)
	require.NoError(t, err)

	ix, err := BuildBuyInstruction(cfg, curve, user, 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, ProgramID, ix.ProgramID())

	expected := []struct {
		key      solana.PublicKey
		signer   bool
		writable bool
	}{
		{GlobalAccount, false, false},
		{FeeRecipient, false, true},
		{curve.Mint, false, false},
		{curve.BondingCurve, false, true},
		{curve.AssociatedBondingCurve, false, true},
		{userATA, false, true},
		{user, true, true},
		{solana.SystemProgramID, false, false},
		{solana.TokenProgramID, false, false},
		{solana.SysVarRentPubkey, false, false},
		{EventAuthority, false, false},
		{ProgramID, false, false},
	}
	accounts := ix.Accounts()
	require.Len(t, accounts, 12)
	for i, want := range expected {
		assert.Equal(t, want.key, accounts[i].PublicKey, "account %d", i)
		assert.Equal(t, want.signer, accounts[i].IsSigner, "account %d signer", i)
		assert.Equal(t, want.writable, accounts[i].IsWritable, "account %d writable", i)
	}

	data, err := ix.Data()
	require.NoError(t, err)
	disc, amount, limit, err := DecodeSwapData(data)
	require.NoError(t, err)
	assert.Equal(t, BuyDiscriminator, disc)
	assert.Equal(t, uint64(1000), amount)
	assert.Equal(t, uint64(2000), limit)
}

func TestBuildSellInstruction(t *testing.T) {
	cfg := GetDefaultConfig()
	curve, user := testAccounts(t)

	ix, err := BuildSellInstruction(cfg, curve, user, 5, 6)
	require.NoError(t, err)

	accounts := ix.Accounts()
	require.Len(t, accounts, 12)
	assert.Equal(t, GlobalAccount, accounts[0].PublicKey)
	assert.Equal(t, user, accounts[6].PublicKey)
	assert.True(t, accounts[6].IsSigner)
	assert.Equal(t, solana.SystemProgramID, accounts[7].PublicKey)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, accounts[8].PublicKey)
	assert.Equal(t, solana.TokenProgramID, accounts[9].PublicKey)
	assert.Equal(t, EventAuthority, accounts[10].PublicKey)
	assert.Equal(t, ProgramID, accounts[11].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	disc, amount, limit, err := DecodeSwapData(data)
	require.NoError(t, err)
	assert.Equal(t, SellDiscriminator, disc)
	assert.Equal(t, uint64(5), amount)
	assert.Equal(t, uint64(6), limit)
}

func TestDeriveCurveAccounts(t *testing.T) {
	curve, _ := testAccounts(t)

	expected, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), curve.Mint.Bytes()}, ProgramID)
	require.NoError(t, err)
	assert.Equal(t, expected, curve.BondingCurve)

	ata, _, err := solana.FindAssociatedTokenAddress(curve.BondingCurve, curve.Mint)
	require.NoError(t, err)
	assert.Equal(t, ata, curve.AssociatedBondingCurve)
}
