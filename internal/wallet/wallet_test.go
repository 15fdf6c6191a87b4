package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBytesSeedAndKeypair(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)

	fromKeypair, err := FromBytes(w.PrivateKey)
	require.NoError(t, err)
	assert.True(t, w.PublicKey.Equals(fromKeypair.PublicKey))

	fromSeed, err := FromBytes(w.PrivateKey[:32])
	require.NoError(t, err)
	assert.True(t, w.PublicKey.Equals(fromSeed.PublicKey))

	_, err = FromBytes(make([]byte, 10))
	assert.Error(t, err)
}

func TestFromBytesRejectsMismatchedKeypair(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	forged := append(append([]byte{}, a.PrivateKey[:32]...), b.PublicKey.Bytes()...)
	_, err = FromBytes(forged)
	assert.Error(t, err)
}

func TestNewWalletBase58(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)

	parsed, err := NewWallet(" " + w.Base58() + "\n")
	require.NoError(t, err)
	assert.Equal(t, w.String(), parsed.String())

	_, err = NewWallet("0OIl")
	assert.Error(t, err)
}

func TestGetATA(t *testing.T) {
	w, err := Generate()
	require.NoError(t, err)
	mint := solana.NewWallet().PublicKey()

	expected, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	require.NoError(t, err)

	ata, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, expected, ata)

	again, err := w.GetATA(mint)
	require.NoError(t, err)
	assert.Equal(t, ata, again)
}

func TestCreateATAIdempotentInstruction(t *testing.T) {
	payer := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	ix, err := CreateATAIdempotentInstruction(payer, payer, mint)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, 6)
	assert.True(t, accounts[0].IsSigner)
	assert.Equal(t, mint, accounts[3].PublicKey)
}

func TestLoadWallets(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys.csv")
	content := "name,private_key\nalpha," + a.Base58() + "\nbeta," + base58.Encode(b.PrivateKey[:32]) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	keys, err := LoadWallets(path)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "alpha", keys[0].Name)
	assert.Equal(t, a.PublicKey, keys[0].Wallet.PublicKey)
	assert.Equal(t, b.PublicKey, keys[1].Wallet.PublicKey)
}
