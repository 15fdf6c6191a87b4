package solbc

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetaplexMetadata(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	md, err := ParseMetaplexMetadata(encodeMetaplex(mint, "Dog Wif Hat", "WIF", "https://example.com/wif.json"))
	require.NoError(t, err)

	assert.Equal(t, mint, md.Mint)
	assert.Equal(t, "Dog Wif Hat", md.Name)
	assert.Equal(t, "WIF", md.Symbol)
	assert.Equal(t, "https://example.com/wif.json", md.URI)
}

func TestParseMetaplexMetadataRejectsGarbage(t *testing.T) {
	_, err := ParseMetaplexMetadata([]byte{1, 2, 3})
	assert.Error(t, err)

	data := encodeMetaplex(solana.NewWallet().PublicKey(), "a", "b", "c")
	_, err = ParseMetaplexMetadata(data[:80])
	assert.Error(t, err)
}

func TestFindMetadataAddressDeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	a, err := FindMetadataAddress(mint)
	require.NoError(t, err)
	b, err := FindMetadataAddress(mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, mint, a)
}
