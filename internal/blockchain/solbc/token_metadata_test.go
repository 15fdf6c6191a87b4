package solbc

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryMetadataStore struct {
	mu      sync.Mutex
	rows    map[string]models.TokenMetadata
	upserts int
}

func newMemoryMetadataStore() *memoryMetadataStore {
	return &memoryMetadataStore{rows: map[string]models.TokenMetadata{}}
}

func (s *memoryMetadataStore) GetTokenMetadata(_ context.Context, mint string) (*models.TokenMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[mint]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (s *memoryMetadataStore) UpsertTokenMetadata(_ context.Context, md *models.TokenMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[md.Mint] = *md
	s.upserts++
	return nil
}

func (s *memoryMetadataStore) ListTokenMetadata(context.Context) ([]models.TokenMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TokenMetadata, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

func TestTokenMetadataCacheFetchesOnceAndPersists(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	mint := solana.NewWallet().PublicKey()
	mdAddr, err := FindMetadataAddress(mint)
	require.NoError(t, err)
	client.accounts[mint] = encodeMint(6, 1_000_000_000_000_000)
	client.accounts[mdAddr] = encodeMetaplex(mint, "Pepe", "PEPE", "ipfs://pepe")

	store := newMemoryMetadataStore()
	cache, err := NewTokenMetadataCache(NewReader(client, zap.NewNop()), store, 8, zap.NewNop())
	require.NoError(t, err)

	md, err := cache.Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "Pepe", md.Name)
	assert.Equal(t, "PEPE", md.Symbol)
	assert.Equal(t, uint8(6), md.Decimals)
	assert.Equal(t, 1, store.upserts)

	calls := client.calls()
	decimals, err := cache.Decimals(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)
	assert.Equal(t, calls, client.calls())
}

func TestTokenMetadataCacheUnknownMetadata(t *testing.T) {
	client := newFakeClient()
	mint := solana.NewWallet().PublicKey()
	client.accounts[mint] = encodeMint(9, 0)

	cache, err := NewTokenMetadataCache(NewReader(client, zap.NewNop()), nil, 0, zap.NewNop())
	require.NoError(t, err)

	md, err := cache.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, UnknownTokenName, md.Name)
	assert.Equal(t, UnknownTokenSymbol, md.Symbol)
	assert.Equal(t, uint8(9), md.Decimals)
}

func TestTokenMetadataCacheMissingMint(t *testing.T) {
	cache, err := NewTokenMetadataCache(NewReader(newFakeClient(), zap.NewNop()), nil, 4, zap.NewNop())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, 0, cache.Len())
}

func TestTokenMetadataCacheSeedFromStore(t *testing.T) {
	client := newFakeClient()
	mint := solana.NewWallet().PublicKey()
	store := newMemoryMetadataStore()
	store.rows[mint.String()] = models.TokenMetadata{Mint: mint.String(), Name: "Stored", Symbol: "STR", Decimals: 6}
	store.rows["not-a-key"] = models.TokenMetadata{Mint: "not-a-key"}

	cache, err := NewTokenMetadataCache(NewReader(client, zap.NewNop()), store, 4, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, cache.Seed(context.Background()))
	assert.Equal(t, 1, cache.Len())

	md, err := cache.Get(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "Stored", md.Name)
	assert.Zero(t, client.calls())
}

func TestTokenMetadataCacheEvicts(t *testing.T) {
	client := newFakeClient()
	cache, err := NewTokenMetadataCache(NewReader(client, zap.NewNop()), nil, 2, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		mint := solana.NewWallet().PublicKey()
		client.accounts[mint] = encodeMint(6, 0)
		_, err := cache.Get(context.Background(), mint)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())
}
