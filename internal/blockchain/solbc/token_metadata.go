// internal/blockchain/solbc/token_metadata.go
package solbc

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rovshanmuradov/cointools/internal/storage/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	UnknownTokenName   = "Unknown"
	UnknownTokenSymbol = "???"

	DefaultMetadataCacheSize = 1024
)

// TokenMetadata describes a mint.
type TokenMetadata struct {
	Mint     solana.PublicKey
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

// MetadataStore persists token metadata between runs.
type MetadataStore interface {
	GetTokenMetadata(ctx context.Context, mint string) (*models.TokenMetadata, error)
	UpsertTokenMetadata(ctx context.Context, md *models.TokenMetadata) error
	ListTokenMetadata(ctx context.Context) ([]models.TokenMetadata, error)
}

// ErrMetadataNotFound is returned by a MetadataStore for unknown mints.
var ErrMetadataNotFound = errors.New("token metadata not found")

// TokenMetadataCache is a bounded get-or-compute cache of token metadata.
// Misses fall through to the store, then to the chain; concurrent misses on
// the same mint share one lookup.
type TokenMetadataCache struct {
	reader *Reader
	store  MetadataStore
	cache  *lru.Cache[solana.PublicKey, TokenMetadata]
	group  singleflight.Group
	logger *zap.Logger
}

// NewTokenMetadataCache creates a cache holding at most size entries. store
// may be nil.
func NewTokenMetadataCache(reader *Reader, store MetadataStore, size int, logger *zap.Logger) (*TokenMetadataCache, error) {
	if size <= 0 {
		size = DefaultMetadataCacheSize
	}
	cache, err := lru.New[solana.PublicKey, TokenMetadata](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	return &TokenMetadataCache{
		reader: reader,
		store:  store,
		cache:  cache,
		logger: logger.Named("token-metadata"),
	}, nil
}

// Seed loads persisted metadata into the cache.
func (c *TokenMetadataCache) Seed(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	rows, err := c.store.ListTokenMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to load token metadata: %w", err)
	}
	for _, row := range rows {
		md, err := fromModel(&row)
		if err != nil {
			c.logger.Warn("Skipping stored metadata", zap.String("mint", row.Mint), zap.Error(err))
			continue
		}
		c.cache.Add(md.Mint, md)
	}
	c.logger.Debug("Token metadata cache seeded", zap.Int("entries", c.cache.Len()))
	return nil
}

// Get returns metadata for mint, computing and caching it on a miss.
func (c *TokenMetadataCache) Get(ctx context.Context, mint solana.PublicKey) (TokenMetadata, error) {
	if md, ok := c.cache.Get(mint); ok {
		return md, nil
	}

	v, err, _ := c.group.Do(mint.String(), func() (interface{}, error) {
		md, err := c.load(ctx, mint)
		if err != nil {
			return TokenMetadata{}, err
		}
		c.cache.Add(mint, md)
		return md, nil
	})
	if err != nil {
		return TokenMetadata{}, err
	}
	return v.(TokenMetadata), nil
}

// Decimals returns the decimal count of mint.
func (c *TokenMetadataCache) Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	md, err := c.Get(ctx, mint)
	if err != nil {
		return 0, err
	}
	return md.Decimals, nil
}

// Len is the number of cached entries.
func (c *TokenMetadataCache) Len() int {
	return c.cache.Len()
}

func (c *TokenMetadataCache) load(ctx context.Context, mint solana.PublicKey) (TokenMetadata, error) {
	if c.store != nil {
		row, err := c.store.GetTokenMetadata(ctx, mint.String())
		switch {
		case err == nil && row != nil:
			return fromModel(row)
		case err != nil && !errors.Is(err, ErrMetadataNotFound):
			c.logger.Warn("Token metadata store lookup failed", zap.String("mint", mint.String()), zap.Error(err))
		}
	}

	md, err := c.fetchFromChain(ctx, mint)
	if err != nil {
		return TokenMetadata{}, err
	}

	if c.store != nil {
		if err := c.store.UpsertTokenMetadata(ctx, toModel(md)); err != nil {
			c.logger.Warn("Failed to persist token metadata", zap.String("mint", mint.String()), zap.Error(err))
		}
	}
	return md, nil
}

// fetchFromChain reads the Metaplex account (optional) and the mint
// account (required).
func (c *TokenMetadataCache) fetchFromChain(ctx context.Context, mint solana.PublicKey) (TokenMetadata, error) {
	md := TokenMetadata{Mint: mint, Name: UnknownTokenName, Symbol: UnknownTokenSymbol}

	addr, err := FindMetadataAddress(mint)
	if err != nil {
		return TokenMetadata{}, err
	}
	info, err := c.reader.client.GetAccountInfo(ctx, addr)
	switch {
	case err == nil && info != nil && info.Value != nil:
		parsed, perr := ParseMetaplexMetadata(info.Value.Data.GetBinary())
		if perr != nil {
			c.logger.Debug("Unparseable metadata account", zap.String("mint", mint.String()), zap.Error(perr))
			break
		}
		md.Name, md.Symbol, md.URI = parsed.Name, parsed.Symbol, parsed.URI
	case err != nil && !IsAccountNotFoundError(err):
		return TokenMetadata{}, fmt.Errorf("failed to get metadata account: %w", err)
	}

	decimals, err := c.reader.MintDecimals(ctx, mint)
	if err != nil {
		return TokenMetadata{}, err
	}
	md.Decimals = decimals

	c.logger.Debug("Token metadata fetched from chain",
		zap.String("mint", mint.String()),
		zap.String("symbol", md.Symbol),
		zap.Uint8("decimals", md.Decimals))
	return md, nil
}

func toModel(md TokenMetadata) *models.TokenMetadata {
	return &models.TokenMetadata{
		Mint:     md.Mint.String(),
		Name:     md.Name,
		Symbol:   md.Symbol,
		URI:      md.URI,
		Decimals: md.Decimals,
	}
}

func fromModel(row *models.TokenMetadata) (TokenMetadata, error) {
	mint, err := solana.PublicKeyFromBase58(row.Mint)
	if err != nil {
		return TokenMetadata{}, fmt.Errorf("invalid mint %q: %w", row.Mint, err)
	}
	return TokenMetadata{
		Mint:     mint,
		Name:     row.Name,
		Symbol:   row.Symbol,
		URI:      row.URI,
		Decimals: row.Decimals,
	}, nil
}
