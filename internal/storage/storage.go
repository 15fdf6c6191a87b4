// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/rovshanmuradov/cointools/internal/storage/models"
)

// ErrWalletNotFound is returned when no active wallet has the requested ID.
var ErrWalletNotFound = errors.New("wallet not found")

// Reencryptor turns one ciphertext into another, used for key rotation.
type Reencryptor func(ciphertext []byte) ([]byte, error)

// WalletStore is the wallet registry.
type WalletStore interface {
	InsertWallet(ctx context.Context, w *models.Wallet) error
	GetWallet(ctx context.Context, id int64) (*models.Wallet, error)
	// GetWalletsByIDs returns active wallets in the order of ids and
	// fails with ErrWalletNotFound if any id is missing or deleted.
	GetWalletsByIDs(ctx context.Context, ids []int64) ([]models.Wallet, error)
	ListWallets(ctx context.Context, includeDeleted bool) ([]models.Wallet, error)
	ListWalletsByPrefix(ctx context.Context, prefix string) ([]models.Wallet, error)
	RenameWallet(ctx context.Context, id int64, name string) error
	SoftDeleteWallet(ctx context.Context, id int64) error
	TouchWallet(ctx context.Context, id int64) error
	// ReencryptAll rewrites every private key in one transaction.
	ReencryptAll(ctx context.Context, fn Reencryptor) (int, error)
}

// TokenMetadataStore persists token metadata.
type TokenMetadataStore interface {
	GetTokenMetadata(ctx context.Context, mint string) (*models.TokenMetadata, error)
	UpsertTokenMetadata(ctx context.Context, md *models.TokenMetadata) error
	ListTokenMetadata(ctx context.Context) ([]models.TokenMetadata, error)
}

// Storage is everything the toolkit keeps on disk.
type Storage interface {
	WalletStore
	TokenMetadataStore

	RunMigrations() error
	Close() error
}
