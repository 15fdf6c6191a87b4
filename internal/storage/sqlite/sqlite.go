// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rovshanmuradov/cointools/internal/storage"
	"github.com/rovshanmuradov/cointools/internal/storage/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type sqliteStorage struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// Option configures the storage.
type Option func(*sqliteStorage)

// WithClock overrides the access-time clock.
func WithClock(now func() time.Time) Option {
	return func(s *sqliteStorage) { s.now = now }
}

// NewStorage opens (creating if needed) the SQLite database at path.
func NewStorage(path string, zapLogger *zap.Logger, opts ...Option) (storage.Storage, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm"), logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// SQLite serializes writers; one connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	s := &sqliteStorage{
		db:     db,
		logger: zapLogger.Named("sqlite"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *sqliteStorage) RunMigrations() error {
	if err := s.db.AutoMigrate(&models.Wallet{}, &models.TokenMetadata{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *sqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *sqliteStorage) timestamp() string {
	return models.FormatTimestamp(s.now())
}

func (s *sqliteStorage) InsertWallet(ctx context.Context, w *models.Wallet) error {
	if w.Status == "" {
		w.Status = models.WalletStatusActive
	}
	if w.LastAccessedTimestamp == "" {
		w.LastAccessedTimestamp = s.timestamp()
	}
	if err := s.db.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("failed to insert wallet %q: %w", w.Name, err)
	}
	return nil
}

func (s *sqliteStorage) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	var w models.Wallet
	err := s.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, models.WalletStatusDeleted).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", storage.ErrWalletNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *sqliteStorage) GetWalletsByIDs(ctx context.Context, ids []int64) ([]models.Wallet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Wallet
	err := s.db.WithContext(ctx).
		Where("id IN ? AND status <> ?", ids, models.WalletStatusDeleted).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Wallet, len(rows))
	for _, w := range rows {
		byID[w.ID] = w
	}
	out := make([]models.Wallet, 0, len(ids))
	for _, id := range ids {
		w, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", storage.ErrWalletNotFound, id)
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *sqliteStorage) ListWallets(ctx context.Context, includeDeleted bool) ([]models.Wallet, error) {
	q := s.db.WithContext(ctx).Order("id")
	if !includeDeleted {
		q = q.Where("status <> ?", models.WalletStatusDeleted)
	}
	var rows []models.Wallet
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *sqliteStorage) ListWalletsByPrefix(ctx context.Context, prefix string) ([]models.Wallet, error) {
	var rows []models.Wallet
	err := s.db.WithContext(ctx).
		Where("name LIKE ? ESCAPE '\\' AND status <> ?", escapeLike(prefix)+"%", models.WalletStatusDeleted).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *sqliteStorage) updateActive(ctx context.Context, id int64, values map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND status <> ?", id, models.WalletStatusDeleted).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", storage.ErrWalletNotFound, id)
	}
	return nil
}

func (s *sqliteStorage) RenameWallet(ctx context.Context, id int64, name string) error {
	return s.updateActive(ctx, id, map[string]interface{}{
		"name":                    name,
		"last_accessed_timestamp": s.timestamp(),
	})
}

func (s *sqliteStorage) SoftDeleteWallet(ctx context.Context, id int64) error {
	return s.updateActive(ctx, id, map[string]interface{}{
		"status":                  models.WalletStatusDeleted,
		"last_accessed_timestamp": s.timestamp(),
	})
}

func (s *sqliteStorage) TouchWallet(ctx context.Context, id int64) error {
	return s.updateActive(ctx, id, map[string]interface{}{
		"last_accessed_timestamp": s.timestamp(),
	})
}

func (s *sqliteStorage) ReencryptAll(ctx context.Context, fn storage.Reencryptor) (int, error) {
	count := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.Wallet
		if err := tx.Order("id").Find(&rows).Error; err != nil {
			return err
		}
		for _, w := range rows {
			ciphertext, err := fn(w.PrivateKeyEncrypted)
			if err != nil {
				return fmt.Errorf("wallet %d: %w", w.ID, err)
			}
			if err := tx.Model(&models.Wallet{}).
				Where("id = ?", w.ID).
				Update("private_key_encrypted", ciphertext).Error; err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to re-encrypt wallets: %w", err)
	}
	s.logger.Info("Wallets re-encrypted", zap.Int("count", count))
	return count, nil
}

func (s *sqliteStorage) GetTokenMetadata(ctx context.Context, mint string) (*models.TokenMetadata, error) {
	var md models.TokenMetadata
	err := s.db.WithContext(ctx).Where("mint = ?", mint).First(&md).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &md, nil
}

func (s *sqliteStorage) UpsertTokenMetadata(ctx context.Context, md *models.TokenMetadata) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mint"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "symbol", "uri", "decimals"}),
	}).Create(md).Error
}

func (s *sqliteStorage) ListTokenMetadata(ctx context.Context) ([]models.TokenMetadata, error) {
	var rows []models.TokenMetadata
	if err := s.db.WithContext(ctx).Order("symbol").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
