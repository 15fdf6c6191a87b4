// internal/storage/models/wallet.go
package models

import "time"

const (
	WalletStatusActive  = "active"
	WalletStatusDeleted = "deleted"
)

// TimestampLayout is how access times are stored; it sorts lexically.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Wallet is a registry row. The private key is stored encrypted.
type Wallet struct {
	ID                    int64  `gorm:"primaryKey;autoIncrement"`
	Name                  string `gorm:"not null"`
	PublicKey             string `gorm:"not null;index"`
	PrivateKeyEncrypted   []byte `gorm:"not null"`
	Status                string `gorm:"not null"`
	LastAccessedTimestamp string `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

// Active reports whether the wallet has not been deleted.
func (w *Wallet) Active() bool {
	return w.Status != WalletStatusDeleted
}

// FormatTimestamp renders t in the stored layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
