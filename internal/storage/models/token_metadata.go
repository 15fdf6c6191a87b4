// internal/storage/models/token_metadata.go
package models

// TokenMetadata caches what is known about a mint.
type TokenMetadata struct {
	Mint     string `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	Symbol   string `gorm:"not null"`
	URI      string `gorm:"column:uri"`
	Decimals uint8  `gorm:"not null"`
}

func (TokenMetadata) TableName() string { return "token_metadata" }
