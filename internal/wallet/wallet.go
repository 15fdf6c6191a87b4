// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"crypto/ed25519"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet is a Solana signing credential.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.Mutex
	ataCache map[solana.PublicKey]solana.PublicKey
}

// Generate creates a wallet from a fresh random keypair.
func Generate() (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return newWallet(key), nil
}

// NewWallet creates a wallet from a base58-encoded private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return FromBytes(privateKeyBytes)
}

// FromBytes accepts either a 32-byte ed25519 seed or a 64-byte keypair
// (seed followed by public key).
func FromBytes(b []byte) (*Wallet, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return newWallet(solana.PrivateKey(ed25519.NewKeyFromSeed(b))), nil
	case ed25519.PrivateKeySize:
		key := solana.PrivateKey(append([]byte(nil), b...))
		derived := ed25519.NewKeyFromSeed(b[:ed25519.SeedSize])
		if !solana.PublicKeyFromBytes(derived[ed25519.SeedSize:]).Equals(solana.PublicKeyFromBytes(b[ed25519.SeedSize:])) {
			return nil, fmt.Errorf("invalid keypair: public key does not match seed")
		}
		return newWallet(key), nil
	default:
		return nil, fmt.Errorf("invalid private key length: expected 32 or 64 bytes, got %d", len(b))
	}
}

func newWallet(key solana.PrivateKey) *Wallet {
	return &Wallet{
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}
}

// Base58 returns the 64-byte keypair encoded the way wallets export it.
func (w *Wallet) Base58() string {
	return base58.Encode(w.PrivateKey)
}

// NamedKey is one row of a key import file.
type NamedKey struct {
	Name   string
	Wallet *Wallet
}

// LoadWallets reads a CSV file with columns [Name, PrivateKeyBase58] and a
// header row. Rows that fail to parse are reported, not skipped silently.
func LoadWallets(path string) ([]NamedKey, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	keys := make([]NamedKey, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 columns, got %d", i+2, len(record))
		}
		w, err := NewWallet(record[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		keys = append(keys, NamedKey{Name: strings.TrimSpace(record[0]), Wallet: w})
	}
	return keys, nil
}

// SignTransaction signs tx with the wallet key.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// GetATA returns the wallet's associated token account for mint.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ata, ok := w.ataCache[mint]; ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.ataCache[mint] = ata
	return ata, nil
}

// CreateATAIdempotentInstruction builds the associated-token-program
// CreateIdempotent instruction for owner's account of mint, paid by payer.
func CreateATAIdempotentInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // CreateIdempotent
	), nil
}

func (w *Wallet) String() string {
	return w.PublicKey.String()
}
