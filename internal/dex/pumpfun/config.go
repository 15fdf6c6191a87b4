// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ProgramID is the pump.fun bonding-curve program.
	ProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	// GlobalAccount holds the program-wide configuration.
	GlobalAccount = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")
	// FeeRecipient receives the protocol fee on every swap.
	FeeRecipient = solana.MustPublicKeyFromBase58("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	// EventAuthority is the PDA the program emits CPI events through.
	EventAuthority = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
)

// Config holds the program addresses swaps are built against.
type Config struct {
	ProgramID      solana.PublicKey
	Global         solana.PublicKey
	FeeRecipient   solana.PublicKey
	EventAuthority solana.PublicKey
}

// GetDefaultConfig returns the mainnet pump.fun addresses.
func GetDefaultConfig() *Config {
	return &Config{
		ProgramID:      ProgramID,
		Global:         GlobalAccount,
		FeeRecipient:   FeeRecipient,
		EventAuthority: EventAuthority,
	}
}

// DeriveCurveAccounts computes the bonding curve PDA for mint and the curve's
// associated token account.
func (c *Config) DeriveCurveAccounts(mint solana.PublicKey) (CurveAccounts, error) {
	bondingCurve, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mint.Bytes()},
		c.ProgramID,
	)
	if err != nil {
		return CurveAccounts{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}

	associatedBondingCurve, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return CurveAccounts{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}

	return CurveAccounts{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: associatedBondingCurve,
	}, nil
}
