// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/shopspring/decimal"
)

var (
	BuyDiscriminator  = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	SellDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// SwapDataLen is the size of a buy or sell payload: discriminator, amount, limit.
const SwapDataLen = 8 + 8 + 8

// EncodeSwapData lays out a swap payload: the entry-point discriminator
// followed by the raw token amount and the lamport limit, both u64 LE.
func EncodeSwapData(discriminator [8]byte, amount, limit uint64) []byte {
	data := make([]byte, SwapDataLen)
	copy(data, discriminator[:])
	binary.LittleEndian.PutUint64(data[8:16], amount)
	binary.LittleEndian.PutUint64(data[16:24], limit)
	return data
}

// DecodeSwapData is the inverse of EncodeSwapData.
func DecodeSwapData(data []byte) (discriminator [8]byte, amount, limit uint64, err error) {
	if len(data) != SwapDataLen {
		return discriminator, 0, 0, fmt.Errorf("invalid swap data length: expected %d, got %d", SwapDataLen, len(data))
	}
	copy(discriminator[:], data[:8])
	amount = binary.LittleEndian.Uint64(data[8:16])
	limit = binary.LittleEndian.Uint64(data[16:24])
	return discriminator, amount, limit, nil
}

// ToRawAmount converts a decimal-normalized amount to raw integer units,
// truncating the remainder.
func ToRawAmount(value decimal.Decimal, decimals uint8) (uint64, error) {
	raw, err := types.ToRawUnits(value, decimals)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuoteOverflow, err)
	}
	return raw, nil
}

// BuildBuyInstruction builds the buy instruction for user. amount is the raw
// token amount, maxSolCost the most lamports the user accepts to pay.
func BuildBuyInstruction(cfg *Config, curve CurveAccounts, user solana.PublicKey, amount, maxSolCost uint64) (solana.Instruction, error) {
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, curve.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account list must be in the exact order expected by the program
	accounts := []*solana.AccountMeta{
		{PublicKey: cfg.Global, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: curve.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: curve.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: curve.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.ProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(cfg.ProgramID, accounts, EncodeSwapData(BuyDiscriminator, amount, maxSolCost)), nil
}

// BuildSellInstruction builds the sell instruction for user. amount is the
// raw token amount, minSolOutput the fewest lamports the user accepts.
//
// The sell entry point takes the associated-token program in place of the
// rent sysvar, ahead of the token program.
func BuildSellInstruction(cfg *Config, curve CurveAccounts, user solana.PublicKey, amount, minSolOutput uint64) (solana.Instruction, error) {
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, curve.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: cfg.Global, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: curve.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: curve.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: curve.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: associatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: user, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.ProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(cfg.ProgramID, accounts, EncodeSwapData(SellDiscriminator, amount, minSolOutput)), nil
}
