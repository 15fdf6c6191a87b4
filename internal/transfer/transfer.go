// internal/transfer/transfer.go
package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rovshanmuradov/cointools/internal/blockchain/solbc"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MigrationReserve is the SOL left behind when migrating a wallet.
var MigrationReserve = decimal.RequireFromString("0.001")

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

type Submitter interface {
	Submit(ctx context.Context, signer *wallet.Wallet, instructions []solana.Instruction, confirm bool) (solana.Signature, error)
}

// ChainReader is the account state transfers depend on.
type ChainReader interface {
	SolBalance(ctx context.Context, owner solana.PublicKey) (decimal.Decimal, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	TokenHoldings(ctx context.Context, owner solana.PublicKey) ([]solbc.TokenHolding, error)
}

type DecimalsSource interface {
	Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// Service moves SOL and SPL tokens between wallets.
type Service struct {
	reader    ChainReader
	decimals  DecimalsSource
	submitter Submitter
	logger    *zap.Logger
}

func NewService(reader ChainReader, decimals DecimalsSource, submitter Submitter, logger *zap.Logger) *Service {
	return &Service{
		reader:    reader,
		decimals:  decimals,
		submitter: submitter,
		logger:    logger.Named("transfer"),
	}
}

// SOL sends amount SOL from one wallet to an address.
func (s *Service) SOL(ctx context.Context, from *wallet.Wallet, to solana.PublicKey, amount decimal.Decimal, confirm bool) (solana.Signature, error) {
	if !amount.IsPositive() {
		return solana.Signature{}, fmt.Errorf("%w: %s SOL", ErrInvalidAmount, amount)
	}
	lamports, err := types.SOLToLamports(amount)
	if err != nil {
		return solana.Signature{}, err
	}
	balance, err := s.reader.SolBalance(ctx, from.PublicKey)
	if err != nil {
		return solana.Signature{}, err
	}
	if balance.LessThan(amount) {
		return solana.Signature{}, fmt.Errorf("%w: balance %s SOL, sending %s SOL", ErrInsufficientFunds, balance, amount)
	}

	ix := system.NewTransferInstruction(lamports, from.PublicKey, to).Build()
	sig, err := s.submitter.Submit(ctx, from, []solana.Instruction{ix}, confirm)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to transfer SOL: %w", err)
	}
	s.logger.Info("Transaction sent",
		zap.String("action", "SOL transfer"),
		zap.String("from", from.PublicKey.String()),
		zap.String("to", to.String()),
		zap.String("amount", amount.String()),
		zap.String("signature", sig.String()))
	return sig, nil
}

// Token sends amount whole tokens of mint. The recipient's token account is
// created when missing, paid for by the sender.
func (s *Service) Token(ctx context.Context, from *wallet.Wallet, to, mint solana.PublicKey, amount decimal.Decimal, confirm bool) (solana.Signature, error) {
	if !amount.IsPositive() {
		return solana.Signature{}, fmt.Errorf("%w: %s tokens", ErrInvalidAmount, amount)
	}
	decimals, err := s.decimals.Decimals(ctx, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get mint decimals: %w", err)
	}
	raw, err := types.ToRawUnits(amount, decimals)
	if err != nil {
		return solana.Signature{}, err
	}
	if raw == 0 {
		return solana.Signature{}, fmt.Errorf("%w: %s tokens is below one raw unit", ErrInvalidAmount, amount)
	}
	return s.tokenRaw(ctx, from, to, mint, raw, decimals, confirm)
}

func (s *Service) tokenRaw(ctx context.Context, from *wallet.Wallet, to, mint solana.PublicKey, raw uint64, decimals uint8, confirm bool) (solana.Signature, error) {
	source, err := from.GetATA(mint)
	if err != nil {
		return solana.Signature{}, err
	}
	dest, _, err := solana.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive recipient token account: %w", err)
	}

	var instructions []solana.Instruction
	exists, err := s.reader.AccountExists(ctx, dest)
	if err != nil {
		return solana.Signature{}, err
	}
	if !exists {
		balance, err := s.reader.SolBalance(ctx, from.PublicKey)
		if err != nil {
			return solana.Signature{}, err
		}
		if balance.LessThan(types.ApproxRent) {
			return solana.Signature{}, fmt.Errorf("%w: need %s SOL to create recipient token account, have %s",
				ErrInsufficientFunds, types.ApproxRent, balance)
		}
		ix, err := wallet.CreateATAIdempotentInstruction(from.PublicKey, to, mint)
		if err != nil {
			return solana.Signature{}, err
		}
		instructions = append(instructions, ix)
	}

	instructions = append(instructions, token.NewTransferCheckedInstruction(
		raw, decimals, source, mint, dest, from.PublicKey, nil,
	).Build())

	sig, err := s.submitter.Submit(ctx, from, instructions, confirm)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to transfer token %s: %w", mint, err)
	}
	s.logger.Info("Transaction sent",
		zap.String("action", "token transfer"),
		zap.String("mint", mint.String()),
		zap.String("from", from.PublicKey.String()),
		zap.String("to", to.String()),
		zap.Uint64("amount_raw", raw),
		zap.Bool("create_ata", !exists),
		zap.String("signature", sig.String()))
	return sig, nil
}

// TokenMove is one token balance moved by Migrate.
type TokenMove struct {
	Mint      solana.PublicKey
	Amount    decimal.Decimal
	Signature solana.Signature
	Err       error
}

// MigrationReport summarizes Migrate.
type MigrationReport struct {
	Tokens       []TokenMove
	SOL          decimal.Decimal
	SOLSignature solana.Signature
}

type MigrateOptions struct {
	Tokens bool
	SOL    bool
}

// Migrate moves every token balance and then all SOL minus MigrationReserve.
// Token transfers are confirmed before the SOL balance is read so fees are
// accounted for. The first failed token transfer stops the migration.
func (s *Service) Migrate(ctx context.Context, from *wallet.Wallet, to solana.PublicKey, opts MigrateOptions) (*MigrationReport, error) {
	report := &MigrationReport{}

	if opts.Tokens {
		holdings, err := s.reader.TokenHoldings(ctx, from.PublicKey)
		if err != nil {
			return report, err
		}
		for _, h := range holdings {
			if h.Amount == 0 {
				continue
			}
			decimals, err := s.decimals.Decimals(ctx, h.Mint)
			if err != nil {
				return report, fmt.Errorf("failed to get decimals of %s: %w", h.Mint, err)
			}
			move := TokenMove{Mint: h.Mint, Amount: types.FromRawUnits(h.Amount, decimals)}
			move.Signature, move.Err = s.tokenRaw(ctx, from, to, h.Mint, h.Amount, decimals, true)
			report.Tokens = append(report.Tokens, move)
			if move.Err != nil {
				return report, move.Err
			}
		}
	}

	if opts.SOL {
		balance, err := s.reader.SolBalance(ctx, from.PublicKey)
		if err != nil {
			return report, err
		}
		amount := balance.Sub(MigrationReserve)
		if !amount.IsPositive() {
			s.logger.Info("Nothing to migrate", zap.String("balance", balance.String()))
			return report, nil
		}
		sig, err := s.SOL(ctx, from, to, amount, false)
		if err != nil {
			return report, err
		}
		report.SOL, report.SOLSignature = amount, sig
	}
	return report, nil
}
