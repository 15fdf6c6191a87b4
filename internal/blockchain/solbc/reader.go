// internal/blockchain/solbc/reader.go
package solbc

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/cointools/internal/blockchain"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Reader answers balance and account-existence questions.
type Reader struct {
	client blockchain.Client
	logger *zap.Logger
}

func NewReader(client blockchain.Client, logger *zap.Logger) *Reader {
	return &Reader{client: client, logger: logger.Named("solbc-reader")}
}

// SolBalance returns the SOL balance of owner.
func (r *Reader) SolBalance(ctx context.Context, owner solana.PublicKey) (decimal.Decimal, error) {
	lamports, err := r.client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get SOL balance of %s: %w", owner, err)
	}
	return types.LamportsToSOL(lamports), nil
}

// TokenBalance returns owner's balance of mint held in its associated token
// account. found is false when that account does not exist.
func (r *Reader) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (balance decimal.Decimal, found bool, err error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to derive token account: %w", err)
	}

	res, err := r.client.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to get token balance of %s: %w", ata, err)
	}
	if res == nil || res.Value == nil {
		return decimal.Zero, false, nil
	}

	raw, err := decimal.NewFromString(res.Value.Amount)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid token amount %q: %w", res.Value.Amount, err)
	}
	return raw.Shift(-int32(res.Value.Decimals)), true, nil
}

// AccountExists reports whether account is allocated on chain.
func (r *Reader) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	info, err := r.client.GetAccountInfo(ctx, account)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return info != nil && info.Value != nil, nil
}

// MintDecimals reads the decimal count from a mint account.
func (r *Reader) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	info, err := r.client.GetAccountInfo(ctx, mint)
	if err != nil {
		if IsAccountNotFoundError(err) {
			return 0, fmt.Errorf("no mint account found: %s: %w", mint, ErrAccountNotFound)
		}
		return 0, fmt.Errorf("failed to get mint account %s: %w", mint, err)
	}
	if info == nil || info.Value == nil {
		return 0, fmt.Errorf("no mint account found: %s: %w", mint, ErrAccountNotFound)
	}

	var m token.Mint
	if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&m); err != nil {
		return 0, fmt.Errorf("failed to decode mint %s: %w", mint, err)
	}
	return m.Decimals, nil
}

// TokenHolding is one SPL token account of a wallet.
type TokenHolding struct {
	Account solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64 // raw units
}

// TokenHoldings lists every token account owned by owner.
func (r *Reader) TokenHoldings(ctx context.Context, owner solana.PublicKey) ([]TokenHolding, error) {
	accounts, err := r.client.GetTokenAccountsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list token accounts of %s: %w", owner, err)
	}

	holdings := make([]TokenHolding, 0, len(accounts))
	for _, ta := range accounts {
		if ta == nil || ta.Account.Data == nil {
			continue
		}
		var acc token.Account
		if err := bin.NewBinDecoder(ta.Account.Data.GetBinary()).Decode(&acc); err != nil {
			r.logger.Warn("Skipping undecodable token account",
				zap.String("account", ta.Pubkey.String()),
				zap.Error(err))
			continue
		}
		holdings = append(holdings, TokenHolding{
			Account: ta.Pubkey,
			Mint:    acc.Mint,
			Amount:  acc.Amount,
		})
	}
	return holdings, nil
}

// WalletBalance is the SOL and, optionally, token balance of one wallet.
type WalletBalance struct {
	Owner      solana.PublicKey
	SOL        decimal.Decimal
	Token      decimal.Decimal
	TokenFound bool
}

// Balances reads balances of many wallets concurrently, at most limit in
// flight. When mint is nil only SOL balances are read. Results keep the
// order of owners.
func (r *Reader) Balances(ctx context.Context, owners []solana.PublicKey, mint *solana.PublicKey, limit int) ([]WalletBalance, error) {
	out := make([]WalletBalance, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, owner := range owners {
		g.Go(func() error {
			sol, err := r.SolBalance(gctx, owner)
			if err != nil {
				return err
			}
			wb := WalletBalance{Owner: owner, SOL: sol}
			if mint != nil {
				wb.Token, wb.TokenFound, err = r.TokenBalance(gctx, owner, *mint)
				if err != nil {
					return err
				}
			}
			out[i] = wb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
