// =============================
// File: internal/dex/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/blockchain"
	"github.com/rovshanmuradov/cointools/internal/blockchain/solbc"
	"go.uber.org/zap"
)

// bondingCurveAccountLen covers the discriminator, five u64 fields and the
// complete flag.
const bondingCurveAccountLen = 8 + 5*8 + 1

// DecimalsSource resolves the decimal count of a mint.
type DecimalsSource interface {
	Decimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

// SnapshotFetcher reads bonding-curve state from the chain.
type SnapshotFetcher struct {
	client   blockchain.Client
	decimals DecimalsSource
	config   *Config
	logger   *zap.Logger
}

func NewSnapshotFetcher(client blockchain.Client, decimals DecimalsSource, config *Config, logger *zap.Logger) *SnapshotFetcher {
	if config == nil {
		config = GetDefaultConfig()
	}
	return &SnapshotFetcher{
		client:   client,
		decimals: decimals,
		config:   config,
		logger:   logger.Named("pumpfun-snapshot"),
	}
}

// FetchCurveSnapshot reads the bonding curve of mint and normalizes it.
func (f *SnapshotFetcher) FetchCurveSnapshot(ctx context.Context, mint solana.PublicKey) (Snapshot, error) {
	accounts, err := f.config.DeriveCurveAccounts(mint)
	if err != nil {
		return Snapshot{}, err
	}

	bc, err := f.FetchBondingCurveAccount(ctx, accounts.BondingCurve)
	if err != nil {
		return Snapshot{}, err
	}

	decimals, err := f.decimals.Decimals(ctx, mint)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: mint decimals: %w", ErrChainRead, err)
	}

	f.logger.Debug("Bonding curve fetched",
		zap.String("mint", mint.String()),
		zap.String("bonding_curve", accounts.BondingCurve.String()),
		zap.Uint64("virtual_sol_reserves", bc.VirtualSolReserves),
		zap.Uint64("virtual_token_reserves", bc.VirtualTokenReserves),
		zap.Bool("complete", bc.Complete))

	return Snapshot{
		Accounts: accounts,
		Curve:    NewCurve(bc, decimals),
		Decimals: decimals,
	}, nil
}

// FetchBondingCurveAccount reads and decodes a bonding-curve account.
func (f *SnapshotFetcher) FetchBondingCurveAccount(ctx context.Context, bondingCurve solana.PublicKey) (*BondingCurve, error) {
	accountInfo, err := f.client.GetAccountInfo(ctx, bondingCurve)
	if err != nil {
		if solbc.IsAccountNotFoundError(err) {
			return nil, fmt.Errorf("%w: bonding curve %s not found", ErrCurveUnavailable, bondingCurve)
		}
		return nil, fmt.Errorf("%w: bonding curve account: %w", ErrChainRead, err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("%w: bonding curve %s not found", ErrCurveUnavailable, bondingCurve)
	}

	return DecodeBondingCurve(accountInfo.Value.Data.GetBinary())
}

// DecodeBondingCurve parses raw bonding-curve account data.
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	if len(data) < bondingCurveAccountLen {
		return nil, fmt.Errorf("invalid bonding curve data: expected at least %d bytes, got %d",
			bondingCurveAccountLen, len(data))
	}

	dec := bin.NewBinDecoder(data)
	if err := dec.SkipBytes(8); err != nil {
		return nil, fmt.Errorf("failed to skip discriminator: %w", err)
	}

	var bc BondingCurve
	fields := []*uint64{
		&bc.VirtualTokenReserves,
		&bc.VirtualSolReserves,
		&bc.RealTokenReserves,
		&bc.RealSolReserves,
		&bc.TokenTotalSupply,
	}
	for _, field := range fields {
		v, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
		}
		*field = v
	}

	complete, err := dec.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve complete flag: %w", err)
	}
	bc.Complete = complete

	return &bc, nil
}
