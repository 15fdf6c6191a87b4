package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/blockchain/solbc"
	"github.com/rovshanmuradov/cointools/internal/config"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/rovshanmuradov/cointools/internal/logger"
	"github.com/rovshanmuradov/cointools/internal/storage"
	"github.com/rovshanmuradov/cointools/internal/storage/models"
	"github.com/rovshanmuradov/cointools/internal/storage/sqlite"
	"github.com/rovshanmuradov/cointools/internal/transaction"
	"github.com/rovshanmuradov/cointools/internal/transfer"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/rovshanmuradov/cointools/internal/vault"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app holds what commands share. Everything past config and logger is
// built on first use so that offline commands never dial the RPC node.
type app struct {
	v          *viper.Viper
	configPath string
	out        io.Writer

	cfg     *config.Config
	logger  *zap.Logger
	closers *shutdownHandler

	store storage.Storage
	vault *vault.Vault

	client    *solbc.Client
	reader    *solbc.Reader
	metadata  *solbc.TokenMetadataCache
	submitter *transaction.Submitter
}

func newApp(out io.Writer) *app {
	return &app{v: config.New(), out: out, closers: newShutdownHandler(0)}
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	log, err := logger.CreatePrettyLogger(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = log
	return nil
}

func (a *app) close() {
	log := a.logger
	if log == nil {
		log = zap.NewNop()
	}
	_ = a.closers.Shutdown(log)
	_ = log.Sync()
}

func (a *app) storage() (storage.Storage, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := sqlite.NewStorage(a.cfg.DBPath, a.logger)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(); err != nil {
		_ = store.Close()
		return nil, err
	}
	a.store = store
	a.closers.Add("storage", store)
	return store, nil
}

func (a *app) keyVault() (*vault.Vault, error) {
	if a.vault != nil {
		return a.vault, nil
	}
	v, err := vault.New(a.cfg.EncKey)
	if err != nil {
		return nil, err
	}
	a.vault = v
	return v, nil
}

// chain builds the RPC client, reader, metadata cache and submitter.
func (a *app) chain(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	store, err := a.storage()
	if err != nil {
		return err
	}

	a.client = solbc.NewClient(a.cfg.RPCURL, a.logger,
		solbc.WithRateLimit(a.cfg.RPCRateLimit, a.cfg.RPCBurst),
		solbc.WithConfirmTimeout(a.cfg.ConfirmTimeout))
	a.reader = solbc.NewReader(a.client, a.logger)

	a.metadata, err = solbc.NewTokenMetadataCache(a.reader, store, a.cfg.MetadataCacheSize, a.logger)
	if err != nil {
		return err
	}
	if err := a.metadata.Seed(ctx); err != nil {
		a.logger.Warn("Failed to seed token metadata cache", zap.Error(err))
	}

	a.submitter = transaction.NewSubmitter(a.client, a.logger,
		transaction.WithMaxElapsed(a.cfg.SendMaxElapsed),
		transaction.WithSkipPreflight(a.cfg.SkipPreflight))
	return nil
}

func (a *app) snapshots() *pumpfun.SnapshotFetcher {
	return pumpfun.NewSnapshotFetcher(a.client, a.metadata, pumpfun.GetDefaultConfig(), a.logger)
}

func (a *app) executor() *pumpfun.Executor {
	return pumpfun.NewExecutor(pumpfun.GetDefaultConfig(), a.reader, a.submitter, a.logger)
}

func (a *app) transfers() *transfer.Service {
	return transfer.NewService(a.reader, a.metadata, a.submitter, a.logger)
}

// tradeParams merges per-command flags over configured defaults.
func (a *app) tradeParams(f *tradeFlags) (pumpfun.TradeParams, error) {
	slippage := a.cfg.SlippagePercent
	if f.slippageSet {
		slippage = f.slippage
	}
	bps, err := types.PercentToBps(slippage)
	if err != nil {
		return pumpfun.TradeParams{}, err
	}

	budget := types.ComputeBudget{UnitLimit: a.cfg.ComputeUnitLimit, UnitPrice: a.cfg.ComputeUnitPrice}
	if f.priority != "" {
		budget, err = types.ComputeBudgetForLevel(types.PriorityLevel(f.priority))
		if err != nil {
			return pumpfun.TradeParams{}, err
		}
	}
	// explicit unit flags win over a preset
	if f.unitLimitSet {
		budget.UnitLimit = f.unitLimit
	}
	if f.unitPriceSet {
		budget.UnitPrice = f.unitPrice
	}

	params := pumpfun.TradeParams{
		SlippageBps:   bps,
		ComputeBudget: budget,
		Confirm:       f.confirm,
	}
	if f.priorityFee != "" {
		params.PriorityFee, err = parseAmount(f.priorityFee)
		if err != nil {
			return pumpfun.TradeParams{}, fmt.Errorf("invalid --priority-fee: %w", err)
		}
	}
	return params, nil
}

// openWallet decrypts a registry row into a signing wallet.
func (a *app) openWallet(row *models.Wallet) (*wallet.Wallet, error) {
	v, err := a.keyVault()
	if err != nil {
		return nil, err
	}
	secret, err := v.Decrypt(row.PrivateKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("wallet %d: %w", row.ID, err)
	}
	w, err := wallet.FromBytes(secret)
	if err != nil {
		return nil, fmt.Errorf("wallet %d: %w", row.ID, err)
	}
	if w.PublicKey.String() != row.PublicKey {
		return nil, fmt.Errorf("wallet %d: decrypted key does not match public key %s", row.ID, row.PublicKey)
	}
	return w, nil
}

func (a *app) loadWallet(ctx context.Context, id int64) (*models.Wallet, *wallet.Wallet, error) {
	store, err := a.storage()
	if err != nil {
		return nil, nil, err
	}
	row, err := store.GetWallet(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	w, err := a.openWallet(row)
	if err != nil {
		return nil, nil, err
	}
	return row, w, nil
}

// touch records wallet access; a failure is logged, not returned.
func (a *app) touch(ctx context.Context, id int64) {
	if err := a.store.TouchWallet(ctx, id); err != nil {
		a.logger.Warn("Failed to update wallet access time", zap.Int64("wallet_id", id), zap.Error(err))
	}
}

// destination resolves a wallet ID or a base58 address.
func (a *app) destination(ctx context.Context, s string) (solana.PublicKey, error) {
	return resolveDestination(ctx, s, func(ctx context.Context, id int64) (string, error) {
		store, err := a.storage()
		if err != nil {
			return "", err
		}
		row, err := store.GetWallet(ctx, id)
		if err != nil {
			return "", err
		}
		return row.PublicKey, nil
	})
}

func resolveDestination(ctx context.Context, s string, lookup func(context.Context, int64) (string, error)) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, errors.New("destination is empty")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		addr, err := lookup(ctx, id)
		if err != nil {
			return solana.PublicKey{}, fmt.Errorf("destination wallet %d: %w", id, err)
		}
		return solana.PublicKeyFromBase58(addr)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("destination %q is neither a wallet ID nor an address: %w", s, err)
	}
	return pk, nil
}
