package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/config"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/rovshanmuradov/cointools/internal/storage/models"
	"github.com/rovshanmuradov/cointools/internal/vault"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// run executes one command line against dbPath and returns its output.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp(&out)
	defer a.close()
	root := newRootCommand(a)
	root.SetArgs(append([]string{"--db-path", dbPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestWalletLifecycle(t *testing.T) {
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	t.Setenv("COINTOOLS_ENC_KEY", key)
	db := filepath.Join(t.TempDir(), "wallets.db")

	out, err := run(t, db, "wallets", "create", "--name", "alpha")
	require.NoError(t, err)
	assert.Contains(t, out, "Wallet ID 1 created")

	out, err = run(t, db, "wallets", "bulk-create", "--count", "2", "--prefix", "bot")
	require.NoError(t, err)
	assert.Contains(t, out, "IDs: 2, 3")

	out, err = run(t, db, "wallets", "get", "--id", "1", "--decrypt")
	require.NoError(t, err)
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "Private Key (base58)")

	_, err = run(t, db, "wallets", "rename", "--id", "2", "--name", "renamed")
	require.NoError(t, err)
	_, err = run(t, db, "wallets", "delete", "--id", "3")
	require.NoError(t, err)

	out, err = run(t, db, "wallets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "renamed")
	assert.NotContains(t, out, "bot1")

	out, err = run(t, db, "wallets", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "bot1")
	assert.Contains(t, out, models.WalletStatusDeleted)
}

func TestWalletImport(t *testing.T) {
	key, err := vault.GenerateKey()
	require.NoError(t, err)
	t.Setenv("COINTOOLS_ENC_KEY", key)
	db := filepath.Join(t.TempDir(), "wallets.db")

	w := solana.NewWallet()
	out, err := run(t, db, "wallets", "import", "--name", "imported", "--private-key", w.PrivateKey.String())
	require.NoError(t, err)
	assert.Contains(t, out, w.PublicKey().String())

	_, err = run(t, db, "wallets", "import", "--name", "broken", "--private-key", "not-base58-0OIl")
	assert.Error(t, err)
}

func TestRotateKey(t *testing.T) {
	oldKey, err := vault.GenerateKey()
	require.NoError(t, err)
	newKey, err := vault.GenerateKey()
	require.NoError(t, err)
	db := filepath.Join(t.TempDir(), "wallets.db")

	t.Setenv("COINTOOLS_ENC_KEY", oldKey)
	_, err = run(t, db, "wallets", "create", "--name", "alpha")
	require.NoError(t, err)

	out, err := run(t, db, "wallets", "encryption", "rotate-key", "--new-key", newKey)
	require.NoError(t, err)
	assert.Contains(t, out, "1 wallets re-encrypted")

	_, err = run(t, db, "wallets", "get", "--id", "1", "--decrypt")
	assert.ErrorIs(t, err, vault.ErrDecrypt)

	t.Setenv("COINTOOLS_ENC_KEY", newKey)
	_, err = run(t, db, "wallets", "get", "--id", "1", "--decrypt")
	assert.NoError(t, err)
}

func TestMissingEncryptionKey(t *testing.T) {
	t.Setenv("COINTOOLS_ENC_KEY", "")
	db := filepath.Join(t.TempDir(), "wallets.db")

	_, err := run(t, db, "wallets", "create", "--name", "alpha")
	assert.ErrorIs(t, err, vault.ErrMissingKey)

	out, err := run(t, db, "wallets", "encryption", "generate-key")
	require.NoError(t, err)
	assert.Contains(t, out, "COINTOOLS_ENC_KEY")
}

func TestMetadataUpdateAndList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "wallets.db")
	mint := solana.NewWallet().PublicKey().String()

	_, err := run(t, db, "wallets", "metadata", "update",
		"--ca", mint, "--name", "Doge", "--symbol", "DOGE", "--decimals", "6")
	require.NoError(t, err)

	out, err := run(t, db, "wallets", "metadata", "list")
	require.NoError(t, err)
	assert.Contains(t, out, mint)
	assert.Contains(t, out, "DOGE")
}

func TestResolveDestination(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	lookup := func(_ context.Context, id int64) (string, error) {
		if id == 7 {
			return addr.String(), nil
		}
		return "", errors.New("wallet not found")
	}
	ctx := context.Background()

	pk, err := resolveDestination(ctx, "7", lookup)
	require.NoError(t, err)
	assert.Equal(t, addr, pk)

	pk, err = resolveDestination(ctx, addr.String(), lookup)
	require.NoError(t, err)
	assert.Equal(t, addr, pk)

	_, err = resolveDestination(ctx, "8", lookup)
	assert.ErrorContains(t, err, "destination wallet 8")
	_, err = resolveDestination(ctx, "not-an-address", lookup)
	assert.Error(t, err)
	_, err = resolveDestination(ctx, " ", lookup)
	assert.Error(t, err)
}

func TestSellAmount(t *testing.T) {
	balance := d("1000.123456")

	amount, err := sellAmount(balance, "", 50, 6)
	require.NoError(t, err)
	assert.Equal(t, "500.061728", amount.String())

	amount, err = sellAmount(balance, "", 100, 6)
	require.NoError(t, err)
	assert.True(t, amount.Equal(balance))

	amount, err = sellAmount(balance, "12.3456789", 0, 6)
	require.NoError(t, err)
	assert.Equal(t, "12.345678", amount.String())

	_, err = sellAmount(balance, "2000", 0, 6)
	assert.ErrorIs(t, err, pumpfun.ErrInsufficientBalance)
	_, err = sellAmount(balance, "", 150, 6)
	assert.Error(t, err)
	_, err = sellAmount(d("0.0000001"), "", 100, 6)
	assert.ErrorIs(t, err, pumpfun.ErrAmountTooSmall)
}

func TestTradeParamsOverrideConfig(t *testing.T) {
	a := &app{cfg: &config.Config{
		SlippagePercent:  1,
		ComputeUnitLimit: 200_000,
		ComputeUnitPrice: 5,
	}}

	params, err := a.tradeParams(&tradeFlags{})
	require.NoError(t, err)
	assert.Equal(t, uint16(100), params.SlippageBps)
	assert.Equal(t, uint32(200_000), params.ComputeBudget.UnitLimit)
	assert.Equal(t, uint64(5), params.ComputeBudget.UnitPrice)

	params, err = a.tradeParams(&tradeFlags{
		slippage: 10, slippageSet: true,
		unitPrice: 42, unitPriceSet: true,
		priorityFee: "0.0001",
		confirm:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint16(1000), params.SlippageBps)
	assert.Equal(t, uint64(42), params.ComputeBudget.UnitPrice)
	assert.True(t, params.PriorityFee.Equal(d("0.0001")))
	assert.True(t, params.Confirm)

	_, err = a.tradeParams(&tradeFlags{priorityFee: "-1"})
	assert.Error(t, err)
}

func TestBulkFlagsPlan(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	f := bulkFlags{
		ca:        mint.String(),
		amount:    "0.1",
		randomize: 0.2,
		delay:     "1-3",
		buyRate:   0.6,
		ath:       "0.0001",
		shuffle:   true,
	}
	plan, err := f.plan(nil, pumpfun.TradeParams{})
	assert.Error(t, err, "a plan needs participants")
	assert.Equal(t, mint, plan.Mint)
	assert.True(t, plan.PriceCeiling.Equal(d("0.0001")))
	assert.True(t, plan.Shuffle)

	f.ath = "abc"
	_, err = f.plan(nil, pumpfun.TradeParams{})
	assert.ErrorContains(t, err, "--ath")
}

func TestDedupeWallets(t *testing.T) {
	rows := []models.Wallet{{ID: 3}, {ID: 1}, {ID: 3}, {ID: 2}, {ID: 1}}
	out := dedupeWallets(rows)
	ids := make([]int64, 0, len(out))
	for _, w := range out {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func TestTokenTotals(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()

	totals := newTokenTotals()
	totals.add(tokenRow{Mint: a, Symbol: "A", Balance: d("1.5")})
	totals.add(tokenRow{Mint: b, Symbol: "B", Balance: d("2")})
	totals.add(tokenRow{Mint: a, Symbol: "A", Balance: d("1")})

	rows := totals.list(nil)
	require.Len(t, rows, 2)
	assert.Equal(t, a, rows[0].Mint)
	assert.True(t, rows[0].Balance.Equal(d("2.5")))

	rows = totals.list(&b)
	require.Len(t, rows, 1)
	assert.Equal(t, "B", rows[0].Symbol)
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Name"}, [][]string{{"1", "alpha"}, {"2", "beta"}})
	for _, s := range []string{"ID", "Name", "alpha", "beta"} {
		assert.Contains(t, out, s)
	}

	fields := renderFields("Wallet info", [][2]string{{"ID", "1"}, {"Public Key", "abc"}})
	assert.Contains(t, fields, "Wallet info")
	assert.Contains(t, fields, "Public Key:")
}

func TestTradeParamsPriorityPreset(t *testing.T) {
	a := &app{cfg: &config.Config{SlippagePercent: 5, ComputeUnitLimit: 100_000, ComputeUnitPrice: 1}}

	params, err := a.tradeParams(&tradeFlags{priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, uint32(150_000), params.ComputeBudget.UnitLimit)
	assert.Equal(t, uint64(5_000_000), params.ComputeBudget.UnitPrice)

	params, err = a.tradeParams(&tradeFlags{priority: "high", unitPrice: 7, unitPriceSet: true})
	require.NoError(t, err)
	assert.Equal(t, uint32(150_000), params.ComputeBudget.UnitLimit)
	assert.Equal(t, uint64(7), params.ComputeBudget.UnitPrice)

	_, err = a.tradeParams(&tradeFlags{priority: "ludicrous"})
	assert.ErrorContains(t, err, "unknown priority level")
}
