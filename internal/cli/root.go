// =================================
// File: internal/cli/root.go
// =================================
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is set at build time.
var Version = "dev"

// Execute runs the command tree until ctx is cancelled.
func Execute(ctx context.Context) error {
	a := newApp(os.Stdout)
	defer a.close()
	return newRootCommand(a).ExecuteContext(ctx)
}

// newRootCommand builds the full command tree writing human output to a.out.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cointools",
		Short: "Solana wallet and pump.fun trading toolkit",
		Long: `Manage encrypted Solana wallets, inspect balances, move funds and
trade pump.fun bonding-curve tokens from one or many wallets.

Configuration comes from flags, COINTOOLS_* environment variables, a .env
file and an optional cointools.yaml.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.SetOut(a.out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./cointools.yaml)")
	flags.String("rpc-url", "", "Solana RPC endpoint")
	flags.String("db-path", "", "wallet database path")
	flags.Bool("debug", false, "verbose structured logging")
	flags.String("log-file", "", "also write JSON logs to this file")
	bindFlags(a, flags, map[string]string{
		"rpc_url":       "rpc-url",
		"db_path":       "db-path",
		"debug_logging": "debug",
		"log_file":      "log-file",
	})

	root.AddCommand(
		newWalletsCommand(a),
		newBalancesCommand(a),
		newTransfersCommand(a),
		newPumpFunCommand(a),
	)
	return root
}

func bindFlags(a *app, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// tradeFlags are the execution knobs shared by buy, sell and bulk-trade.
type tradeFlags struct {
	slippage    float64
	unitLimit   uint32
	unitPrice   uint64
	priorityFee string
	priority    string
	confirm     bool

	slippageSet, unitLimitSet, unitPriceSet bool
}

func addTradeFlags(cmd *cobra.Command, f *tradeFlags) {
	cmd.Flags().Float64Var(&f.slippage, "slippage", 5, "slippage tolerance in percent")
	cmd.Flags().Uint32Var(&f.unitLimit, "unit-limit", 100_000, "compute unit limit")
	cmd.Flags().Uint64Var(&f.unitPrice, "unit-price", 1_000_000, "compute unit price in micro-lamports")
	cmd.Flags().StringVar(&f.priorityFee, "priority-fee", "", "extra priority tip in SOL")
	cmd.Flags().StringVar(&f.priority, "priority", "", "compute budget preset: low, medium, high or extreme")
	cmd.Flags().BoolVar(&f.confirm, "confirm", false, "wait for confirmation")
}

// resolve records which trade flags were set explicitly so configured
// defaults apply otherwise.
func (f *tradeFlags) resolve(cmd *cobra.Command) {
	f.slippageSet = cmd.Flags().Changed("slippage")
	f.unitLimitSet = cmd.Flags().Changed("unit-limit")
	f.unitPriceSet = cmd.Flags().Changed("unit-price")
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive, got %s", d)
	}
	return d, nil
}

func parseMint(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, errors.New("--ca is required")
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid mint address %q: %w", s, err)
	}
	return pk, nil
}

func printf(a *app, format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
