package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/bot"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/rovshanmuradov/cointools/internal/export"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/rovshanmuradov/cointools/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// pricePrecision is how many places prices are printed with.
	pricePrecision = 20
)

func newPumpFunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pump-fun",
		Aliases: []string{"pumpfun"},
		Short:   "Inspect and trade pump.fun bonding-curve tokens",
	}
	cmd.AddCommand(
		newGetDataCommand(a),
		newQuoteCommand(a),
		newBuyCommand(a),
		newSellCommand(a),
		newBulkTradeCommand(a),
	)
	return cmd
}

func newGetDataCommand(a *app) *cobra.Command {
	var ca string
	cmd := &cobra.Command{
		Use:   "get-data",
		Short: "Show bonding-curve data of a token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mint, err := parseMint(ca)
			if err != nil {
				return err
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			fetcher := a.snapshots()
			snap, err := fetcher.FetchCurveSnapshot(ctx, mint)
			if err != nil {
				return err
			}
			raw, err := fetcher.FetchBondingCurveAccount(ctx, snap.Accounts.BondingCurve)
			if err != nil {
				return err
			}
			md, err := a.metadata.Get(ctx, mint)
			if err != nil {
				return err
			}

			if snap.Curve.Bonded {
				printf(a, "%s\n\n", warningStyle.Render("Warning: this token has bonded and is no longer tradeable on pump.fun"))
			}
			printf(a, "%s", renderFields("Token info", curveFields(md.Name, md.Symbol, snap, raw)))
			return nil
		},
	}
	cmd.Flags().StringVar(&ca, "ca", "", "token mint address")
	_ = cmd.MarkFlagRequired("ca")
	return cmd
}

func curveFields(name, symbol string, snap pumpfun.Snapshot, raw *pumpfun.BondingCurve) [][2]string {
	price, marketCap := "NaN", "Unknown"
	if p, err := snap.Curve.Price(); err == nil {
		price = p.StringFixed(pricePrecision) + " SOL"
	}
	if mc, err := snap.Curve.MarketCap(); err == nil {
		marketCap = mc.StringFixed(4) + " SOL"
	}
	return [][2]string{
		{"Mint", snap.Accounts.Mint.String()},
		{"Name", fmt.Sprintf("%s (%s)", name, symbol)},
		{"Bonding Curve", snap.Accounts.BondingCurve.String()},
		{"Price", price},
		{"Market Cap", marketCap},
		{"Decimals", strconv.Itoa(int(snap.Decimals))},
		{"Virtual Token Reserves", snap.Curve.VirtualTokenReserves.String()},
		{"Virtual SOL Reserves", snap.Curve.VirtualSolReserves.String()},
		{"Real Token Reserves", types.FromRawUnits(raw.RealTokenReserves, snap.Decimals).String()},
		{"Real SOL Reserves", types.LamportsToSOL(raw.RealSolReserves).String()},
		{"Token Total Supply", snap.Curve.TotalSupply.String()},
		{"Complete", strconv.FormatBool(snap.Curve.Bonded)},
	}
}

func newQuoteCommand(a *app) *cobra.Command {
	var (
		ca, action, amount string
		flags              tradeFlags
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a trade against the live curve without sending it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags.resolve(cmd)
			mint, err := parseMint(ca)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			params, err := a.tradeParams(&flags)
			if err != nil {
				return err
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			snap, err := a.snapshots().FetchCurveSnapshot(ctx, mint)
			if err != nil {
				return err
			}

			// Quotes need a wallet but never sign.
			placeholder := solana.NewWallet().PublicKey()
			var intent pumpfun.TradeIntent
			switch pumpfun.Action(strings.ToLower(action)) {
			case pumpfun.ActionBuy:
				intent, err = pumpfun.NewBuyIntent(placeholder, value, params)
			case pumpfun.ActionSell:
				intent, err = pumpfun.NewSellIntent(placeholder, value, params)
			default:
				return fmt.Errorf("--action must be buy or sell, got %q", action)
			}
			if err != nil {
				return err
			}
			result, err := a.executor().Preview(intent, snap)
			if err != nil {
				return err
			}

			limitLabel := "Max SOL Cost"
			if result.Action == pumpfun.ActionSell {
				limitLabel = "Min SOL Output"
			}
			printf(a, "%s", renderFields("Quote", [][2]string{
				{"Action", string(result.Action)},
				{"SOL", result.SolAmount.String()},
				{"Tokens", result.TokenAmount.String()},
				{"Tokens (raw)", strconv.FormatUint(result.TokenAmountRaw, 10)},
				{limitLabel, fmt.Sprintf("%s SOL (%d lamports)", types.LamportsToSOL(result.LimitLamports), result.LimitLamports)},
				{"Slippage", fmt.Sprintf("%d bps", params.SlippageBps)},
			}))
			return nil
		},
	}
	cmd.Flags().StringVar(&ca, "ca", "", "token mint address")
	cmd.Flags().StringVar(&action, "action", "buy", "buy or sell")
	cmd.Flags().StringVar(&amount, "amount", "", "SOL to spend (buy) or tokens to sell (sell)")
	addTradeFlags(cmd, &flags)
	_ = cmd.MarkFlagRequired("ca")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func printTrade(a *app, result *pumpfun.TradeResult, mint solana.PublicKey) {
	var line string
	if result.Action == pumpfun.ActionBuy {
		line = fmt.Sprintf("Bought ~%s tokens of %s for %s SOL", result.TokenAmount, mint, result.SolAmount)
	} else {
		line = fmt.Sprintf("Sold %s tokens of %s for ~%s SOL", result.TokenAmount, mint, result.SolAmount)
	}
	printf(a, "%s\n", successStyle.Render(line))
	printf(a, "Signature: %s\n", result.Signature)
	if result.Unconfirmed {
		printf(a, "%s\n", warningStyle.Render("Not confirmed yet. Check the signature before trading again."))
	}
}

func newBuyCommand(a *app) *cobra.Command {
	var (
		id     int64
		ca     string
		amount string
		flags  tradeFlags
	)
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Buy a token with SOL from one wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags.resolve(cmd)
			mint, err := parseMint(ca)
			if err != nil {
				return err
			}
			sol, err := parseAmount(amount)
			if err != nil {
				return err
			}
			params, err := a.tradeParams(&flags)
			if err != nil {
				return err
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			row, w, err := a.loadWallet(ctx, id)
			if err != nil {
				return err
			}
			snap, err := a.snapshots().FetchCurveSnapshot(ctx, mint)
			if err != nil {
				return err
			}
			intent, err := pumpfun.NewBuyIntent(w.PublicKey, sol, params)
			if err != nil {
				return err
			}
			result, err := a.executor().Execute(ctx, intent, snap, w)
			if result == nil {
				return err
			}
			a.touch(ctx, row.ID)
			printTrade(a, result, mint)
			return err
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "wallet ID")
	cmd.Flags().StringVar(&ca, "ca", "", "token mint address")
	cmd.Flags().StringVar(&amount, "amount-in-sol", "", "SOL to spend")
	addTradeFlags(cmd, &flags)
	for _, f := range []string{"id", "ca", "amount-in-sol"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

// sellAmount resolves --amount-in-tokens or --percent of balance, truncated
// to the mint's decimals.
func sellAmount(balance decimal.Decimal, tokens string, percent float64, decimals uint8) (decimal.Decimal, error) {
	var amount decimal.Decimal
	switch {
	case tokens != "":
		v, err := parseAmount(tokens)
		if err != nil {
			return decimal.Zero, err
		}
		amount = v
	case percent > 0 && percent <= 100:
		amount = balance.Mul(decimal.NewFromFloat(percent)).Div(decimal.NewFromInt(100))
	default:
		return decimal.Zero, fmt.Errorf("--percent must be within (0, 100], got %g", percent)
	}
	amount = amount.Truncate(int32(decimals))
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: nothing to sell", pumpfun.ErrAmountTooSmall)
	}
	if amount.GreaterThan(balance) {
		return decimal.Zero, fmt.Errorf("%w: balance %s, selling %s", pumpfun.ErrInsufficientBalance, balance, amount)
	}
	return amount, nil
}

func newSellCommand(a *app) *cobra.Command {
	var (
		id      int64
		ca      string
		tokens  string
		percent float64
		flags   tradeFlags
	)
	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Sell a token for SOL from one wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags.resolve(cmd)
			if tokens == "" && !cmd.Flags().Changed("percent") {
				return errors.New("one of --amount-in-tokens or --percent is required")
			}
			mint, err := parseMint(ca)
			if err != nil {
				return err
			}
			params, err := a.tradeParams(&flags)
			if err != nil {
				return err
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			row, w, err := a.loadWallet(ctx, id)
			if err != nil {
				return err
			}
			snap, err := a.snapshots().FetchCurveSnapshot(ctx, mint)
			if err != nil {
				return err
			}
			balance, found, err := a.reader.TokenBalance(ctx, w.PublicKey, mint)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("wallet %d holds no %s", row.ID, mint)
			}
			amount, err := sellAmount(balance, tokens, percent, snap.Decimals)
			if err != nil {
				return err
			}
			intent, err := pumpfun.NewSellIntent(w.PublicKey, amount, params)
			if err != nil {
				return err
			}
			result, err := a.executor().Execute(ctx, intent, snap, w)
			if result == nil {
				return err
			}
			a.touch(ctx, row.ID)
			printTrade(a, result, mint)
			return err
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "wallet ID")
	cmd.Flags().StringVar(&ca, "ca", "", "token mint address")
	cmd.Flags().StringVar(&tokens, "amount-in-tokens", "", "whole tokens to sell")
	cmd.Flags().Float64Var(&percent, "percent", 0, "percent of the balance to sell")
	cmd.MarkFlagsMutuallyExclusive("amount-in-tokens", "percent")
	addTradeFlags(cmd, &flags)
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("ca")
	return cmd
}

// bulkFlags are the raw bulk-trade flags before validation.
type bulkFlags struct {
	ids       string
	ca        string
	amount    string
	randomize float64
	delay     string
	buyRate   float64
	ath       string
	shuffle   bool
	tradeLog  string
	trade     tradeFlags

	exportDir      string
	exportFormat   string
	exportExecuted bool
}

// plan turns flags and decrypted participants into a validated plan.
func (f *bulkFlags) plan(participants []bot.Participant, params pumpfun.TradeParams) (bot.BulkTradePlan, error) {
	mint, err := parseMint(f.ca)
	if err != nil {
		return bot.BulkTradePlan{}, err
	}
	amount, err := parseAmount(f.amount)
	if err != nil {
		return bot.BulkTradePlan{}, err
	}
	delay, err := bot.ParseDelayRange(f.delay)
	if err != nil {
		return bot.BulkTradePlan{}, err
	}
	ceiling := decimal.Zero
	if f.ath != "" {
		if ceiling, err = decimal.NewFromString(strings.TrimSpace(f.ath)); err != nil {
			return bot.BulkTradePlan{}, fmt.Errorf("invalid --ath %q", f.ath)
		}
	}
	plan := bot.BulkTradePlan{
		Participants: participants,
		Mint:         mint,
		Amount:       amount,
		Randomize:    f.randomize,
		Delay:        delay,
		BuyRate:      f.buyRate,
		PriceCeiling: ceiling,
		Shuffle:      f.shuffle,
		Params:       params,
	}
	return plan, plan.Validate()
}

func (a *app) participants(ctx context.Context, ids string) ([]bot.Participant, error) {
	parsed, err := utils.ParseIDs(ids)
	if err != nil {
		return nil, err
	}
	rows, err := a.store.GetWalletsByIDs(ctx, parsed)
	if err != nil {
		return nil, err
	}
	out := make([]bot.Participant, 0, len(rows))
	for i := range rows {
		w, err := a.openWallet(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, bot.Participant{ID: rows[i].ID, Name: rows[i].Name, Wallet: w})
	}
	return out, nil
}

func newBulkTradeCommand(a *app) *cobra.Command {
	var f bulkFlags
	cmd := &cobra.Command{
		Use:   "bulk-trade",
		Short: "Trade one token from many wallets, buying or selling at random",
		Long: `Walk the given wallets once, each buying or selling a randomized amount
of SOL worth of the token. The curve is read once and projected forward after
every trade. The run stops trading when the projected price reaches --ath.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f.trade.resolve(cmd)
			params, err := a.tradeParams(&f.trade)
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(f.exportFormat)
			if err != nil {
				return err
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			participants, err := a.participants(ctx, f.ids)
			if err != nil {
				return err
			}
			plan, err := f.plan(participants, params)
			if err != nil {
				return err
			}

			opts := []bot.BulkOption{bot.WithToucher(a.store)}
			if f.tradeLog != "" {
				tradeLog, err := bot.OpenTradeLog(f.tradeLog, a.logger)
				if err != nil {
					return err
				}
				a.closers.Add("trade-log", tradeLog)
				opts = append(opts, bot.WithRecorder(tradeLog))
			}

			trader := bot.NewBulkTrader(a.snapshots(), a.reader, a.executor(), a.logger, opts...)
			summary, err := trader.Run(ctx, plan)
			if summary == nil {
				return err
			}
			printSummary(a, summary)

			if f.exportDir != "" {
				path, ferr := export.NewRunExporter(a.logger).ExportRun(plan.Mint, summary, export.ExportOptions{
					Format:       format,
					OnlyExecuted: f.exportExecuted,
					OutputDir:    f.exportDir,
				})
				if ferr != nil {
					a.logger.Warn("Failed to export bulk run", zap.Error(ferr))
				} else {
					printf(a, "Report: %s\n", path)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&f.ids, "ids", "", "wallet IDs, comma separated with ranges (1-10,12)")
	cmd.Flags().StringVar(&f.ca, "ca", "", "token mint address")
	cmd.Flags().StringVar(&f.amount, "amount", "", "SOL per trade, centre of the randomized range")
	cmd.Flags().Float64Var(&f.randomize, "randomize", 0, "randomize the amount by up to this fraction")
	cmd.Flags().StringVar(&f.delay, "delay", "", "seconds to wait after each trade, min-max (1-5)")
	cmd.Flags().Float64Var(&f.buyRate, "buy-rate", 0.5, "probability that a wallet prefers buying")
	cmd.Flags().StringVar(&f.ath, "ath", "", "stop trading once the price reaches this many SOL per token")
	cmd.Flags().BoolVar(&f.shuffle, "shuffle", false, "shuffle wallet order")
	cmd.Flags().StringVar(&f.tradeLog, "trade-log", "", "append every outcome to this CSV file")
	cmd.Flags().StringVar(&f.exportDir, "export-dir", "", "write a report of the run into this directory")
	cmd.Flags().StringVar(&f.exportFormat, "export-format", "json", "report format, json or csv")
	cmd.Flags().BoolVar(&f.exportExecuted, "export-executed-only", false, "leave skipped wallets out of the report")
	addTradeFlags(cmd, &f.trade)
	for _, name := range []string{"ids", "ca", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func summaryRows(summary *bot.BulkTradeSummary) [][]string {
	rows := make([][]string, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		action, detail := "skip", o.Reason
		if !o.Skipped() {
			action, detail = string(o.Action), o.Signature.String()
			if o.Unconfirmed {
				detail += " (unconfirmed)"
			}
		}
		rows = append(rows, []string{
			strconv.FormatInt(o.WalletID, 10),
			o.WalletName,
			action,
			o.SolAmount.String(),
			o.TokenAmount.String(),
			o.PriceAfter.StringFixed(pricePrecision),
			detail,
		})
	}
	return rows
}

func printSummary(a *app, summary *bot.BulkTradeSummary) {
	if len(summary.Outcomes) > 0 {
		printf(a, "%s\n", renderTable(
			[]string{"ID", "Name", "Action", "SOL", "Tokens", "Price After", "Signature / Reason"},
			summaryRows(summary)))
	}
	fields := [][2]string{
		{"Buys", strconv.Itoa(summary.Buys)},
		{"Sells", strconv.Itoa(summary.Sells)},
		{"Skips", strconv.Itoa(summary.Skips)},
		{"Unconfirmed", strconv.Itoa(summary.Unconfirmed)},
		{"Initial Price", summary.InitialPrice.StringFixed(pricePrecision)},
		{"Final Price", summary.FinalPrice.StringFixed(pricePrecision)},
	}
	if summary.CeilingReached {
		fields = append(fields, [2]string{"Ceiling", "reached"})
	}
	printf(a, "%s", renderFields("Bulk trade summary", fields))
}
