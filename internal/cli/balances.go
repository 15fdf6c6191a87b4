package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/blockchain/solbc"
	"github.com/rovshanmuradov/cointools/internal/storage/models"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/rovshanmuradov/cointools/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// balanceConcurrency bounds parallel wallet reads; the client limiter still
// applies on top.
const balanceConcurrency = 8

func newBalancesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "View SOL and SPL token balances",
	}
	cmd.AddCommand(
		newSolBalanceCommand(a),
		newTokenBalanceCommand(a),
		newTotalBalanceCommand(a),
	)
	return cmd
}

func walletHeading(row *models.Wallet) string {
	return titleStyle.Render(fmt.Sprintf("Wallet ID=%d (%s) %s", row.ID, row.Name, row.PublicKey))
}

func newSolBalanceCommand(a *app) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "sol",
		Short: "SOL balance of one wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.chain(ctx); err != nil {
				return err
			}
			row, err := a.store.GetWallet(ctx, id)
			if err != nil {
				return err
			}
			owner, err := solana.PublicKeyFromBase58(row.PublicKey)
			if err != nil {
				return err
			}
			balance, err := a.reader.SolBalance(ctx, owner)
			if err != nil {
				return err
			}
			printf(a, "%s\n  SOL Balance: %s SOL\n", walletHeading(row), balance)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "wallet ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// tokenRow is one token line in balance output.
type tokenRow struct {
	Mint    solana.PublicKey
	Name    string
	Symbol  string
	Balance decimal.Decimal
}

func (t tokenRow) cells() []string {
	return []string{t.Name, t.Symbol, t.Mint.String(), t.Balance.String()}
}

var tokenHeaders = []string{"Name", "Symbol", "Mint", "Balance"}

// holdingsToRows resolves metadata for every non-empty holding and merges
// accounts of the same mint.
func (a *app) holdingsToRows(ctx context.Context, holdings []solbc.TokenHolding) ([]tokenRow, error) {
	byMint := make(map[solana.PublicKey]*tokenRow)
	var order []solana.PublicKey
	for _, h := range holdings {
		if h.Amount == 0 {
			continue
		}
		md, err := a.metadata.Get(ctx, h.Mint)
		if err != nil {
			return nil, err
		}
		amount := types.FromRawUnits(h.Amount, md.Decimals)
		if row, ok := byMint[h.Mint]; ok {
			row.Balance = row.Balance.Add(amount)
			continue
		}
		byMint[h.Mint] = &tokenRow{Mint: h.Mint, Name: md.Name, Symbol: md.Symbol, Balance: amount}
		order = append(order, h.Mint)
	}
	rows := make([]tokenRow, 0, len(order))
	for _, m := range order {
		rows = append(rows, *byMint[m])
	}
	return rows, nil
}

func newTokenBalanceCommand(a *app) *cobra.Command {
	var (
		id int64
		ca string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Token balances of one wallet, optionally for a single mint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.chain(ctx); err != nil {
				return err
			}
			row, err := a.store.GetWallet(ctx, id)
			if err != nil {
				return err
			}
			owner, err := solana.PublicKeyFromBase58(row.PublicKey)
			if err != nil {
				return err
			}

			var rows []tokenRow
			if ca != "" {
				mint, err := parseMint(ca)
				if err != nil {
					return err
				}
				balance, found, err := a.reader.TokenBalance(ctx, owner, mint)
				if err != nil {
					return err
				}
				if !found {
					printf(a, "No token account found for %s\n", mint)
					return nil
				}
				md, err := a.metadata.Get(ctx, mint)
				if err != nil {
					return err
				}
				rows = []tokenRow{{Mint: mint, Name: md.Name, Symbol: md.Symbol, Balance: balance}}
			} else {
				holdings, err := a.reader.TokenHoldings(ctx, owner)
				if err != nil {
					return err
				}
				if rows, err = a.holdingsToRows(ctx, holdings); err != nil {
					return err
				}
			}
			if len(rows) == 0 {
				printf(a, "No token accounts found.\n")
				return nil
			}

			cells := make([][]string, 0, len(rows))
			for _, r := range rows {
				cells = append(cells, r.cells())
			}
			printf(a, "%s\n%s\n", walletHeading(row), renderTable(tokenHeaders, cells))
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "wallet ID")
	cmd.Flags().StringVar(&ca, "ca", "", "token mint address")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// selectWallets resolves --ids and --prefix into a de-duplicated wallet
// list. With neither, every active wallet is selected.
func (a *app) selectWallets(ctx context.Context, ids, prefix string) ([]models.Wallet, error) {
	store, err := a.storage()
	if err != nil {
		return nil, err
	}
	if ids == "" && prefix == "" {
		return store.ListWallets(ctx, false)
	}

	var rows []models.Wallet
	if prefix != "" {
		byPrefix, err := store.ListWalletsByPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}
		rows = append(rows, byPrefix...)
	}
	if ids != "" {
		parsed, err := utils.ParseIDs(ids)
		if err != nil {
			return nil, err
		}
		byID, err := store.GetWalletsByIDs(ctx, parsed)
		if err != nil {
			return nil, err
		}
		rows = append(rows, byID...)
	}
	return dedupeWallets(rows), nil
}

func dedupeWallets(rows []models.Wallet) []models.Wallet {
	seen := make(map[int64]struct{}, len(rows))
	out := rows[:0]
	for _, w := range rows {
		if _, ok := seen[w.ID]; ok {
			continue
		}
		seen[w.ID] = struct{}{}
		out = append(out, w)
	}
	return out
}

// tokenTotals accumulates token balances across wallets.
type tokenTotals struct {
	rows  map[solana.PublicKey]*tokenRow
	order []solana.PublicKey
}

func newTokenTotals() *tokenTotals {
	return &tokenTotals{rows: make(map[solana.PublicKey]*tokenRow)}
}

func (t *tokenTotals) add(r tokenRow) {
	if cur, ok := t.rows[r.Mint]; ok {
		cur.Balance = cur.Balance.Add(r.Balance)
		return
	}
	t.rows[r.Mint] = &r
	t.order = append(t.order, r.Mint)
}

// list returns the totals, largest first, optionally restricted to one mint.
func (t *tokenTotals) list(only *solana.PublicKey) []tokenRow {
	out := make([]tokenRow, 0, len(t.order))
	for _, m := range t.order {
		if only != nil && !m.Equals(*only) {
			continue
		}
		out = append(out, *t.rows[m])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Balance.GreaterThan(out[j].Balance)
	})
	return out
}

func newTotalBalanceCommand(a *app) *cobra.Command {
	var (
		ids, prefix, ca string
		list            bool
	)
	cmd := &cobra.Command{
		Use:   "total",
		Short: "Total SOL and token balances over many wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.chain(ctx); err != nil {
				return err
			}
			var only *solana.PublicKey
			if ca != "" {
				mint, err := parseMint(ca)
				if err != nil {
					return err
				}
				only = &mint
			}

			wallets, err := a.selectWallets(ctx, ids, prefix)
			if err != nil {
				return err
			}
			if len(wallets) == 0 {
				return errors.New("no wallets found")
			}

			owners := make([]solana.PublicKey, len(wallets))
			for i, w := range wallets {
				if owners[i], err = solana.PublicKeyFromBase58(w.PublicKey); err != nil {
					return fmt.Errorf("wallet %d: %w", w.ID, err)
				}
			}
			sols, err := a.reader.Balances(ctx, owners, nil, balanceConcurrency)
			if err != nil {
				return err
			}

			totalSOL := decimal.Zero
			totals := newTokenTotals()
			var perWallet [][]string
			for i, w := range wallets {
				totalSOL = totalSOL.Add(sols[i].SOL)

				holdings, err := a.reader.TokenHoldings(ctx, owners[i])
				if err != nil {
					return err
				}
				rows, err := a.holdingsToRows(ctx, holdings)
				if err != nil {
					return err
				}
				for _, r := range rows {
					totals.add(r)
				}
				if list {
					perWallet = append(perWallet, []string{
						strconv.FormatInt(w.ID, 10), w.Name, w.PublicKey, sols[i].SOL.String(), strconv.Itoa(len(rows)),
					})
				}
			}

			if list {
				printf(a, "%s\n", renderTable([]string{"ID", "Name", "Public Key", "SOL", "Tokens"}, perWallet))
			}
			printf(a, "%s", renderFields("Totals", [][2]string{
				{"Wallets", strconv.Itoa(len(wallets))},
				{"SOL", totalSOL.String() + " SOL"},
			}))

			tokens := totals.list(only)
			if len(tokens) == 0 {
				return nil
			}
			cells := make([][]string, 0, len(tokens))
			for _, r := range tokens {
				cells = append(cells, r.cells())
			}
			printf(a, "%s\n", renderTable(tokenHeaders, cells))
			return nil
		},
	}
	cmd.Flags().StringVar(&ids, "ids", "", "wallet IDs, comma separated with ranges (1-3,5)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "wallet name prefix")
	cmd.Flags().StringVar(&ca, "ca", "", "only report this token mint")
	cmd.Flags().BoolVar(&list, "list", false, "also list per-wallet balances")
	return cmd
}
