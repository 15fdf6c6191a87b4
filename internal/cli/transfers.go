package cli

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/transfer"
	"github.com/spf13/cobra"
)

func newTransfersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "Move SOL and tokens between wallets",
		Long:  "Transfers take a source wallet ID. The destination may be a wallet ID or any Solana address.",
	}
	cmd.AddCommand(
		newTransferSOLCommand(a),
		newTransferTokenCommand(a),
		newMigrateCommand(a),
	)
	return cmd
}

func newTransferSOLCommand(a *app) *cobra.Command {
	var (
		from    int64
		to      string
		amount  string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "sol",
		Short: "Send SOL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			dest, err := a.destination(ctx, to)
			if err != nil {
				return err
			}
			row, w, err := a.loadWallet(ctx, from)
			if err != nil {
				return err
			}
			sig, err := a.transfers().SOL(ctx, w, dest, value, confirm)
			if err != nil {
				return err
			}
			a.touch(ctx, row.ID)
			printf(a, "%s\n", successStyle.Render(fmt.Sprintf("Sent %s SOL to %s", value, dest)))
			printf(a, "Signature: %s\n", sig)
			return nil
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "source wallet ID")
	cmd.Flags().StringVar(&to, "to", "", "destination wallet ID or address")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in SOL")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "wait for confirmation")
	for _, f := range []string{"from", "to", "amount"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newTransferTokenCommand(a *app) *cobra.Command {
	var (
		from    int64
		to, ca  string
		amount  string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Send SPL tokens, creating the recipient token account if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			mint, err := parseMint(ca)
			if err != nil {
				return err
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			dest, err := a.destination(ctx, to)
			if err != nil {
				return err
			}
			row, w, err := a.loadWallet(ctx, from)
			if err != nil {
				return err
			}
			sig, err := a.transfers().Token(ctx, w, dest, mint, value, confirm)
			if err != nil {
				return err
			}
			a.touch(ctx, row.ID)
			printf(a, "%s\n", successStyle.Render(fmt.Sprintf("Sent %s of %s to %s", value, mint, dest)))
			printf(a, "Signature: %s\n", sig)
			return nil
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "source wallet ID")
	cmd.Flags().StringVar(&to, "to", "", "destination wallet ID or address")
	cmd.Flags().StringVar(&ca, "ca", "", "token mint address")
	cmd.Flags().StringVar(&amount, "amount", "", "amount in whole tokens")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "wait for confirmation")
	for _, f := range []string{"from", "to", "ca", "amount"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newMigrateCommand(a *app) *cobra.Command {
	var (
		from        int64
		to          string
		tokens, sol bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move every token balance and then all SOL to another wallet",
		Long: fmt.Sprintf(`Move every token balance, then all SOL minus a %s SOL reserve.
Without --tokens or --sol both are moved.`, transfer.MigrationReserve),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := transfer.MigrateOptions{Tokens: tokens, SOL: sol}
			if !tokens && !sol {
				opts = transfer.MigrateOptions{Tokens: true, SOL: true}
			}
			if err := a.chain(ctx); err != nil {
				return err
			}
			dest, err := a.destination(ctx, to)
			if err != nil {
				return err
			}
			row, w, err := a.loadWallet(ctx, from)
			if err != nil {
				return err
			}
			if w.PublicKey.Equals(dest) {
				return errors.New("source and destination are the same wallet")
			}

			report, err := a.transfers().Migrate(ctx, w, dest, opts)
			a.touch(ctx, row.ID)
			if report != nil {
				printMigration(a, report)
			}
			return err
		},
	}
	cmd.Flags().Int64Var(&from, "from", 0, "source wallet ID")
	cmd.Flags().StringVar(&to, "to", "", "destination wallet ID or address")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "move token balances")
	cmd.Flags().BoolVar(&sol, "sol", false, "move SOL")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printMigration(a *app, report *transfer.MigrationReport) {
	if len(report.Tokens) > 0 {
		rows := make([][]string, 0, len(report.Tokens))
		for _, m := range report.Tokens {
			status := successStyle.Render(m.Signature.String())
			if m.Err != nil {
				status = errorStyle.Render(m.Err.Error())
			}
			rows = append(rows, []string{m.Mint.String(), m.Amount.String(), status})
		}
		printf(a, "%s\n", renderTable([]string{"Mint", "Amount", "Result"}, rows))
	}
	if report.SOLSignature != (solana.Signature{}) {
		printf(a, "%s\n", successStyle.Render(fmt.Sprintf("Sent %s SOL", report.SOL)))
		printf(a, "Signature: %s\n", report.SOLSignature)
	}
}
