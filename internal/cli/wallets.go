package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/rovshanmuradov/cointools/internal/storage/models"
	"github.com/rovshanmuradov/cointools/internal/vault"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWalletsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallets",
		Short: "Manage wallets",
	}
	cmd.AddCommand(
		newWalletCreateCommand(a),
		newWalletBulkCreateCommand(a),
		newWalletListCommand(a),
		newWalletGetCommand(a),
		newWalletImportCommand(a),
		newWalletRenameCommand(a),
		newWalletDeleteCommand(a),
		newEncryptionCommand(a),
		newMetadataCommand(a),
	)
	return cmd
}

// storeNewWallet encrypts the key seed of w and registers it under name.
func (a *app) storeNewWallet(cmd *cobra.Command, name string, w *wallet.Wallet, secret []byte) (*models.Wallet, error) {
	v, err := a.keyVault()
	if err != nil {
		return nil, err
	}
	store, err := a.storage()
	if err != nil {
		return nil, err
	}
	encrypted, err := v.Encrypt(secret)
	if err != nil {
		return nil, err
	}
	row := &models.Wallet{
		Name:                name,
		PublicKey:           w.PublicKey.String(),
		PrivateKeyEncrypted: encrypted,
	}
	if err := store.InsertWallet(cmd.Context(), row); err != nil {
		return nil, err
	}
	a.logger.Debug("Wallet stored", zap.Int64("wallet_id", row.ID), zap.String("wallet", row.PublicKey))
	return row, nil
}

func createWallet(a *app, cmd *cobra.Command, name string) (*models.Wallet, error) {
	w, err := wallet.Generate()
	if err != nil {
		return nil, err
	}
	return a.storeNewWallet(cmd, name, w, w.PrivateKey[:32])
}

func newWalletCreateCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := createWallet(a, cmd, name)
			if err != nil {
				return err
			}
			printf(a, "%s\n", successStyle.Render(fmt.Sprintf("Wallet ID %d created", row.ID)))
			printf(a, "Public Key: %s\n", row.PublicKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "wallet name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newWalletBulkCreateCommand(a *app) *cobra.Command {
	var (
		count  int
		prefix string
	)
	cmd := &cobra.Command{
		Use:   "bulk-create",
		Short: "Create many wallets named <prefix><n>",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return errors.New("--count must be positive")
			}
			ids := make([]string, 0, count)
			for i := 0; i < count; i++ {
				row, err := createWallet(a, cmd, fmt.Sprintf("%s%d", prefix, i))
				if err != nil {
					return fmt.Errorf("created %d of %d wallets: %w", i, count, err)
				}
				ids = append(ids, strconv.FormatInt(row.ID, 10))
			}
			printf(a, "%s\n", successStyle.Render(fmt.Sprintf("%d wallets created with prefix %q", count, prefix)))
			printf(a, "IDs: %s\n", strings.Join(ids, ", "))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of wallets")
	cmd.Flags().StringVar(&prefix, "prefix", "", "wallet name prefix")
	_ = cmd.MarkFlagRequired("count")
	_ = cmd.MarkFlagRequired("prefix")
	return cmd
}

func walletRows(rows []models.Wallet) [][]string {
	out := make([][]string, 0, len(rows))
	for _, w := range rows {
		out = append(out, []string{
			strconv.FormatInt(w.ID, 10), w.Name, w.PublicKey, w.Status, w.LastAccessedTimestamp,
		})
	}
	return out
}

func newWalletListCommand(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			rows, err := store.ListWallets(cmd.Context(), all)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				printf(a, "No wallets found.\n")
				return nil
			}
			printf(a, "%s\n", renderTable(
				[]string{"ID", "Name", "Public Key", "Status", "Last Accessed"},
				walletRows(rows)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include deleted wallets")
	return cmd
}

func newWalletGetCommand(a *app) *cobra.Command {
	var (
		id      int64
		decrypt bool
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			row, err := store.GetWallet(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.touch(cmd.Context(), id)

			fields := [][2]string{
				{"ID", strconv.FormatInt(row.ID, 10)},
				{"Name", row.Name},
				{"Public Key", row.PublicKey},
				{"Status", row.Status},
				{"Last Accessed", row.LastAccessedTimestamp},
			}
			if decrypt {
				v, err := a.keyVault()
				if err != nil {
					return err
				}
				secret, err := v.Decrypt(row.PrivateKeyEncrypted)
				if err != nil {
					return err
				}
				fields = append(fields, [2]string{"Private Key (base58)", base58.Encode(secret)})
			}
			printf(a, "%s", renderFields("Wallet info", fields))
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "wallet ID")
	cmd.Flags().BoolVar(&decrypt, "decrypt", false, "print the private key in base58")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newWalletImportCommand(a *app) *cobra.Command {
	var (
		name       string
		privateKey string
		file       string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import wallets from a base58 private key or a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				return importFile(a, cmd, file)
			}
			if name == "" || privateKey == "" {
				return errors.New("--name and --private-key are required unless --file is given")
			}
			secret, err := base58.Decode(strings.TrimSpace(privateKey))
			if err != nil {
				return fmt.Errorf("failed to decode private key: %w", err)
			}
			w, err := wallet.FromBytes(secret)
			if err != nil {
				return err
			}
			row, err := a.storeNewWallet(cmd, name, w, secret)
			if err != nil {
				return err
			}
			printf(a, "%s\n", successStyle.Render(fmt.Sprintf("Wallet ID %d imported", row.ID)))
			printf(a, "Public Key: %s\n", row.PublicKey)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "wallet name")
	cmd.Flags().StringVar(&privateKey, "private-key", "", "base58 private key (32 or 64 bytes)")
	cmd.Flags().StringVar(&file, "file", "", "CSV file with Name,PrivateKeyBase58 rows")
	cmd.MarkFlagsMutuallyExclusive("file", "private-key")
	return cmd
}

func importFile(a *app, cmd *cobra.Command, path string) error {
	keys, err := wallet.LoadWallets(path)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		row, err := a.storeNewWallet(cmd, k.Name, k.Wallet, k.Wallet.PrivateKey[:32])
		if err != nil {
			return fmt.Errorf("import %s: %w", k.Name, err)
		}
		rows = append(rows, []string{strconv.FormatInt(row.ID, 10), row.Name, row.PublicKey})
	}
	printf(a, "%s\n", renderTable([]string{"ID", "Name", "Public Key"}, rows))
	return nil
}

func newWalletRenameCommand(a *app) *cobra.Command {
	var (
		id   int64
		name string
	)
	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			if err := store.RenameWallet(cmd.Context(), id, name); err != nil {
				return err
			}
			printf(a, "Wallet ID %d renamed to %q.\n", id, name)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "wallet ID")
	cmd.Flags().StringVar(&name, "name", "", "new name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newWalletDeleteCommand(a *app) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Mark a wallet deleted; the on-chain account is untouched",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			if err := store.SoftDeleteWallet(cmd.Context(), id); err != nil {
				return err
			}
			printf(a, "Wallet ID %d deleted.\n", id)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "wallet ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newEncryptionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encryption",
		Short: "Manage the wallet encryption key",
	}

	generate := &cobra.Command{
		Use:   "generate-key",
		Short: "Print a new encryption key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := vault.GenerateKey()
			if err != nil {
				return err
			}
			printf(a, "%s\n", key)
			printf(a, "%s\n", warningStyle.Render("Store this key securely and set it as COINTOOLS_ENC_KEY."))
			return nil
		},
	}

	var newKey string
	rotate := &cobra.Command{
		Use:   "rotate-key",
		Short: "Re-encrypt every wallet under a new key",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.keyVault()
			if err != nil {
				return err
			}
			next, err := vault.New(newKey)
			if err != nil {
				return fmt.Errorf("new key: %w", err)
			}
			store, err := a.storage()
			if err != nil {
				return err
			}
			n, err := store.ReencryptAll(cmd.Context(), current.Rotate(next))
			if err != nil {
				return err
			}
			a.logger.Info("Encryption key rotated", zap.Int("wallets", n))
			printf(a, "%s\n", successStyle.Render(fmt.Sprintf("%d wallets re-encrypted", n)))
			printf(a, "%s\n", warningStyle.Render("Set the new key as COINTOOLS_ENC_KEY before the next run."))
			return nil
		},
	}
	rotate.Flags().StringVar(&newKey, "new-key", "", "new encryption key")
	_ = rotate.MarkFlagRequired("new-key")

	cmd.AddCommand(generate, rotate)
	return cmd
}

func newMetadataCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Manage cached token metadata",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List known tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage()
			if err != nil {
				return err
			}
			rows, err := store.ListTokenMetadata(cmd.Context())
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				printf(a, "No tokens found.\n")
				return nil
			}
			out := make([][]string, 0, len(rows))
			for _, md := range rows {
				out = append(out, []string{md.Mint, md.Name, md.Symbol, strconv.Itoa(int(md.Decimals)), md.URI})
			}
			printf(a, "%s\n", renderTable([]string{"Mint", "Name", "Symbol", "Decimals", "URI"}, out))
			return nil
		},
	}

	var (
		mint, name, symbol, uri string
		decimals                uint8
	)
	update := &cobra.Command{
		Use:   "update",
		Short: "Add or overwrite a token's metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := solana.PublicKeyFromBase58(mint); err != nil {
				return fmt.Errorf("invalid mint address %q: %w", mint, err)
			}
			store, err := a.storage()
			if err != nil {
				return err
			}
			md := &models.TokenMetadata{Mint: mint, Name: name, Symbol: symbol, URI: uri, Decimals: decimals}
			if err := store.UpsertTokenMetadata(cmd.Context(), md); err != nil {
				return err
			}
			printf(a, "Metadata for %s updated.\n", mint)
			return nil
		},
	}
	update.Flags().StringVar(&mint, "ca", "", "token mint address")
	update.Flags().StringVar(&name, "name", "", "token name")
	update.Flags().StringVar(&symbol, "symbol", "", "token symbol")
	update.Flags().StringVar(&uri, "uri", "", "token URI")
	update.Flags().Uint8Var(&decimals, "decimals", 0, "mint decimals")
	for _, f := range []string{"ca", "name", "symbol", "decimals"} {
		_ = update.MarkFlagRequired(f)
	}

	cmd.AddCommand(list, update)
	return cmd
}
