package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/bot"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format       ExportFormat
	ActionFilter pumpfun.Action // only this action; empty keeps all
	OnlyExecuted bool           // drop skipped wallets
	OutputDir    string
}

// RunExporter writes the outcome of one bulk run to disk.
type RunExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewRunExporter(logger *zap.Logger) *RunExporter {
	return &RunExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ExportRun writes summary for mint and returns the file path.
func (re *RunExporter) ExportRun(mint solana.PublicKey, summary *bot.BulkTradeSummary, options ExportOptions) (string, error) {
	if summary == nil {
		return "", fmt.Errorf("nothing to export")
	}
	filtered := filterOutcomes(summary.Outcomes, options)

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, re.generateFilename(mint, options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = re.exportToJSON(mint, summary, filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	re.logger.Info("Bulk run exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterOutcomes(outcomes []bot.Outcome, options ExportOptions) []bot.Outcome {
	var filtered []bot.Outcome
	for _, o := range outcomes {
		if options.OnlyExecuted && o.Skipped() {
			continue
		}
		if options.ActionFilter != "" && o.Action != options.ActionFilter {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered
}

func (re *RunExporter) generateFilename(mint solana.PublicKey, options ExportOptions) string {
	timestamp := re.now().Format("20060102_150405")

	prefix := "bulk_all"
	if options.ActionFilter != "" {
		prefix = fmt.Sprintf("bulk_%s", options.ActionFilter)
	}
	return fmt.Sprintf("%s_%s_%s.%s", prefix, mint.String()[:8], timestamp, options.Format)
}

func exportToCSV(outcomes []bot.Outcome, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(bot.TradeLogHeader); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, o := range outcomes {
		if err := writer.Write(o.Record()); err != nil {
			return fmt.Errorf("failed to write outcome: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// outcomeJSON is one outcome as exported.
type outcomeJSON struct {
	Time        time.Time       `json:"time"`
	WalletID    int64           `json:"wallet_id"`
	WalletName  string          `json:"wallet_name"`
	Wallet      string          `json:"wallet"`
	Action      string          `json:"action"`
	SolAmount   decimal.Decimal `json:"sol_amount"`
	TokenAmount decimal.Decimal `json:"token_amount"`
	PriceAfter  decimal.Decimal `json:"price_after"`
	Signature   string          `json:"signature,omitempty"`
	Unconfirmed bool            `json:"unconfirmed,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Error       string          `json:"error,omitempty"`
}

func toJSON(o bot.Outcome) outcomeJSON {
	out := outcomeJSON{
		Time:        o.Time,
		WalletID:    o.WalletID,
		WalletName:  o.WalletName,
		Wallet:      o.Wallet.String(),
		Action:      "skip",
		SolAmount:   o.SolAmount,
		TokenAmount: o.TokenAmount,
		PriceAfter:  o.PriceAfter,
		Unconfirmed: o.Unconfirmed,
		Reason:      o.Reason,
	}
	if !o.Skipped() {
		out.Action = string(o.Action)
		out.Signature = o.Signature.String()
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return out
}

// ExportSummary is the aggregate block of a JSON export.
type ExportSummary struct {
	Buys           int             `json:"buys"`
	Sells          int             `json:"sells"`
	Skips          int             `json:"skips"`
	Unconfirmed    int             `json:"unconfirmed"`
	InitialPrice   decimal.Decimal `json:"initial_price"`
	FinalPrice     decimal.Decimal `json:"final_price"`
	CeilingReached bool            `json:"ceiling_reached"`
	BuyVolume      decimal.Decimal `json:"buy_volume_sol"`
	SellVolume     decimal.Decimal `json:"sell_volume_sol"`
}

func calculateSummary(summary *bot.BulkTradeSummary) ExportSummary {
	out := ExportSummary{
		Buys:           summary.Buys,
		Sells:          summary.Sells,
		Skips:          summary.Skips,
		Unconfirmed:    summary.Unconfirmed,
		InitialPrice:   summary.InitialPrice,
		FinalPrice:     summary.FinalPrice,
		CeilingReached: summary.CeilingReached,
		BuyVolume:      decimal.Zero,
		SellVolume:     decimal.Zero,
	}
	for _, o := range summary.Outcomes {
		switch o.Action {
		case pumpfun.ActionBuy:
			out.BuyVolume = out.BuyVolume.Add(o.SolAmount)
		case pumpfun.ActionSell:
			out.SellVolume = out.SellVolume.Add(o.SolAmount)
		}
	}
	return out
}

func (re *RunExporter) exportToJSON(mint solana.PublicKey, summary *bot.BulkTradeSummary, outcomes []bot.Outcome, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	rows := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, toJSON(o))
	}

	exportData := struct {
		ExportTime time.Time     `json:"export_time"`
		Mint       string        `json:"mint"`
		Count      int           `json:"count"`
		Outcomes   []outcomeJSON `json:"outcomes"`
		Summary    ExportSummary `json:"summary"`
	}{
		ExportTime: re.now().UTC(),
		Mint:       mint.String(),
		Count:      len(rows),
		Outcomes:   rows,
		Summary:    calculateSummary(summary),
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
