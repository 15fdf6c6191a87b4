package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/bot"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSummary() *bot.BulkTradeSummary {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &bot.BulkTradeSummary{
		Buys: 2, Sells: 1, Skips: 1,
		InitialPrice: d("0.000000028"),
		FinalPrice:   d("0.000000031"),
		Outcomes: []bot.Outcome{
			{Time: at, WalletID: 1, Action: pumpfun.ActionBuy, SolAmount: d("0.1"), TokenAmount: d("3500000"), Signature: solana.Signature{1}},
			{Time: at, WalletID: 2, Action: pumpfun.ActionSell, SolAmount: d("0.05"), TokenAmount: d("1700000"), Signature: solana.Signature{2}},
			{Time: at, WalletID: 3, Reason: bot.ReasonInsufficientBalance},
			{Time: at, WalletID: 4, Action: pumpfun.ActionBuy, SolAmount: d("0.2"), TokenAmount: d("6900000"), Signature: solana.Signature{3}},
		},
	}
}

func newTestExporter() *RunExporter {
	re := NewRunExporter(zap.NewNop())
	re.now = func() time.Time { return time.Date(2024, 5, 1, 13, 30, 0, 0, time.UTC) }
	return re
}

func TestExportRunCSV(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	path, err := newTestExporter().ExportRun(mint, testSummary(), ExportOptions{
		Format:       FormatCSV,
		OnlyExecuted: true,
		OutputDir:    t.TempDir(),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_20240501_133000.csv"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4)
	assert.Equal(t, bot.TradeLogHeader, records[0])
	assert.Equal(t, "buy", records[1][3])
	assert.Equal(t, "sell", records[2][3])
}

func TestExportRunJSON(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	path, err := newTestExporter().ExportRun(mint, testSummary(), ExportOptions{
		Format:       FormatJSON,
		ActionFilter: pumpfun.ActionBuy,
		OutputDir:    t.TempDir(),
	})
	require.NoError(t, err)
	assert.Contains(t, path, "bulk_buy_")

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded struct {
		Mint     string        `json:"mint"`
		Count    int           `json:"count"`
		Outcomes []outcomeJSON `json:"outcomes"`
		Summary  ExportSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(content, &decoded))
	assert.Equal(t, mint.String(), decoded.Mint)
	assert.Equal(t, 2, decoded.Count)
	assert.True(t, decoded.Summary.BuyVolume.Equal(d("0.3")))
	assert.True(t, decoded.Summary.SellVolume.Equal(d("0.05")))
	assert.Equal(t, 1, decoded.Summary.Skips)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
