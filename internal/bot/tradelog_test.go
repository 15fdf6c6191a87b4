package bot

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readTradeLog(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestTradeLogAppendsOutcomes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "trades.csv")
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for run := 0; run < 2; run++ {
		tl, err := OpenTradeLog(path, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, tl.RecordOutcome(Outcome{
			Time: at, WalletID: int64(run + 1), Action: pumpfun.ActionBuy,
			SolAmount: d("0.1"), TokenAmount: d("3500000"), Signature: solana.Signature{byte(run + 1)},
		}))
		require.NoError(t, tl.RecordOutcome(Outcome{Time: at, WalletID: 9, Reason: ReasonInsufficientBalance}))

		// rows are on disk before Close
		assert.Len(t, readTradeLog(t, path), 1+2*(run+1))
		require.NoError(t, tl.Close())
	}

	rows := readTradeLog(t, path)
	require.Len(t, rows, 5)
	assert.Equal(t, TradeLogHeader, rows[0])
	assert.Equal(t, "buy", rows[1][3])
	assert.Equal(t, "skip", rows[2][3])
	assert.Equal(t, ReasonInsufficientBalance, rows[2][8])
	assert.Equal(t, "2", rows[3][1])
}

func TestTradeLogMarksUnconfirmed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	tl, err := OpenTradeLog(path, zap.NewNop())
	require.NoError(t, err)

	sig := solana.Signature{7}
	require.NoError(t, tl.RecordOutcome(Outcome{
		Time: time.Now(), WalletID: 1, Action: pumpfun.ActionSell,
		Signature: sig, Unconfirmed: true, Reason: ReasonUnconfirmed,
	}))
	require.NoError(t, tl.Close())

	rows := readTradeLog(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, sig.String(), rows[1][7])
	assert.Equal(t, ReasonUnconfirmed, rows[1][8])
}
