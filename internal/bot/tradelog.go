package bot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"go.uber.org/zap"
)

// TradeLog appends bulk-trade outcomes to a CSV file, one row per wallet.
// Every row is flushed as it is written, so an interrupted run keeps the
// history of what it sent.
type TradeLog struct {
	mu     sync.Mutex
	file   *os.File
	csv    *csv.Writer
	path   string
	logger *zap.Logger

	buys, sells, skips, unconfirmed int
}

// OpenTradeLog opens path for appending and writes TradeLogHeader when the
// file is new or empty.
func OpenTradeLog(path string, logger *zap.Logger) (*TradeLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trade log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trade log: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat trade log: %w", err)
	}

	tl := &TradeLog{
		file:   file,
		csv:    csv.NewWriter(file),
		path:   path,
		logger: logger.Named("trade-log"),
	}
	if stat.Size() == 0 {
		if err := tl.writeRow(TradeLogHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write trade log header: %w", err)
		}
	}
	return tl, nil
}

// RecordOutcome appends o.
func (tl *TradeLog) RecordOutcome(o Outcome) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if err := tl.writeRow(o.Record()); err != nil {
		return fmt.Errorf("failed to append to trade log %s: %w", tl.path, err)
	}
	switch o.Action {
	case pumpfun.ActionBuy:
		tl.buys++
	case pumpfun.ActionSell:
		tl.sells++
	default:
		tl.skips++
	}
	if o.Unconfirmed {
		tl.unconfirmed++
	}
	return nil
}

func (tl *TradeLog) writeRow(row []string) error {
	if err := tl.csv.Write(row); err != nil {
		return err
	}
	tl.csv.Flush()
	return tl.csv.Error()
}

// Close flushes and closes the file.
func (tl *TradeLog) Close() error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.csv.Flush()
	err := tl.csv.Error()
	if cerr := tl.file.Close(); err == nil {
		err = cerr
	}

	tl.logger.Debug("Trade log closed",
		zap.String("file", tl.path),
		zap.Int("buys", tl.buys),
		zap.Int("sells", tl.sells),
		zap.Int("skips", tl.skips),
		zap.Int("unconfirmed", tl.unconfirmed))
	return err
}
