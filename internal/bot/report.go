// internal/bot/report.go
package bot

import (
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/shopspring/decimal"
)

const (
	ReasonCeilingReached      = "price ceiling reached"
	ReasonInsufficientBalance = "insufficient balance for buy or sell"
	ReasonUnconfirmed         = "sent, not confirmed"
)

// Outcome is what happened to one wallet in a bulk run.
type Outcome struct {
	Time        time.Time
	WalletID    int64
	WalletName  string
	Wallet      solana.PublicKey
	Action      pumpfun.Action // empty for skips
	SolAmount   decimal.Decimal
	TokenAmount decimal.Decimal
	Signature   solana.Signature
	PriceAfter  decimal.Decimal // projected
	Reason      string          // why the wallet was skipped, or that it is unconfirmed
	Unconfirmed bool
	Err         error
}

func (o Outcome) Skipped() bool {
	return o.Action == ""
}

// TradeLogHeader matches Outcome.Record.
var TradeLogHeader = []string{
	"timestamp", "wallet_id", "wallet", "action", "sol_amount", "token_amount", "price_after", "signature", "reason",
}

// Record renders the outcome as a trade-log row.
func (o Outcome) Record() []string {
	action, sig := "skip", ""
	if !o.Skipped() {
		action, sig = string(o.Action), o.Signature.String()
	}
	return []string{
		o.Time.UTC().Format(time.RFC3339),
		strconv.FormatInt(o.WalletID, 10),
		o.Wallet.String(),
		action,
		o.SolAmount.String(),
		o.TokenAmount.String(),
		o.PriceAfter.String(),
		sig,
		o.Reason,
	}
}

// BulkTradeSummary aggregates a bulk run.
type BulkTradeSummary struct {
	Buys           int
	Sells          int
	Skips          int
	Unconfirmed    int // buys and sells sent without confirmation
	InitialPrice   decimal.Decimal
	FinalPrice     decimal.Decimal
	CeilingReached bool
	Outcomes       []Outcome
}

func (s *BulkTradeSummary) add(o Outcome) {
	if o.Unconfirmed {
		s.Unconfirmed++
	}
	switch o.Action {
	case pumpfun.ActionBuy:
		s.Buys++
	case pumpfun.ActionSell:
		s.Sells++
	default:
		s.Skips++
	}
	s.Outcomes = append(s.Outcomes, o)
}
