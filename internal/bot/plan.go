// internal/bot/plan.go
package bot

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"github.com/shopspring/decimal"
)

// Participant is one wallet taking part in a bulk run.
type Participant struct {
	ID     int64
	Name   string
	Wallet *wallet.Wallet
}

// DelayRange is the pause drawn after each executed trade.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// ParseDelayRange parses "min-max" in seconds, e.g. "1-5" or "0.5-2".
// An empty string means no delay.
func ParseDelayRange(s string) (DelayRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DelayRange{}, nil
	}
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return DelayRange{}, fmt.Errorf("invalid delay range %q: expected min-max", s)
	}
	minSec, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return DelayRange{}, fmt.Errorf("invalid delay minimum %q: %w", lo, err)
	}
	maxSec, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return DelayRange{}, fmt.Errorf("invalid delay maximum %q: %w", hi, err)
	}
	r := DelayRange{
		Min: time.Duration(minSec * float64(time.Second)),
		Max: time.Duration(maxSec * float64(time.Second)),
	}
	return r, r.Validate()
}

func (r DelayRange) Validate() error {
	if r.Min < 0 || r.Max < 0 {
		return errors.New("delay must not be negative")
	}
	if r.Min > r.Max {
		return fmt.Errorf("delay minimum %s is greater than maximum %s", r.Min, r.Max)
	}
	return nil
}

func (r DelayRange) IsZero() bool {
	return r.Max == 0
}

// Pick draws a uniform duration in [Min, Max].
func (r DelayRange) Pick(rng *rand.Rand) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(rng.Int64N(int64(r.Max-r.Min)+1))
}

func (r DelayRange) String() string {
	if r.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s-%s", r.Min, r.Max)
}

// Randomize draws a uniform amount in [amount*(1-r), amount*(1+r)], truncated
// to whole lamports. r == 0 returns amount unchanged.
func Randomize(amount decimal.Decimal, r float64, rng *rand.Rand) decimal.Decimal {
	if r <= 0 {
		return amount
	}
	factor := 1 - r + 2*r*rng.Float64()
	return amount.Mul(decimal.NewFromFloat(factor)).Truncate(types.SOLDecimals)
}

// BulkTradePlan is one invocation of the bulk trader.
type BulkTradePlan struct {
	Participants []Participant
	Mint         solana.PublicKey
	Amount       decimal.Decimal // SOL, centre of the randomized range
	Randomize    float64         // fraction in [0, 1)
	Delay        DelayRange
	BuyRate      float64         // probability of preferring a buy
	PriceCeiling decimal.Decimal // SOL per token; zero disables
	Shuffle      bool
	Params       pumpfun.TradeParams
}

func (p BulkTradePlan) Validate() error {
	if len(p.Participants) == 0 {
		return errors.New("no wallets to trade with")
	}
	for i, part := range p.Participants {
		if part.Wallet == nil {
			return fmt.Errorf("participant %d has no wallet", i)
		}
	}
	if p.Mint.IsZero() {
		return errors.New("mint is required")
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", p.Amount)
	}
	if p.Randomize < 0 || p.Randomize >= 1 {
		return fmt.Errorf("randomize must be in [0, 1), got %g", p.Randomize)
	}
	if p.BuyRate < 0 || p.BuyRate > 1 {
		return fmt.Errorf("buy rate must be in [0, 1], got %g", p.BuyRate)
	}
	if p.PriceCeiling.IsNegative() {
		return fmt.Errorf("price ceiling must not be negative, got %s", p.PriceCeiling)
	}
	return p.Delay.Validate()
}

func (p BulkTradePlan) ceilingReached(price decimal.Decimal) bool {
	return p.PriceCeiling.IsPositive() && price.GreaterThanOrEqual(p.PriceCeiling)
}
