// internal/bot/bulk.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/dex/pumpfun"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SnapshotSource reads the live bonding curve.
type SnapshotSource interface {
	FetchCurveSnapshot(ctx context.Context, mint solana.PublicKey) (pumpfun.Snapshot, error)
}

// BalanceReader reads live wallet balances.
type BalanceReader interface {
	SolBalance(ctx context.Context, owner solana.PublicKey) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (decimal.Decimal, bool, error)
}

// Trader executes one trade against a snapshot.
type Trader interface {
	Execute(ctx context.Context, intent pumpfun.TradeIntent, snap pumpfun.Snapshot, signer *wallet.Wallet) (*pumpfun.TradeResult, error)
}

// Toucher records that a registry wallet was used.
type Toucher interface {
	TouchWallet(ctx context.Context, id int64) error
}

// TradeRecorder receives every outcome as it happens.
type TradeRecorder interface {
	RecordOutcome(o Outcome) error
}

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// BulkTrader drives a sequence of wallets through buys and sells on one
// bonding curve. Decisions use a local projection of the curve that is
// advanced after every executed trade, so each wallet sees the price left
// by the previous one without waiting for confirmation.
type BulkTrader struct {
	snapshots SnapshotSource
	balances  BalanceReader
	trader    Trader
	toucher   Toucher
	recorder  TradeRecorder
	sleep     Sleeper
	rng       *rand.Rand
	now       func() time.Time
	logger    *zap.Logger
}

type BulkOption func(*BulkTrader)

func WithToucher(t Toucher) BulkOption { return func(b *BulkTrader) { b.toucher = t } }

func WithRecorder(r TradeRecorder) BulkOption { return func(b *BulkTrader) { b.recorder = r } }

func WithSleeper(s Sleeper) BulkOption { return func(b *BulkTrader) { b.sleep = s } }

func WithRand(rng *rand.Rand) BulkOption { return func(b *BulkTrader) { b.rng = rng } }

func NewBulkTrader(snapshots SnapshotSource, balances BalanceReader, trader Trader, logger *zap.Logger, opts ...BulkOption) *BulkTrader {
	b := &BulkTrader{
		snapshots: snapshots,
		balances:  balances,
		trader:    trader,
		sleep:     sleepContext,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
		logger:    logger.Named("bulk-trader"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run executes plan. On a run-fatal error the summary so far is returned
// together with the error.
func (b *BulkTrader) Run(ctx context.Context, plan BulkTradePlan) (*BulkTradeSummary, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	snap, err := b.snapshots.FetchCurveSnapshot(ctx, plan.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bonding curve: %w", err)
	}
	if err := snap.Curve.Tradable(); err != nil {
		return nil, err
	}
	price, err := snap.Curve.Price()
	if err != nil {
		return nil, err
	}

	participants := append([]Participant(nil), plan.Participants...)
	if plan.Shuffle {
		b.rng.Shuffle(len(participants), func(i, j int) {
			participants[i], participants[j] = participants[j], participants[i]
		})
	}

	summary := &BulkTradeSummary{InitialPrice: price, FinalPrice: price}
	b.logger.Info("Starting bulk trade",
		zap.String("mint", plan.Mint.String()),
		zap.Int("wallets", len(participants)),
		zap.String("amount", plan.Amount.String()),
		zap.Float64("randomize", plan.Randomize),
		zap.Float64("buy_rate", plan.BuyRate),
		zap.Stringer("delay", plan.Delay),
		zap.String("initial_price", price.String()),
		zap.String("price_ceiling", plan.PriceCeiling.String()))

	for i, p := range participants {
		if plan.ceilingReached(summary.FinalPrice) {
			summary.CeilingReached = true
			b.skipRemaining(ctx, summary, participants[i:])
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, stepErr := b.step(ctx, plan, snap, p, summary.FinalPrice)
		if stepErr != nil && outcome.Skipped() {
			b.abort(p, stepErr)
			return summary, stepErr
		}

		if !outcome.Skipped() {
			snap, err = project(snap, outcome)
			if err != nil {
				return summary, err
			}
			if summary.FinalPrice, err = snap.Curve.Price(); err != nil {
				return summary, err
			}
		}
		outcome.PriceAfter = summary.FinalPrice
		b.record(ctx, summary, outcome)
		if stepErr != nil {
			// sent before the run failed; recorded above so it is not lost
			b.abort(p, stepErr)
			return summary, stepErr
		}

		if outcome.Skipped() || plan.Delay.IsZero() || i == len(participants)-1 || plan.ceilingReached(summary.FinalPrice) {
			continue
		}
		delay := plan.Delay.Pick(b.rng)
		b.logger.Debug("Delaying next trade", zap.Duration("delay", delay))
		if err := b.sleep(ctx, delay); err != nil {
			return summary, err
		}
	}

	if plan.ceilingReached(summary.FinalPrice) {
		summary.CeilingReached = true
	}

	b.logger.Info("Bulk trade finished",
		zap.Int("buys", summary.Buys),
		zap.Int("sells", summary.Sells),
		zap.Int("skips", summary.Skips),
		zap.String("initial_price", summary.InitialPrice.String()),
		zap.String("final_price", summary.FinalPrice.String()),
		zap.Bool("ceiling_reached", summary.CeilingReached))
	return summary, nil
}

func (b *BulkTrader) abort(p Participant, err error) {
	b.logger.Error("Bulk trade aborted",
		zap.Int64("wallet_id", p.ID),
		zap.String("wallet", p.Wallet.PublicKey.String()),
		zap.Error(err))
}

// step decides and executes the trade of one wallet. A returned error is
// run-fatal; recoverable failures come back as skipped outcomes. A sent but
// unconfirmed swap comes back as an executed outcome, also when the error
// that accompanies it is fatal.
func (b *BulkTrader) step(ctx context.Context, plan BulkTradePlan, snap pumpfun.Snapshot, p Participant, price decimal.Decimal) (Outcome, error) {
	owner := p.Wallet.PublicKey
	outcome := Outcome{Time: b.now(), WalletID: p.ID, WalletName: p.Name, Wallet: owner}

	solAmount := Randomize(plan.Amount, plan.Randomize, b.rng)
	tokenAmount := solAmount.DivRound(price, 24).Truncate(int32(snap.Decimals))

	solBal, err := b.balances.SolBalance(ctx, owner)
	if err != nil {
		return outcome, fmt.Errorf("%w: SOL balance of %s: %w", pumpfun.ErrChainRead, owner, err)
	}
	tokenBal, _, err := b.balances.TokenBalance(ctx, owner, plan.Mint)
	if err != nil {
		return outcome, fmt.Errorf("%w: token balance of %s: %w", pumpfun.ErrChainRead, owner, err)
	}

	canBuy := solBal.GreaterThanOrEqual(solAmount.Add(types.ApproxRent))
	canSell := tokenAmount.IsPositive() && tokenBal.GreaterThanOrEqual(tokenAmount)

	preferBuy := b.rng.Float64() < plan.BuyRate
	var action pumpfun.Action
	switch {
	case preferBuy && canBuy, !preferBuy && !canSell && canBuy:
		action = pumpfun.ActionBuy
	case canSell:
		action = pumpfun.ActionSell
	default:
		outcome.Reason = ReasonInsufficientBalance
		outcome.Err = pumpfun.ErrInsufficientBalance
		b.logger.Info("Skipping wallet",
			zap.Int64("wallet_id", p.ID),
			zap.String("wallet", owner.String()),
			zap.String("sol_balance", solBal.String()),
			zap.String("token_balance", tokenBal.String()),
			zap.String("sol_amount", solAmount.String()),
			zap.String("token_amount", tokenAmount.String()))
		return outcome, nil
	}

	var intent pumpfun.TradeIntent
	if action == pumpfun.ActionBuy {
		intent, err = pumpfun.NewBuyIntent(owner, solAmount, plan.Params)
	} else {
		intent, err = pumpfun.NewSellIntent(owner, tokenAmount, plan.Params)
	}
	if err != nil {
		return outcome, err
	}

	result, err := b.trader.Execute(ctx, intent, snap, p.Wallet)
	if result == nil {
		if !pumpfun.IsRecoverable(err) {
			return outcome, err
		}
		outcome.Reason = err.Error()
		outcome.Err = err
		b.logger.Warn("Trade failed, skipping wallet",
			zap.Int64("wallet_id", p.ID),
			zap.String("wallet", owner.String()),
			zap.String("action", string(action)),
			zap.Error(err))
		return outcome, nil
	}

	outcome.Action = result.Action
	outcome.SolAmount = result.SolAmount
	outcome.TokenAmount = result.TokenAmount
	outcome.Signature = result.Signature
	if result.Unconfirmed {
		// the swap may land, so it is projected like a confirmed one
		outcome.Unconfirmed = true
		outcome.Reason = ReasonUnconfirmed
		outcome.Err = err
	}
	if err != nil && !pumpfun.IsRecoverable(err) {
		return outcome, err
	}
	return outcome, nil
}

// project advances snap by the quoted amounts of an executed trade.
func project(snap pumpfun.Snapshot, o Outcome) (pumpfun.Snapshot, error) {
	var (
		curve pumpfun.Curve
		err   error
	)
	switch o.Action {
	case pumpfun.ActionBuy:
		curve, err = snap.Curve.ApplyBuy(o.SolAmount, o.TokenAmount)
	case pumpfun.ActionSell:
		curve, err = snap.Curve.ApplySell(o.TokenAmount, o.SolAmount)
	default:
		return snap, errors.New("cannot project a skipped outcome")
	}
	if err != nil {
		return snap, err
	}
	return snap.WithCurve(curve), nil
}

func (b *BulkTrader) record(ctx context.Context, summary *BulkTradeSummary, o Outcome) {
	summary.add(o)

	if !o.Skipped() {
		b.logger.Info("Trade executed",
			zap.Bool("unconfirmed", o.Unconfirmed),
			zap.Int64("wallet_id", o.WalletID),
			zap.String("wallet", o.Wallet.String()),
			zap.String("action", string(o.Action)),
			zap.String("sol_amount", o.SolAmount.String()),
			zap.String("token_amount", o.TokenAmount.String()),
			zap.String("projected_price", o.PriceAfter.String()),
			zap.String("signature", o.Signature.String()))
		if b.toucher != nil && o.WalletID != 0 {
			if err := b.toucher.TouchWallet(ctx, o.WalletID); err != nil {
				b.logger.Warn("Failed to update wallet access time", zap.Int64("wallet_id", o.WalletID), zap.Error(err))
			}
		}
	}
	if b.recorder != nil {
		if err := b.recorder.RecordOutcome(o); err != nil {
			b.logger.Warn("Failed to write trade log", zap.Error(err))
		}
	}
}

func (b *BulkTrader) skipRemaining(ctx context.Context, summary *BulkTradeSummary, rest []Participant) {
	b.logger.Info("Price ceiling reached, skipping remaining wallets",
		zap.String("price", summary.FinalPrice.String()),
		zap.Int("remaining", len(rest)))
	for _, p := range rest {
		b.record(ctx, summary, Outcome{
			Time:       b.now(),
			WalletID:   p.ID,
			WalletName: p.Name,
			Wallet:     p.Wallet.PublicKey,
			PriceAfter: summary.FinalPrice,
			Reason:     ReasonCeilingReached,
		})
	}
}
