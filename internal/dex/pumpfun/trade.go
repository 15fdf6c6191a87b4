// =============================
// File: internal/dex/pumpfun/trade.go
// =============================
package pumpfun

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Submitter signs, sends and optionally confirms a transaction. A non-zero
// signature returned with an error wrapping ErrUnconfirmed means the
// transaction was broadcast and may land.
type Submitter interface {
	Submit(ctx context.Context, signer *wallet.Wallet, instructions []solana.Instruction, confirm bool) (solana.Signature, error)
}

// AccountReader is the chain state the executor checks before trading.
type AccountReader interface {
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	SolBalance(ctx context.Context, owner solana.PublicKey) (decimal.Decimal, error)
}

// Executor performs single-wallet buys and sells on pump.fun.
type Executor struct {
	config    *Config
	reader    AccountReader
	submitter Submitter
	logger    *zap.Logger
}

func NewExecutor(config *Config, reader AccountReader, submitter Submitter, logger *zap.Logger) *Executor {
	if config == nil {
		config = GetDefaultConfig()
	}
	return &Executor{
		config:    config,
		reader:    reader,
		submitter: submitter,
		logger:    logger.Named("pumpfun-executor"),
	}
}

// swapPlan is a quoted trade ready to be encoded.
type swapPlan struct {
	solAmount   decimal.Decimal
	tokenAmount decimal.Decimal
	amountRaw   uint64
	limit       uint64
	solNeeded   decimal.Decimal // SOL leaving the wallet besides fees
}

func (e *Executor) plan(intent TradeIntent, snap Snapshot) (swapPlan, error) {
	switch intent.Action {
	case ActionBuy:
		exact, err := snap.Curve.quoteBuyExact(intent.SolAmount)
		if err != nil {
			return swapPlan{}, err
		}
		tokens := exact.RoundBank(0)
		if !tokens.IsPositive() {
			return swapPlan{}, fmt.Errorf("%w: %s SOL buys no whole token", ErrAmountTooSmall, intent.SolAmount)
		}
		// rounding up must stay within what slippage already allows
		if tokens.GreaterThan(types.InflateByBps(exact, intent.SlippageBps)) {
			return swapPlan{}, fmt.Errorf("%w: %s SOL buys %s tokens, rounded up to %s",
				ErrAmountTooSmall, intent.SolAmount, exact.StringFixed(6), tokens)
		}
		amountRaw, err := ToRawAmount(tokens, snap.Decimals)
		if err != nil {
			return swapPlan{}, err
		}
		maxCost, err := types.SOLToLamports(types.InflateByBps(intent.SolAmount, intent.SlippageBps))
		if err != nil {
			return swapPlan{}, fmt.Errorf("%w: max SOL cost: %w", ErrQuoteOverflow, err)
		}
		return swapPlan{
			solAmount:   intent.SolAmount,
			tokenAmount: tokens,
			amountRaw:   amountRaw,
			limit:       maxCost,
			solNeeded:   intent.SolAmount,
		}, nil

	case ActionSell:
		solOut, err := snap.Curve.QuoteSell(intent.TokenAmount)
		if err != nil {
			return swapPlan{}, err
		}
		amountRaw, err := ToRawAmount(intent.TokenAmount, snap.Decimals)
		if err != nil {
			return swapPlan{}, err
		}
		if amountRaw == 0 {
			return swapPlan{}, fmt.Errorf("%w: %s tokens is below one raw unit", ErrAmountTooSmall, intent.TokenAmount)
		}
		minOut, err := types.SOLToLamports(types.DeflateByBps(solOut, intent.SlippageBps))
		if err != nil {
			return swapPlan{}, fmt.Errorf("%w: min SOL output: %w", ErrQuoteOverflow, err)
		}
		return swapPlan{
			solAmount:   solOut,
			tokenAmount: intent.TokenAmount,
			amountRaw:   amountRaw,
			limit:       minOut,
			solNeeded:   decimal.Zero,
		}, nil
	}
	return swapPlan{}, fmt.Errorf("unknown action %q", intent.Action)
}

// Preview quotes intent against snap and encodes its limit without reading
// or writing chain state.
func (e *Executor) Preview(intent TradeIntent, snap Snapshot) (*TradeResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if err := snap.Curve.Tradable(); err != nil {
		return nil, err
	}
	plan, err := e.plan(intent, snap)
	if err != nil {
		return nil, err
	}
	return &TradeResult{
		Action:         intent.Action,
		SolAmount:      plan.solAmount,
		TokenAmount:    plan.tokenAmount,
		TokenAmountRaw: plan.amountRaw,
		LimitLamports:  plan.limit,
	}, nil
}

// Execute runs intent against snap for signer. The curve in snap prices the
// trade; the caller decides whether that is a fresh read or a projection.
// When the swap was sent but not confirmed both a result (Unconfirmed set)
// and an error wrapping ErrUnconfirmed are returned.
func (e *Executor) Execute(ctx context.Context, intent TradeIntent, snap Snapshot, signer *wallet.Wallet) (*TradeResult, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if !signer.PublicKey.Equals(intent.Wallet) {
		return nil, fmt.Errorf("signer %s does not match intent wallet %s", signer.PublicKey, intent.Wallet)
	}
	if err := snap.Curve.Tradable(); err != nil {
		return nil, err
	}

	plan, err := e.plan(intent, snap)
	if err != nil {
		return nil, err
	}

	instructions := intent.ComputeBudget.Instructions(intent.PriorityFee)

	createATA, err := e.needsATA(ctx, signer, snap.Accounts.Mint)
	if err != nil {
		return nil, err
	}
	if createATA {
		if err := e.checkRentReserve(ctx, intent.Wallet, plan.solNeeded); err != nil {
			return nil, err
		}
		ix, err := wallet.CreateATAIdempotentInstruction(intent.Wallet, intent.Wallet, snap.Accounts.Mint)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ix)
	}

	var swapIx solana.Instruction
	if intent.Action == ActionBuy {
		swapIx, err = BuildBuyInstruction(e.config, snap.Accounts, intent.Wallet, plan.amountRaw, plan.limit)
	} else {
		swapIx, err = BuildSellInstruction(e.config, snap.Accounts, intent.Wallet, plan.amountRaw, plan.limit)
	}
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, swapIx)

	e.logger.Debug("Submitting swap",
		zap.String("wallet", intent.Wallet.String()),
		zap.String("action", string(intent.Action)),
		zap.String("sol_amount", plan.solAmount.String()),
		zap.String("token_amount", plan.tokenAmount.String()),
		zap.Uint64("amount_raw", plan.amountRaw),
		zap.Uint64("limit_lamports", plan.limit),
		zap.Bool("create_ata", createATA))

	sig, err := e.submitter.Submit(ctx, signer, instructions, intent.Confirm)
	sent := sig != (solana.Signature{})
	if err != nil && (!sent || !errors.Is(err, ErrUnconfirmed)) {
		return nil, classifySubmitError(err, intent, plan.limit)
	}

	result := &TradeResult{
		Signature:      sig,
		Action:         intent.Action,
		SolAmount:      plan.solAmount,
		TokenAmount:    plan.tokenAmount,
		TokenAmountRaw: plan.amountRaw,
		LimitLamports:  plan.limit,
		CreatedATA:     createATA,
		Unconfirmed:    err != nil,
	}
	if err != nil {
		e.logger.Warn("Transaction sent but not confirmed",
			zap.String("wallet", intent.Wallet.String()),
			zap.String("action", string(intent.Action)),
			zap.String("signature", sig.String()),
			zap.Error(err))
		return result, err
	}

	e.logger.Info("Transaction sent",
		zap.String("wallet", intent.Wallet.String()),
		zap.String("action", string(intent.Action)),
		zap.String("signature", sig.String()))
	return result, nil
}

func (e *Executor) needsATA(ctx context.Context, signer *wallet.Wallet, mint solana.PublicKey) (bool, error) {
	ata, err := signer.GetATA(mint)
	if err != nil {
		return false, fmt.Errorf("failed to derive token account: %w", err)
	}
	exists, err := e.reader.AccountExists(ctx, ata)
	if err != nil {
		return false, fmt.Errorf("%w: token account %s: %w", ErrChainRead, ata, err)
	}
	return !exists, nil
}

// checkRentReserve requires APPROX_RENT on top of the SOL the trade spends.
func (e *Executor) checkRentReserve(ctx context.Context, owner solana.PublicKey, spend decimal.Decimal) error {
	balance, err := e.reader.SolBalance(ctx, owner)
	if err != nil {
		return fmt.Errorf("%w: SOL balance: %w", ErrChainRead, err)
	}
	required := spend.Add(types.ApproxRent)
	if balance.LessThan(required) {
		return fmt.Errorf("%w: balance %s SOL, need %s SOL", ErrInsufficientRentReserve, balance, required)
	}
	return nil
}
