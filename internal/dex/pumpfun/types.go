// =============================
// File: internal/dex/pumpfun/types.go
// =============================
package pumpfun

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/cointools/internal/types"
	"github.com/shopspring/decimal"
)

// BondingCurve is the raw bonding-curve account as stored on chain.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// CurveAccounts are the per-mint accounts every swap references.
type CurveAccounts struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
}

// Snapshot is a curve read at a point in time together with what is needed
// to trade against it.
type Snapshot struct {
	Accounts CurveAccounts
	Curve    Curve
	Decimals uint8
}

// WithCurve returns a copy of s priced by curve. Bulk runs use it to trade
// against their projected curve.
func (s Snapshot) WithCurve(curve Curve) Snapshot {
	s.Curve = curve
	return s
}

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// TradeParams are the execution settings shared by every intent of a run.
type TradeParams struct {
	SlippageBps   uint16
	ComputeBudget types.ComputeBudget
	PriorityFee   decimal.Decimal // SOL, optional
	Confirm       bool
}

// TradeIntent describes one trade by one wallet. Exactly one of SolAmount
// (buy) and TokenAmount (sell) is set.
type TradeIntent struct {
	Wallet      solana.PublicKey
	Action      Action
	SolAmount   decimal.Decimal
	TokenAmount decimal.Decimal
	TradeParams
}

// NewBuyIntent builds a buy of sol SOL.
func NewBuyIntent(wallet solana.PublicKey, sol decimal.Decimal, params TradeParams) (TradeIntent, error) {
	intent := TradeIntent{Wallet: wallet, Action: ActionBuy, SolAmount: sol, TradeParams: params}
	return intent, intent.Validate()
}

// NewSellIntent builds a sell of tokens whole tokens.
func NewSellIntent(wallet solana.PublicKey, tokens decimal.Decimal, params TradeParams) (TradeIntent, error) {
	intent := TradeIntent{Wallet: wallet, Action: ActionSell, TokenAmount: tokens, TradeParams: params}
	return intent, intent.Validate()
}

// Validate checks the amount matches the action and is strictly positive.
func (i TradeIntent) Validate() error {
	if i.Wallet.IsZero() {
		return errors.New("trade intent has no wallet")
	}
	switch i.Action {
	case ActionBuy:
		if !i.SolAmount.IsPositive() {
			return fmt.Errorf("buy amount must be positive, got %s SOL", i.SolAmount)
		}
		if !i.TokenAmount.IsZero() {
			return errors.New("buy intent must not set a token amount")
		}
	case ActionSell:
		if !i.TokenAmount.IsPositive() {
			return fmt.Errorf("sell amount must be positive, got %s tokens", i.TokenAmount)
		}
		if !i.SolAmount.IsZero() {
			return errors.New("sell intent must not set a SOL amount")
		}
	default:
		return fmt.Errorf("unknown action %q", i.Action)
	}
	if i.SlippageBps > types.BpsDenominator {
		return fmt.Errorf("slippage %d bps exceeds 100%%", i.SlippageBps)
	}
	return nil
}

// TradeResult reports an executed trade. SolAmount and TokenAmount are the
// quoted amounts; they are what a projection applies. Unconfirmed is set
// when the transaction was sent but its confirmation failed.
type TradeResult struct {
	Signature      solana.Signature
	Action         Action
	SolAmount      decimal.Decimal
	TokenAmount    decimal.Decimal
	TokenAmountRaw uint64
	LimitLamports  uint64 // max cost for a buy, min proceeds for a sell
	CreatedATA     bool
	Unconfirmed    bool
}
