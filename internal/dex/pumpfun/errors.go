// =============================
// File: internal/dex/pumpfun/errors.go
// =============================
package pumpfun

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rovshanmuradov/cointools/internal/blockchain"
	"github.com/rovshanmuradov/cointools/internal/blockchain/solbc"
)

var (
	// ErrCurveUnavailable means the curve has no tradable price.
	ErrCurveUnavailable = errors.New("curve unavailable: no tradable price")
	// ErrCurveBonded means the token graduated and pump.fun refuses trades.
	ErrCurveBonded = errors.New("curve bonded: token is no longer tradeable on pump.fun")
	// ErrInsufficientBalance means neither a buy nor a sell is affordable.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientRentReserve means the token account cannot be created.
	ErrInsufficientRentReserve = errors.New("insufficient SOL to create token account")
	// ErrSubmissionFailed means the chain or RPC node rejected the transaction.
	ErrSubmissionFailed = errors.New("transaction submission failed")
	// ErrUnconfirmed means the swap was broadcast but not confirmed. The
	// TradeResult returned with it carries the signature.
	ErrUnconfirmed = blockchain.ErrUnconfirmed
	// ErrQuoteOverflow means an amount does not fit the u64 wire encoding.
	ErrQuoteOverflow = errors.New("quote exceeds u64 range")
	// ErrAmountTooSmall means the trade rounds down to nothing.
	ErrAmountTooSmall = errors.New("trade amount too small")
	// ErrChainRead means an account or balance read failed.
	ErrChainRead = errors.New("chain read failed")
)

// IsRecoverable reports whether err only affects the current wallet. Bulk
// runs continue past recoverable errors and abort on everything else.
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrCurveBonded),
		errors.Is(err, ErrCurveUnavailable),
		errors.Is(err, ErrChainRead):
		return false
	}
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientRentReserve) ||
		errors.Is(err, ErrSubmissionFailed) ||
		errors.Is(err, ErrUnconfirmed) ||
		errors.Is(err, ErrQuoteOverflow) ||
		errors.Is(err, ErrAmountTooSmall)
}

// Program error codes raised by the bonding-curve program.
const (
	TooMuchSolRequiredCode   = 6002
	TooLittleSolReceivedCode = 6003
	BondingCurveCompleteCode = 6005
)

// SlippageExceededError is returned when the program rejects a swap because
// the price moved past the slippage limit.
type SlippageExceededError struct {
	Action        Action
	SlippageBps   uint16
	LimitLamports uint64
	OriginalError error
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded on %s (limit %d lamports, tolerance %d bps): %v",
		e.Action, e.LimitLamports, e.SlippageBps, e.OriginalError)
}

func (e *SlippageExceededError) Unwrap() error {
	return e.OriginalError
}

func containsProgramError(err error, name string, code int) bool {
	if pe, ok := solbc.ExtractProgramError(err); ok {
		return pe.Code == code
	}
	msg := err.Error()
	return strings.Contains(msg, name) ||
		strings.Contains(msg, fmt.Sprintf("0x%x", code)) ||
		strings.Contains(msg, "Custom:"+strconv.Itoa(code)) ||
		strings.Contains(msg, "Error Number: "+strconv.Itoa(code))
}

// classifySubmitError maps a submitter error to the taxonomy. The result
// always wraps ErrSubmissionFailed; a graduated curve additionally wraps
// ErrCurveBonded so the run stops.
func classifySubmitError(err error, intent TradeIntent, limit uint64) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch {
	case containsProgramError(err, "BondingCurveComplete", BondingCurveCompleteCode):
		return fmt.Errorf("%w: %w: %w", ErrSubmissionFailed, ErrCurveBonded, err)
	case containsProgramError(err, "TooMuchSolRequired", TooMuchSolRequiredCode),
		containsProgramError(err, "TooLittleSolReceived", TooLittleSolReceivedCode):
		return fmt.Errorf("%w: %w", ErrSubmissionFailed, &SlippageExceededError{
			Action:        intent.Action,
			SlippageBps:   intent.SlippageBps,
			LimitLamports: limit,
			OriginalError: err,
		})
	}
	return fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
}
