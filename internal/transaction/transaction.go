// internal/transaction/transaction.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/cointools/internal/blockchain"
	"github.com/rovshanmuradov/cointools/internal/blockchain/solbc"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"go.uber.org/zap"
)

const DefaultMaxElapsed = 15 * time.Second

// ErrConfirmation means the transaction was sent but did not confirm. The
// signature returned with it may still land.
var ErrConfirmation = blockchain.ErrUnconfirmed

// Submitter builds, signs and sends transactions. Transient RPC failures
// resend the same signed transaction; only an expired blockhash, which
// proves the earlier copy can never land, causes a re-sign.
type Submitter struct {
	client     blockchain.Client
	logger     *zap.Logger
	maxElapsed time.Duration
	newBackOff func() backoff.BackOff
	sendOpts   blockchain.TransactionOptions
}

type Option func(*Submitter)

// WithMaxElapsed bounds the total time spent retrying one submission.
func WithMaxElapsed(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.maxElapsed = d
		}
	}
}

// WithBackOff replaces the exponential retry schedule.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(s *Submitter) { s.newBackOff = factory }
}

// WithSkipPreflight disables simulation before sending.
func WithSkipPreflight(skip bool) Option {
	return func(s *Submitter) { s.sendOpts.SkipPreflight = skip }
}

func NewSubmitter(client blockchain.Client, logger *zap.Logger, opts ...Option) *Submitter {
	s := &Submitter{
		client:     client,
		logger:     logger.Named("submitter"),
		maxElapsed: DefaultMaxElapsed,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		sendOpts: blockchain.TransactionOptions{
			PreflightCommitment: rpc.CommitmentConfirmed,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends instructions paid and signed by signer. With confirm set it
// also waits for the transaction to reach confirmed commitment.
//
// A non-zero signature returned together with an error means the
// transaction was broadcast, or may have been, and its outcome is unknown;
// such errors wrap ErrConfirmation.
func (s *Submitter) Submit(ctx context.Context, signer *wallet.Wallet, instructions []solana.Instruction, confirm bool) (solana.Signature, error) {
	var (
		tx      *solana.Transaction
		attempt int
		// maybeSent is set once a send of the current tx failed in a way
		// that does not rule out delivery.
		maybeSent bool
	)
	op := func() (solana.Signature, error) {
		attempt++
		if tx == nil {
			signed, err := s.createSignedTransaction(ctx, signer, instructions)
			if err != nil {
				return solana.Signature{}, err
			}
			tx, maybeSent = signed, false
		}
		sig, err := s.client.SendTransactionWithOpts(ctx, tx, s.sendOpts)
		if err == nil {
			return sig, nil
		}
		switch {
		case maybeSent && isAlreadyProcessed(err):
			// an earlier send of this tx landed
			return tx.Signatures[0], nil
		case isBlockhashExpired(err):
			s.logger.Warn("Blockhash expired, signing again",
				zap.Int("attempt", attempt),
				zap.Error(err))
			tx = nil
			return solana.Signature{}, err
		case isRetryable(err):
			s.logger.Warn("Resending transaction",
				zap.Int("attempt", attempt),
				zap.String("signature", tx.Signatures[0].String()),
				zap.Error(err))
			maybeSent = maybeSent || !isRejected(err)
			return solana.Signature{}, err
		}
		if maybeSent && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return solana.Signature{}, backoff.Permanent(err)
		}
		return solana.Signature{}, backoff.Permanent(fmt.Errorf("transaction failed: %w", err))
	}

	sig, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxElapsedTime(s.maxElapsed),
	)
	if err != nil {
		s.logProgramError(err)
		if tx != nil && maybeSent {
			sent := tx.Signatures[0]
			s.logger.Warn("Transaction may have been delivered",
				zap.String("signature", sent.String()),
				zap.Error(err))
			return sent, fmt.Errorf("%w: %s: %w", ErrConfirmation, sent, err)
		}
		return solana.Signature{}, err
	}

	s.logger.Debug("Transaction sent",
		zap.String("signature", sig.String()),
		zap.String("payer", signer.PublicKey.String()),
		zap.Int("attempts", attempt))

	if !confirm {
		return sig, nil
	}
	if err := s.client.WaitForTransactionConfirmation(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		if errors.Is(err, blockchain.ErrTransactionFailed) {
			s.logProgramError(err)
			return sig, fmt.Errorf("transaction failed: %w", err)
		}
		return sig, fmt.Errorf("%w: %s: %w", ErrConfirmation, sig, err)
	}
	s.logger.Debug("Transaction confirmed", zap.String("signature", sig.String()))
	return sig, nil
}

func (s *Submitter) createSignedTransaction(ctx context.Context, signer *wallet.Wallet, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := s.client.GetRecentBlockhash(ctx)
	if err != nil {
		if isRetryable(err) {
			return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
		}
		return nil, backoff.Permanent(fmt.Errorf("failed to get recent blockhash: %w", err))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(signer.PublicKey))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
	}

	if err := signer.SignTransaction(tx); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
	}
	return tx, nil
}

func (s *Submitter) logProgramError(err error) {
	pe, ok := solbc.ExtractProgramError(err)
	if !ok {
		return
	}
	fields := []zap.Field{
		zap.Int("code", pe.Code),
		zap.Int("instruction", pe.InstructionIndex),
	}
	if pe.Anchor != nil {
		fields = append(fields, zap.String("name", pe.Anchor.Name), zap.String("message", pe.Anchor.Msg))
	}
	s.logger.Warn("Program rejected transaction", fields...)
}

func isBlockhashExpired(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "blockhashnotfound") || strings.Contains(msg, "blockhash not found")
}

func isAlreadyProcessed(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "alreadyprocessed") || strings.Contains(msg, "already been processed")
}

// isRejected reports transient errors where the node answered without
// accepting the transaction.
func isRejected(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "node is behind")
}

// isRetryable reports errors worth another attempt. Blockhash expiry is
// retried with a fresh signature, everything else with the same one.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if _, ok := solbc.ExtractProgramError(err); ok {
		return false
	}
	if isBlockhashExpired(err) || isRejected(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "timeout")
}
