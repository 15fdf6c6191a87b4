// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/cointools/internal/blockchain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is a thin rate-limited adapter over the solana-go RPC client.
type Client struct {
	rpc     *rpc.Client
	limiter *rate.Limiter
	logger  *zap.Logger

	confirmPoll    time.Duration
	confirmTimeout time.Duration
}

var (
	ErrAccountNotFound = errors.New("account not found")
)

// IsAccountNotFoundError reports whether err means the account does not exist.
func IsAccountNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) || errors.Is(err, ErrAccountNotFound) {
		return true
	}
	// "Method not found" or an HTTP 404 is a broken endpoint, not a
	// missing account.
	return strings.Contains(strings.ToLower(err.Error()), "could not find account")
}

// ClientOption tweaks a Client at construction.
type ClientOption func(*Client)

// WithRateLimit caps outgoing RPC calls per second. Zero disables the limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithConfirmTimeout sets how long WaitForTransactionConfirmation polls.
func WithConfirmTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.confirmTimeout = timeout
		}
	}
}

// NewClient creates a client for rpcURL.
func NewClient(rpcURL string, logger *zap.Logger, opts ...ClientOption) *Client {
	c := &Client{
		rpc:            rpc.New(rpcURL),
		logger:         logger.Named("solbc-client"),
		confirmPoll:    500 * time.Millisecond,
		confirmTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// GetRecentBlockhash returns the latest finalized blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Hash{}, err
	}
	result, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		c.logger.Error("GetRecentBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetAccountInfo returns rpc.ErrNotFound for missing accounts.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// SendTransactionWithOpts sends a signed transaction.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	if err := c.wait(ctx); err != nil {
		return solana.Signature{}, err
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
		MaxRetries:          opts.MaxRetries,
	})
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetBalance returns the lamport balance of pubkey.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.rpc.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
}

// GetTokenAccountsByOwner lists the SPL token accounts held by owner.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]*rpc.TokenAccount, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		c.logger.Error("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.Error(err))
		return nil, err
	}
	return result.Value, nil
}

// WaitForTransactionConfirmation polls signature status until the transaction
// is confirmed, fails on chain, or the timeout elapses.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, _ rpc.CommitmentType) error {
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()
	timeout := time.After(c.confirmTimeout)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("confirmation timeout for %s", signature)
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %s: %v", blockchain.ErrTransactionFailed, signature, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized ||
				status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed {
				return nil
			}
		}
	}
}

var _ blockchain.Client = (*Client)(nil)
