// internal/blockchain/types.go
package blockchain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrUnconfirmed means a transaction was broadcast but its outcome is
	// unknown. It may still land.
	ErrUnconfirmed = errors.New("transaction sent but not confirmed")
	// ErrTransactionFailed means the transaction landed and the chain
	// reported an execution error. No state changed besides the fee.
	ErrTransactionFailed = errors.New("transaction failed on chain")
)

// TransactionOptions controls how a signed transaction is sent.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
	MaxRetries          *uint
}

// Client is the subset of Solana RPC the toolkit relies on.
type Client interface {
	GetRecentBlockhash(ctx context.Context) (solana.Hash, error)
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error)
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey) ([]*rpc.TokenAccount, error)
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error
}
