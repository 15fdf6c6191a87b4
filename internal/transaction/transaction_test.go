package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/cointools/internal/blockchain"
	"github.com/rovshanmuradov/cointools/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sendClient struct {
	blockchain.Client

	mu         sync.Mutex
	hashes     int
	sendErrs   []error
	sent       []*solana.Transaction
	confirmErr error
	confirmed  int
}

// GetRecentBlockhash hands out a new hash on every call, so a re-signed
// transaction always gets a new signature.
func (c *sendClient) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes++
	return solana.Hash{1, 2, byte(c.hashes)}, nil
}

func (c *sendClient) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ blockchain.TransactionOptions) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, tx)
	if len(c.sendErrs) > 0 {
		err := c.sendErrs[0]
		c.sendErrs = c.sendErrs[1:]
		if err != nil {
			return solana.Signature{}, err
		}
	}
	return tx.Signatures[0], nil
}

func (c *sendClient) WaitForTransactionConfirmation(context.Context, solana.Signature, rpc.CommitmentType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirmed++
	return c.confirmErr
}

func newSigner(t *testing.T) (*wallet.Wallet, []solana.Instruction) {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	ix := system.NewTransferInstruction(1000, w.PublicKey, solana.NewWallet().PublicKey()).Build()
	return w, []solana.Instruction{ix}
}

func fastSubmitter(client blockchain.Client) *Submitter {
	return NewSubmitter(client, zap.NewNop(),
		WithMaxElapsed(time.Second),
		WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }),
	)
}

func TestSubmitSignsAndSends(t *testing.T) {
	client := &sendClient{}
	signer, ixs := newSigner(t)

	sig, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, false)
	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	assert.Equal(t, client.sent[0].Signatures[0], sig)
	assert.Equal(t, signer.PublicKey, client.sent[0].Message.AccountKeys[0])
	assert.Zero(t, client.confirmed)
}

func TestSubmitRetriesStaleBlockhash(t *testing.T) {
	client := &sendClient{sendErrs: []error{errors.New("Transaction simulation failed: BlockhashNotFound"), nil}}
	signer, ixs := newSigner(t)

	sig, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, true)
	require.NoError(t, err)
	require.Len(t, client.sent, 2)
	assert.Equal(t, 2, client.hashes)
	assert.NotEqual(t, client.sent[0].Signatures[0], client.sent[1].Signatures[0])
	assert.Equal(t, client.sent[1].Signatures[0], sig)
	assert.Equal(t, 1, client.confirmed)
}

func TestSubmitResendsSameTransactionOnTimeout(t *testing.T) {
	client := &sendClient{sendErrs: []error{
		errors.New("Post \"https://rpc\": context deadline exceeded (Client.Timeout exceeded while awaiting headers)"),
		errors.New("read tcp: connection reset by peer"),
		nil,
	}}
	signer, ixs := newSigner(t)

	sig, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, false)
	require.NoError(t, err)
	require.Len(t, client.sent, 3)
	assert.Equal(t, 1, client.hashes)
	for _, tx := range client.sent {
		assert.Equal(t, sig, tx.Signatures[0])
	}
}

func TestSubmitAlreadyProcessedAfterTimeout(t *testing.T) {
	client := &sendClient{sendErrs: []error{
		errors.New("request timeout"),
		errors.New("Transaction simulation failed: This transaction has already been processed"),
	}}
	signer, ixs := newSigner(t)

	sig, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, false)
	require.NoError(t, err)
	require.Len(t, client.sent, 2)
	assert.Equal(t, client.sent[0].Signatures[0], sig)
}

func TestSubmitAmbiguousFailureKeepsSignature(t *testing.T) {
	client := &sendClient{sendErrs: []error{
		errors.New("request timeout"),
		errors.New("custom program error: 0x1772"),
	}}
	signer, ixs := newSigner(t)

	sig, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, false)
	assert.ErrorIs(t, err, ErrConfirmation)
	require.Len(t, client.sent, 2)
	assert.Equal(t, client.sent[0].Signatures[0], sig)
}

func TestSubmitRateLimitedIsNotDelivered(t *testing.T) {
	var errs []error
	for i := 0; i < 200; i++ {
		errs = append(errs, errors.New("HTTP 429 Too Many Requests"))
	}
	client := &sendClient{sendErrs: errs}
	signer, ixs := newSigner(t)

	s := NewSubmitter(client, zap.NewNop(),
		WithMaxElapsed(20*time.Millisecond),
		WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }),
	)
	sig, err := s.Submit(context.Background(), signer, ixs, false)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConfirmation)
	assert.Equal(t, solana.Signature{}, sig)
}

func TestSubmitPermanentFailure(t *testing.T) {
	client := &sendClient{sendErrs: []error{errors.New("custom program error: 0x1772")}}
	signer, ixs := newSigner(t)

	_, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0x1772")
	assert.Len(t, client.sent, 1)
}

func TestSubmitConfirmationFailure(t *testing.T) {
	client := &sendClient{confirmErr: errors.New("confirmation timeout")}
	signer, ixs := newSigner(t)

	sig, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, true)
	assert.ErrorIs(t, err, ErrConfirmation)
	assert.NotEqual(t, solana.Signature{}, sig)
}

func TestSubmitFailedOnChainIsNotUnconfirmed(t *testing.T) {
	client := &sendClient{confirmErr: fmt.Errorf("%w: sig: map[InstructionError:[3 map[Custom:6002]]]", blockchain.ErrTransactionFailed)}
	signer, ixs := newSigner(t)

	sig, err := fastSubmitter(client).Submit(context.Background(), signer, ixs, true)
	assert.ErrorIs(t, err, blockchain.ErrTransactionFailed)
	assert.NotErrorIs(t, err, ErrConfirmation)
	assert.NotEqual(t, solana.Signature{}, sig)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("blockhash not found")))
	assert.True(t, isRetryable(errors.New("HTTP 429 Too Many Requests")))
	assert.True(t, isRetryable(errors.New("context deadline exceeded (Client.Timeout exceeded while awaiting headers)")))
	assert.True(t, isBlockhashExpired(errors.New("BlockhashNotFound")))
	assert.False(t, isBlockhashExpired(errors.New("request timeout")))
	assert.False(t, isRetryable(errors.New("insufficient funds for rent")))
	assert.False(t, isRetryable(context.Canceled))
}
