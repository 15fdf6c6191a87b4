package solbc

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/cointools/internal/blockchain"
)

// fakeClient serves accounts and balances from memory.
type fakeClient struct {
	blockchain.Client

	mu            sync.Mutex
	accounts      map[solana.PublicKey][]byte
	lamports      map[solana.PublicKey]uint64
	tokenBalances map[solana.PublicKey]*rpc.UiTokenAmount
	tokenAccounts []*rpc.TokenAccount
	accountCalls  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		accounts:      map[solana.PublicKey][]byte{},
		lamports:      map[solana.PublicKey]uint64{},
		tokenBalances: map[solana.PublicKey]*rpc.UiTokenAmount{},
	}
}

func (c *fakeClient) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accountCalls++
	data, ok := c.accounts[pubkey]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
	}, nil
}

func (c *fakeClient) GetBalance(_ context.Context, pubkey solana.PublicKey, _ rpc.CommitmentType) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lamports[pubkey], nil
}

func (c *fakeClient) GetTokenAccountBalance(_ context.Context, account solana.PublicKey) (*rpc.GetTokenAccountBalanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	amount, ok := c.tokenBalances[account]
	if !ok {
		return nil, &rpcNotFound{}
	}
	return &rpc.GetTokenAccountBalanceResult{Value: amount}, nil
}

func (c *fakeClient) GetTokenAccountsByOwner(_ context.Context, _ solana.PublicKey) ([]*rpc.TokenAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenAccounts, nil
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accountCalls
}

type rpcNotFound struct{}

func (*rpcNotFound) Error() string {
	return "Invalid param: could not find account"
}

// encodeMint lays out an 82-byte SPL mint with no authorities.
func encodeMint(decimals uint8, supply uint64) []byte {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1
	return data
}

// encodeMetaplex lays out the leading fields of a MetadataV1 account with
// fixed-width padded strings.
func encodeMetaplex(mint solana.PublicKey, name, symbol, uri string) []byte {
	data := []byte{metadataV1Key}
	data = append(data, make([]byte, 32)...)
	data = append(data, mint.Bytes()...)
	for _, field := range []struct {
		value string
		width int
	}{{name, 32}, {symbol, 10}, {uri, 200}} {
		padded := make([]byte, field.width)
		copy(padded, field.value)
		data = binary.LittleEndian.AppendUint32(data, uint32(field.width))
		data = append(data, padded...)
	}
	return append(data, 0, 0)
}

// encodeTokenAccount lays out a 165-byte initialized SPL token account.
func encodeTokenAccount(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1
	return data
}
