package solbc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractProgramErrorFromSimulation(t *testing.T) {
	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 3: custom program error: 0x1772",
		Data: map[string]interface{}{
			"err": map[string]interface{}{
				"InstructionError": []interface{}{float64(3), map[string]interface{}{"Custom": float64(6002)}},
			},
			"logs": []interface{}{
				"Program log: Instruction: Buy",
				"Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage: Too much SOL required to buy the given amount of tokens.",
			},
		},
	}

	pe, ok := ExtractProgramError(fmt.Errorf("send: %w", rpcErr))
	require.True(t, ok)
	assert.Equal(t, 6002, pe.Code)
	assert.Equal(t, 3, pe.InstructionIndex)
	require.NotNil(t, pe.Anchor)
	assert.Equal(t, "TooMuchSolRequired", pe.Anchor.Name)
	assert.Len(t, pe.Logs, 2)
}

func TestExtractProgramErrorNone(t *testing.T) {
	_, ok := ExtractProgramError(errors.New("connection reset"))
	assert.False(t, ok)

	_, ok = ExtractProgramError(&jsonrpc.RPCError{Code: -32005, Message: "node is behind"})
	assert.False(t, ok)
}

func TestParseAnchorErrorLog(t *testing.T) {
	got := ParseAnchorErrorLog("Program log: AnchorError occurred. Error Code: BondingCurveComplete. Error Number: 6005. Error Message: The bonding curve has completed and liquidity migrated to raydium.")
	assert.Equal(t, AnchorError{Code: 6005, Name: "BondingCurveComplete", Msg: "The bonding curve has completed and liquidity migrated to raydium"}, got)
}
