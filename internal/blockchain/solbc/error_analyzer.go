package solbc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// AnchorError is an error logged by an Anchor program.
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// ProgramError is a custom program error pulled out of a failed
// simulation or transaction.
type ProgramError struct {
	Code             int
	InstructionIndex int
	Anchor           *AnchorError
	Logs             []string
}

func (e *ProgramError) Error() string {
	if e.Anchor != nil && e.Anchor.Name != "" {
		return fmt.Sprintf("program error %d (%s) in instruction %d: %s",
			e.Code, e.Anchor.Name, e.InstructionIndex, e.Anchor.Msg)
	}
	return fmt.Sprintf("program error %d in instruction %d", e.Code, e.InstructionIndex)
}

// ExtractProgramError digs a custom program error out of an RPC error.
// ok is false when err carries none.
func ExtractProgramError(err error) (*ProgramError, bool) {
	if err == nil {
		return nil, false
	}
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe, true
	}

	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Data == nil {
		return nil, false
	}
	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return nil, false
	}

	result := &ProgramError{Code: -1, InstructionIndex: -1}
	if logs, ok := data["logs"].([]interface{}); ok {
		for _, entry := range logs {
			line, ok := entry.(string)
			if !ok {
				continue
			}
			result.Logs = append(result.Logs, line)
			if strings.Contains(line, "AnchorError") {
				anchor := ParseAnchorErrorLog(line)
				result.Anchor = &anchor
			}
		}
	}

	if idx, code, ok := parseInstructionError(data["err"]); ok {
		result.InstructionIndex, result.Code = idx, code
	} else if result.Anchor != nil && result.Anchor.Code != 0 {
		result.Code = result.Anchor.Code
	}
	if result.Code < 0 {
		return nil, false
	}
	return result, true
}

// parseInstructionError reads {"InstructionError":[idx,{"Custom":code}]}.
func parseInstructionError(v interface{}) (int, int, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return 0, 0, false
	}
	pair, ok := m["InstructionError"].([]interface{})
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	idx, ok := toInt(pair[0])
	if !ok {
		return 0, 0, false
	}
	detail, ok := pair[1].(map[string]interface{})
	if !ok {
		return 0, 0, false
	}
	code, ok := toInt(detail["Custom"])
	if !ok {
		return 0, 0, false
	}
	return idx, code, true
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	}
	return 0, false
}

// ParseAnchorErrorLog parses a line such as
// "Program log: AnchorError occurred. Error Code: TooMuchSolRequired. Error Number: 6002. Error Message: slippage."
func ParseAnchorErrorLog(line string) AnchorError {
	var result AnchorError
	if v, ok := anchorField(line, "Error Number:"); ok {
		result.Code, _ = strconv.Atoi(v)
	}
	if v, ok := anchorField(line, "Error Code:"); ok {
		result.Name = v
	}
	if v, ok := anchorField(line, "Error Message:"); ok {
		result.Msg = v
	}
	return result
}

func anchorField(line, label string) (string, bool) {
	_, rest, found := strings.Cut(line, label)
	if !found {
		return "", false
	}
	value, _, _ := strings.Cut(rest, ".")
	return strings.TrimSpace(value), true
}
