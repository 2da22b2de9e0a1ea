// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package juice

import (
	"encoding/json"
	"fmt"
	"strings"
)

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package juice

// Interpreter is a component capable of executing contract byte-code. The
// generator delegates the execution of every frame of a transaction to an
// interpreter. To obtain an Interpreter instance, client code should use
// NewInterpreter() provided by the registry file in this package.
type Interpreter interface {
	// Run executes the code provided by the parameters in the specified
	// context and returns the processing result. The resulting error is nil
	// whenever the code was correctly executed, even if the execution was
	// aborted due to a code-internal issue. Errors are reserved for
	// conditions aborting the whole transaction, in particular an exhausted
	// cycle meter. Interpreters are required to be thread-safe.
	Run(Parameters) (Result, error)
}

// Parameters summarizes the list of input parameters required for executing
// code.
type Parameters struct {
	BlockParameters
	TransactionParameters
	Context   RunContext
	Meter     *CycleMeter
	Kind      CallKind
	Static    bool
	Depth     int
	Gas       Gas
	Recipient Address
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash
	Code      Code
}

// BlockParameters contains information about the current block.
type BlockParameters struct {
	ChainID     Word
	BlockNumber int64
	Timestamp   int64
	Coinbase    Address
	GasLimit    Gas
}

// TransactionParameters contains information about the current transaction.
type TransactionParameters struct {
	Origin   Address
	GasPrice Value
}

// RunContext provides an interface to access and manipulate state and
// transaction properties as needed by individual instructions. All
// modifications are buffered by the generator and only become visible in
// the state through the resulting write-set.
type RunContext interface {
	AccountExists(Address) bool
	GetBalance(Address) Value
	GetCode(Address) Code
	GetCodeHash(Address) Hash
	GetCodeSize(Address) int

	GetStorage(Address, Key) Word
	// SetStorage updates a slot and returns its previous value.
	SetStorage(Address, Key, Word) Word

	// GetBlockHash returns the hash of the block with the given number or
	// a zero hash if it is not an ancestor of the current block.
	GetBlockHash(number int64) Hash

	EmitLog(Log)

	Call(kind CallKind, parameter CallParameters) (CallResult, error)
}

// Result summarizes the result of a code execution.
type Result struct {
	Success bool // false if the execution ended in a revert or failure
	Output  Data
	GasLeft Gas
}

// CallKind is an enum enabling the differentiation of the different types
// of nested contract calls.
type CallKind int

const (
	Call CallKind = iota
	DelegateCall
	StaticCall
	CallCode
	Create
	Create2
)

type CallParameters struct {
	Sender      Address
	Recipient   Address // < not relevant for CREATE and CREATE2
	Value       Value   // < ignored by static calls, considered to be 0
	Input       Data
	Gas         Gas
	Salt        Hash // < only relevant for CREATE2 calls
	CodeAddress Address
}

type CallResult struct {
	Output         Data
	GasLeft        Gas
	CreatedAddress Address // < only meaningful for CREATE and CREATE2
	Success        bool
}

func (k CallKind) String() string {
	switch k {
	case Call:
		return "call"
	case StaticCall:
		return "static_call"
	case DelegateCall:
		return "delegate_call"
	case CallCode:
		return "call_code"
	case Create:
		return "create"
	case Create2:
		return "create2"
	default:
		return "unknown"
	}
}

func (k CallKind) MarshalJSON() ([]byte, error) {
	switch k {
	case Call, StaticCall, DelegateCall, CallCode, Create, Create2:
		return json.Marshal(k.String())
	default:
		return nil, fmt.Errorf("invalid call kind: %v", k)
	}
}

func (k *CallKind) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err != nil {
		return err
	}
	switch strings.ToLower(kind) {
	case "call":
		*k = Call
	case "static_call":
		*k = StaticCall
	case "delegate_call":
		*k = DelegateCall
	case "call_code":
		*k = CallCode
	case "create":
		*k = Create
	case "create2":
		*k = Create2
	default:
		return fmt.Errorf("unknown call kind: %s", kind)
	}
	return nil
}
