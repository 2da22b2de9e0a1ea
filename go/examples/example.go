// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package examples provides contracts exercising the execution pipeline
// end to end. Each example is deployed on a private in-memory chain and
// called through the generator, so results cover argument decoding,
// interpretation and write-set assembly alike.
package examples

import (
	"fmt"
	"math"
	"strings"

	"github.com/Fantom-foundation/Juice/go/chain"
	"github.com/Fantom-foundation/Juice/go/generator"
	"github.com/Fantom-foundation/Juice/go/interpreter/evm"
	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/Fantom-foundation/Juice/go/state"
	"golang.org/x/exp/slices"
)

// Example is a contract with an entry point of the form (int)->int and a
// reference function computing the same result natively.
type Example struct {
	Name      string
	Code      []byte        // runtime code of the contract
	selector  uint32        // selector of the entry point
	reference func(int) int // native implementation of the entry point
}

type Result struct {
	Result  int
	GasUsed juice.Gas
	Cycles  juice.Cycles
}

// All returns all available examples ordered by name.
func All() []Example {
	res := []Example{
		GetArithmeticExample(),
		GetGasBurnerExample(),
		GetSha3Example(),
		GetCallDataCopyExample(),
		GetJumpdestAnalysisExample(),
		GetStopAnalysisExample(),
		GetPush1AnalysisExample(),
		GetPush32AnalysisExample(),
	}
	slices.SortFunc(res, func(a, b Example) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res
}

// Get looks up an example by name.
func Get(name string) (Example, bool) {
	for _, example := range All() {
		if example.Name == name {
			return example, true
		}
	}
	return Example{}, false
}

// RunReference computes the expected result for the given argument.
func (e Example) RunReference(argument int) int {
	return e.reference(argument)
}

const (
	callerAccount = juice.AccountID(2)
	deployGas     = juice.Gas(10_000_000)
	noCycleLimit  = juice.Cycles(math.MaxUint64)
)

var callerAddress = [20]byte{0xe0, 0xe0}

// Instance is an example deployed on a private in-memory chain.
type Instance struct {
	example   Example
	state     *state.State
	generator *generator.Generator
	contract  juice.AccountID
}

// Deploy creates a fresh chain and deploys the example contract on it using
// the given generator.
func (e Example) Deploy(gen *generator.Generator) (*Instance, error) {
	s, err := state.NewMemory(state.Genesis{
		Accounts: []state.GenesisAccount{{Address: callerAddress}},
	})
	if err != nil {
		return nil, err
	}
	instance := &Instance{example: e, state: s, generator: gen}
	result, err := instance.execute(juice.CreatorAccountID, juice.Args{
		Kind:     juice.ArgsCreate,
		GasLimit: deployGas,
		Input:    deploymentCode(e.Code),
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to deploy example %s: %w", e.Name, err)
	}
	created := result.CreatedAccounts()
	if len(created) != 1 {
		s.Close()
		return nil, fmt.Errorf("deployment of %s created %d accounts", e.Name, len(created))
	}
	instance.contract = created[0].ID
	if err := s.ApplyRunResult(result); err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.AttachBlock(juice.BlockInfo{Producer: callerAccount, Number: 1, Timestamp: 1}); err != nil {
		s.Close()
		return nil, err
	}
	return instance, nil
}

// Run calls the example contract with the given argument. The result is
// not applied, so runs are independent of each other.
func (i *Instance) Run(argument int) (Result, error) {
	result, err := i.execute(i.contract, juice.Args{
		Kind:     juice.ArgsCall,
		GasLimit: i.generator.Config().BlockGasLimit,
		Input:    encodeArgument(i.example.selector, argument),
	})
	if err != nil {
		return Result{}, err
	}
	output, err := decodeOutput(result.ReturnData)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Result:  output,
		GasUsed: result.GasUsed,
		Cycles:  result.Cycles,
	}, nil
}

// Close releases the chain of the instance.
func (i *Instance) Close() error {
	return i.state.Close()
}

func (i *Instance) execute(to juice.AccountID, args juice.Args) (*juice.RunResult, error) {
	data, err := juice.EncodeArgs(args)
	if err != nil {
		return nil, err
	}
	txn, err := i.state.BeginTransaction()
	if err != nil {
		return nil, err
	}
	defer txn.Release()
	tip, err := txn.GetTipBlockHash()
	if err != nil {
		return nil, err
	}
	view := chain.NewView(txn, tip)
	header, err := view.Tip()
	if err != nil {
		return nil, err
	}
	nonce, err := txn.GetNonce(callerAccount)
	if err != nil {
		return nil, err
	}
	block := juice.BlockInfo{
		Producer:  callerAccount,
		Number:    header.Number + 1,
		Timestamp: header.Timestamp + 1,
	}
	return i.generator.ExecuteTransaction(view, txn, block, juice.RawTransaction{
		From:  callerAccount,
		To:    to,
		Nonce: nonce,
		Args:  data,
	}, noCycleLimit)
}

// deploymentCode wraps the given runtime code into init code returning it.
func deploymentCode(runtime []byte) []byte {
	const prefixLength = 12
	return append([]byte{
		byte(evm.PUSH1 + 1), byte(len(runtime) >> 8), byte(len(runtime)), // PUSH2
		byte(evm.DUP1),
		byte(evm.PUSH1), prefixLength,
		byte(evm.PUSH1), 0,
		byte(evm.CODECOPY),
		byte(evm.PUSH1), 0,
		byte(evm.RETURN),
	}, runtime...)
}

func encodeArgument(function uint32, arg int) []byte {
	// selector(4) | argument as a 32-byte big-endian word
	data := make([]byte, 4+32)

	data[0] = byte(function >> 24)
	data[1] = byte(function >> 16)
	data[2] = byte(function >> 8)
	data[3] = byte(function)

	data[4+28] = byte(arg >> 24)
	data[5+28] = byte(arg >> 16)
	data[6+28] = byte(arg >> 8)
	data[7+28] = byte(arg)

	return data
}

func decodeOutput(output []byte) (int, error) {
	if len(output) != 32 {
		return 0, fmt.Errorf("unexpected length of output; wanted 32, got %d", len(output))
	}
	return (int(output[28]) << 24) | (int(output[29]) << 16) | (int(output[30]) << 8) | int(output[31]), nil
}
