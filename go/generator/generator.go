// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package generator implements the execution of raw transactions against
// an immutable state snapshot. The outcome of an execution is a
// juice.RunResult describing all effects as an ordered write-set; the
// snapshot itself is never modified.
package generator

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/ethereum/go-ethereum/log"

	_ "github.com/Fantom-foundation/Juice/go/interpreter/evm"
)

const (
	// TransactionCycles is charged once per transaction before execution.
	TransactionCycles juice.Cycles = 2_000
	// FrameCycles is charged for each call or create frame.
	FrameCycles juice.Cycles = 500
	// PrecompileCycles is charged for each call of a precompiled contract.
	PrecompileCycles juice.Cycles = 1_000
)

// DefaultInterpreter is the name of the interpreter used if none is
// configured.
const DefaultInterpreter = "evm"

// Config parameterizes a Generator.
type Config struct {
	ChainID           uint32
	MaxCallDepth      int
	MaxReturnDataSize int
	// BlockGasLimit bounds the gas limit of individual transactions. If
	// zero, gas limits are not bounded.
	BlockGasLimit juice.Gas
	Interpreter   juice.Interpreter
}

func DefaultConfig() Config {
	return Config{
		MaxCallDepth:      1024,
		MaxReturnDataSize: 25 * 1024,
		BlockGasLimit:     12_500_000,
	}
}

// Generator executes transactions. It is stateless and may be used by
// multiple goroutines concurrently.
type Generator struct {
	config Config
}

func New(config Config) (*Generator, error) {
	if config.Interpreter == nil {
		interpreter, err := juice.NewInterpreter(DefaultInterpreter)
		if err != nil {
			return nil, fmt.Errorf("failed to create interpreter: %w", err)
		}
		config.Interpreter = interpreter
	}
	if config.MaxCallDepth < 0 {
		return nil, fmt.Errorf("invalid max call depth %d", config.MaxCallDepth)
	}
	if config.MaxReturnDataSize < 0 {
		return nil, fmt.Errorf("invalid max return data size %d", config.MaxReturnDataSize)
	}
	return &Generator{config: config}, nil
}

func (g *Generator) Config() Config {
	return g.config
}

// ExecuteTransaction runs the given transaction on top of the snapshot and
// returns its effects. Block hashes are resolved through the chain view.
// The execution is aborted with an *juice.OutOfCyclesError if it exceeds
// the cycle limit. If the executed code fails, a *juice.RevertError is
// returned. In both cases no result is produced.
func (g *Generator) ExecuteTransaction(
	view juice.ChainView,
	snapshot juice.StateReader,
	block juice.BlockInfo,
	tx juice.RawTransaction,
	cycleLimit juice.Cycles,
) (*juice.RunResult, error) {
	args, err := juice.DecodeArgs(tx.Args)
	if err != nil {
		return nil, err
	}
	if g.config.BlockGasLimit > 0 && args.GasLimit > g.config.BlockGasLimit {
		return nil, fmt.Errorf("%w: gas limit %d exceeds block gas limit %d",
			juice.ErrMalformedArgs, args.GasLimit, g.config.BlockGasLimit)
	}

	overlay := newOverlay(snapshot)
	sender, err := resolveAccount(snapshot, tx.From)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	nonce, err := snapshot.GetNonce(tx.From)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	if tx.Nonce != nonce {
		return nil, fmt.Errorf("%w: transaction nonce %d, account %v has nonce %d",
			juice.ErrNonceMismatch, tx.Nonce, tx.From, nonce)
	}
	if nonce == math.MaxUint64 {
		return nil, fmt.Errorf("%w: nonce of account %v is exhausted", juice.ErrNonceMismatch, tx.From)
	}
	producer, err := resolveAccount(snapshot, block.Producer)
	if err != nil {
		return nil, fmt.Errorf("block producer: %w", err)
	}

	var recipient juice.Address
	switch args.Kind {
	case juice.ArgsCreate:
		if tx.To != juice.CreatorAccountID {
			return nil, fmt.Errorf("%w: create must target the deployment router, got %v",
				juice.ErrMalformedArgs, tx.To)
		}
	case juice.ArgsCall:
		if recipient, err = resolveAccount(snapshot, tx.To); err != nil {
			return nil, fmt.Errorf("recipient: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: invalid kind %v", juice.ErrMalformedArgs, args.Kind)
	}

	// the sender has to be able to pay for all gas and the value up front
	fee, overflow := args.GasPrice.Scale(uint64(args.GasLimit))
	if overflow {
		return nil, fmt.Errorf("%w: fee overflows", juice.ErrInsufficientBalance)
	}
	cost, overflow := juice.Add(fee, args.Value)
	balance := overlay.getBalance(juice.NativeTokenID, sender)
	if overlay.err != nil {
		return nil, overlay.err
	}
	if overflow || balance.Cmp(cost) < 0 {
		return nil, fmt.Errorf("%w: balance %v, required %v", juice.ErrInsufficientBalance, balance, cost)
	}

	meter := juice.NewCycleMeter(cycleLimit)
	if err := meter.Consume(TransactionCycles); err != nil {
		return nil, err
	}

	overlay.setNonce(tx.From, nonce+1)
	ctxt := runContext{
		overlay:     overlay,
		interpreter: g.config.Interpreter,
		meter:       meter,
		view:        view,
		config:      g.config,
		blockParameters: juice.BlockParameters{
			ChainID:     chainIDWord(g.config.ChainID),
			BlockNumber: int64(block.Number),
			Timestamp:   int64(block.Timestamp),
			Coinbase:    producer,
			GasLimit:    g.config.BlockGasLimit,
		},
		transactionParameters: juice.TransactionParameters{
			Origin:   sender,
			GasPrice: args.GasPrice,
		},
	}

	parameters := juice.CallParameters{
		Sender:      sender,
		Recipient:   recipient,
		Value:       args.Value,
		Input:       args.Input,
		Gas:         args.GasLimit,
		CodeAddress: recipient,
	}
	var result juice.CallResult
	switch args.Kind {
	case juice.ArgsCreate:
		script := contractScript(juice.Create, sender, nonce, juice.Hash{}, args.Input)
		if overlay.isRegistered(script.Hash()) {
			if overlay.err != nil {
				return nil, overlay.err
			}
			return nil, fmt.Errorf("%w: contract %v", juice.ErrDuplicateAccount, script.Hash())
		}
		result, err = ctxt.deploy(juice.Create, parameters, script)
	case juice.ArgsCall:
		result, err = ctxt.executeCall(juice.Call, parameters)
	}
	if err == nil {
		err = overlay.err
	}
	if err != nil {
		return nil, err
	}

	gasUsed := args.GasLimit - result.GasLeft
	if !result.Success {
		log.Debug("Transaction reverted", "from", tx.From, "to", tx.To, "kind", args.Kind, "gas", gasUsed)
		return nil, &juice.RevertError{Data: result.Output, GasUsed: gasUsed}
	}
	if len(result.Output) > g.config.MaxReturnDataSize {
		log.Debug("Return data too large", "from", tx.From, "to", tx.To, "size", len(result.Output))
		return nil, &juice.RevertError{GasUsed: gasUsed}
	}

	// fees are paid to the block producer
	fee, _ = args.GasPrice.Scale(uint64(gasUsed))
	if !overlay.canTransfer(juice.NativeTokenID, sender, producer, fee) {
		return nil, fmt.Errorf("%w: can not pay fee of %v", juice.ErrInsufficientBalance, fee)
	}
	overlay.transfer(juice.NativeTokenID, sender, producer, fee)

	writes, err := overlay.writeSet()
	if err != nil {
		return nil, err
	}
	res := &juice.RunResult{
		ReturnData: result.Output,
		Writes:     writes,
		Reads:      overlay.readSet(),
		Logs:       overlay.logs(),
		Cycles:     meter.Used(),
		GasUsed:    gasUsed,
	}
	log.Debug("Executed transaction", "from", tx.From, "to", tx.To, "kind", args.Kind,
		"gas", gasUsed, "cycles", res.Cycles, "writes", len(writes), "reads", len(res.Reads))
	return res, nil
}

// resolveAccount returns the EVM address of an account.
func resolveAccount(snapshot juice.StateReader, id juice.AccountID) (juice.Address, error) {
	hash, found, err := snapshot.GetScriptHash(id)
	if err != nil {
		return juice.Address{}, err
	}
	if !found {
		return juice.Address{}, fmt.Errorf("%w: %v", juice.ErrUnknownAccount, id)
	}
	return hash.ShortHash(), nil
}

// chainIDWord encodes a chain id as a big-endian 32-byte word.
func chainIDWord(id uint32) juice.Word {
	var res juice.Word
	binary.BigEndian.PutUint32(res[28:], id)
	return res
}
