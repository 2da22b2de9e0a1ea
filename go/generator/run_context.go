// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package generator

import (
	"fmt"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

const (
	maxCodeSize          = 24576
	createGasCostPerByte = 200
)

// runContext implements the juice.RunContext handed to the interpreter. It
// resolves EVM addresses to accounts and records all effects in the
// overlay of the transaction.
type runContext struct {
	overlay               *overlay
	interpreter           juice.Interpreter
	meter                 *juice.CycleMeter
	view                  juice.ChainView
	config                Config
	blockParameters       juice.BlockParameters
	transactionParameters juice.TransactionParameters
	depth                 int
	static                bool
}

func (r runContext) AccountExists(address juice.Address) bool {
	return r.overlay.getAccount(address).exists
}

func (r runContext) GetBalance(address juice.Address) juice.Value {
	return r.overlay.getBalance(juice.NativeTokenID, address)
}

func (r runContext) GetCode(address juice.Address) juice.Code {
	account := r.overlay.getAccount(address)
	if !account.exists {
		return nil
	}
	return r.overlay.getCode(account.id).code
}

func (r runContext) GetCodeHash(address juice.Address) juice.Hash {
	account := r.overlay.getAccount(address)
	if !account.exists {
		return juice.Hash{}
	}
	return r.overlay.getCode(account.id).hash
}

func (r runContext) GetCodeSize(address juice.Address) int {
	return len(r.GetCode(address))
}

func (r runContext) GetStorage(address juice.Address, key juice.Key) juice.Word {
	account := r.overlay.getAccount(address)
	if !account.exists {
		return juice.Word{}
	}
	return r.overlay.getStorage(account.id, key)
}

func (r runContext) SetStorage(address juice.Address, key juice.Key, value juice.Word) juice.Word {
	account := r.overlay.getAccount(address)
	if !account.exists {
		r.overlay.fail(fmt.Errorf("storage write to unknown account %v", address))
		return juice.Word{}
	}
	return r.overlay.setStorage(account.id, key, value)
}

func (r runContext) GetBlockHash(number int64) juice.Hash {
	if number < 0 {
		return juice.Hash{}
	}
	hash, found, err := r.view.BlockHash(uint64(number))
	if err != nil {
		r.overlay.fail(err)
		return juice.Hash{}
	}
	if !found {
		return juice.Hash{}
	}
	return hash
}

func (r runContext) EmitLog(log juice.Log) {
	r.overlay.emitLog(log)
}

func (r runContext) Call(kind juice.CallKind, parameters juice.CallParameters) (juice.CallResult, error) {
	if r.overlay.err != nil {
		return juice.CallResult{}, r.overlay.err
	}
	var res juice.CallResult
	var err error
	if kind == juice.Create || kind == juice.Create2 {
		res, err = r.executeCreate(kind, parameters)
	} else {
		res, err = r.executeCall(kind, parameters)
	}
	if err == nil && r.overlay.err != nil {
		err = r.overlay.err
	}
	return res, err
}

func (r runContext) executeCall(kind juice.CallKind, parameters juice.CallParameters) (juice.CallResult, error) {
	errResult := juice.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > r.config.MaxCallDepth {
		return errResult, nil
	}
	r.depth++
	if err := r.meter.Consume(FrameCycles); err != nil {
		return juice.CallResult{}, err
	}

	if kind == juice.Call || kind == juice.CallCode {
		if !r.overlay.canTransfer(juice.NativeTokenID, parameters.Sender, parameters.Recipient, parameters.Value) {
			return errResult, nil
		}
	}
	if kind == juice.StaticCall {
		r.static = true
	}

	r.overlay.enterFrame()
	recipient := parameters.Recipient
	if kind == juice.Call || kind == juice.CallCode {
		r.overlay.transfer(juice.NativeTokenID, parameters.Sender, recipient, parameters.Value)
	}

	log.Trace("Entering call", "kind", kind, "depth", r.depth-1, "sender", parameters.Sender,
		"recipient", recipient, "code", parameters.CodeAddress, "gas", parameters.Gas)

	if contract, isPrecompiled := precompiledContract(parameters.CodeAddress); isPrecompiled {
		if err := r.meter.Consume(PrecompileCycles); err != nil {
			r.overlay.exitFrame(false)
			return juice.CallResult{}, err
		}
		result := runPrecompiled(contract, parameters.Input, parameters.Gas)
		r.overlay.exitFrame(result.Success)
		return result, nil
	}

	var code code
	if target := r.overlay.getAccount(parameters.CodeAddress); target.exists {
		code = r.overlay.getCode(target.id)
	}

	result, err := r.interpreter.Run(juice.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Meter:                 r.meter,
		Kind:                  kind,
		Static:                r.static,
		Depth:                 r.depth - 1, // depth has already been incremented
		Gas:                   parameters.Gas,
		Recipient:             recipient,
		Sender:                parameters.Sender,
		Input:                 parameters.Input,
		Value:                 parameters.Value,
		CodeHash:              &code.hash,
		Code:                  code.code,
	})
	if err != nil {
		r.overlay.exitFrame(false)
		return juice.CallResult{}, err
	}
	r.overlay.exitFrame(result.Success)

	return juice.CallResult{
		Output:  result.Output,
		GasLeft: result.GasLeft,
		Success: result.Success,
	}, nil
}

func (r runContext) executeCreate(kind juice.CallKind, parameters juice.CallParameters) (juice.CallResult, error) {
	errResult := juice.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > r.config.MaxCallDepth {
		return errResult, nil
	}
	creator := r.overlay.getAccount(parameters.Sender)
	if !creator.exists {
		return errResult, nil
	}
	if !r.overlay.canTransfer(juice.NativeTokenID, parameters.Sender, parameters.Sender, parameters.Value) {
		return errResult, nil
	}
	nonce := r.overlay.getNonce(creator.id)
	if nonce+1 < nonce {
		return errResult, nil
	}
	r.overlay.setNonce(creator.id, nonce+1)

	script := contractScript(kind, parameters.Sender, nonce, parameters.Salt, parameters.Input)
	if r.overlay.isRegistered(script.Hash()) {
		// the address is taken, all gas is consumed
		return juice.CallResult{}, nil
	}
	return r.deploy(kind, parameters, script)
}

// deploy creates a contract account with the given script and runs its
// init code. The address of the new account is the short hash of its
// script.
func (r runContext) deploy(kind juice.CallKind, parameters juice.CallParameters, script juice.Script) (juice.CallResult, error) {
	address := script.Hash().ShortHash()
	if !r.overlay.canTransfer(juice.NativeTokenID, parameters.Sender, address, parameters.Value) {
		return juice.CallResult{GasLeft: parameters.Gas}, nil
	}
	r.depth++
	if err := r.meter.Consume(FrameCycles); err != nil {
		return juice.CallResult{}, err
	}

	r.overlay.enterFrame()
	id := r.overlay.createAccount(script)
	r.overlay.transfer(juice.NativeTokenID, parameters.Sender, address, parameters.Value)

	log.Trace("Entering create", "kind", kind, "depth", r.depth-1, "sender", parameters.Sender,
		"account", id, "address", address, "gas", parameters.Gas)

	initCode := juice.Code(parameters.Input)
	initCodeHash := juice.Hash(crypto.Keccak256Hash(initCode))
	result, err := r.interpreter.Run(juice.Parameters{
		BlockParameters:       r.blockParameters,
		TransactionParameters: r.transactionParameters,
		Context:               r,
		Meter:                 r.meter,
		Kind:                  kind,
		Static:                r.static,
		Depth:                 r.depth - 1, // depth has already been incremented
		Gas:                   parameters.Gas,
		Recipient:             address,
		Sender:                parameters.Sender,
		Input:                 nil,
		Value:                 parameters.Value,
		CodeHash:              &initCodeHash,
		Code:                  initCode,
	})
	if err != nil {
		r.overlay.exitFrame(false)
		return juice.CallResult{}, err
	}
	if !result.Success {
		r.overlay.exitFrame(false)
		return juice.CallResult{Output: result.Output, GasLeft: result.GasLeft}, nil
	}

	outCode := result.Output
	if len(outCode) > maxCodeSize {
		result.Success = false
	}
	createGas := juice.Gas(len(outCode) * createGasCostPerByte)
	if result.GasLeft < createGas {
		result.Success = false
	}
	result.GasLeft -= createGas

	if !result.Success {
		r.overlay.exitFrame(false)
		return juice.CallResult{}, nil
	}
	r.overlay.setCode(id, juice.Code(outCode))
	r.overlay.exitFrame(true)

	return juice.CallResult{
		Output:         result.Output,
		GasLeft:        result.GasLeft,
		Success:        true,
		CreatedAddress: address,
	}, nil
}

// contractScript derives the script of a contract deployed by the given
// sender. The contract address is the CREATE or CREATE2 address of the
// sender, registered under the deployment router.
func contractScript(kind juice.CallKind, sender juice.Address, nonce uint64, salt juice.Hash, initCode []byte) juice.Script {
	var address common.Address
	if kind == juice.Create2 {
		address = crypto.CreateAddress2(common.Address(sender), common.Hash(salt), crypto.Keccak256(initCode))
	} else {
		address = crypto.CreateAddress(common.Address(sender), nonce)
	}
	return juice.ContractScript(juice.CreatorAccountID, address)
}
