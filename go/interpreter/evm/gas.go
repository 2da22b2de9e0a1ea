// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package evm

import "github.com/Fantom-foundation/Juice/go/juice"

const (
	CallNewAccountGas    juice.Gas = 25000 // Paid for CALL when the destination address didn't exist prior.
	CallValueTransferGas juice.Gas = 9000  // Paid for CALL when the value transfer is non-zero.
	CallStipend          juice.Gas = 2300  // Free gas given at beginning of call.

	SstoreSetGas    juice.Gas = 20000 // Once per SSTORE operation from zero to non-zero
	SstoreResetGas  juice.Gas = 5000  // Once per SSTORE operation for all other updates
	SstoreSentryGas juice.Gas = 2300  // Minimum gas required to be present for an SSTORE call, not consumed
)

var staticGasPrices = func() (res [256]juice.Gas) {
	for i := range res {
		res[i] = getStaticGasPriceInternal(OpCode(i))
	}
	return res
}()

func getStaticGasPriceInternal(op OpCode) juice.Gas {
	if PUSH1 <= op && op <= PUSH32 {
		return 3
	}
	if DUP1 <= op && op <= DUP16 {
		return 3
	}
	if SWAP1 <= op && op <= SWAP16 {
		return 3
	}
	if LOG0 <= op && op <= LOG4 {
		return juice.Gas(375 * (1 + int(op-LOG0)))
	}
	if LT <= op && op <= SAR {
		return 3
	}
	if COINBASE <= op && op <= CHAINID {
		return 2
	}
	switch op {
	case POP, PUSH0, ADDRESS, ORIGIN, CALLER, CALLVALUE, CALLDATASIZE,
		CODESIZE, GASPRICE, RETURNDATASIZE, BASEFEE, PC, MSIZE, GAS:
		return 2
	case ADD, SUB, CALLDATALOAD, CALLDATACOPY, CODECOPY, RETURNDATACOPY,
		MLOAD, MSTORE, MSTORE8:
		return 3
	case MUL, DIV, SDIV, MOD, SMOD, SIGNEXTEND, SELFBALANCE:
		return 5
	case ADDMOD, MULMOD, JUMP:
		return 8
	case EXP, JUMPI:
		return 10
	case BLOCKHASH:
		return 20
	case SHA3:
		return 30
	case BALANCE, EXTCODESIZE, EXTCODECOPY, EXTCODEHASH,
		CALL, CALLCODE, DELEGATECALL, STATICCALL:
		return 700
	case SLOAD:
		return 800
	case JUMPDEST:
		return 1
	case CREATE, CREATE2:
		return 32000
	}
	// SSTORE is priced dynamically, STOP, RETURN, REVERT and INVALID are free
	return 0
}

// Every instruction consumes one cycle; expensive ones are charged extra to
// bound the host work per cycle.
var cycleCosts = func() (res [256]juice.Cycles) {
	for i := range res {
		res[i] = 1 + getCycleSurchargeInternal(OpCode(i))
	}
	return res
}()

func getCycleSurchargeInternal(op OpCode) juice.Cycles {
	if LOG0 <= op && op <= LOG4 {
		return 20
	}
	switch op {
	case EXP:
		return 5
	case SHA3, BLOCKHASH:
		return 20
	case CALLDATACOPY, CODECOPY, RETURNDATACOPY, EXTCODECOPY:
		return 10
	case BALANCE, EXTCODESIZE, EXTCODEHASH, SELFBALANCE:
		return 30
	case SLOAD, SSTORE:
		return 50
	case CALL, CALLCODE, DELEGATECALL, STATICCALL, CREATE, CREATE2:
		return 100
	}
	return 0
}

// stackLimits is the range of stack sizes an instruction may be executed on.
type stackLimits struct {
	min int // The minimum stack size required by an OpCode.
	max int // The maximum stack size allowed before running an OpCode.
}

var stackBoundaries = func() (res [256]stackLimits) {
	for i := range res {
		pops, pushes := getStackUsageInternal(OpCode(i))
		res[i] = stackLimits{
			min: pops,
			max: maxStackSize - max(pushes-pops, 0),
		}
	}
	return res
}()

func getStackUsageInternal(op OpCode) (pops, pushes int) {
	if op == PUSH0 || op.isPush() {
		return 0, 1
	}
	if DUP1 <= op && op <= DUP16 {
		n := int(op-DUP1) + 1
		return n, n + 1
	}
	if SWAP1 <= op && op <= SWAP16 {
		n := int(op-SWAP1) + 2
		return n, n
	}
	if LOG0 <= op && op <= LOG4 {
		return int(op-LOG0) + 2, 0
	}
	switch op {
	case ADD, SUB, MUL, DIV, SDIV, MOD, SMOD, EXP, SIGNEXTEND,
		SHA3, LT, GT, SLT, SGT, EQ, AND, XOR, OR, BYTE, SHL, SHR, SAR:
		return 2, 1
	case ADDMOD, MULMOD:
		return 3, 1
	case ISZERO, NOT, BALANCE, CALLDATALOAD, EXTCODESIZE, EXTCODEHASH,
		BLOCKHASH, MLOAD, SLOAD:
		return 1, 1
	case ADDRESS, ORIGIN, CALLER, CALLVALUE, CALLDATASIZE, CODESIZE,
		GASPRICE, RETURNDATASIZE, COINBASE, TIMESTAMP, NUMBER, DIFFICULTY,
		GASLIMIT, CHAINID, SELFBALANCE, BASEFEE, PC, MSIZE, GAS:
		return 0, 1
	case POP, JUMP:
		return 1, 0
	case MSTORE, MSTORE8, SSTORE, JUMPI, RETURN, REVERT:
		return 2, 0
	case CALLDATACOPY, CODECOPY, RETURNDATACOPY:
		return 3, 0
	case EXTCODECOPY:
		return 4, 0
	case CREATE:
		return 3, 1
	case CREATE2:
		return 4, 1
	case CALL, CALLCODE:
		return 7, 1
	case DELEGATECALL, STATICCALL:
		return 6, 1
	}
	return 0, 0
}
