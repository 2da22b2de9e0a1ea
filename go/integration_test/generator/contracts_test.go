// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package generator_test

import (
	"github.com/Fantom-foundation/Juice/go/interpreter/evm"
	"github.com/Fantom-foundation/Juice/go/juice"
)

// initCodeFor returns init code deploying the given runtime code.
func initCodeFor(runtime []byte) []byte {
	if len(runtime) > 0xff {
		panic("runtime code too long")
	}
	return append([]byte{
		byte(evm.PUSH1), byte(len(runtime)),
		byte(evm.DUP1),
		byte(evm.PUSH1), 0x0b,
		byte(evm.PUSH1), 0x00,
		byte(evm.CODECOPY),
		byte(evm.PUSH1), 0x00,
		byte(evm.RETURN),
	}, runtime...)
}

// returnTop appends code returning the top of the stack as a 32-byte word.
func returnTop(code ...byte) []byte {
	return append(code,
		byte(evm.PUSH1), 0x00,
		byte(evm.MSTORE),
		byte(evm.PUSH1), 0x20,
		byte(evm.PUSH1), 0x00,
		byte(evm.RETURN),
	)
}

var chainIDRuntime = returnTop(byte(evm.CHAINID))

// parentHashRuntime returns the hash of the block preceding the current one.
var parentHashRuntime = returnTop(
	byte(evm.NUMBER),
	byte(evm.PUSH1), 0x01,
	byte(evm.SWAP1),
	byte(evm.SUB),
	byte(evm.BLOCKHASH),
)

var loopRuntime = []byte{
	byte(evm.JUMPDEST),
	byte(evm.PUSH1), 0x00,
	byte(evm.JUMP),
}

// counterRuntime increments the value in slot 0 on every call.
var counterRuntime = []byte{
	byte(evm.PUSH1), 0x00,
	byte(evm.SLOAD),
	byte(evm.PUSH1), 0x01,
	byte(evm.ADD),
	byte(evm.PUSH1), 0x00,
	byte(evm.SSTORE),
	byte(evm.STOP),
}

// revertingRuntime writes slot 0 and reverts.
var revertingRuntime = []byte{
	byte(evm.PUSH1), 0x01,
	byte(evm.PUSH1), 0x00,
	byte(evm.SSTORE),
	byte(evm.PUSH1), 0x00,
	byte(evm.DUP1),
	byte(evm.REVERT),
}

// proxyRuntime writes 1 to slot 1, calls the target forwarding all gas, and
// stores the success flag of the call in slot 0.
func proxyRuntime(target juice.Address) []byte {
	code := []byte{
		byte(evm.PUSH1), 0x01,
		byte(evm.PUSH1), 0x01,
		byte(evm.SSTORE),
		byte(evm.PUSH1), 0x00, // ret size
		byte(evm.PUSH1), 0x00, // ret offset
		byte(evm.PUSH1), 0x00, // arg size
		byte(evm.PUSH1), 0x00, // arg offset
		byte(evm.PUSH1), 0x00, // value
		byte(evm.PUSH1 + 19), // PUSH20
	}
	code = append(code, target[:]...)
	return append(code,
		byte(evm.GAS),
		byte(evm.CALL),
		byte(evm.PUSH1), 0x00,
		byte(evm.SSTORE),
		byte(evm.STOP),
	)
}

// payoutRuntime sends 100 units of the native token to the caller and
// reverts if the contract can not cover them.
var payoutRuntime = []byte{
	byte(evm.PUSH1), 0x00, // ret size
	byte(evm.PUSH1), 0x00, // ret offset
	byte(evm.PUSH1), 0x00, // arg size
	byte(evm.PUSH1), 0x00, // arg offset
	byte(evm.PUSH1), 100, // value
	byte(evm.CALLER),
	byte(evm.GAS),
	byte(evm.CALL),
	byte(evm.PUSH1), 0x14,
	byte(evm.JUMPI),
	byte(evm.PUSH1), 0x00,
	byte(evm.DUP1),
	byte(evm.REVERT),
	byte(evm.JUMPDEST),
	byte(evm.STOP),
}
