// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"github.com/Fantom-foundation/Juice/go/interpreter/evm"
	"github.com/ethereum/go-ethereum/crypto"
)

// GetSha3Example provides a loop hashing memory word 0 x times and
// returning the last byte of the final hash.
func GetSha3Example() Example {
	code := []byte{
		byte(evm.PUSH1), 4,
		byte(evm.CALLDATALOAD),

		// loop header at 3, exit to 24
		byte(evm.JUMPDEST),
		byte(evm.DUP1),
		byte(evm.ISZERO),
		byte(evm.PUSH1), 24,
		byte(evm.JUMPI),

		byte(evm.PUSH1), 32,
		byte(evm.PUSH1), 0,
		byte(evm.SHA3),
		byte(evm.PUSH1), 0,
		byte(evm.MSTORE),

		byte(evm.PUSH1), 1,
		byte(evm.SWAP1),
		byte(evm.SUB),

		byte(evm.PUSH1), 3,
		byte(evm.JUMP),

		byte(evm.JUMPDEST),
		byte(evm.PUSH1), 0,
		byte(evm.MLOAD),
		byte(evm.PUSH1), 255,
		byte(evm.AND),
		byte(evm.PUSH1), 0,
		byte(evm.MSTORE),

		byte(evm.PUSH1), 32,
		byte(evm.PUSH1), 0,
		byte(evm.RETURN),
	}
	return Example{
		Name:      "sha3",
		Code:      code,
		reference: sha3Reference,
	}
}

func sha3Reference(x int) int {
	hash := make([]byte, 32)
	for i := 0; i < x; i++ {
		hash = crypto.Keccak256(hash)
	}
	return int(hash[31])
}
