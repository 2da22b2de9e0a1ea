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

import "github.com/Fantom-foundation/Juice/go/interpreter/evm"

// maxCodeLength is the largest runtime code a deployment may install.
const maxCodeLength = 0x6000

// analysisCode builds a contract of maximal size returning its argument
// after jumping over a body made of repetitions of the given filler. It
// stresses the jump destination analysis.
func analysisCode(filler []byte) []byte {
	prefix := []byte{
		byte(evm.PUSH1), 4,
		byte(evm.CALLDATALOAD),
		byte(evm.PUSH1), 0,
		byte(evm.MSTORE),
		byte(evm.PUSH1 + 1), 0xff, 0xff, // PUSH2, patched below
		byte(evm.JUMP),
	}
	suffix := []byte{
		byte(evm.JUMPDEST),
		byte(evm.PUSH1), 32,
		byte(evm.PUSH1), 0,
		byte(evm.RETURN),
	}

	space := maxCodeLength - len(prefix) - len(suffix)
	body := make([]byte, 0, space)
	for len(body)+len(filler) <= space {
		body = append(body, filler...)
	}

	target := len(prefix) + len(body)
	prefix[7] = byte(target >> 8)
	prefix[8] = byte(target)

	code := append(prefix, body...)
	return append(code, suffix...)
}

func analysisExample(name string, filler ...byte) Example {
	return Example{
		Name:      name,
		Code:      analysisCode(filler),
		reference: func(x int) int { return x },
	}
}

func GetJumpdestAnalysisExample() Example {
	return analysisExample("jumpdest", byte(evm.JUMPDEST))
}

func GetStopAnalysisExample() Example {
	return analysisExample("stop", byte(evm.STOP))
}

func GetPush1AnalysisExample() Example {
	return analysisExample("push1", byte(evm.PUSH1), 0)
}

func GetPush32AnalysisExample() Example {
	return analysisExample("push32", append([]byte{byte(evm.PUSH32)}, make([]byte, 32)...)...)
}
