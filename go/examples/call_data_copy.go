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

// GetCallDataCopyExample echoes its argument through memory. It measures
// the fixed cost of a transaction running a short contract.
func GetCallDataCopyExample() Example {
	code := []byte{
		byte(evm.PUSH1), 4, // size
		byte(evm.PUSH1), 32, // offset in call data
		byte(evm.PUSH1), 28, // offset in memory
		byte(evm.CALLDATACOPY),
		byte(evm.PUSH1), 32,
		byte(evm.PUSH1), 0,
		byte(evm.RETURN),
	}
	return Example{
		Name:      "call_data_copy",
		Code:      code,
		reference: func(x int) int { return x },
	}
}
