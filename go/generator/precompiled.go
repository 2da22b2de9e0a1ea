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
	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/ethereum/go-ethereum/common"
	geth "github.com/ethereum/go-ethereum/core/vm"
)

func precompiledContract(address juice.Address) (geth.PrecompiledContract, bool) {
	contract, ok := geth.PrecompiledContractsBerlin[common.Address(address)]
	return contract, ok
}

func runPrecompiled(contract geth.PrecompiledContract, input juice.Data, gas juice.Gas) juice.CallResult {
	gasCost := contract.RequiredGas(input)
	if gasCost > uint64(gas) {
		return juice.CallResult{}
	}
	gas -= juice.Gas(gasCost)
	output, err := contract.Run(input)
	if err != nil {
		// precompiled contracts only return errors on invalid input
		return juice.CallResult{}
	}
	return juice.CallResult{
		Success: true,
		Output:  output,
		GasLeft: gas,
	}
}
