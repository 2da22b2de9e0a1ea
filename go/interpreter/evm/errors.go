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

// Errors aborting the current frame. They are reported to the caller as an
// unsuccessful execution consuming all gas, never as Go errors.
const (
	errInvalidJump            = juice.ConstError("invalid jump destination")
	errInvalidOpCode          = juice.ConstError("invalid op-code")
	errOutOfGas               = juice.ConstError("out of gas")
	errOverflow               = juice.ConstError("integer overflow")
	errReturnDataOutOfBounds  = juice.ConstError("return data out of bounds")
	errStackOverflow          = juice.ConstError("stack overflow")
	errStackUnderflow         = juice.ConstError("stack underflow")
	errStaticContextViolation = juice.ConstError("state modification in static context")
)
