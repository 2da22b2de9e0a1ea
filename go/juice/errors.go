// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package juice

import "fmt"

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// Errors reported while executing or applying transactions. Callers are
// expected to match them using errors.Is.
const (
	// ErrMalformedArgs is reported for undecodable transaction arguments,
	// before any state is read.
	ErrMalformedArgs = ConstError("malformed args")
	// ErrUnknownAccount is reported if a transaction refers to an id or
	// hash that is not registered.
	ErrUnknownAccount = ConstError("unknown account")
	// ErrOutOfCycles is reported if the cycle budget is exhausted.
	ErrOutOfCycles = ConstError("out of cycles")
	// ErrContractRevert is reported if the contract aborted execution.
	ErrContractRevert = ConstError("contract reverted")
	// ErrInvariantViolation is reported if applying a run result would
	// violate a state invariant. It indicates a defect, not a user error.
	ErrInvariantViolation = ConstError("invariant violation")
	// ErrDuplicateAccount is reported if a script hash is registered twice.
	ErrDuplicateAccount = ConstError("duplicate account")
	// ErrNonceMismatch is reported for stale or future transaction nonces.
	ErrNonceMismatch = ConstError("nonce mismatch")
	// ErrStaleResult is reported if a run result depends on state values
	// that changed since it was computed. The result has to be recomputed.
	ErrStaleResult = ConstError("stale result")
	// ErrInsufficientBalance is reported if the sender can not cover the
	// transferred value and the maximum fee.
	ErrInsufficientBalance = ConstError("insufficient balance")
	// ErrHalted is reported by a state that observed an invariant violation.
	ErrHalted = ConstError("state halted after invariant violation")
)

// RevertError is returned by the generator if the top-level frame of a
// transaction did not complete successfully. Data holds the revert data
// provided by the contract, if any.
type RevertError struct {
	Data    Data
	GasUsed Gas
}

func (e *RevertError) Error() string {
	if len(e.Data) == 0 {
		return ErrContractRevert.Error()
	}
	return fmt.Sprintf("%v: 0x%x", ErrContractRevert, []byte(e.Data))
}

func (e *RevertError) Unwrap() error {
	return ErrContractRevert
}

// OutOfCyclesError is returned if the cycle limit of a transaction was
// exceeded. Used is the number of cycles consumed up to the abort, which
// is still chargeable by fee logic of the caller. A charge overshooting the
// limit exhausts the meter, so Used always equals Limit.
type OutOfCyclesError struct {
	Used  Cycles
	Limit Cycles
}

func (e *OutOfCyclesError) Error() string {
	return fmt.Sprintf("%v: used %d of %d", ErrOutOfCycles, e.Used, e.Limit)
}

func (e *OutOfCyclesError) Unwrap() error {
	return ErrOutOfCycles
}
