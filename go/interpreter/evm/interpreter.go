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

import (
	"fmt"

	"github.com/Fantom-foundation/Juice/go/juice"
)

// status is enumeration of the execution state of an interpreter run.
type status byte

const (
	statusRunning  status = iota // < all fine, ops are processed
	statusStopped                // < execution stopped with a STOP
	statusReverted               // < execution stopped with a REVERT
	statusReturned               // < execution stopped with a RETURN
	statusFailed                 // < execution stopped with a logic error
)

// context is the execution environment of a single frame.
type context struct {
	// Inputs
	params    juice.Parameters
	context   juice.RunContext
	code      []byte
	jumpDests jumpDests

	// Execution state
	pc     uint64
	gas    juice.Gas
	stack  *stack
	memory *Memory

	// Intermediate data
	returnData []byte // < the result of the last nested contract call

	// fatal is an error aborting the whole transaction, not just this frame.
	fatal error
}

func (c *context) useGas(amount juice.Gas) error {
	if c.gas < 0 || amount < 0 || c.gas < amount {
		return errOutOfGas
	}
	c.gas -= amount
	return nil
}

func (c *context) useCycles(amount juice.Cycles) error {
	if c.params.Meter == nil {
		return nil
	}
	if err := c.params.Meter.Consume(amount); err != nil {
		return c.abort(err)
	}
	return nil
}

// abort records an error ending the execution of the entire transaction.
func (c *context) abort(err error) error {
	c.fatal = err
	return err
}

func run(params juice.Parameters, jumpDests jumpDests) (juice.Result, error) {
	// Don't bother with the execution if there's no code.
	if len(params.Code) == 0 {
		return juice.Result{
			Success: true,
			GasLeft: params.Gas,
		}, nil
	}

	var ctxt = context{
		params:    params,
		context:   params.Context,
		code:      params.Code,
		jumpDests: jumpDests,
		gas:       params.Gas,
		stack:     newStack(),
		memory:    NewMemory(),
	}
	defer returnStack(ctxt.stack)

	status, err := execute(&ctxt)
	if err != nil {
		return juice.Result{}, err
	}
	return generateResult(status, &ctxt)
}

func generateResult(status status, ctxt *context) (juice.Result, error) {
	switch status {
	case statusStopped:
		return juice.Result{
			Success: true,
			GasLeft: ctxt.gas,
		}, nil
	case statusReturned:
		return juice.Result{
			Success: true,
			Output:  ctxt.returnData,
			GasLeft: ctxt.gas,
		}, nil
	case statusReverted:
		return juice.Result{
			Success: false,
			Output:  ctxt.returnData,
			GasLeft: ctxt.gas,
		}, nil
	case statusFailed:
		return juice.Result{
			Success: false,
		}, nil
	default:
		return juice.Result{}, fmt.Errorf("unexpected error in interpreter, unknown status: %v", status)
	}
}

// execute runs the code of the context. Failures of the code end the frame
// with statusFailed, fatal errors are returned.
func execute(c *context) (status, error) {
	status, err := steps(c)
	if err != nil {
		if c.fatal != nil {
			return statusFailed, c.fatal
		}
		return statusFailed, nil
	}
	return status, nil
}

func steps(c *context) (status, error) {
	status := statusRunning
	for status == statusRunning {
		if c.pc >= uint64(len(c.code)) {
			return statusStopped, nil
		}

		op := OpCode(c.code[c.pc])
		if !op.isSupported() {
			return status, errInvalidOpCode
		}

		if err := c.useCycles(cycleCosts[op]); err != nil {
			return status, err
		}

		// Check stack boundary for every instruction
		if err := checkStackLimits(c.stack.len(), op); err != nil {
			return status, err
		}

		// Consume static gas price for instruction before execution
		if err := c.useGas(staticGasPrices[op]); err != nil {
			return status, err
		}

		var err error

		switch {
		case op.isPush():
			opPush(c, op.pushSize())
		case DUP1 <= op && op <= DUP16:
			opDup(c, int(op-DUP1)+1)
		case SWAP1 <= op && op <= SWAP16:
			opSwap(c, int(op-SWAP1)+1)
		case LOG0 <= op && op <= LOG4:
			err = opLog(c, int(op-LOG0))
		default:
			switch op {
			case STOP:
				status = statusStopped
			case ADD:
				opAdd(c)
			case MUL:
				opMul(c)
			case SUB:
				opSub(c)
			case DIV:
				opDiv(c)
			case SDIV:
				opSDiv(c)
			case MOD:
				opMod(c)
			case SMOD:
				opSMod(c)
			case ADDMOD:
				opAddMod(c)
			case MULMOD:
				opMulMod(c)
			case EXP:
				err = opExp(c)
			case SIGNEXTEND:
				opSignExtend(c)
			case LT:
				opLt(c)
			case GT:
				opGt(c)
			case SLT:
				opSlt(c)
			case SGT:
				opSgt(c)
			case EQ:
				opEq(c)
			case ISZERO:
				opIszero(c)
			case AND:
				opAnd(c)
			case OR:
				opOr(c)
			case XOR:
				opXor(c)
			case NOT:
				opNot(c)
			case BYTE:
				opByte(c)
			case SHL:
				opShl(c)
			case SHR:
				opShr(c)
			case SAR:
				opSar(c)
			case SHA3:
				err = opSha3(c)
			case ADDRESS:
				opAddress(c)
			case BALANCE:
				opBalance(c)
			case ORIGIN:
				opOrigin(c)
			case CALLER:
				opCaller(c)
			case CALLVALUE:
				opCallvalue(c)
			case CALLDATALOAD:
				opCallDataload(c)
			case CALLDATASIZE:
				opCallDatasize(c)
			case CALLDATACOPY:
				err = genericDataCopy(c, c.params.Input)
			case CODESIZE:
				opCodeSize(c)
			case CODECOPY:
				err = genericDataCopy(c, c.params.Code)
			case GASPRICE:
				opGasPrice(c)
			case EXTCODESIZE:
				opExtcodesize(c)
			case EXTCODECOPY:
				err = opExtCodeCopy(c)
			case RETURNDATASIZE:
				opReturnDataSize(c)
			case RETURNDATACOPY:
				err = opReturnDataCopy(c)
			case EXTCODEHASH:
				opExtcodehash(c)
			case BLOCKHASH:
				opBlockhash(c)
			case COINBASE:
				opCoinbase(c)
			case TIMESTAMP:
				opTimestamp(c)
			case NUMBER:
				opNumber(c)
			case DIFFICULTY, BASEFEE:
				c.stack.pushUndefined().Clear()
			case GASLIMIT:
				opGasLimit(c)
			case CHAINID:
				opChainId(c)
			case SELFBALANCE:
				opSelfbalance(c)
			case POP:
				c.stack.pop()
			case MLOAD:
				err = opMload(c)
			case MSTORE:
				err = opMstore(c)
			case MSTORE8:
				err = opMstore8(c)
			case SLOAD:
				opSload(c)
			case SSTORE:
				err = opSstore(c)
			case JUMP:
				err = opJump(c)
			case JUMPI:
				err = opJumpi(c)
			case PC:
				c.stack.pushUndefined().SetUint64(c.pc)
			case MSIZE:
				c.stack.pushUndefined().SetUint64(c.memory.length())
			case GAS:
				c.stack.pushUndefined().SetUint64(uint64(c.gas))
			case JUMPDEST:
				// nothing
			case PUSH0:
				c.stack.pushUndefined().Clear()
			case CREATE:
				err = genericCreate(c, juice.Create)
			case CREATE2:
				err = genericCreate(c, juice.Create2)
			case CALL:
				err = opCall(c)
			case CALLCODE:
				err = genericCall(c, juice.CallCode)
			case DELEGATECALL:
				err = genericCall(c, juice.DelegateCall)
			case STATICCALL:
				err = genericCall(c, juice.StaticCall)
			case RETURN:
				status = statusReturned
				err = opEndWithResult(c)
			case REVERT:
				status = statusReverted
				err = opEndWithResult(c)
			default:
				err = errInvalidOpCode
			}
		}

		if err != nil {
			return status, err
		}

		c.pc++
	}
	return status, nil
}

func checkStackLimits(stackLen int, op OpCode) error {
	limits := stackBoundaries[op]
	if stackLen < limits.min {
		return errStackUnderflow
	}
	if stackLen > limits.max {
		return errStackOverflow
	}
	return nil
}
