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
	"bytes"
	"math"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/holiman/uint256"
)

func opEndWithResult(c *context) error {
	offset := *c.stack.pop()
	size := *c.stack.pop()
	if err := checkSizeOffsetUint64Overflow(&offset, &size); err != nil {
		return err
	}
	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}
	c.returnData = bytes.Clone(data)
	return nil
}

func jumpTo(c *context, destination *uint256.Int) error {
	if !destination.IsUint64() || !c.jumpDests.isValid(destination.Uint64()) {
		return errInvalidJump
	}
	// the interpreter increments the PC after the instruction, wrapping
	// around for a destination of 0
	c.pc = destination.Uint64() - 1
	return nil
}

func opJump(c *context) error {
	return jumpTo(c, c.stack.pop())
}

func opJumpi(c *context) error {
	destination := c.stack.pop()
	condition := c.stack.pop()
	if condition.IsZero() {
		return nil
	}
	return jumpTo(c, destination)
}

func opPush(c *context, n int) {
	z := c.stack.pushUndefined()
	start := c.pc + 1
	end := start + uint64(n)
	// immediates truncated by the end of the code are padded with zeros
	var value [32]byte
	if start < uint64(len(c.code)) {
		copy(value[:n], c.code[start:min(end, uint64(len(c.code)))])
	}
	z.SetBytes(value[:n])
	c.pc += uint64(n)
}

func opDup(c *context, pos int) {
	c.stack.dup(pos - 1)
}

func opSwap(c *context, pos int) {
	c.stack.swap(pos)
}

func opMstore(c *context) error {
	var addr = c.stack.pop()
	var value = c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return errOverflow
	}
	data := value.Bytes32()
	return c.memory.set(offset, data[:], c)
}

func opMstore8(c *context) error {
	var addr = c.stack.pop()
	var value = c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return errOverflow
	}
	return c.memory.set(offset, []byte{byte(value.Uint64())}, c)
}

func opMload(c *context) error {
	var trg = c.stack.peek()
	var addr = *trg

	if !addr.IsUint64() {
		return errOverflow
	}
	return c.memory.readWord(addr.Uint64(), trg, c)
}

func opSstore(c *context) error {
	// SStore is a write instruction, it shall not be executed in static mode.
	if c.params.Static {
		return errStaticContextViolation
	}

	// at least the sentry gas has to be available for SSTORE
	if c.gas <= SstoreSentryGas {
		return errOutOfGas
	}

	var key = juice.Key(c.stack.pop().Bytes32())
	var value = juice.Word(c.stack.pop().Bytes32())

	current := c.context.GetStorage(c.params.Recipient, key)
	cost := SstoreResetGas
	if current == (juice.Word{}) && value != (juice.Word{}) {
		cost = SstoreSetGas
	}
	if err := c.useGas(cost); err != nil {
		return err
	}
	c.context.SetStorage(c.params.Recipient, key, value)
	return nil
}

func opSload(c *context) {
	var top = c.stack.peek()
	value := c.context.GetStorage(c.params.Recipient, juice.Key(top.Bytes32()))
	top.SetBytes32(value[:])
}

func opCaller(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Sender[:])
}

func opCallvalue(c *context) {
	c.stack.pushUndefined().SetBytes32(c.params.Value[:])
}

func opCallDatasize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.params.Input)))
}

func opCallDataload(c *context) {
	top := c.stack.peek()
	if !top.IsUint64() {
		top.Clear()
		return
	}
	value := getData(c.params.Input, top.Uint64(), 32)
	top.SetBytes32(value)
}

// genericDataCopy implements CALLDATACOPY and CODECOPY.
func genericDataCopy(c *context, source []byte) error {
	var (
		memOffset  = c.stack.pop()
		dataOffset = c.stack.pop()
		length     = c.stack.pop()
	)
	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}
	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = math.MaxUint64
	}

	// Charge for the copy costs
	words := juice.SizeInWords(length.Uint64())
	if err := c.useGas(juice.Gas(3 * words)); err != nil {
		return err
	}

	data, err := c.memory.getSlice(memOffset.Uint64(), length.Uint64(), c)
	if err != nil {
		return err
	}
	copy(data, getData(source, dataOffset64, length.Uint64()))
	return nil
}

func opAnd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.And(a, b)
}

func opOr(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Or(a, b)
}

func opNot(c *context) {
	a := c.stack.peek()
	a.Not(a)
}

func opXor(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Xor(a, b)
}

func opIszero(c *context) {
	top := c.stack.peek()
	if top.IsZero() {
		top.SetOne()
	} else {
		top.Clear()
	}
}

func setBool(z *uint256.Int, value bool) {
	if value {
		z.SetOne()
	} else {
		z.Clear()
	}
}

func opEq(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Eq(b))
}

func opLt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Lt(b))
}

func opGt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Gt(b))
}

func opSlt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Slt(b))
}

func opSgt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	setBool(b, a.Sgt(b))
}

func opShr(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.LtUint64(256) {
		b.Rsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opShl(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.LtUint64(256) {
		b.Lsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opSar(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.GtUint64(256) {
		if b.Sign() >= 0 {
			b.Clear()
		} else {
			b.SetAllOne()
		}
		return
	}
	b.SRsh(b, uint(a.Uint64()))
}

func opSignExtend(c *context) {
	back, num := c.stack.pop(), c.stack.peek()
	num.ExtendSign(num, back)
}

func opByte(c *context) {
	th, val := c.stack.pop(), c.stack.peek()
	val.Byte(th)
}

func opAdd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Add(a, b)
}

func opSub(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Sub(a, b)
}

func opMul(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mul(a, b)
}

func opMulMod(c *context) {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.MulMod(a, b, n)
}

func opDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Div(a, b)
}

func opSDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SDiv(a, b)
}

func opMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mod(a, b)
}

func opAddMod(c *context) {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.AddMod(a, b, n)
}

func opSMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SMod(a, b)
}

func opExp(c *context) error {
	base, exponent := c.stack.pop(), c.stack.peek()
	if err := c.useGas(juice.Gas(50 * exponent.ByteLen())); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	return nil
}

func opSha3(c *context) error {
	offset, size := c.stack.pop(), c.stack.peek()

	if checkSizeOffsetUint64Overflow(offset, size) != nil {
		return errOverflow
	}

	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}

	// charge dynamic gas price
	words := juice.SizeInWords(size.Uint64())
	if err := c.useGas(juice.Gas(6 * words)); err != nil {
		return err
	}
	hash := Keccak256(data)
	size.SetBytes32(hash[:])
	return nil
}

func opTimestamp(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.params.Timestamp))
}

func opNumber(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.params.BlockNumber))
}

func opCoinbase(c *context) {
	coinbase := c.params.Coinbase
	c.stack.pushUndefined().SetBytes20(coinbase[:])
}

func opGasLimit(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.params.GasLimit))
}

func opGasPrice(c *context) {
	price := c.params.GasPrice
	c.stack.pushUndefined().SetBytes32(price[:])
}

func opBalance(c *context) {
	slot := c.stack.peek()
	balance := c.context.GetBalance(juice.Address(slot.Bytes20()))
	slot.SetBytes32(balance[:])
}

func opSelfbalance(c *context) {
	balance := c.context.GetBalance(c.params.Recipient)
	c.stack.pushUndefined().SetBytes32(balance[:])
}

func opChainId(c *context) {
	id := c.params.ChainID
	c.stack.pushUndefined().SetBytes32(id[:])
}

// blockHashWindow is the number of most recent blocks BLOCKHASH can access.
const blockHashWindow = 256

func opBlockhash(c *context) {
	num := c.stack.peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return
	}
	var upper, lower uint64
	upper = uint64(c.params.BlockNumber)
	if upper > blockHashWindow {
		lower = upper - blockHashWindow
	}
	if num64 >= lower && num64 < upper {
		hash := c.context.GetBlockHash(int64(num64))
		num.SetBytes32(hash[:])
	} else {
		num.Clear()
	}
}

func opAddress(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Recipient[:])
}

func opOrigin(c *context) {
	origin := c.params.Origin
	c.stack.pushUndefined().SetBytes20(origin[:])
}

func opCodeSize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.params.Code)))
}

func opExtcodesize(c *context) {
	top := c.stack.peek()
	top.SetUint64(uint64(c.context.GetCodeSize(juice.Address(top.Bytes20()))))
}

func opExtcodehash(c *context) {
	slot := c.stack.peek()
	address := juice.Address(slot.Bytes20())
	if !c.context.AccountExists(address) {
		slot.Clear()
		return
	}
	hash := c.context.GetCodeHash(address)
	slot.SetBytes32(hash[:])
}

func opExtCodeCopy(c *context) error {
	var (
		stack      = c.stack
		a          = stack.pop()
		memOffset  = stack.pop()
		codeOffset = stack.pop()
		length     = stack.pop()
	)
	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	// Charge for length of copied code
	words := juice.SizeInWords(length.Uint64())
	if err := c.useGas(juice.Gas(3 * words)); err != nil {
		return err
	}

	codeOffset64, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOffset64 = math.MaxUint64
	}

	data, err := c.memory.getSlice(memOffset.Uint64(), length.Uint64(), c)
	if err != nil {
		return err
	}
	code := c.context.GetCode(juice.Address(a.Bytes20()))
	copy(data, getData(code, codeOffset64, length.Uint64()))
	return nil
}

func opReturnDataSize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.returnData)))
}

func opReturnDataCopy(c *context) error {
	var (
		memOffset  = c.stack.pop()
		dataOffset = c.stack.pop()
		length     = c.stack.pop()
	)

	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return errReturnDataOutOfBounds
	}
	var end = dataOffset
	end.Add(dataOffset, length)
	end64, overflow := end.Uint64WithOverflow()
	if overflow || uint64(len(c.returnData)) < end64 {
		return errReturnDataOutOfBounds
	}

	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	words := juice.SizeInWords(length.Uint64())
	if err := c.useGas(juice.Gas(3 * words)); err != nil {
		return err
	}

	return c.memory.set(memOffset.Uint64(), c.returnData[offset64:end64], c)
}

func opLog(c *context, size int) error {
	// LogN op codes are write instructions, they shall not be executed in static mode.
	if c.params.Static {
		return errStaticContextViolation
	}

	topics := make([]juice.Hash, size)
	stack := c.stack
	mStart, mSize := stack.pop(), stack.pop()

	if err := checkSizeOffsetUint64Overflow(mStart, mSize); err != nil {
		return err
	}

	for i := 0; i < size; i++ {
		topics[i] = stack.pop().Bytes32()
	}

	start := mStart.Uint64()
	logSize := mSize.Uint64()

	// charge for log size
	if err := c.useGas(juice.Gas(8 * logSize)); err != nil {
		return err
	}

	data, err := c.memory.getSlice(start, logSize, c)
	if err != nil {
		return err
	}

	// make a copy of the data to disconnect from memory
	c.context.EmitLog(juice.Log{
		Address: c.params.Recipient,
		Topics:  topics,
		Data:    bytes.Clone(data),
	})
	return nil
}

func genericCreate(c *context, kind juice.CallKind) error {
	// Create is a write instruction, it shall not be executed in static mode.
	if c.params.Static {
		return errStaticContextViolation
	}

	var (
		value  = c.stack.pop()
		offset = c.stack.pop()
		size   = c.stack.pop()
		salt   = juice.Hash{}
	)
	if kind == juice.Create2 {
		salt = c.stack.pop().Bytes32()
	}

	if checkSizeOffsetUint64Overflow(offset, size) != nil {
		return errOverflow
	}

	input, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}

	if kind == juice.Create2 {
		// Charge for hashing the init code to compute the target address.
		words := juice.SizeInWords(size.Uint64())
		if err := c.useGas(juice.Gas(6 * words)); err != nil {
			return err
		}
	}

	if !value.IsZero() {
		balance := c.context.GetBalance(c.params.Recipient)
		if value.Gt(new(uint256.Int).SetBytes32(balance[:])) {
			c.stack.pushUndefined().Clear()
			c.returnData = nil
			return nil
		}
	}

	// all but one 64th of the remaining gas is passed on
	gas := c.gas
	gas -= gas / 64
	if err := c.useGas(gas); err != nil {
		return err
	}

	res, err := c.context.Call(kind, juice.CallParameters{
		Sender: c.params.Recipient,
		Value:  juice.Value(value.Bytes32()),
		Input:  bytes.Clone(input),
		Gas:    gas,
		Salt:   salt,
	})
	if err != nil {
		return c.abort(err)
	}

	success := c.stack.pushUndefined()
	if res.Success {
		success.SetBytes20(res.CreatedAddress[:])
		c.returnData = nil
	} else {
		success.Clear()
		c.returnData = res.Output
	}
	c.gas += res.GasLeft
	return nil
}

func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length || end < start {
		end = length
	}
	// Apply some right-padding to the result.
	res := make([]byte, int(size))
	copy(res, data[start:end])
	return res
}

func checkSizeOffsetUint64Overflow(offset, size *uint256.Int) error {
	if size.IsZero() {
		return nil
	}
	if !offset.IsUint64() || !size.IsUint64() || offset.Uint64()+size.Uint64() < offset.Uint64() {
		return errOverflow
	}
	return nil
}

func genericCall(c *context, kind juice.CallKind) error {
	stack := c.stack
	value := uint256.NewInt(0)

	// Pop call parameters.
	providedGas, addr := stack.pop(), stack.pop()
	if kind == juice.Call || kind == juice.CallCode {
		value = stack.pop()
	}
	inOffset, inSize, retOffset, retSize := stack.pop(), stack.pop(), stack.pop(), stack.pop()

	toAddr := juice.Address(addr.Bytes20())

	if checkSizeOffsetUint64Overflow(inOffset, inSize) != nil {
		return errOverflow
	}
	if checkSizeOffsetUint64Overflow(retOffset, retSize) != nil {
		return errOverflow
	}

	// Get arguments from the memory.
	args, err := c.memory.getSlice(inOffset.Uint64(), inSize.Uint64(), c)
	if err != nil {
		return err
	}
	args = bytes.Clone(args)
	output, err := c.memory.getSlice(retOffset.Uint64(), retSize.Uint64(), c)
	if err != nil {
		return err
	}

	// for static and delegate calls, the following value checks will always be zero.
	// Charge for transferring value to a new address
	if !value.IsZero() {
		if err := c.useGas(CallValueTransferGas); err != nil {
			return err
		}
	}

	// Non-zero value calls that create a new account are charged an
	// additional gas fee.
	if kind == juice.Call && !value.IsZero() && !c.context.AccountExists(toAddr) {
		if err := c.useGas(CallNewAccountGas); err != nil {
			return err
		}
	}

	// All but one 64th of the available gas in one scope may be passed to a
	// nested call.
	nestedCallGas := c.gas - c.gas/64
	if providedGas.IsUint64() && (nestedCallGas >= juice.Gas(providedGas.Uint64())) {
		nestedCallGas = juice.Gas(providedGas.Uint64())
	}
	if err := c.useGas(nestedCallGas); err != nil {
		return err
	}

	if !value.IsZero() {
		nestedCallGas += CallStipend
	}

	// Check that the caller has enough balance to transfer the requested value.
	if (kind == juice.Call || kind == juice.CallCode) && !value.IsZero() {
		balance := c.context.GetBalance(c.params.Recipient)
		if new(uint256.Int).SetBytes32(balance[:]).Lt(value) {
			c.stack.pushUndefined().Clear()
			c.returnData = nil
			c.gas += nestedCallGas // the gas send to the nested contract is returned
			return nil
		}
	}

	// In static mode, nested calls are treated like static calls.
	if c.params.Static && kind == juice.Call {
		kind = juice.StaticCall
	}

	callParams := juice.CallParameters{
		Input: args,
		Gas:   nestedCallGas,
		Value: juice.Value(value.Bytes32()),
	}

	switch kind {
	case juice.Call, juice.StaticCall:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = toAddr
		callParams.CodeAddress = toAddr

	case juice.CallCode:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr

	case juice.DelegateCall:
		callParams.Sender = c.params.Sender
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr
		callParams.Value = c.params.Value
	}

	ret, err := c.context.Call(kind, callParams)
	if err != nil {
		return c.abort(err)
	}

	copy(output, ret.Output)
	success := stack.pushUndefined()
	setBool(success, ret.Success)
	c.gas += ret.GasLeft
	c.returnData = ret.Output
	return nil
}

func opCall(c *context) error {
	value := c.stack.peekN(2)
	// In a static call, no value must be transferred.
	if c.params.Static && !value.IsZero() {
		return errStaticContextViolation
	}
	return genericCall(c, juice.Call)
}
