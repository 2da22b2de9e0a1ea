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

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"math/bits"
	"strings"

	"github.com/holiman/uint256"
)

// AccountID is the dense integer handle of an account. Ids are assigned at
// creation in increasing order and are never reused.
type AccountID uint32

// Address is the 20-byte short hash of an account's script hash. It is the
// address observed by contract code and the owner key of token balances.
type Address [20]byte

// Key represents the 256-bit (32 bytes) key of a storage slot.
type Key [32]byte

// Word represents an arbitrary 256-bit (32 byte) word.
type Word [32]byte

// Value represents an amount of a fungible token.
type Value [32]byte

// Hash represents a 256-bit (32 bytes) digest of a script, a code, a block
// or a topic.
type Hash [32]byte

// Code represents the byte-code of a contract.
type Code []byte

// Data represents the input or output of contract invocations.
type Data []byte

// Gas represents the type used to represent Gas values.
type Gas int64

// Cycles measures the execution work of a transaction. It is metered
// independently of gas and bounded by the caller's cycle limit.
type Cycles uint64

func (id AccountID) String() string {
	return fmt.Sprintf("#%d", uint32(id))
}

// Bytes returns the 4-byte little-endian encoding of the id.
func (id AccountID) Bytes() []byte {
	var res [4]byte
	binary.LittleEndian.PutUint32(res[:], uint32(id))
	return res[:]
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return bytesToText(a[:])
}

func (a *Address) UnmarshalText(data []byte) error {
	return textToBytes(a[:], data)
}

func (k Key) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x", w[:])
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return bytesToText(h[:])
}

func (h *Hash) UnmarshalText(data []byte) error {
	return textToBytes(h[:], data)
}

// ShortHash returns the first 20 bytes of the hash. For script hashes this is
// the address of the account.
func (h Hash) ShortHash() Address {
	var res Address
	copy(res[:], h[:20])
	return res
}

func (v Value) ToBig() *big.Int {
	return new(big.Int).SetBytes(v[:])
}

func (v Value) ToUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(v[:])
}

func (v Value) String() string {
	return v.ToUint256().String()
}

func (v Value) Cmp(o Value) int {
	return bytes.Compare(v[:], o[:])
}

func (v Value) IsZero() bool {
	return v == Value{}
}

// NewValue creates a new Value instance from up to 4 uint64 arguments. The
// arguments are given in the order from most significant to least significant
// by padding leading zeros as needed. No argument results in a value of zero.
func NewValue(args ...uint64) (result Value) {
	if len(args) > 4 {
		panic("Too many arguments")
	}
	offset := 4 - len(args)
	for i := 0; i < len(args) && i < 4; i++ {
		start := (offset * 8) + i*8
		end := start + 8
		binary.BigEndian.PutUint64(result[start:end], args[i])
	}
	return
}

// ValueFromUint256 converts a *uint256.Int to a Value.
// If the input is nil, it returns 0.
func ValueFromUint256(value *uint256.Int) (result Value) {
	if value == nil {
		return result
	}
	return value.Bytes32()
}

// Add returns a+b and whether the addition overflowed 256 bits.
func Add(a, b Value) (z Value, overflow bool) {
	res, carry := bits.Add64(a.limb(0), b.limb(0), 0)
	binary.BigEndian.PutUint64(z[24:32], res)

	res, carry = bits.Add64(a.limb(1), b.limb(1), carry)
	binary.BigEndian.PutUint64(z[16:24], res)

	res, carry = bits.Add64(a.limb(2), b.limb(2), carry)
	binary.BigEndian.PutUint64(z[8:16], res)

	res, carry = bits.Add64(a.limb(3), b.limb(3), carry)
	binary.BigEndian.PutUint64(z[0:8], res)

	return z, carry != 0
}

// Sub returns a-b and whether the subtraction underflowed.
func Sub(a, b Value) (z Value, underflow bool) {
	res, borrow := bits.Sub64(a.limb(0), b.limb(0), 0)
	binary.BigEndian.PutUint64(z[24:32], res)

	res, borrow = bits.Sub64(a.limb(1), b.limb(1), borrow)
	binary.BigEndian.PutUint64(z[16:24], res)

	res, borrow = bits.Sub64(a.limb(2), b.limb(2), borrow)
	binary.BigEndian.PutUint64(z[8:16], res)

	res, borrow = bits.Sub64(a.limb(3), b.limb(3), borrow)
	binary.BigEndian.PutUint64(z[0:8], res)

	return z, borrow != 0
}

// Scale multiplies the value by s. The second result reports an overflow.
func (v Value) Scale(s uint64) (Value, bool) {
	res, overflow := new(uint256.Int).MulOverflow(v.ToUint256(), uint256.NewInt(s))
	return ValueFromUint256(res), overflow
}

func (v Value) MarshalText() ([]byte, error) {
	return bytesToText(v[:])
}

func (v *Value) UnmarshalText(data []byte) error {
	return textToBytes(v[:], data)
}

func (v Value) limb(index int) uint64 {
	start := 24 - index*8
	end := start + 8
	return binary.BigEndian.Uint64(v[start:end])
}

// SizeInWords returns the number of 32-byte words needed to hold size bytes.
func SizeInWords(size uint64) uint64 {
	if size > (1<<64)-32 {
		return (1<<64-1)/32 + 1
	}
	return (size + 31) / 32
}

func bytesToText(data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", data)), nil
}

func textToBytes(trg []byte, data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	data, err := hex.DecodeString(s[2:])
	if err != nil {
		return err
	}
	if want, got := len(trg), len(data); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg[:], data)
	return nil
}
