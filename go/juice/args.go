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
	"encoding/binary"
	"fmt"
	"math"
)

// ArgsKind distinguishes the two kinds of transactions a raw transaction's
// args may describe.
type ArgsKind byte

const (
	ArgsCall   ArgsKind = 0
	ArgsCreate ArgsKind = 1
)

func (k ArgsKind) String() string {
	switch k {
	case ArgsCall:
		return "call"
	case ArgsCreate:
		return "create"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// ArgsVersion is the only version of the args layout understood so far.
const ArgsVersion = 0

// argsMagic prefixes every args blob.
var argsMagic = [7]byte{0xff, 0xff, 0xff, 'P', 'O', 'L', 'Y'}

const (
	argsHeaderSize = len(argsMagic) + 1 // magic + version
	argsFixedSize  = argsHeaderSize + 1 + 8 + 16 + 16 + 4
)

// MaxArgsInputSize bounds the input carried by a single transaction.
const MaxArgsInputSize = 1 << 20

// Args is the decoded payload of a raw transaction describing an EVM
// compatible call or contract creation.
type Args struct {
	Kind     ArgsKind
	GasLimit Gas
	GasPrice Value // < at most 128 bits
	Value    Value // < at most 128 bits
	Input    Data
}

// EncodeArgs serializes the given args in the layout
//
//	magic(7) | version(1) | kind(1) | gas_limit u64 LE | gas_price u128 LE |
//	value u128 LE | len(input) u32 LE | input
func EncodeArgs(args Args) ([]byte, error) {
	if args.Kind != ArgsCall && args.Kind != ArgsCreate {
		return nil, fmt.Errorf("%w: invalid kind %v", ErrMalformedArgs, args.Kind)
	}
	if args.GasLimit < 0 {
		return nil, fmt.Errorf("%w: negative gas limit", ErrMalformedArgs)
	}
	if !fitsUint128(args.GasPrice) || !fitsUint128(args.Value) {
		return nil, fmt.Errorf("%w: gas price or value exceeds 128 bits", ErrMalformedArgs)
	}
	if len(args.Input) > MaxArgsInputSize {
		return nil, fmt.Errorf("%w: input of %d bytes too large", ErrMalformedArgs, len(args.Input))
	}
	res := make([]byte, 0, argsFixedSize+len(args.Input))
	res = append(res, argsMagic[:]...)
	res = append(res, ArgsVersion)
	res = append(res, byte(args.Kind))
	res = binary.LittleEndian.AppendUint64(res, uint64(args.GasLimit))
	res = appendUint128(res, args.GasPrice)
	res = appendUint128(res, args.Value)
	res = binary.LittleEndian.AppendUint32(res, uint32(len(args.Input)))
	return append(res, args.Input...), nil
}

// DecodeArgs parses an args blob. Any deviation from the layout, including
// truncated and over-long payloads, is reported as ErrMalformedArgs.
func DecodeArgs(data []byte) (Args, error) {
	if len(data) < argsFixedSize {
		return Args{}, fmt.Errorf("%w: truncated, %d bytes", ErrMalformedArgs, len(data))
	}
	if [7]byte(data[:7]) != argsMagic {
		return Args{}, fmt.Errorf("%w: invalid header", ErrMalformedArgs)
	}
	if version := data[7]; version != ArgsVersion {
		return Args{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedArgs, version)
	}
	pos := argsHeaderSize

	var res Args
	res.Kind = ArgsKind(data[pos])
	if res.Kind != ArgsCall && res.Kind != ArgsCreate {
		return Args{}, fmt.Errorf("%w: invalid kind %d", ErrMalformedArgs, data[pos])
	}
	pos++

	gasLimit := binary.LittleEndian.Uint64(data[pos:])
	if gasLimit > math.MaxInt64 {
		return Args{}, fmt.Errorf("%w: gas limit %d out of range", ErrMalformedArgs, gasLimit)
	}
	res.GasLimit = Gas(gasLimit)
	pos += 8

	res.GasPrice = readUint128(data[pos : pos+16])
	pos += 16
	res.Value = readUint128(data[pos : pos+16])
	pos += 16

	size := uint64(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4
	if size > MaxArgsInputSize {
		return Args{}, fmt.Errorf("%w: input of %d bytes too large", ErrMalformedArgs, size)
	}
	if rest := uint64(len(data) - pos); rest != size {
		return Args{}, fmt.Errorf("%w: input length %d, payload holds %d", ErrMalformedArgs, size, rest)
	}
	if size > 0 {
		res.Input = append(Data(nil), data[pos:]...)
	}
	return res, nil
}

func fitsUint128(v Value) bool {
	return v.limb(2) == 0 && v.limb(3) == 0
}

func appendUint128(res []byte, v Value) []byte {
	res = binary.LittleEndian.AppendUint64(res, v.limb(0))
	return binary.LittleEndian.AppendUint64(res, v.limb(1))
}

func readUint128(data []byte) Value {
	return NewValue(binary.LittleEndian.Uint64(data[8:16]), binary.LittleEndian.Uint64(data[0:8]))
}
