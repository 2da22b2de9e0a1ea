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

	"golang.org/x/crypto/blake2b"
)

// Reserved accounts created at genesis.
const (
	// CreatorAccountID is the deployment router. Transactions creating
	// contracts are addressed to it.
	CreatorAccountID AccountID = 0
	// NativeTokenID is the ledger of the native token used for fees and
	// for values transferred by contract calls.
	NativeTokenID AccountID = 1
)

// HashType selects how the code hash of a script is interpreted.
type HashType byte

const (
	HashTypeData HashType = 0
	HashTypeType HashType = 1
)

// Code hashes identifying the kinds of scripts known to the core.
var (
	CreatorCodeHash  = Blake2b([]byte("juice/creator"))
	TokenCodeHash    = Blake2b([]byte("juice/sudt"))
	EOACodeHash      = Blake2b([]byte("juice/eth-account-lock"))
	ContractCodeHash = Blake2b([]byte("juice/polyjuice-validator"))
)

// Script is the defining script of an account. The blake2b digest of its
// serialization is the account's script hash.
type Script struct {
	CodeHash Hash
	HashType HashType
	Args     []byte
}

// Serialize encodes the script as
//
//	code_hash(32) | hash_type(1) | len(args) u32 LE | args
func (s Script) Serialize() []byte {
	res := make([]byte, 0, 32+1+4+len(s.Args))
	res = append(res, s.CodeHash[:]...)
	res = append(res, byte(s.HashType))
	res = binary.LittleEndian.AppendUint32(res, uint32(len(s.Args)))
	return append(res, s.Args...)
}

// Hash computes the script hash.
func (s Script) Hash() Hash {
	return Blake2b(s.Serialize())
}

// DeserializeScript is the inverse of Script.Serialize.
func DeserializeScript(data []byte) (Script, error) {
	if len(data) < 37 {
		return Script{}, fmt.Errorf("script too short: %d bytes", len(data))
	}
	var res Script
	copy(res.CodeHash[:], data[:32])
	res.HashType = HashType(data[32])
	size := binary.LittleEndian.Uint32(data[33:37])
	if uint64(len(data)-37) != uint64(size) {
		return Script{}, fmt.Errorf("invalid script args length, header %d, got %d", size, len(data)-37)
	}
	res.Args = append([]byte(nil), data[37:]...)
	return res, nil
}

// IsContract reports whether the script belongs to a contract account.
func (s Script) IsContract() bool {
	return s.CodeHash == ContractCodeHash
}

// EOAScript returns the script of an externally owned account controlled by
// the given Ethereum address.
func EOAScript(ethAddress [20]byte) Script {
	return Script{
		CodeHash: EOACodeHash,
		HashType: HashTypeType,
		Args:     append([]byte(nil), ethAddress[:]...),
	}
}

// ContractScript returns the script of a contract deployed through the given
// creator account. The address is derived from the deploying account, see
// the generator package.
func ContractScript(creator AccountID, address [20]byte) Script {
	args := make([]byte, 0, 24)
	args = append(args, creator.Bytes()...)
	args = append(args, address[:]...)
	return Script{
		CodeHash: ContractCodeHash,
		HashType: HashTypeType,
		Args:     args,
	}
}

// CreatorScript returns the script of the deployment router.
func CreatorScript(token AccountID) Script {
	return Script{
		CodeHash: CreatorCodeHash,
		HashType: HashTypeType,
		Args:     token.Bytes(),
	}
}

// TokenScript returns the script of a token ledger account.
func TokenScript(l1Hash Hash) Script {
	return Script{
		CodeHash: TokenCodeHash,
		HashType: HashTypeType,
		Args:     append([]byte(nil), l1Hash[:]...),
	}
}

// Blake2b computes the 256-bit blake2b digest of the concatenated inputs.
func Blake2b(data ...[]byte) Hash {
	hasher, _ := blake2b.New256(nil)
	for _, cur := range data {
		hasher.Write(cur)
	}
	var res Hash
	hasher.Sum(res[:0])
	return res
}
