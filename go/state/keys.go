// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"encoding/binary"

	"github.com/Fantom-foundation/Juice/go/juice"
)

// Key space of the state. Every key starts with a one-byte table prefix.
const (
	prefixMeta          byte = 'm' // m<name> -> meta data
	prefixAccount       byte = 'a' // a<id BE> -> rlp(accountRecord)
	prefixScriptHash    byte = 's' // s<script hash> -> id BE
	prefixShortHash     byte = 'h' // h<short hash> -> script hash
	prefixScript        byte = 'x' // x<script hash> -> serialized script
	prefixCode          byte = 'c' // c<id BE> -> code
	prefixBalance       byte = 'b' // b<token BE><owner> -> value
	prefixStorage       byte = 'k' // k<blake2b(id LE | 0x00 | key)> -> word
	prefixBlockHeader   byte = 'B' // B<hash> -> rlp(header)
	prefixCanonicalHash byte = 'n' // n<number BE> -> hash
)

// Account sub-keys used for deriving raw keys of account owned data.
const (
	accountKeyValue byte = 0
)

var (
	accountCountKey = []byte{prefixMeta, 'c'}
	tipKey          = []byte{prefixMeta, 't'}
	genesisKey      = []byte{prefixMeta, 'g'}
)

func accountKey(id juice.AccountID) []byte {
	return binary.BigEndian.AppendUint32([]byte{prefixAccount}, uint32(id))
}

func scriptHashKey(hash juice.Hash) []byte {
	return append([]byte{prefixScriptHash}, hash[:]...)
}

func shortHashKey(address juice.Address) []byte {
	return append([]byte{prefixShortHash}, address[:]...)
}

func scriptKey(hash juice.Hash) []byte {
	return append([]byte{prefixScript}, hash[:]...)
}

func codeKey(id juice.AccountID) []byte {
	return binary.BigEndian.AppendUint32([]byte{prefixCode}, uint32(id))
}

func balanceKey(token juice.AccountID, owner juice.Address) []byte {
	res := binary.BigEndian.AppendUint32([]byte{prefixBalance}, uint32(token))
	return append(res, owner[:]...)
}

// storageKey derives the raw key of a storage slot of an account.
func storageKey(id juice.AccountID, key juice.Key) []byte {
	raw := RawStorageKey(id, key)
	return append([]byte{prefixStorage}, raw[:]...)
}

// RawStorageKey is the digest identifying a storage slot of an account
// across the whole state: blake2b(id u32 LE | 0x00 | key).
func RawStorageKey(id juice.AccountID, key juice.Key) juice.Hash {
	return juice.Blake2b(id.Bytes(), []byte{accountKeyValue}, key[:])
}

// storageRoot is the storage namespace of a contract account.
func storageRoot(id juice.AccountID) juice.Hash {
	return juice.Blake2b(id.Bytes(), []byte{accountKeyValue})
}

func blockHeaderKey(hash juice.Hash) []byte {
	return append([]byte{prefixBlockHeader}, hash[:]...)
}

func canonicalHashKey(number uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{prefixCanonicalHash}, number)
}
