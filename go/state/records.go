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
	"fmt"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/ethereum/go-ethereum/rlp"
)

// accountRecord is the persistent form of an account. Simple accounts have
// no storage root.
type accountRecord struct {
	Nonce       uint64
	ScriptHash  juice.Hash
	StorageRoot []byte
}

func (r *accountRecord) isContract() bool {
	return len(r.StorageRoot) > 0
}

func encodeAccountRecord(record *accountRecord) ([]byte, error) {
	return rlp.EncodeToBytes(record)
}

func decodeAccountRecord(data []byte) (*accountRecord, error) {
	res := new(accountRecord)
	if err := rlp.DecodeBytes(data, res); err != nil {
		return nil, fmt.Errorf("invalid account record: %w", err)
	}
	return res, nil
}

func encodeAccountID(id juice.AccountID) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(id))
}

func decodeAccountID(data []byte) (juice.AccountID, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("invalid account id encoding of %d bytes", len(data))
	}
	return juice.AccountID(binary.BigEndian.Uint32(data)), nil
}

func decodeHash(data []byte) (juice.Hash, error) {
	var res juice.Hash
	if len(data) != len(res) {
		return res, fmt.Errorf("invalid hash encoding of %d bytes", len(data))
	}
	copy(res[:], data)
	return res, nil
}
