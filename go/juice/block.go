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

import "github.com/ethereum/go-ethereum/rlp"

// BlockHeader is the block metadata retained by the state for the chain view.
type BlockHeader struct {
	Number    uint64
	Timestamp uint64
	Producer  AccountID
	Parent    Hash
}

// Encode returns the RLP encoding of the header.
func (h *BlockHeader) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(h)
}

// DecodeBlockHeader is the inverse of BlockHeader.Encode.
func DecodeBlockHeader(data []byte) (*BlockHeader, error) {
	res := new(BlockHeader)
	if err := rlp.DecodeBytes(data, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Hash computes the block hash, the blake2b digest of the encoded header.
func (h *BlockHeader) Hash() Hash {
	data, err := h.Encode()
	if err != nil {
		// headers only consist of fixed-size fields
		panic(err)
	}
	return Blake2b(data)
}
