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

// RawTransaction is the envelope of a layer-2 transaction. Transactions to
// CreatorAccountID with create args deploy a contract.
type RawTransaction struct {
	From  AccountID
	To    AccountID
	Nonce uint64
	Args  []byte
}

// BlockInfo describes the block a transaction is executed in. It is supplied
// by the caller and never derived by the generator.
type BlockInfo struct {
	Producer  AccountID
	Number    uint64
	Timestamp uint64
}

// Log is a message emitted as a side effect of a contract execution.
type Log struct {
	Address Address
	Topics  []Hash
	Data    Data
}
