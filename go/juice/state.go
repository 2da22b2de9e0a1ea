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

//go:generate mockgen -source state.go -destination state_mock.go -package juice

// StateReader is a read-only, consistent snapshot of the account state. All
// reads of a reader observe the same version of the state. Implementations
// must be safe for concurrent use.
type StateReader interface {
	// GetAccountCount returns the number of registered accounts, which is
	// also the id of the next account to be created.
	GetAccountCount() (uint32, error)

	GetScriptHash(AccountID) (Hash, bool, error)
	GetAccountIDByScriptHash(Hash) (AccountID, bool, error)
	GetScriptHashByShortHash(Address) (Hash, bool, error)

	GetNonce(AccountID) (uint64, error)
	GetCode(AccountID) (Code, error)
	GetStorage(AccountID, Key) (Word, error)
	GetBalance(token AccountID, owner Address) (Value, error)
}

// ChainView provides read access to the block history of a committed tip.
type ChainView interface {
	// BlockHash returns the hash of the block with the given number if that
	// block is the tip or one of its ancestors.
	BlockHash(number uint64) (Hash, bool, error)
}
