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

// ReadKind enumerates the kinds of entries in a read-set.
type ReadKind byte

const (
	ReadBalance ReadKind = iota
	ReadStorage
	ReadMissingAccount
)

func (k ReadKind) String() string {
	switch k {
	case ReadBalance:
		return "balance"
	case ReadStorage:
		return "storage"
	case ReadMissingAccount:
		return "missing_account"
	default:
		return "unknown"
	}
}

// Read is a value of the snapshot a run result was computed on that the
// result depends on. A result may only be applied while all of its reads
// still hold. Nonces and account ids are not part of the read-set; they are
// covered by the NonceBump and CreateAccount entries of the write-set.
type Read interface {
	Kind() ReadKind
}

// BalanceRead records the balance of an owner observed by the execution.
// Balances that were only credited are not recorded.
type BalanceRead struct {
	Token AccountID
	Owner Address
	Value Value
}

// StorageRead records the value of a storage slot of an existing account.
type StorageRead struct {
	Account AccountID
	Key     Key
	Value   Word
}

// MissingAccountRead records that no account was registered under an
// address. Registrations are never removed, so reads of existing accounts
// can not become stale and are not recorded.
type MissingAccountRead struct {
	Address Address
}

func (*BalanceRead) Kind() ReadKind        { return ReadBalance }
func (*StorageRead) Kind() ReadKind        { return ReadStorage }
func (*MissingAccountRead) Kind() ReadKind { return ReadMissingAccount }
