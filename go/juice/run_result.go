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
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// WriteKind enumerates the kinds of entries in a write-set.
type WriteKind byte

const (
	WriteCreateAccount WriteKind = iota
	WriteSetCode
	WriteNonceBump
	WriteBalanceDelta
	WriteStorage
)

func (k WriteKind) String() string {
	switch k {
	case WriteCreateAccount:
		return "create_account"
	case WriteSetCode:
		return "set_code"
	case WriteNonceBump:
		return "nonce_bump"
	case WriteBalanceDelta:
		return "balance_delta"
	case WriteStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Write is a single state mutation of a write-set. The set of
// implementations is closed; it is defined by this package.
type Write interface {
	Kind() WriteKind
}

// CreateAccount registers a new account under the given id.
type CreateAccount struct {
	ID     AccountID
	Script Script
}

// SetCode installs the code of a freshly deployed contract.
type SetCode struct {
	Account AccountID
	Code    Code
}

// NonceBump moves an account's nonce from From to To.
type NonceBump struct {
	Account AccountID
	From    uint64
	To      uint64
}

// BalanceDelta credits or debits an amount of a token to an owner.
type BalanceDelta struct {
	Token  AccountID
	Owner  Address
	Amount Value
	Debit  bool
}

// StorageWrite sets a storage slot of an account. A zero value deletes the
// slot.
type StorageWrite struct {
	Account AccountID
	Key     Key
	Value   Word
}

func (*CreateAccount) Kind() WriteKind { return WriteCreateAccount }
func (*SetCode) Kind() WriteKind       { return WriteSetCode }
func (*NonceBump) Kind() WriteKind     { return WriteNonceBump }
func (*BalanceDelta) Kind() WriteKind  { return WriteBalanceDelta }
func (*StorageWrite) Kind() WriteKind  { return WriteStorage }

// RunResult is the outcome of executing a transaction: the data returned by
// the contract, the write-set to be applied to the state and the read-set
// the write-set was derived from. It is a pure function of the execution
// inputs.
type RunResult struct {
	ReturnData Data
	Writes     []Write
	Reads      []Read
	Logs       []Log
	Cycles     Cycles
	GasUsed    Gas
	// Deposit marks results introducing new tokens into the system. Only
	// deposits may violate per-token conservation.
	Deposit bool
}

// NewDeposit creates a run result minting the given amount of a token to
// an owner.
func NewDeposit(token AccountID, owner Address, amount Value) *RunResult {
	return &RunResult{
		Writes:  []Write{&BalanceDelta{Token: token, Owner: owner, Amount: amount}},
		Deposit: true,
	}
}

// CreatedAccounts lists the account creations of the write-set in order.
// For deployments, the first entry is the deployed contract.
func (r *RunResult) CreatedAccounts() []*CreateAccount {
	var res []*CreateAccount
	for _, w := range r.Writes {
		if c, ok := w.(*CreateAccount); ok {
			res = append(res, c)
		}
	}
	return res
}

// CheckConservation verifies that, for every token, the credited amounts
// equal the debited amounts.
func (r *RunResult) CheckConservation() error {
	type sums struct{ credit, debit uint256.Int }
	perToken := map[AccountID]*sums{}
	for _, w := range r.Writes {
		delta, ok := w.(*BalanceDelta)
		if !ok {
			continue
		}
		cur := perToken[delta.Token]
		if cur == nil {
			cur = &sums{}
			perToken[delta.Token] = cur
		}
		trg := &cur.credit
		if delta.Debit {
			trg = &cur.debit
		}
		if _, overflow := trg.AddOverflow(trg, delta.Amount.ToUint256()); overflow {
			return fmt.Errorf("balance deltas of token %v overflow", delta.Token)
		}
	}
	tokens := make([]AccountID, 0, len(perToken))
	for token := range perToken {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	for _, token := range tokens {
		cur := perToken[token]
		if !cur.credit.Eq(&cur.debit) {
			return fmt.Errorf("token %v not conserved: credit %v, debit %v", token, &cur.credit, &cur.debit)
		}
	}
	return nil
}

type encodedWrite struct {
	Kind    WriteKind
	Payload []byte
}

type encodedRead struct {
	Kind    ReadKind
	Payload []byte
}

type encodedRunResult struct {
	ReturnData []byte
	Writes     []encodedWrite
	Reads      []encodedRead
	Logs       []Log
	Cycles     uint64
	GasUsed    uint64
	Deposit    bool
}

// Encode produces the canonical RLP encoding of the result. Identical results
// have identical encodings.
func (r *RunResult) Encode() ([]byte, error) {
	res := encodedRunResult{
		ReturnData: r.ReturnData,
		Writes:     make([]encodedWrite, 0, len(r.Writes)),
		Reads:      make([]encodedRead, 0, len(r.Reads)),
		Logs:       r.Logs,
		Cycles:     uint64(r.Cycles),
		GasUsed:    uint64(r.GasUsed),
		Deposit:    r.Deposit,
	}
	for _, w := range r.Writes {
		payload, err := rlp.EncodeToBytes(w)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %v entry: %w", w.Kind(), err)
		}
		res.Writes = append(res.Writes, encodedWrite{Kind: w.Kind(), Payload: payload})
	}
	for _, read := range r.Reads {
		payload, err := rlp.EncodeToBytes(read)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %v read: %w", read.Kind(), err)
		}
		res.Reads = append(res.Reads, encodedRead{Kind: read.Kind(), Payload: payload})
	}
	return rlp.EncodeToBytes(&res)
}

// Hash computes the blake2b digest of the canonical encoding.
func (r *RunResult) Hash() (Hash, error) {
	data, err := r.Encode()
	if err != nil {
		return Hash{}, err
	}
	return Blake2b(data), nil
}
