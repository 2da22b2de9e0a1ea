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
)

// Transaction is a read-only handle on an immutable version of the state.
// It observes the state as of the moment it was started, regardless of run
// results applied afterwards. A Transaction may be used concurrently and
// has to be released when it is no longer needed.
type Transaction struct {
	reader
	snapshot kvSnapshot
}

var _ juice.StateReader = (*Transaction)(nil)

// GetTipBlockHash returns the hash of the block the state was at when the
// transaction was started.
func (t *Transaction) GetTipBlockHash() (juice.Hash, error) {
	hash, found, err := t.getTip()
	if err != nil {
		return juice.Hash{}, err
	}
	if !found {
		return juice.Hash{}, fmt.Errorf("state has no tip block")
	}
	return hash, nil
}

// Release frees resources held by the transaction.
func (t *Transaction) Release() error {
	return t.snapshot.release()
}

// reader implements all read operations on top of a version of the key
// space. It is shared by transactions and the applier.
type reader struct {
	kv kvReader
}

func (r reader) GetAccountCount() (uint32, error) {
	data, found, err := r.kv.get(accountCountKey)
	if err != nil || !found {
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("invalid account count encoding of %d bytes", len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}

func (r reader) getAccount(id juice.AccountID) (*accountRecord, bool, error) {
	data, found, err := r.kv.get(accountKey(id))
	if err != nil || !found {
		return nil, false, err
	}
	record, err := decodeAccountRecord(data)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func (r reader) GetScriptHash(id juice.AccountID) (juice.Hash, bool, error) {
	record, found, err := r.getAccount(id)
	if err != nil || !found {
		return juice.Hash{}, false, err
	}
	return record.ScriptHash, true, nil
}

func (r reader) GetAccountIDByScriptHash(hash juice.Hash) (juice.AccountID, bool, error) {
	data, found, err := r.kv.get(scriptHashKey(hash))
	if err != nil || !found {
		return 0, false, err
	}
	id, err := decodeAccountID(data)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r reader) GetScriptHashByShortHash(address juice.Address) (juice.Hash, bool, error) {
	data, found, err := r.kv.get(shortHashKey(address))
	if err != nil || !found {
		return juice.Hash{}, false, err
	}
	hash, err := decodeHash(data)
	if err != nil {
		return juice.Hash{}, false, err
	}
	return hash, true, nil
}

// GetAccountIDByShortHash resolves the account using the given EVM address.
func (r reader) GetAccountIDByShortHash(address juice.Address) (juice.AccountID, bool, error) {
	hash, found, err := r.GetScriptHashByShortHash(address)
	if err != nil || !found {
		return 0, false, err
	}
	return r.GetAccountIDByScriptHash(hash)
}

// GetScript returns the script registered with the given hash.
func (r reader) GetScript(hash juice.Hash) (juice.Script, bool, error) {
	data, found, err := r.kv.get(scriptKey(hash))
	if err != nil || !found {
		return juice.Script{}, false, err
	}
	script, err := juice.DeserializeScript(data)
	if err != nil {
		return juice.Script{}, false, err
	}
	return script, true, nil
}

func (r reader) GetNonce(id juice.AccountID) (uint64, error) {
	record, found, err := r.getAccount(id)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%w: %v", juice.ErrUnknownAccount, id)
	}
	return record.Nonce, nil
}

// GetStorageRoot returns the storage namespace of a contract account.
// Simple accounts have none.
func (r reader) GetStorageRoot(id juice.AccountID) (juice.Hash, bool, error) {
	record, found, err := r.getAccount(id)
	if err != nil || !found || !record.isContract() {
		return juice.Hash{}, false, err
	}
	root, err := decodeHash(record.StorageRoot)
	if err != nil {
		return juice.Hash{}, false, err
	}
	return root, true, nil
}

func (r reader) GetCode(id juice.AccountID) (juice.Code, error) {
	data, _, err := r.kv.get(codeKey(id))
	if err != nil {
		return nil, err
	}
	return juice.Code(data), nil
}

func (r reader) GetStorage(id juice.AccountID, key juice.Key) (juice.Word, error) {
	var res juice.Word
	data, found, err := r.kv.get(storageKey(id, key))
	if err != nil || !found {
		return res, err
	}
	if len(data) != len(res) {
		return res, fmt.Errorf("invalid storage value of %d bytes", len(data))
	}
	copy(res[:], data)
	return res, nil
}

func (r reader) GetBalance(token juice.AccountID, owner juice.Address) (juice.Value, error) {
	var res juice.Value
	data, found, err := r.kv.get(balanceKey(token, owner))
	if err != nil || !found {
		return res, err
	}
	if len(data) != len(res) {
		return res, fmt.Errorf("invalid balance of %d bytes", len(data))
	}
	copy(res[:], data)
	return res, nil
}

// GetBlockHeader returns the header of the attached block with the given hash.
func (r reader) GetBlockHeader(hash juice.Hash) (*juice.BlockHeader, bool, error) {
	data, found, err := r.kv.get(blockHeaderKey(hash))
	if err != nil || !found {
		return nil, false, err
	}
	header, err := juice.DecodeBlockHeader(data)
	if err != nil {
		return nil, false, err
	}
	return header, true, nil
}

// GetCanonicalHash returns the hash of the block attached at the given
// height of the main chain.
func (r reader) GetCanonicalHash(number uint64) (juice.Hash, bool, error) {
	data, found, err := r.kv.get(canonicalHashKey(number))
	if err != nil || !found {
		return juice.Hash{}, false, err
	}
	hash, err := decodeHash(data)
	if err != nil {
		return juice.Hash{}, false, err
	}
	return hash, true, nil
}

func (r reader) getTip() (juice.Hash, bool, error) {
	data, found, err := r.kv.get(tipKey)
	if err != nil || !found {
		return juice.Hash{}, false, err
	}
	hash, err := decodeHash(data)
	if err != nil {
		return juice.Hash{}, false, err
	}
	return hash, true, nil
}
