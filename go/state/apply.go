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
	"github.com/ethereum/go-ethereum/log"
)

// ApplyRunResult commits the write-set of the given result atomically. If
// any entry can not be applied, none of them is.
//
// Results computed on an outdated version of the state are rejected without
// modifying it: ErrNonceMismatch and ErrDuplicateAccount report conflicts
// on nonces and account ids, ErrStaleResult reports a read-set that no
// longer holds. A result that passes these checks and still violates a
// state invariant halts the state.
func (s *State) ApplyRunResult(result *juice.RunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted.Load() {
		return juice.ErrHalted
	}
	err := s.update(func(w kvWriter) error {
		return s.applyWrites(w, result)
	})
	if err != nil {
		return err
	}
	log.Debug("Applied run result", "writes", len(result.Writes), "gas", result.GasUsed, "cycles", result.Cycles)
	return nil
}

func (s *State) applyWrites(w kvWriter, result *juice.RunResult) error {
	return applyWrites(w, result, s.beforeWrite)
}

func invariantViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", juice.ErrInvariantViolation, fmt.Sprintf(format, args...))
}

func applyWrites(w kvWriter, result *juice.RunResult, beforeWrite func(int) error) error {
	if !result.Deposit {
		if err := result.CheckConservation(); err != nil {
			return invariantViolation("%v", err)
		}
	}
	a := applier{w: w, reader: reader{kv: w}}
	if err := a.checkFresh(result); err != nil {
		return err
	}
	for i, write := range result.Writes {
		if beforeWrite != nil {
			if err := beforeWrite(i); err != nil {
				return err
			}
		}
		var err error
		switch write := write.(type) {
		case *juice.CreateAccount:
			err = a.createAccount(write)
		case *juice.SetCode:
			err = a.setCode(write)
		case *juice.NonceBump:
			err = a.bumpNonce(write)
		case *juice.BalanceDelta:
			err = a.applyDelta(write)
		case *juice.StorageWrite:
			err = a.setStorage(write)
		default:
			err = invariantViolation("unsupported write-set entry %T", write)
		}
		if err != nil {
			return fmt.Errorf("write %d (%v): %w", i, write.Kind(), err)
		}
	}
	return nil
}

type applier struct {
	w kvWriter
	reader
}

// checkFresh verifies that the result was computed on a state equal to the
// current one in all values it depends on.
func (a applier) checkFresh(result *juice.RunResult) error {
	count, err := a.GetAccountCount()
	if err != nil {
		return err
	}
	for _, write := range result.Writes {
		switch write := write.(type) {
		case *juice.CreateAccount:
			if uint32(write.ID) < count {
				return fmt.Errorf("%w: account id %v is already assigned", juice.ErrDuplicateAccount, write.ID)
			}
		case *juice.NonceBump:
			record, found, err := a.getAccount(write.Account)
			if err != nil {
				return err
			}
			if found && record.Nonce != write.From {
				return fmt.Errorf("%w: account %v has nonce %d, result expects %d",
					juice.ErrNonceMismatch, write.Account, record.Nonce, write.From)
			}
		}
	}

	type holding struct {
		token juice.AccountID
		owner juice.Address
	}
	observed := map[holding]bool{}
	for _, read := range result.Reads {
		var err error
		switch read := read.(type) {
		case *juice.BalanceRead:
			observed[holding{token: read.Token, owner: read.Owner}] = true
			err = a.checkBalance(read)
		case *juice.StorageRead:
			err = a.checkStorage(read)
		case *juice.MissingAccountRead:
			err = a.checkMissingAccount(read)
		default:
			err = invariantViolation("unsupported read-set entry %T", read)
		}
		if err != nil {
			return fmt.Errorf("read %v: %w", read.Kind(), err)
		}
	}

	if result.Deposit {
		return nil
	}
	// Credits to balances the result did not observe must still fit.
	for _, write := range result.Writes {
		delta, ok := write.(*juice.BalanceDelta)
		if !ok || delta.Debit || observed[holding{token: delta.Token, owner: delta.Owner}] {
			continue
		}
		balance, err := a.GetBalance(delta.Token, delta.Owner)
		if err != nil {
			return err
		}
		if _, overflow := juice.Add(balance, delta.Amount); overflow {
			return fmt.Errorf("%w: balance of %v in token %v overflows", juice.ErrStaleResult, delta.Owner, delta.Token)
		}
	}
	return nil
}

func (a applier) checkBalance(read *juice.BalanceRead) error {
	balance, err := a.GetBalance(read.Token, read.Owner)
	if err != nil {
		return err
	}
	if balance != read.Value {
		return fmt.Errorf("%w: balance of %v in token %v is %v, result observed %v",
			juice.ErrStaleResult, read.Owner, read.Token, balance, read.Value)
	}
	return nil
}

func (a applier) checkStorage(read *juice.StorageRead) error {
	value, err := a.GetStorage(read.Account, read.Key)
	if err != nil {
		return err
	}
	if value != read.Value {
		return fmt.Errorf("%w: slot %v of account %v is %v, result observed %v",
			juice.ErrStaleResult, read.Key, read.Account, value, read.Value)
	}
	return nil
}

func (a applier) checkMissingAccount(read *juice.MissingAccountRead) error {
	if _, found, err := a.GetScriptHashByShortHash(read.Address); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: account %v got registered", juice.ErrStaleResult, read.Address)
	}
	return nil
}

func (a applier) createAccount(write *juice.CreateAccount) error {
	count, err := a.GetAccountCount()
	if err != nil {
		return err
	}
	if uint32(write.ID) != count {
		return invariantViolation("account id %v is not the next id %d", write.ID, count)
	}
	hash := write.Script.Hash()
	if _, found, err := a.GetAccountIDByScriptHash(hash); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: script hash %v", juice.ErrDuplicateAccount, hash)
	}
	short := hash.ShortHash()
	if _, found, err := a.GetScriptHashByShortHash(short); err != nil {
		return err
	} else if found {
		return fmt.Errorf("%w: short hash %v", juice.ErrDuplicateAccount, short)
	}

	record := &accountRecord{ScriptHash: hash}
	if write.Script.IsContract() {
		root := storageRoot(write.ID)
		record.StorageRoot = root[:]
	}
	data, err := encodeAccountRecord(record)
	if err != nil {
		return err
	}
	if err := a.w.set(accountKey(write.ID), data); err != nil {
		return err
	}
	if err := a.w.set(scriptHashKey(hash), encodeAccountID(write.ID)); err != nil {
		return err
	}
	if err := a.w.set(shortHashKey(short), hash[:]); err != nil {
		return err
	}
	if err := a.w.set(scriptKey(hash), write.Script.Serialize()); err != nil {
		return err
	}
	return a.w.set(accountCountKey, binary.BigEndian.AppendUint32(nil, count+1))
}

func (a applier) requireContract(id juice.AccountID) error {
	record, found, err := a.getAccount(id)
	if err != nil {
		return err
	}
	if !found {
		return invariantViolation("account %v does not exist", id)
	}
	if !record.isContract() {
		return invariantViolation("account %v is not a contract", id)
	}
	return nil
}

func (a applier) setCode(write *juice.SetCode) error {
	if err := a.requireContract(write.Account); err != nil {
		return err
	}
	if len(write.Code) == 0 {
		return nil
	}
	if _, found, err := a.w.get(codeKey(write.Account)); err != nil {
		return err
	} else if found {
		return invariantViolation("code of account %v is already set", write.Account)
	}
	return a.w.set(codeKey(write.Account), write.Code)
}

func (a applier) bumpNonce(write *juice.NonceBump) error {
	record, found, err := a.getAccount(write.Account)
	if err != nil {
		return err
	}
	if !found {
		return invariantViolation("nonce of missing account %v", write.Account)
	}
	if record.Nonce != write.From {
		return fmt.Errorf("%w: account %v has nonce %d, result expects %d",
			juice.ErrNonceMismatch, write.Account, record.Nonce, write.From)
	}
	if write.To <= write.From {
		return invariantViolation("nonce of account %v decreases from %d to %d", write.Account, write.From, write.To)
	}
	record.Nonce = write.To
	data, err := encodeAccountRecord(record)
	if err != nil {
		return err
	}
	return a.w.set(accountKey(write.Account), data)
}

func (a applier) applyDelta(write *juice.BalanceDelta) error {
	hash, found, err := a.GetScriptHash(write.Token)
	if err != nil {
		return err
	}
	if !found {
		return invariantViolation("token %v does not exist", write.Token)
	}
	script, found, err := a.GetScript(hash)
	if err != nil {
		return err
	}
	if !found || script.CodeHash != juice.TokenCodeHash {
		return invariantViolation("account %v is not a token", write.Token)
	}

	balance, err := a.GetBalance(write.Token, write.Owner)
	if err != nil {
		return err
	}
	var updated juice.Value
	if write.Debit {
		var underflow bool
		updated, underflow = juice.Sub(balance, write.Amount)
		if underflow {
			return invariantViolation("balance of %v in token %v is %v, can not debit %v",
				write.Owner, write.Token, balance, write.Amount)
		}
	} else {
		var overflow bool
		updated, overflow = juice.Add(balance, write.Amount)
		if overflow {
			return invariantViolation("balance of %v in token %v overflows", write.Owner, write.Token)
		}
	}
	key := balanceKey(write.Token, write.Owner)
	if updated.IsZero() {
		return a.w.delete(key)
	}
	return a.w.set(key, updated[:])
}

func (a applier) setStorage(write *juice.StorageWrite) error {
	if err := a.requireContract(write.Account); err != nil {
		return err
	}
	key := storageKey(write.Account, write.Key)
	if write.Value == (juice.Word{}) {
		return a.w.delete(key)
	}
	return a.w.set(key, write.Value[:])
}
