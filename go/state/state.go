// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state implements the account state store of the rollup and the
// applier committing run results to it.
package state

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/log"
)

// Options configures the storage backend of a State. If no Path is given,
// the state is kept in memory.
type Options struct {
	Path string
	// Pebble is passed to the Pebble database if a Path is set.
	Pebble *pebble.Options
}

// GenesisAccount is an externally owned account created at genesis.
type GenesisAccount struct {
	Address [20]byte
	Balance juice.Value
}

// Genesis describes the initial content of a fresh state. Besides the
// listed accounts, genesis registers the deployment router as account 0 and
// the native token as account 1.
type Genesis struct {
	Timestamp uint64
	Accounts  []GenesisAccount
}

// State is the mutable account state of the rollup. It is modified
// exclusively by applying run results; at most one apply is in progress at
// any time. Reads are served by transactions observing immutable versions.
//
// If an apply detects a violated invariant, the state halts: the offending
// result is discarded and all further modifications are rejected.
type State struct {
	store  kvStore
	mu     sync.Mutex // serializes modifications
	halted atomic.Bool

	// beforeWrite, if set, is called before each write-set entry is applied.
	beforeWrite func(index int) error
}

// Open opens the state described by the given options. A fresh state is
// initialized with the given genesis; a state reopened from disk keeps its
// content.
func Open(options Options, genesis Genesis) (*State, error) {
	if options.Path == "" {
		return NewMemory(genesis)
	}
	return OpenPebble(options.Path, genesis, options.Pebble)
}

// NewMemory creates a state held in memory.
func NewMemory(genesis Genesis) (*State, error) {
	return newState(newMemoryStore(), genesis)
}

// OpenPebble opens or creates a state persisted in a Pebble database.
func OpenPebble(path string, genesis Genesis, options *pebble.Options) (*State, error) {
	store, err := openPebbleStore(path, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open state at %s: %w", path, err)
	}
	res, err := newState(store, genesis)
	if err != nil {
		return nil, errors.Join(err, store.close())
	}
	return res, nil
}

func newState(store kvStore, genesis Genesis) (*State, error) {
	res := &State{store: store}
	if err := res.initGenesis(genesis); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *State) initGenesis(genesis Genesis) error {
	return s.store.update(func(w kvWriter) error {
		if _, found, err := w.get(genesisKey); err != nil || found {
			return err
		}

		result := &juice.RunResult{Deposit: true}
		result.Writes = append(result.Writes,
			&juice.CreateAccount{ID: juice.CreatorAccountID, Script: juice.CreatorScript(juice.NativeTokenID)},
			&juice.CreateAccount{ID: juice.NativeTokenID, Script: juice.TokenScript(juice.Hash{})},
		)
		deposits := []juice.Write{}
		for i, account := range genesis.Accounts {
			script := juice.EOAScript(account.Address)
			result.Writes = append(result.Writes, &juice.CreateAccount{
				ID:     juice.AccountID(i + 2),
				Script: script,
			})
			if !account.Balance.IsZero() {
				deposits = append(deposits, &juice.BalanceDelta{
					Token:  juice.NativeTokenID,
					Owner:  script.Hash().ShortHash(),
					Amount: account.Balance,
				})
			}
		}
		result.Writes = append(result.Writes, deposits...)
		if err := applyWrites(w, result, nil); err != nil {
			return fmt.Errorf("invalid genesis: %w", err)
		}

		header := &juice.BlockHeader{
			Number:    0,
			Timestamp: genesis.Timestamp,
			Producer:  juice.CreatorAccountID,
		}
		hash, err := writeHeader(w, header)
		if err != nil {
			return err
		}
		log.Info("Initialized state", "genesis", hash, "accounts", len(genesis.Accounts)+2)
		return w.set(genesisKey, hash[:])
	})
}

// BeginTransaction starts a read-only transaction on the current version of
// the state.
func (s *State) BeginTransaction() (*Transaction, error) {
	snapshot, err := s.store.snapshot()
	if err != nil {
		return nil, err
	}
	return &Transaction{
		reader:   reader{kv: snapshot},
		snapshot: snapshot,
	}, nil
}

// CreateAccountFromScript registers a new account for the given script and
// returns its id. Scripts can only be registered once.
func (s *State) CreateAccountFromScript(script juice.Script) (juice.AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted.Load() {
		return 0, juice.ErrHalted
	}
	var id juice.AccountID
	err := s.update(func(w kvWriter) error {
		count, err := reader{kv: w}.GetAccountCount()
		if err != nil {
			return err
		}
		id = juice.AccountID(count)
		return s.applyWrites(w, &juice.RunResult{
			Writes: []juice.Write{&juice.CreateAccount{ID: id, Script: script}},
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Deposit mints the given amount of a token to an owner. It is the only way
// to introduce new funds.
func (s *State) Deposit(token juice.AccountID, owner juice.Address, amount juice.Value) error {
	return s.ApplyRunResult(juice.NewDeposit(token, owner, amount))
}

// AttachBlock appends a block on top of the current tip and makes it the
// new tip. It returns the hash of the new block.
func (s *State) AttachBlock(info juice.BlockInfo) (juice.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.halted.Load() {
		return juice.Hash{}, juice.ErrHalted
	}
	var hash juice.Hash
	err := s.store.update(func(w kvWriter) error {
		r := reader{kv: w}
		tipHash, found, err := r.getTip()
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("state has no tip block")
		}
		tip, found, err := r.GetBlockHeader(tipHash)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("missing header of tip %v", tipHash)
		}
		if info.Number != tip.Number+1 {
			return fmt.Errorf("invalid block number %d, expected %d", info.Number, tip.Number+1)
		}
		if _, found, err := r.GetScriptHash(info.Producer); err != nil {
			return err
		} else if !found {
			return fmt.Errorf("%w: block producer %v", juice.ErrUnknownAccount, info.Producer)
		}
		hash, err = writeHeader(w, &juice.BlockHeader{
			Number:    info.Number,
			Timestamp: info.Timestamp,
			Producer:  info.Producer,
			Parent:    tipHash,
		})
		return err
	})
	if err != nil {
		return juice.Hash{}, err
	}
	log.Debug("Attached block", "number", info.Number, "hash", hash)
	return hash, nil
}

// Halted reports whether the state observed an invariant violation.
func (s *State) Halted() bool {
	return s.halted.Load()
}

// Close releases the storage backend. Transactions must be released before.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.close()
}

// update runs an atomic modification and halts the state if it violates an
// invariant.
func (s *State) update(fn func(kvWriter) error) error {
	err := s.store.update(fn)
	if errors.Is(err, juice.ErrInvariantViolation) {
		s.halted.Store(true)
		log.Error("Halting state", "err", err)
	}
	return err
}

func writeHeader(w kvWriter, header *juice.BlockHeader) (juice.Hash, error) {
	data, err := header.Encode()
	if err != nil {
		return juice.Hash{}, err
	}
	hash := header.Hash()
	if err := w.set(blockHeaderKey(hash), data); err != nil {
		return juice.Hash{}, err
	}
	if err := w.set(canonicalHashKey(header.Number), hash[:]); err != nil {
		return juice.Hash{}, err
	}
	if err := w.set(tipKey, hash[:]); err != nil {
		return juice.Hash{}, err
	}
	return hash, nil
}
