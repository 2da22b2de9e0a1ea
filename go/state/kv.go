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
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
)

// kvReader provides read access to a consistent version of the key space.
// Returned values must not be modified by the caller.
type kvReader interface {
	get(key []byte) ([]byte, bool, error)
}

// kvWriter is a reader that also buffers modifications. Reads observe the
// buffered modifications.
type kvWriter interface {
	kvReader
	set(key, value []byte) error
	delete(key []byte) error
}

// kvSnapshot is an immutable version of the key space. It must be released
// when it is no longer needed.
type kvSnapshot interface {
	kvReader
	release() error
}

// kvStore is the storage engine of a State. Snapshots may be taken and read
// concurrently. Updates are atomic: either all modifications performed by
// the update function become visible, or, if it fails, none of them.
type kvStore interface {
	snapshot() (kvSnapshot, error)
	update(func(kvWriter) error) error
	close() error
}

// ----------------------------------------------------------------------------
//                               In-Memory Store
// ----------------------------------------------------------------------------

type kvEntry struct {
	key   []byte
	value []byte
}

func lessEntry(a, b kvEntry) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// btreeDegree is the degree of the B-trees backing the in-memory store.
const btreeDegree = 32

// memoryStore keeps the key space in a copy-on-write B-tree. Updates are
// applied to a clone of the master tree, which only replaces the master if
// the update succeeded. Readers obtain their own clone of the master, which
// is never modified afterwards. Clones share nodes until they are modified,
// making snapshots cheap.
type memoryStore struct {
	mu        sync.Mutex // serializes updates
	master    *btree.BTreeG[kvEntry]
	published atomic.Pointer[btree.BTreeG[kvEntry]]
}

func newMemoryStore() *memoryStore {
	res := &memoryStore{
		master: btree.NewG(btreeDegree, lessEntry),
	}
	res.published.Store(res.master.Clone())
	return res
}

func (s *memoryStore) snapshot() (kvSnapshot, error) {
	return memorySnapshot{tree: s.published.Load()}, nil
}

func (s *memoryStore) update(fn func(kvWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.master.Clone()
	if err := fn(memoryWriter{tree: work}); err != nil {
		return err
	}
	s.master = work
	s.published.Store(work.Clone())
	return nil
}

func (s *memoryStore) close() error {
	return nil
}

type memorySnapshot struct {
	tree *btree.BTreeG[kvEntry]
}

func (s memorySnapshot) get(key []byte) ([]byte, bool, error) {
	return getEntry(s.tree, key)
}

func (s memorySnapshot) release() error {
	return nil
}

type memoryWriter struct {
	tree *btree.BTreeG[kvEntry]
}

func (w memoryWriter) get(key []byte) ([]byte, bool, error) {
	return getEntry(w.tree, key)
}

func (w memoryWriter) set(key, value []byte) error {
	w.tree.ReplaceOrInsert(kvEntry{
		key:   bytes.Clone(key),
		value: bytes.Clone(value),
	})
	return nil
}

func (w memoryWriter) delete(key []byte) error {
	w.tree.Delete(kvEntry{key: key})
	return nil
}

func getEntry(tree *btree.BTreeG[kvEntry], key []byte) ([]byte, bool, error) {
	entry, found := tree.Get(kvEntry{key: key})
	if !found {
		return nil, false, nil
	}
	return entry.value, true, nil
}
