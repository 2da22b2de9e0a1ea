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
	"errors"
	"io"

	"github.com/cockroachdb/pebble"
)

// pebbleStore keeps the key space in a Pebble database. Snapshots are Pebble
// snapshots, updates are indexed batches committed with a synced WAL write.
type pebbleStore struct {
	db *pebble.DB
}

func openPebbleStore(path string, options *pebble.Options) (*pebbleStore, error) {
	if options == nil {
		options = &pebble.Options{}
	}
	db, err := pebble.Open(path, options)
	if err != nil {
		return nil, err
	}
	return &pebbleStore{db: db}, nil
}

type pebbleReadable interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func pebbleGet(src pebbleReadable, key []byte) ([]byte, bool, error) {
	value, closer, err := src.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer closer.Close()
	return bytes.Clone(value), true, nil
}

func (s *pebbleStore) snapshot() (kvSnapshot, error) {
	return pebbleSnapshot{snapshot: s.db.NewSnapshot()}, nil
}

func (s *pebbleStore) update(fn func(kvWriter) error) error {
	batch := s.db.NewIndexedBatch()
	defer batch.Close()
	if err := fn(pebbleWriter{batch: batch}); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (s *pebbleStore) close() error {
	return s.db.Close()
}

type pebbleSnapshot struct {
	snapshot *pebble.Snapshot
}

func (s pebbleSnapshot) get(key []byte) ([]byte, bool, error) {
	return pebbleGet(s.snapshot, key)
}

func (s pebbleSnapshot) release() error {
	return s.snapshot.Close()
}

type pebbleWriter struct {
	batch *pebble.Batch
}

func (w pebbleWriter) get(key []byte) ([]byte, bool, error) {
	return pebbleGet(w.batch, key)
}

func (w pebbleWriter) set(key, value []byte) error {
	return w.batch.Set(key, value, nil)
}

func (w pebbleWriter) delete(key []byte) error {
	return w.batch.Delete(key, nil)
}
