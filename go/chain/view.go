// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package chain provides read-only views on the chain of attached blocks.
package chain

import (
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Juice/go/juice"
)

//go:generate mockgen -source view.go -destination view_mock.go -package chain

// BlockReader is the source of block headers a View is reading from. It is
// implemented by state transactions.
type BlockReader interface {
	GetBlockHeader(hash juice.Hash) (*juice.BlockHeader, bool, error)
	GetCanonicalHash(number uint64) (juice.Hash, bool, error)
}

// View exposes the hashes of a tip block and its ancestors. Blocks attached
// on other branches are invisible, even if they are part of the main chain.
// A View is safe for concurrent use.
type View struct {
	reader  BlockReader
	tipHash juice.Hash

	mu        sync.Mutex
	tip       *juice.BlockHeader
	canonical bool
	// oldest is the lowest header reached by walking parent links.
	oldest *juice.BlockHeader
	hashes map[uint64]juice.Hash
}

var _ juice.ChainView = (*View)(nil)

// NewView creates a view on the ancestry of the given tip. Headers are read
// lazily from the given reader.
func NewView(reader BlockReader, tip juice.Hash) *View {
	return &View{
		reader:  reader,
		tipHash: tip,
		hashes:  map[uint64]juice.Hash{},
	}
}

// Tip returns the header of the tip of this view.
func (v *View) Tip() (*juice.BlockHeader, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.loadTip(); err != nil {
		return nil, err
	}
	res := *v.tip
	return &res, nil
}

// BlockHash returns the hash of the ancestor of the tip at the given height.
// The tip itself is included. No hash is reported for heights above the tip.
func (v *View) BlockHash(number uint64) (juice.Hash, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.loadTip(); err != nil {
		return juice.Hash{}, false, err
	}
	if number > v.tip.Number {
		return juice.Hash{}, false, nil
	}
	if hash, found := v.hashes[number]; found {
		return hash, true, nil
	}

	if v.canonical {
		hash, found, err := v.reader.GetCanonicalHash(number)
		if err != nil {
			return juice.Hash{}, false, err
		}
		if !found {
			return juice.Hash{}, false, fmt.Errorf("missing canonical block %d below tip %d", number, v.tip.Number)
		}
		v.hashes[number] = hash
		return hash, true, nil
	}

	// Fork tips are resolved by walking parent links, continuing from the
	// lowest header reached so far.
	for v.oldest.Number > number {
		parentHash := v.oldest.Parent
		parent, err := v.getHeader(parentHash)
		if err != nil {
			return juice.Hash{}, false, err
		}
		if parent.Number+1 != v.oldest.Number {
			return juice.Hash{}, false, fmt.Errorf("block %v at height %d has parent at height %d", parentHash, v.oldest.Number, parent.Number)
		}
		v.hashes[parent.Number] = parentHash
		v.oldest = parent
	}
	return v.hashes[number], true, nil
}

func (v *View) loadTip() error {
	if v.tip != nil {
		return nil
	}
	tip, err := v.getHeader(v.tipHash)
	if err != nil {
		return err
	}
	canonical, found, err := v.reader.GetCanonicalHash(tip.Number)
	if err != nil {
		return err
	}
	v.tip = tip
	v.oldest = tip
	v.canonical = found && canonical == v.tipHash
	v.hashes[tip.Number] = v.tipHash
	return nil
}

func (v *View) getHeader(hash juice.Hash) (*juice.BlockHeader, error) {
	header, found, err := v.reader.GetBlockHeader(hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("unknown block %v", hash)
	}
	return header, nil
}
