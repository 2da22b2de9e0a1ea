// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package evm

import (
	"github.com/Fantom-foundation/Juice/go/juice"
	lru "github.com/hashicorp/golang-lru/v2"
)

// jumpDests marks the positions of JUMPDEST instructions in a code. Bytes
// inside PUSH immediates are never valid destinations.
type jumpDests []uint64

func (d jumpDests) isValid(pos uint64) bool {
	index := pos / 64
	if index >= uint64(len(d)) {
		return false
	}
	return d[index]&(1<<(pos%64)) != 0
}

func analyze(code []byte) jumpDests {
	res := make(jumpDests, (len(code)+63)/64)
	for pc := 0; pc < len(code); pc++ {
		op := OpCode(code[pc])
		if op == JUMPDEST {
			res[pc/64] |= 1 << (pc % 64)
		}
		pc += op.pushSize()
	}
	return res
}

// analyzer caches the jump destination analysis of codes by their hash.
type analyzer struct {
	cache *lru.Cache[juice.Hash, jumpDests]
}

func newAnalyzer(size int) (*analyzer, error) {
	if size <= 0 {
		return &analyzer{}, nil
	}
	cache, err := lru.New[juice.Hash, jumpDests](size)
	if err != nil {
		return nil, err
	}
	return &analyzer{cache: cache}, nil
}

func (a *analyzer) analyze(code []byte, codeHash *juice.Hash) jumpDests {
	if a.cache == nil || codeHash == nil {
		return analyze(code)
	}
	if res, found := a.cache.Get(*codeHash); found {
		return res
	}
	res := analyze(code)
	a.cache.Add(*codeHash, res)
	return res
}
