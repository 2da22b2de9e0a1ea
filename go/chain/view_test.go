// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package chain

import (
	"errors"
	"sync"
	"testing"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/Fantom-foundation/Juice/go/state"
	"go.uber.org/mock/gomock"
)

// makeChain creates a chain of headers with the given length, starting at
// genesis. The seed distinguishes branches.
func makeChain(length int, seed uint64) []*juice.BlockHeader {
	res := make([]*juice.BlockHeader, 0, length)
	parent := juice.Hash{}
	for i := 0; i < length; i++ {
		header := &juice.BlockHeader{
			Number:    uint64(i),
			Timestamp: seed*1000 + uint64(i),
			Parent:    parent,
		}
		res = append(res, header)
		parent = header.Hash()
	}
	return res
}

func expectHeaders(reader *MockBlockReader, headers []*juice.BlockHeader) {
	for _, header := range headers {
		reader.EXPECT().GetBlockHeader(header.Hash()).Return(header, true, nil).AnyTimes()
	}
}

func TestView_CanonicalTipIsServedFromIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockBlockReader(ctrl)
	headers := makeChain(10, 0)
	tip := headers[9]

	reader.EXPECT().GetBlockHeader(tip.Hash()).Return(tip, true, nil)
	reader.EXPECT().GetCanonicalHash(uint64(9)).Return(tip.Hash(), true, nil)
	reader.EXPECT().GetCanonicalHash(uint64(3)).Return(headers[3].Hash(), true, nil)

	view := NewView(reader, tip.Hash())
	for i := 0; i < 2; i++ { // the second round is served from the cache
		hash, found, err := view.BlockHash(3)
		if err != nil || !found {
			t.Fatalf("unexpected result: %v, %v", found, err)
		}
		if want := headers[3].Hash(); want != hash {
			t.Errorf("unexpected hash, wanted %v, got %v", want, hash)
		}
	}
}

func TestView_ForkTipIsResolvedThroughParentLinks(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockBlockReader(ctrl)

	main := makeChain(8, 0)
	fork := makeChain(8, 1)
	fork[0] = main[0]
	for i := 1; i < len(fork); i++ {
		fork[i].Parent = fork[i-1].Hash()
	}
	expectHeaders(reader, fork)
	tip := fork[7]
	reader.EXPECT().GetCanonicalHash(uint64(7)).Return(main[7].Hash(), true, nil)

	view := NewView(reader, tip.Hash())
	for i := len(fork) - 1; i >= 0; i-- {
		hash, found, err := view.BlockHash(uint64(i))
		if err != nil || !found {
			t.Fatalf("unexpected result for %d: %v, %v", i, found, err)
		}
		if want := fork[i].Hash(); want != hash {
			t.Errorf("unexpected hash of block %d, wanted %v, got %v", i, want, hash)
		}
	}
}

func TestView_BlocksAboveTipAreNotVisible(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockBlockReader(ctrl)
	headers := makeChain(3, 0)
	tip := headers[2]
	reader.EXPECT().GetBlockHeader(tip.Hash()).Return(tip, true, nil)
	reader.EXPECT().GetCanonicalHash(uint64(2)).Return(tip.Hash(), true, nil)

	view := NewView(reader, tip.Hash())
	for _, number := range []uint64{3, 4, 1 << 40} {
		if _, found, err := view.BlockHash(number); err != nil || found {
			t.Errorf("block %d should not be visible: %v, %v", number, found, err)
		}
	}
	hash, found, err := view.BlockHash(2)
	if err != nil || !found || hash != tip.Hash() {
		t.Errorf("tip should be visible, got %v, %v, %v", hash, found, err)
	}
}

func TestView_ReaderErrorsAreReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockBlockReader(ctrl)
	injected := errors.New("injected")
	reader.EXPECT().GetBlockHeader(gomock.Any()).Return(nil, false, injected)

	view := NewView(reader, juice.Hash{1})
	if _, _, err := view.BlockHash(0); !errors.Is(err, injected) {
		t.Errorf("expected injected error, got %v", err)
	}
}

func TestView_UnknownTipIsReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockBlockReader(ctrl)
	reader.EXPECT().GetBlockHeader(gomock.Any()).Return(nil, false, nil)

	view := NewView(reader, juice.Hash{1})
	if _, err := view.Tip(); err == nil {
		t.Errorf("expected an error for an unknown tip")
	}
}

func TestView_WorksOnStateTransactions(t *testing.T) {
	s, err := state.NewMemory(state.Genesis{Accounts: []state.GenesisAccount{{Address: [20]byte{1}}}})
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}
	hashes := []juice.Hash{}
	txn, err := s.BeginTransaction()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	genesis, err := txn.GetTipBlockHash()
	if err != nil {
		t.Fatalf("failed to get tip: %v", err)
	}
	hashes = append(hashes, genesis)
	if err := txn.Release(); err != nil {
		t.Fatalf("failed to release transaction: %v", err)
	}
	for i := uint64(1); i <= 5; i++ {
		hash, err := s.AttachBlock(juice.BlockInfo{Producer: 2, Number: i, Timestamp: i})
		if err != nil {
			t.Fatalf("failed to attach block: %v", err)
		}
		hashes = append(hashes, hash)
	}

	txn, err = s.BeginTransaction()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer txn.Release()
	view := NewView(txn, hashes[3])
	for i, want := range hashes {
		got, found, err := view.BlockHash(uint64(i))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if i > 3 {
			if found {
				t.Errorf("block %d is above the tip of the view", i)
			}
			continue
		}
		if !found || got != want {
			t.Errorf("unexpected hash of block %d, wanted %v, got %v", i, want, got)
		}
	}
}

func TestView_ConcurrentLookupsAgree(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockBlockReader(ctrl)
	headers := makeChain(20, 3)
	expectHeaders(reader, headers)
	reader.EXPECT().GetCanonicalHash(gomock.Any()).Return(juice.Hash{}, false, nil).AnyTimes()

	view := NewView(reader, headers[19].Hash())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := 0; j < len(headers); j++ {
				number := (j + offset) % len(headers)
				hash, found, err := view.BlockHash(uint64(number))
				if err != nil || !found || hash != headers[number].Hash() {
					t.Errorf("unexpected result for %d: %v, %v, %v", number, hash, found, err)
				}
			}
		}(i)
	}
	wg.Wait()
}
