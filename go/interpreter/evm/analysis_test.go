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
	"testing"

	"github.com/Fantom-foundation/Juice/go/juice"
)

func TestAnalyze_MarksOnlyJumpDestsOutsideOfPushData(t *testing.T) {
	code := []byte{
		byte(JUMPDEST),
		byte(PUSH1), byte(JUMPDEST),
		byte(PUSH1) + 1, byte(JUMPDEST), byte(JUMPDEST),
		byte(JUMPDEST),
	}
	dests := analyze(code)
	for pos, want := range []bool{true, false, false, false, false, false, true, false} {
		if got := dests.isValid(uint64(pos)); got != want {
			t.Errorf("unexpected validity of position %d, wanted %t, got %t", pos, want, got)
		}
	}
}

func TestAnalyze_HandlesLongCode(t *testing.T) {
	code := make([]byte, 200)
	code[130] = byte(JUMPDEST)
	dests := analyze(code)
	if !dests.isValid(130) {
		t.Errorf("jump destination beyond the first word not found")
	}
	if dests.isValid(129) || dests.isValid(1 << 40) {
		t.Errorf("unexpected jump destination")
	}
}

func TestAnalyzer_CachesResultsByCodeHash(t *testing.T) {
	analyzer, err := newAnalyzer(4)
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}
	hash := juice.Hash{1}
	first := analyzer.analyze([]byte{byte(JUMPDEST)}, &hash)
	if !first.isValid(0) {
		t.Fatalf("jump destination not found")
	}
	// a different code with the same hash is served from the cache
	second := analyzer.analyze([]byte{byte(STOP)}, &hash)
	if !second.isValid(0) {
		t.Errorf("analysis was not taken from the cache")
	}
	// codes without hash are always analyzed
	if analyzer.analyze([]byte{byte(STOP)}, nil).isValid(0) {
		t.Errorf("unhashed code must not be served from the cache")
	}
}

func TestAnalyzer_NegativeSizeDisablesCache(t *testing.T) {
	analyzer, err := newAnalyzer(-1)
	if err != nil {
		t.Fatalf("failed to create analyzer: %v", err)
	}
	hash := juice.Hash{1}
	analyzer.analyze([]byte{byte(JUMPDEST)}, &hash)
	if analyzer.analyze([]byte{byte(STOP)}, &hash).isValid(0) {
		t.Errorf("analysis should not be cached")
	}
}
