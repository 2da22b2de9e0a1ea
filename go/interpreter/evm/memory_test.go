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
	"bytes"
	"testing"

	"github.com/Fantom-foundation/Juice/go/juice"
)

func TestMemory_ExpansionIsChargedOncePerWord(t *testing.T) {
	tests := map[string]struct {
		offset, size uint64
		cost         juice.Gas
		length       uint64
	}{
		"empty":        {0, 0, 0, 0},
		"single byte":  {0, 1, 3, 32},
		"single word":  {0, 32, 3, 32},
		"two words":    {16, 32, 6, 64},
		"large offset": {1024, 1, 3*33 + 33*33/512, 1056},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c := &context{gas: 1000, memory: NewMemory()}
			if err := c.memory.expandMemory(test.offset, test.size, c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := 1000-test.cost, c.gas; want != got {
				t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
			}
			if want, got := test.length, c.memory.length(); want != got {
				t.Errorf("unexpected memory size, wanted %d, got %d", want, got)
			}
			// a second expansion to the same size is free
			if err := c.memory.expandMemory(test.offset, test.size, c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := 1000-test.cost, c.gas; want != got {
				t.Errorf("repeated expansion was charged, wanted %d, got %d", want, got)
			}
		})
	}
}

func TestMemory_ExpansionFailsWithoutGas(t *testing.T) {
	c := &context{gas: 2, memory: NewMemory()}
	if err := c.memory.expandMemory(0, 1, c); err != errOutOfGas {
		t.Errorf("expected out of gas, got %v", err)
	}
	if c.memory.length() != 0 {
		t.Errorf("memory should not have grown")
	}
}

func TestMemory_SetAndReadBack(t *testing.T) {
	c := &context{gas: 1000, memory: NewMemory()}
	if err := c.memory.set(30, []byte{1, 2, 3, 4}, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := c.memory.getSlice(29, 6, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []byte{0, 1, 2, 3, 4, 0}; !bytes.Equal(want, data) {
		t.Errorf("unexpected memory content, wanted %x, got %x", want, data)
	}
}
