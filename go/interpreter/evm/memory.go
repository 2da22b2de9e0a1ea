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
	"math"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/holiman/uint256"
)

// Memory is the byte-addressable scratch space of a single frame. It grows in
// words of 32 bytes, charging quadratic expansion costs.
type Memory struct {
	store             []byte
	currentMemoryCost juice.Gas
}

func NewMemory() *Memory {
	return &Memory{}
}

const (
	// Maximum memory size allowed
	// This magic number comes from 'core/vm/gas_table.go' 'memoryGasCost' in geth
	maxMemoryExpansionSize = 0x1FFFFFFFE0
)

func (m *Memory) getExpansionCosts(size uint64) juice.Gas {
	if m.length() >= size {
		return 0
	}
	if size > maxMemoryExpansionSize {
		return juice.Gas(math.MaxInt64)
	}
	words := juice.SizeInWords(size)
	newCosts := juice.Gas((words*words)/512 + (3 * words))
	return newCosts - m.currentMemoryCost
}

func (m *Memory) expandMemory(offset, size uint64, c *context) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	if needed < offset {
		return errOverflow
	}
	if m.length() < needed {
		fee := m.getExpansionCosts(needed)
		if err := c.useGas(fee); err != nil {
			return err
		}
		m.currentMemoryCost += fee
		words := juice.SizeInWords(needed)
		m.store = append(m.store, make([]byte, words*32-m.length())...)
	}
	return nil
}

func (m *Memory) length() uint64 {
	return uint64(len(m.store))
}

// set copies the given data into memory, expanding it if needed.
func (m *Memory) set(offset uint64, data []byte, c *context) error {
	if err := m.expandMemory(offset, uint64(len(data)), c); err != nil {
		return err
	}
	copy(m.store[offset:], data)
	return nil
}

// getSlice returns a view on the given range of memory, expanding it if
// needed. The view is invalidated by the next expansion.
func (m *Memory) getSlice(offset, size uint64, c *context) ([]byte, error) {
	if err := m.expandMemory(offset, size, c); err != nil {
		return nil, err
	}
	// memory does not expand on size 0 independently of the offset
	if size == 0 {
		return nil, nil
	}
	return m.store[offset : offset+size], nil
}

func (m *Memory) readWord(offset uint64, target *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, 32, c)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}
