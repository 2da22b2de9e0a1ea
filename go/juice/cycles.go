// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package juice

// CycleMeter tracks the cycles consumed by a transaction against a fixed
// limit. A single meter is shared by all frames of a transaction. It is not
// thread-safe.
type CycleMeter struct {
	used  Cycles
	limit Cycles
}

func NewCycleMeter(limit Cycles) *CycleMeter {
	return &CycleMeter{limit: limit}
}

// Consume charges the given number of cycles. If the remaining budget is
// insufficient, the meter is exhausted and an *OutOfCyclesError is returned.
// The overshoot is not recorded: after a failed charge Used equals Limit.
func (m *CycleMeter) Consume(cycles Cycles) error {
	if m.limit-m.used < cycles {
		m.used = m.limit
		return &OutOfCyclesError{Used: m.used, Limit: m.limit}
	}
	m.used += cycles
	return nil
}

func (m *CycleMeter) Used() Cycles {
	return m.used
}

func (m *CycleMeter) Limit() Cycles {
	return m.limit
}

func (m *CycleMeter) Remaining() Cycles {
	return m.limit - m.used
}
