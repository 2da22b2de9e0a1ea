// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package generator

import (
	"context"
	"runtime"

	"github.com/Fantom-foundation/Juice/go/juice"
	"golang.org/x/sync/errgroup"
)

// BatchResult is the outcome of a single transaction of a batch.
type BatchResult struct {
	Result *juice.RunResult
	Err    error
}

// ExecuteBatch executes the given transactions independently of each other
// on the same snapshot, as if each of them was the only transaction of the
// block. Transactions are processed concurrently; results are aligned with
// the input. Failing transactions are reported in their result, the
// returned error is only set if the context got cancelled.
func (g *Generator) ExecuteBatch(
	ctx context.Context,
	view juice.ChainView,
	snapshot juice.StateReader,
	block juice.BlockInfo,
	txs []juice.RawTransaction,
	cycleLimit juice.Cycles,
) ([]BatchResult, error) {
	res := make([]BatchResult, len(txs))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for i, tx := range txs {
		i, tx := i, tx // per-iteration copy; module targets go 1.21 loop semantics
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := g.ExecuteTransaction(view, snapshot, block, tx, cycleLimit)
			res[i] = BatchResult{Result: result, Err: err}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
