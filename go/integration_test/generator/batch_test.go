// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package generator_test

import (
	"context"
	"testing"

	"github.com/Fantom-foundation/Juice/go/chain"
	"github.com/Fantom-foundation/Juice/go/generator"
	"github.com/Fantom-foundation/Juice/go/interpreter/evm"
	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/Fantom-foundation/Juice/go/state"
)

func (c *testChain) executeBatch(block juice.BlockInfo, txs []juice.RawTransaction) []generator.BatchResult {
	c.t.Helper()
	var res []generator.BatchResult
	c.read(func(txn *state.Transaction, view *chain.View) {
		results, err := c.generator.ExecuteBatch(context.Background(), view, txn, block, txs, cycleLimit)
		if err != nil {
			c.t.Fatalf("failed to execute batch: %v", err)
		}
		res = results
	})
	return res
}

func TestGenerator_IndependentBatchResultsCanAllBeApplied(t *testing.T) {
	forEachConfiguration(t, func(t *testing.T, c *testChain) {
		receiver := producer - 1
		txs := []juice.RawTransaction{}
		for i := 0; i < 5; i++ {
			txs = append(txs, c.call(firstUser+juice.AccountID(i), receiver,
				withValue(uint64(10*(i+1))), withGasPrice(1), withGasLimit(100_000)))
		}
		block := c.nextBlock()
		results := c.executeBatch(block, txs)
		if len(results) != len(txs) {
			t.Fatalf("unexpected number of results, wanted %d, got %d", len(txs), len(results))
		}
		fees := uint64(0)
		for i, result := range results {
			if result.Err != nil {
				t.Fatalf("transaction %d failed: %v", i, result.Err)
			}
			if err := c.state.ApplyRunResult(result.Result); err != nil {
				t.Fatalf("failed to apply result %d: %v", i, err)
			}
			fees += uint64(result.Result.GasUsed)
		}
		c.sealBlock(block)
		if want, got := juice.NewValue(initialBalance+150), c.balance(receiver); want != got {
			t.Errorf("unexpected balance, wanted %v, got %v", want, got)
		}
		if want, got := juice.NewValue(initialBalance+fees), c.balance(producer); want != got {
			t.Errorf("unexpected producer balance, wanted %v, got %v", want, got)
		}
	})
}

func TestGenerator_ConflictingBatchResultsAreRejectedWithoutHalting(t *testing.T) {
	forEachConfiguration(t, func(t *testing.T, c *testChain) {
		block := c.nextBlock()
		results := c.executeBatch(block, []juice.RawTransaction{
			c.call(firstUser, firstUser+1, withValue(1)),
			c.call(firstUser, firstUser+2, withValue(2)),
			c.create(firstUser+3, initCodeFor(counterRuntime)),
			c.create(firstUser+4, initCodeFor(counterRuntime)),
		})
		for i, result := range results {
			if result.Err != nil {
				t.Fatalf("transaction %d failed: %v", i, result.Err)
			}
		}

		// Both deployments were assigned the same account id.
		if a, b := results[2].Result.CreatedAccounts(), results[3].Result.CreatedAccounts(); a[0].ID != b[0].ID {
			t.Errorf("expected identical ids, got %v and %v", a[0].ID, b[0].ID)
		}

		wants := []error{nil, juice.ErrNonceMismatch, nil, juice.ErrDuplicateAccount}
		for i, want := range wants {
			err := c.state.ApplyRunResult(results[i].Result)
			if want == nil && err != nil {
				t.Fatalf("failed to apply result %d: %v", i, err)
			}
			if want != nil {
				requireErrorIs(t, err, want)
			}
		}
		if c.state.Halted() {
			t.Fatalf("conflicting results must not halt the state")
		}
		c.sealBlock(block)

		// The rejected deployment succeeds once executed on the new tip.
		id := c.deploy(firstUser+4, counterRuntime)
		if want := results[3].Result.CreatedAccounts()[0].ID + 1; id != want {
			t.Errorf("unexpected id, wanted %v, got %v", want, id)
		}
	})
}

// applyBatch executes the given transactions as a batch on the current tip
// and applies their results in order, returning the errors of the applies.
func (c *testChain) applyBatch(txs ...juice.RawTransaction) []error {
	c.t.Helper()
	block := c.nextBlock()
	results := c.executeBatch(block, txs)
	res := make([]error, len(results))
	for i, result := range results {
		if result.Err != nil {
			c.t.Fatalf("transaction %d failed: %v", i, result.Err)
		}
		res[i] = c.state.ApplyRunResult(result.Result)
	}
	if c.state.Halted() {
		c.t.Fatalf("conflicting results must not halt the state")
	}
	c.sealBlock(block)
	return res
}

func TestGenerator_BatchResultsReadingAnUpdatedSlotAreStale(t *testing.T) {
	forEachConfiguration(t, func(t *testing.T, c *testChain) {
		counter := c.deploy(firstUser, counterRuntime)
		retry := c.call(firstUser+2, counter)
		errs := c.applyBatch(c.call(firstUser+1, counter), retry)
		if errs[0] != nil {
			t.Fatalf("failed to apply first result: %v", errs[0])
		}
		requireErrorIs(t, errs[1], juice.ErrStaleResult)
		if want, got := (juice.Word{31: 1}), c.storage(counter, juice.Key{}); want != got {
			t.Errorf("unexpected counter, wanted %v, got %v", want, got)
		}

		// once executed on the new tip, the increment is not lost
		c.mustRun(retry)
		if want, got := (juice.Word{31: 2}), c.storage(counter, juice.Key{}); want != got {
			t.Errorf("unexpected counter, wanted %v, got %v", want, got)
		}
	})
}

func TestGenerator_BatchResultsDebitingAnUpdatedBalanceAreStale(t *testing.T) {
	forEachConfiguration(t, func(t *testing.T, c *testChain) {
		payout := c.deploy(firstUser, payoutRuntime)
		if err := c.state.Deposit(juice.NativeTokenID, c.address(payout), juice.NewValue(100)); err != nil {
			t.Fatalf("failed to fund contract: %v", err)
		}
		supply := c.totalSupply()

		retry := c.call(firstUser+2, payout)
		errs := c.applyBatch(c.call(firstUser+1, payout), retry)
		if errs[0] != nil {
			t.Fatalf("failed to apply first result: %v", errs[0])
		}
		requireErrorIs(t, errs[1], juice.ErrStaleResult)

		if want, got := (juice.Value{}), c.balance(payout); want != got {
			t.Errorf("unexpected contract balance, wanted %v, got %v", want, got)
		}
		if want, got := juice.NewValue(initialBalance+100), c.balance(firstUser+1); want != got {
			t.Errorf("unexpected balance of first caller, wanted %v, got %v", want, got)
		}
		if want, got := juice.NewValue(initialBalance), c.balance(firstUser+2); want != got {
			t.Errorf("unexpected balance of second caller, wanted %v, got %v", want, got)
		}
		if want, got := supply, c.totalSupply(); want != got {
			t.Errorf("total supply changed from %v to %v", want, got)
		}

		// re-executed on the new tip, the payout fails
		_, err := c.run(retry)
		requireErrorIs(t, err, juice.ErrContractRevert)
	})
}

func TestGenerator_BatchPaymentsToTheSameContractDoNotConflict(t *testing.T) {
	forEachConfiguration(t, func(t *testing.T, c *testChain) {
		sink := c.deploy(firstUser, []byte{byte(evm.STOP)})
		errs := c.applyBatch(
			c.call(firstUser+1, sink, withValue(3)),
			c.call(firstUser+2, sink, withValue(4)),
		)
		for i, err := range errs {
			if err != nil {
				t.Fatalf("failed to apply result %d: %v", i, err)
			}
		}
		if want, got := juice.NewValue(7), c.balance(sink); want != got {
			t.Errorf("unexpected contract balance, wanted %v, got %v", want, got)
		}
	})
}
