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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Juice/go/chain"
	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/Fantom-foundation/Juice/go/state"
)

func TestExecuteBatch_ResultsAreAlignedWithTransactions(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.deploy(chainIDRuntime)

	txs := []juice.RawTransaction{
		env.tx(alice, id, juice.ArgsCall, 0, chainIDSelector),
		env.tx(bob, alice, juice.ArgsCall, 1_000_000, nil), // insufficient balance
		env.tx(alice, bob, juice.ArgsCall, 5, nil),
		{From: 99, Args: []byte{1}}, // malformed
		env.tx(alice, id, juice.ArgsCall, 0, []byte{1}), // reverts
	}

	var results []BatchResult
	env.read(func(txn *state.Transaction, view *chain.View) {
		var err error
		results, err = env.generator.ExecuteBatch(context.Background(), view, txn, env.block, txs, testCycleLimit)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if len(results) != len(txs) {
		t.Fatalf("unexpected number of results, wanted %d, got %d", len(txs), len(results))
	}

	if results[0].Err != nil || results[0].Result.ReturnData[31] != testChainID {
		t.Errorf("unexpected result of contract call: %+v", results[0])
	}
	if !errors.Is(results[1].Err, juice.ErrInsufficientBalance) {
		t.Errorf("expected insufficient balance, got %v", results[1].Err)
	}
	if results[2].Err != nil || results[2].Result == nil {
		t.Errorf("unexpected result of transfer: %+v", results[2])
	}
	if !errors.Is(results[3].Err, juice.ErrMalformedArgs) {
		t.Errorf("expected malformed args, got %v", results[3].Err)
	}
	if !errors.Is(results[4].Err, juice.ErrContractRevert) {
		t.Errorf("expected revert, got %v", results[4].Err)
	}

	// each result is identical to an individual execution
	for i, tx := range txs {
		res, err := env.executeRaw(tx, testCycleLimit)
		if (err == nil) != (results[i].Err == nil) {
			t.Fatalf("transaction %d: batch error %v, individual error %v", i, results[i].Err, err)
		}
		if err != nil {
			continue
		}
		want, _ := res.Hash()
		got, _ := results[i].Result.Hash()
		if want != got {
			t.Errorf("transaction %d: batch result differs from individual execution", i)
		}
	}
}

func TestExecuteBatch_CancelledContextIsReported(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	txs := []juice.RawTransaction{env.tx(alice, bob, juice.ArgsCall, 5, nil)}
	env.read(func(txn *state.Transaction, view *chain.View) {
		_, err := env.generator.ExecuteBatch(ctx, view, txn, env.block, txs, testCycleLimit)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected cancellation, got %v", err)
		}
	})
}

func TestExecuteBatch_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	env.read(func(txn *state.Transaction, view *chain.View) {
		results, err := env.generator.ExecuteBatch(context.Background(), view, txn, env.block, nil, testCycleLimit)
		if err != nil || len(results) != 0 {
			t.Errorf("unexpected results %v, %v", results, err)
		}
	})
}
