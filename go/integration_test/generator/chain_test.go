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
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/Juice/go/chain"
	"github.com/Fantom-foundation/Juice/go/generator"
	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/Fantom-foundation/Juice/go/state"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const (
	chainID    = 42
	numUsers   = 8
	firstUser  = juice.AccountID(2)
	producer   = firstUser + numUsers - 1
	cycleLimit = juice.Cycles(10_000_000)

	initialBalance = 1_000_000
)

// userAddress is the Ethereum address of the i-th genesis account.
func userAddress(i int) [20]byte {
	return [20]byte{0x10 + byte(i)}
}

func testGenesis() state.Genesis {
	genesis := state.Genesis{Timestamp: 1000}
	for i := 0; i < numUsers; i++ {
		genesis.Accounts = append(genesis.Accounts, state.GenesisAccount{
			Address: userAddress(i),
			Balance: juice.NewValue(initialBalance),
		})
	}
	return genesis
}

// backends lists the state implementations all scenarios are run on.
var backends = map[string]func(t *testing.T) *state.State{
	"memory": func(t *testing.T) *state.State {
		s, err := state.NewMemory(testGenesis())
		if err != nil {
			t.Fatalf("failed to create state: %v", err)
		}
		return s
	},
	"pebble": func(t *testing.T) *state.State {
		s, err := state.Open(state.Options{
			Path:   filepath.Join(t.TempDir(), "state"),
			Pebble: &pebble.Options{FS: vfs.NewMem()},
		}, testGenesis())
		if err != nil {
			t.Fatalf("failed to create state: %v", err)
		}
		return s
	},
}

// forEachConfiguration runs the given test on every combination of state
// backend and registered interpreter.
func forEachConfiguration(t *testing.T, test func(t *testing.T, c *testChain)) {
	for backendName, backend := range backends {
		for _, interpreterName := range juice.GetAllRegisteredInterpreters() {
			t.Run(fmt.Sprintf("%s/%s", backendName, interpreterName), func(t *testing.T) {
				interpreter, err := juice.NewInterpreter(interpreterName)
				if err != nil {
					t.Fatalf("failed to create interpreter %s: %v", interpreterName, err)
				}
				test(t, newTestChain(t, backend(t), interpreter))
			})
		}
	}
}

// testChain drives a state the way a block producer does: transactions are
// executed on a snapshot of the tip, applied, and sealed into blocks.
type testChain struct {
	t         *testing.T
	state     *state.State
	generator *generator.Generator
	timestamp uint64
}

func newTestChain(t *testing.T, s *state.State, interpreter juice.Interpreter) *testChain {
	t.Helper()
	config := generator.DefaultConfig()
	config.ChainID = chainID
	config.Interpreter = interpreter
	gen, err := generator.New(config)
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close state: %v", err)
		}
	})
	return &testChain{t: t, state: s, generator: gen, timestamp: 1000}
}

// read runs the given function on a snapshot of the current tip.
func (c *testChain) read(fn func(txn *state.Transaction, view *chain.View)) {
	c.t.Helper()
	txn, err := c.state.BeginTransaction()
	if err != nil {
		c.t.Fatalf("failed to begin transaction: %v", err)
	}
	defer txn.Release()
	tip, err := txn.GetTipBlockHash()
	if err != nil {
		c.t.Fatalf("failed to get tip: %v", err)
	}
	fn(txn, chain.NewView(txn, tip))
}

func (c *testChain) tip() *juice.BlockHeader {
	c.t.Helper()
	var res *juice.BlockHeader
	c.read(func(_ *state.Transaction, view *chain.View) {
		tip, err := view.Tip()
		if err != nil {
			c.t.Fatalf("failed to get tip header: %v", err)
		}
		res = tip
	})
	return res
}

func (c *testChain) tipHash() juice.Hash {
	c.t.Helper()
	var res juice.Hash
	c.read(func(txn *state.Transaction, _ *chain.View) {
		hash, err := txn.GetTipBlockHash()
		if err != nil {
			c.t.Fatalf("failed to get tip: %v", err)
		}
		res = hash
	})
	return res
}

// nextBlock describes the block following the current tip.
func (c *testChain) nextBlock() juice.BlockInfo {
	c.t.Helper()
	return juice.BlockInfo{
		Producer:  producer,
		Number:    c.tip().Number + 1,
		Timestamp: c.timestamp + 1,
	}
}

// sealBlock attaches the given block on top of the tip.
func (c *testChain) sealBlock(block juice.BlockInfo) juice.Hash {
	c.t.Helper()
	hash, err := c.state.AttachBlock(block)
	if err != nil {
		c.t.Fatalf("failed to attach block: %v", err)
	}
	c.timestamp = block.Timestamp
	return hash
}

func (c *testChain) nonce(id juice.AccountID) uint64 {
	c.t.Helper()
	var res uint64
	c.read(func(txn *state.Transaction, _ *chain.View) {
		nonce, err := txn.GetNonce(id)
		if err != nil {
			c.t.Fatalf("failed to get nonce of %v: %v", id, err)
		}
		res = nonce
	})
	return res
}

func (c *testChain) address(id juice.AccountID) juice.Address {
	c.t.Helper()
	var res juice.Address
	c.read(func(txn *state.Transaction, _ *chain.View) {
		hash, found, err := txn.GetScriptHash(id)
		if err != nil || !found {
			c.t.Fatalf("failed to resolve account %v: %v", id, err)
		}
		res = hash.ShortHash()
	})
	return res
}

func (c *testChain) balance(id juice.AccountID) juice.Value {
	c.t.Helper()
	address := c.address(id)
	var res juice.Value
	c.read(func(txn *state.Transaction, _ *chain.View) {
		balance, err := txn.GetBalance(juice.NativeTokenID, address)
		if err != nil {
			c.t.Fatalf("failed to get balance of %v: %v", id, err)
		}
		res = balance
	})
	return res
}

func (c *testChain) storage(id juice.AccountID, key juice.Key) juice.Word {
	c.t.Helper()
	var res juice.Word
	c.read(func(txn *state.Transaction, _ *chain.View) {
		value, err := txn.GetStorage(id, key)
		if err != nil {
			c.t.Fatalf("failed to get storage of %v: %v", id, err)
		}
		res = value
	})
	return res
}

// fingerprint summarizes nonces and native balances of all accounts.
func (c *testChain) fingerprint() string {
	c.t.Helper()
	var count uint32
	c.read(func(txn *state.Transaction, _ *chain.View) {
		n, err := txn.GetAccountCount()
		if err != nil {
			c.t.Fatalf("failed to get account count: %v", err)
		}
		count = n
	})
	res := fmt.Sprintf("accounts=%d", count)
	for id := juice.AccountID(0); id < juice.AccountID(count); id++ {
		res += fmt.Sprintf(";%v:%d:%v", id, c.nonce(id), c.balance(id))
	}
	return res
}

type txOption func(*juice.Args)

func withValue(v uint64) txOption {
	return func(a *juice.Args) { a.Value = juice.NewValue(v) }
}

func withGasPrice(p uint64) txOption {
	return func(a *juice.Args) { a.GasPrice = juice.NewValue(p) }
}

func withGasLimit(g juice.Gas) txOption {
	return func(a *juice.Args) { a.GasLimit = g }
}

func withInput(input []byte) txOption {
	return func(a *juice.Args) { a.Input = input }
}

// tx builds a transaction from the given sender using its current nonce.
func (c *testChain) tx(from, to juice.AccountID, kind juice.ArgsKind, options ...txOption) juice.RawTransaction {
	c.t.Helper()
	args := juice.Args{Kind: kind, GasLimit: 1_000_000}
	for _, option := range options {
		option(&args)
	}
	data, err := juice.EncodeArgs(args)
	if err != nil {
		c.t.Fatalf("failed to encode args: %v", err)
	}
	return juice.RawTransaction{From: from, To: to, Nonce: c.nonce(from), Args: data}
}

func (c *testChain) call(from, to juice.AccountID, options ...txOption) juice.RawTransaction {
	c.t.Helper()
	return c.tx(from, to, juice.ArgsCall, options...)
}

func (c *testChain) create(from juice.AccountID, initCode []byte, options ...txOption) juice.RawTransaction {
	c.t.Helper()
	return c.tx(from, juice.CreatorAccountID, juice.ArgsCreate, append(options, withInput(initCode))...)
}

// execute runs the given transaction on the current tip without applying it.
func (c *testChain) execute(block juice.BlockInfo, tx juice.RawTransaction, limit juice.Cycles) (res *juice.RunResult, err error) {
	c.t.Helper()
	c.read(func(txn *state.Transaction, view *chain.View) {
		res, err = c.generator.ExecuteTransaction(view, txn, block, tx, limit)
	})
	return res, err
}

// run executes and applies the given transaction in a block of its own.
func (c *testChain) run(tx juice.RawTransaction) (*juice.RunResult, error) {
	c.t.Helper()
	block := c.nextBlock()
	res, err := c.execute(block, tx, cycleLimit)
	if err != nil {
		return nil, err
	}
	if err := c.state.ApplyRunResult(res); err != nil {
		return nil, err
	}
	c.sealBlock(block)
	return res, nil
}

func (c *testChain) mustRun(tx juice.RawTransaction) *juice.RunResult {
	c.t.Helper()
	res, err := c.run(tx)
	if err != nil {
		c.t.Fatalf("failed to run transaction: %v", err)
	}
	return res
}

// deploy creates a contract with the given runtime code and returns its id.
func (c *testChain) deploy(from juice.AccountID, runtime []byte) juice.AccountID {
	c.t.Helper()
	res := c.mustRun(c.create(from, initCodeFor(runtime)))
	created := res.CreatedAccounts()
	if len(created) != 1 {
		c.t.Fatalf("expected one created account, got %d", len(created))
	}
	return created[0].ID
}

func requireErrorIs(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("unexpected error, wanted %v, got %v", want, err)
	}
}

// totalSupply sums the native balances of all accounts.
func (c *testChain) totalSupply() juice.Value {
	c.t.Helper()
	var count uint32
	c.read(func(txn *state.Transaction, _ *chain.View) {
		n, err := txn.GetAccountCount()
		if err != nil {
			c.t.Fatalf("failed to get account count: %v", err)
		}
		count = n
	})
	var res juice.Value
	for id := juice.AccountID(0); id < juice.AccountID(count); id++ {
		sum, overflow := juice.Add(res, c.balance(id))
		if overflow {
			c.t.Fatalf("total supply overflows")
		}
		res = sum
	}
	return res
}
