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
	"bytes"
	"cmp"
	"fmt"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var emptyCodeHash = juice.Hash(crypto.Keccak256Hash(nil))

type balanceKey struct {
	token juice.AccountID
	owner juice.Address
}

type slotKey struct {
	account juice.AccountID
	key     juice.Key
}

type createdAccount struct {
	id     juice.AccountID
	script juice.Script
	hash   juice.Hash
}

// frame holds the effects of a single call or create. Values are absolute,
// not relative to the enclosing frame.
type frame struct {
	balances map[balanceKey]juice.Value
	nonces   map[juice.AccountID]uint64
	storage  map[slotKey]juice.Word
	codes    map[juice.AccountID]juice.Code
	accounts []createdAccount
	logs     []juice.Log
}

func (f *frame) mergeInto(parent *frame) {
	for k, v := range f.balances {
		setIn(&parent.balances, k, v)
	}
	for k, v := range f.nonces {
		setIn(&parent.nonces, k, v)
	}
	for k, v := range f.storage {
		setIn(&parent.storage, k, v)
	}
	for k, v := range f.codes {
		setIn(&parent.codes, k, v)
	}
	parent.accounts = append(parent.accounts, f.accounts...)
	parent.logs = append(parent.logs, f.logs...)
}

func setIn[K comparable, V any](m *map[K]V, key K, value V) {
	if *m == nil {
		*m = map[K]V{}
	}
	(*m)[key] = value
}

// account is an account resolved from an EVM address.
type account struct {
	id     juice.AccountID
	hash   juice.Hash
	exists bool
}

type code struct {
	code juice.Code
	hash juice.Hash
}

// overlay is the mutable view of a transaction on top of an immutable state
// snapshot. Effects are kept in an arena of frames, one per active call;
// a frame is folded into its parent when the call succeeds and dropped
// when it fails. The first read error of the snapshot is recorded and
// reported once execution ends.
//
// Base values the execution depends on are kept in the read-set, including
// reads of frames that are later dropped. Balances that are only credited
// are not part of it, so concurrent payments to the same owner do not
// conflict.
type overlay struct {
	base   juice.StateReader
	frames []*frame
	err    error

	// caches of base reads
	count     *uint32
	addresses map[juice.Address]account
	codes     map[juice.AccountID]code

	// read-set
	observedBalances map[balanceKey]juice.Value
	observedSlots    map[slotKey]juice.Word
	missingAccounts  map[juice.Address]struct{}
}

func newOverlay(base juice.StateReader) *overlay {
	return &overlay{
		base:             base,
		frames:           []*frame{{}},
		addresses:        map[juice.Address]account{},
		codes:            map[juice.AccountID]code{},
		observedBalances: map[balanceKey]juice.Value{},
		observedSlots:    map[slotKey]juice.Word{},
		missingAccounts:  map[juice.Address]struct{}{},
	}
}

func (o *overlay) fail(err error) {
	if o.err == nil {
		o.err = err
	}
}

func (o *overlay) top() *frame {
	return o.frames[len(o.frames)-1]
}

func (o *overlay) depth() int {
	return len(o.frames) - 1
}

func (o *overlay) enterFrame() {
	o.frames = append(o.frames, &frame{})
}

// exitFrame ends the current frame. Its effects are folded into the parent
// frame if commit is set and discarded otherwise.
func (o *overlay) exitFrame(commit bool) {
	if len(o.frames) < 2 {
		panic("exiting the base frame of an overlay")
	}
	cur := o.top()
	o.frames = o.frames[:len(o.frames)-1]
	if commit {
		cur.mergeInto(o.top())
	}
}

// lookup finds the most recent value of a key in the frame stack.
func lookup[K comparable, V any](o *overlay, get func(*frame) map[K]V, key K) (V, bool) {
	for i := len(o.frames) - 1; i >= 0; i-- {
		if v, found := get(o.frames[i])[key]; found {
			return v, true
		}
	}
	var zero V
	return zero, false
}

func (o *overlay) baseCount() uint32 {
	if o.count == nil {
		count, err := o.base.GetAccountCount()
		if err != nil {
			o.fail(err)
		}
		o.count = &count
	}
	return *o.count
}

// nextAccountID is the id the next created account is assigned.
func (o *overlay) nextAccountID() juice.AccountID {
	next := juice.AccountID(o.baseCount())
	for _, f := range o.frames {
		next += juice.AccountID(len(f.accounts))
	}
	return next
}

func (o *overlay) isCreated(id juice.AccountID) bool {
	return uint32(id) >= o.baseCount()
}

func (o *overlay) createdAccounts() []createdAccount {
	var res []createdAccount
	for _, f := range o.frames {
		res = append(res, f.accounts...)
	}
	return res
}

// getAccount resolves an EVM address, the short hash of a script hash, to
// an account.
func (o *overlay) getAccount(address juice.Address) account {
	for _, created := range o.createdAccounts() {
		if created.hash.ShortHash() == address {
			return account{id: created.id, hash: created.hash, exists: true}
		}
	}
	if res, found := o.addresses[address]; found {
		return res
	}
	res := o.loadAccount(address)
	if o.err == nil {
		o.addresses[address] = res
	}
	return res
}

func (o *overlay) loadAccount(address juice.Address) account {
	hash, found, err := o.base.GetScriptHashByShortHash(address)
	if err != nil {
		o.fail(err)
		return account{}
	}
	if !found {
		o.missingAccounts[address] = struct{}{}
		return account{}
	}
	id, found, err := o.base.GetAccountIDByScriptHash(hash)
	if err != nil {
		o.fail(err)
		return account{}
	}
	if !found {
		o.fail(fmt.Errorf("short hash %v maps to unregistered script hash %v", address, hash))
		return account{}
	}
	return account{id: id, hash: hash, exists: true}
}

// isRegistered checks whether an account with the given script hash, or a
// script hash of the same short hash, exists.
func (o *overlay) isRegistered(hash juice.Hash) bool {
	for _, created := range o.createdAccounts() {
		if created.hash == hash {
			return true
		}
	}
	if _, found, err := o.base.GetAccountIDByScriptHash(hash); err != nil {
		o.fail(err)
		return false
	} else if found {
		return true
	}
	return o.getAccount(hash.ShortHash()).exists
}

func (o *overlay) createAccount(script juice.Script) juice.AccountID {
	id := o.nextAccountID()
	f := o.top()
	f.accounts = append(f.accounts, createdAccount{id: id, script: script, hash: script.Hash()})
	return id
}

func (o *overlay) getNonce(id juice.AccountID) uint64 {
	if nonce, found := lookup(o, func(f *frame) map[juice.AccountID]uint64 { return f.nonces }, id); found {
		return nonce
	}
	return o.baseNonce(id)
}

func (o *overlay) baseNonce(id juice.AccountID) uint64 {
	if o.isCreated(id) {
		return 0
	}
	nonce, err := o.base.GetNonce(id)
	if err != nil {
		o.fail(err)
	}
	return nonce
}

func (o *overlay) setNonce(id juice.AccountID, nonce uint64) {
	setIn(&o.top().nonces, id, nonce)
}

// getBalance returns the current balance of an owner. The base balance
// becomes part of the read-set, even if it was since modified.
func (o *overlay) getBalance(token juice.AccountID, owner juice.Address) juice.Value {
	key := balanceKey{token: token, owner: owner}
	base := o.observeBalance(key)
	if balance, found := lookup(o, func(f *frame) map[balanceKey]juice.Value { return f.balances }, key); found {
		return balance
	}
	return base
}

// peekBalance is getBalance without recording a read. It must only be used
// for computing credits.
func (o *overlay) peekBalance(key balanceKey) juice.Value {
	if balance, found := lookup(o, func(f *frame) map[balanceKey]juice.Value { return f.balances }, key); found {
		return balance
	}
	return o.peekBase(key)
}

// observeBalance adds the base balance of an owner to the read-set and
// returns it.
func (o *overlay) observeBalance(key balanceKey) juice.Value {
	if balance, found := o.observedBalances[key]; found {
		return balance
	}
	balance := o.baseBalance(key)
	if o.err == nil {
		o.observedBalances[key] = balance
	}
	return balance
}

func (o *overlay) peekBase(key balanceKey) juice.Value {
	if balance, found := o.observedBalances[key]; found {
		return balance
	}
	return o.baseBalance(key)
}

func (o *overlay) baseBalance(key balanceKey) juice.Value {
	balance, err := o.base.GetBalance(key.token, key.owner)
	if err != nil {
		o.fail(err)
	}
	return balance
}

// canTransfer checks that the sender holds the amount and the receiver's
// balance does not overflow.
func (o *overlay) canTransfer(token juice.AccountID, from, to juice.Address, amount juice.Value) bool {
	if amount.IsZero() {
		return true
	}
	if o.getBalance(token, from).Cmp(amount) < 0 {
		return false
	}
	if from == to {
		return true
	}
	_, overflow := juice.Add(o.peekBalance(balanceKey{token: token, owner: to}), amount)
	return !overflow
}

// transfer moves an amount between two owners. It must only be called
// after a successful canTransfer check.
func (o *overlay) transfer(token juice.AccountID, from, to juice.Address, amount juice.Value) {
	if amount.IsZero() || from == to {
		return
	}
	receiverKey := balanceKey{token: token, owner: to}
	sender, _ := juice.Sub(o.getBalance(token, from), amount)
	receiver, _ := juice.Add(o.peekBalance(receiverKey), amount)
	setIn(&o.top().balances, balanceKey{token: token, owner: from}, sender)
	setIn(&o.top().balances, receiverKey, receiver)
}

func (o *overlay) getStorage(id juice.AccountID, key juice.Key) juice.Word {
	slot := slotKey{account: id, key: key}
	base := o.observeSlot(slot)
	if value, found := lookup(o, func(f *frame) map[slotKey]juice.Word { return f.storage }, slot); found {
		return value
	}
	return base
}

func (o *overlay) baseStorage(slot slotKey) juice.Word {
	if o.isCreated(slot.account) {
		return juice.Word{}
	}
	value, err := o.base.GetStorage(slot.account, slot.key)
	if err != nil {
		o.fail(err)
	}
	return value
}

// observeSlot adds the base value of a slot to the read-set and returns it.
// Slots of accounts created by the transaction are not recorded.
func (o *overlay) observeSlot(slot slotKey) juice.Word {
	if value, found := o.observedSlots[slot]; found {
		return value
	}
	value := o.baseStorage(slot)
	if o.err == nil && !o.isCreated(slot.account) {
		o.observedSlots[slot] = value
	}
	return value
}

func (o *overlay) setStorage(id juice.AccountID, key juice.Key, value juice.Word) juice.Word {
	previous := o.getStorage(id, key)
	setIn(&o.top().storage, slotKey{account: id, key: key}, value)
	return previous
}

func (o *overlay) getCode(id juice.AccountID) code {
	if c, found := lookup(o, func(f *frame) map[juice.AccountID]juice.Code { return f.codes }, id); found {
		return code{code: c, hash: juice.Hash(crypto.Keccak256Hash(c))}
	}
	if o.isCreated(id) {
		return code{hash: emptyCodeHash}
	}
	if res, found := o.codes[id]; found {
		return res
	}
	c, err := o.base.GetCode(id)
	if err != nil {
		o.fail(err)
		return code{hash: emptyCodeHash}
	}
	res := code{code: c, hash: juice.Hash(crypto.Keccak256Hash(c))}
	o.codes[id] = res
	return res
}

func (o *overlay) setCode(id juice.AccountID, c juice.Code) {
	setIn(&o.top().codes, id, c)
}

func (o *overlay) emitLog(log juice.Log) {
	f := o.top()
	f.logs = append(f.logs, log)
}

func (o *overlay) logs() []juice.Log {
	return o.frames[0].logs
}

func compareBalanceKeys(a, b balanceKey) int {
	if c := cmp.Compare(a.token, b.token); c != 0 {
		return c
	}
	return bytes.Compare(a.owner[:], b.owner[:])
}

func compareSlotKeys(a, b slotKey) int {
	if c := cmp.Compare(a.account, b.account); c != 0 {
		return c
	}
	return bytes.Compare(a.key[:], b.key[:])
}

// readSet lists the recorded base reads in a canonical order: missing
// accounts, balances and storage slots.
func (o *overlay) readSet() []juice.Read {
	var res []juice.Read

	addresses := maps.Keys(o.missingAccounts)
	slices.SortFunc(addresses, func(a, b juice.Address) int { return bytes.Compare(a[:], b[:]) })
	for _, address := range addresses {
		res = append(res, &juice.MissingAccountRead{Address: address})
	}

	balances := maps.Keys(o.observedBalances)
	slices.SortFunc(balances, compareBalanceKeys)
	for _, key := range balances {
		res = append(res, &juice.BalanceRead{Token: key.token, Owner: key.owner, Value: o.observedBalances[key]})
	}

	slots := maps.Keys(o.observedSlots)
	slices.SortFunc(slots, compareSlotKeys)
	for _, slot := range slots {
		res = append(res, &juice.StorageRead{Account: slot.account, Key: slot.key, Value: o.observedSlots[slot]})
	}
	return res
}

// writeSet converts the effects of the base frame into an ordered write-set:
// account creations, code installs, nonce bumps, balance deltas and storage
// writes. Entries without effect are omitted.
func (o *overlay) writeSet() ([]juice.Write, error) {
	if len(o.frames) != 1 {
		return nil, fmt.Errorf("write-set requested with %d open frames", len(o.frames)-1)
	}
	f := o.frames[0]
	var res []juice.Write

	for _, created := range f.accounts {
		res = append(res, &juice.CreateAccount{ID: created.id, Script: created.script})
	}

	ids := maps.Keys(f.codes)
	slices.Sort(ids)
	for _, id := range ids {
		if len(f.codes[id]) > 0 {
			res = append(res, &juice.SetCode{Account: id, Code: f.codes[id]})
		}
	}

	ids = maps.Keys(f.nonces)
	slices.Sort(ids)
	for _, id := range ids {
		from, to := o.baseNonce(id), f.nonces[id]
		if from != to {
			res = append(res, &juice.NonceBump{Account: id, From: from, To: to})
		}
	}

	balances := maps.Keys(f.balances)
	slices.SortFunc(balances, compareBalanceKeys)
	for _, key := range balances {
		before, after := o.peekBase(key), f.balances[key]
		switch after.Cmp(before) {
		case 1:
			amount, _ := juice.Sub(after, before)
			res = append(res, &juice.BalanceDelta{Token: key.token, Owner: key.owner, Amount: amount})
		case -1:
			amount, _ := juice.Sub(before, after)
			res = append(res, &juice.BalanceDelta{Token: key.token, Owner: key.owner, Amount: amount, Debit: true})
		}
	}

	slots := maps.Keys(f.storage)
	slices.SortFunc(slots, compareSlotKeys)
	for _, slot := range slots {
		if value := f.storage[slot]; value != o.observeSlot(slot) {
			res = append(res, &juice.StorageWrite{Account: slot.account, Key: slot.key, Value: value})
		}
	}

	if o.err != nil {
		return nil, o.err
	}
	return res, nil
}
