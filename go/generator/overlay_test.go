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
	"errors"
	"reflect"
	"testing"

	"github.com/Fantom-foundation/Juice/go/juice"
	"go.uber.org/mock/gomock"
)

func TestOverlay_CommittedFramesAreFoldedIntoTheirParent(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newOverlay(newMockSnapshot(ctrl))
	key := juice.Key{1}

	o.enterFrame()
	o.setStorage(3, key, juice.Word{1})
	o.enterFrame()
	o.setStorage(3, key, juice.Word{2})
	if got := o.getStorage(3, key); got != (juice.Word{2}) {
		t.Errorf("unexpected value in nested frame: %v", got)
	}
	o.exitFrame(true)
	if got := o.getStorage(3, key); got != (juice.Word{2}) {
		t.Errorf("committed value not visible in parent: %v", got)
	}
	o.exitFrame(true)
	if got := o.getStorage(3, key); got != (juice.Word{2}) {
		t.Errorf("committed value not visible in base frame: %v", got)
	}
}

func TestOverlay_FailedFramesAreDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newOverlay(newMockSnapshot(ctrl))
	key := juice.Key{1}

	o.setStorage(3, key, juice.Word{1})
	o.enterFrame()
	o.setStorage(3, key, juice.Word{2})
	o.setNonce(3, 5)
	o.createAccount(juice.ContractScript(0, [20]byte{1}))
	o.emitLog(juice.Log{Address: testAddress(3)})
	o.exitFrame(false)

	if got := o.getStorage(3, key); got != (juice.Word{1}) {
		t.Errorf("discarded value still visible: %v", got)
	}
	if got := o.getNonce(3); got != 0 {
		t.Errorf("discarded nonce still visible: %d", got)
	}
	if got := o.nextAccountID(); got != 5 {
		t.Errorf("discarded account still allocated, next id %d", got)
	}
	if len(o.logs()) != 0 {
		t.Errorf("discarded log still visible")
	}
}

func TestOverlay_CreatedAccountsGetDenseIdsAndAreResolvable(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newOverlay(newMockSnapshot(ctrl))

	first := juice.ContractScript(0, [20]byte{1})
	second := juice.ContractScript(0, [20]byte{2})
	if id := o.createAccount(first); id != 5 {
		t.Errorf("unexpected id of first account: %d", id)
	}
	o.enterFrame()
	if id := o.createAccount(second); id != 6 {
		t.Errorf("unexpected id of second account: %d", id)
	}
	if got := o.getAccount(second.Hash().ShortHash()); !got.exists || got.id != 6 {
		t.Errorf("created account not resolvable: %+v", got)
	}
	if !o.isRegistered(first.Hash()) || !o.isRegistered(second.Hash()) {
		t.Errorf("created accounts should be registered")
	}
	if !o.isRegistered(testScriptHash(2)) {
		t.Errorf("existing account should be registered")
	}
	if o.isRegistered(juice.ContractScript(0, [20]byte{3}).Hash()) {
		t.Errorf("unknown account should not be registered")
	}
	o.exitFrame(true)

	if got := o.getNonce(6); got != 0 {
		t.Errorf("created accounts start with nonce 0, got %d", got)
	}
	if got := o.getCode(6); len(got.code) != 0 || got.hash != emptyCodeHash {
		t.Errorf("created accounts start without code, got %+v", got)
	}
}

func TestOverlay_TransfersAreChecked(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshot := juice.NewMockStateReader(ctrl)
	rich, poor, full := juice.Address{1}, juice.Address{2}, juice.Address{3}
	var maxValue juice.Value
	for i := range maxValue {
		maxValue[i] = 0xff
	}
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, rich).Return(juice.NewValue(10), nil).AnyTimes()
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, poor).Return(juice.Value{}, nil).AnyTimes()
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, full).Return(maxValue, nil).AnyTimes()
	o := newOverlay(snapshot)

	tests := map[string]struct {
		from, to juice.Address
		amount   uint64
		ok       bool
	}{
		"zero amount":        {poor, rich, 0, true},
		"covered amount":     {rich, poor, 10, true},
		"uncovered amount":   {rich, poor, 11, false},
		"self transfer":      {rich, rich, 10, true},
		"receiver overflows": {rich, full, 1, false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := o.canTransfer(juice.NativeTokenID, test.from, test.to, juice.NewValue(test.amount)); got != test.ok {
				t.Errorf("unexpected result, wanted %t, got %t", test.ok, got)
			}
		})
	}

	o.transfer(juice.NativeTokenID, rich, poor, juice.NewValue(4))
	if got := o.getBalance(juice.NativeTokenID, rich); got != juice.NewValue(6) {
		t.Errorf("unexpected sender balance %v", got)
	}
	if got := o.getBalance(juice.NativeTokenID, poor); got != juice.NewValue(4) {
		t.Errorf("unexpected receiver balance %v", got)
	}
}

func TestOverlay_WriteSetIsOrderedAndOmitsUnchangedEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshot := newMockSnapshot(ctrl)
	o := newOverlay(snapshot)

	script := juice.ContractScript(0, [20]byte{1})
	created := o.createAccount(script)
	o.setCode(created, juice.Code{0x00})
	o.setStorage(created, juice.Key{2}, juice.Word{7})
	o.setStorage(created, juice.Key{1}, juice.Word{8})
	o.setStorage(3, juice.Key{1}, juice.Word{9})
	o.setStorage(3, juice.Key{2}, juice.Word{}) // unchanged
	o.setNonce(created, 1)
	o.setNonce(testSender, 8)
	o.setNonce(3, 0) // unchanged

	a, b := juice.Address{0x01}, juice.Address{0x02}
	setIn(&o.top().balances, balanceKey{token: juice.NativeTokenID, owner: b}, juice.NewValue(5))
	setIn(&o.top().balances, balanceKey{token: juice.NativeTokenID, owner: a}, juice.Value{}) // unchanged

	writes, err := o.writeSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []juice.Write{
		&juice.CreateAccount{ID: created, Script: script},
		&juice.SetCode{Account: created, Code: juice.Code{0x00}},
		&juice.NonceBump{Account: testSender, From: 7, To: 8},
		&juice.NonceBump{Account: created, From: 0, To: 1},
		&juice.BalanceDelta{Token: juice.NativeTokenID, Owner: b, Amount: juice.NewValue(5)},
		&juice.StorageWrite{Account: 3, Key: juice.Key{1}, Value: juice.Word{9}},
		&juice.StorageWrite{Account: created, Key: juice.Key{1}, Value: juice.Word{8}},
		&juice.StorageWrite{Account: created, Key: juice.Key{2}, Value: juice.Word{7}},
	}
	if !reflect.DeepEqual(want, writes) {
		t.Errorf("unexpected write-set\nwanted %v\n   got %v", want, writes)
	}
}

func TestOverlay_DebitsAreReportedAsSuch(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshot := juice.NewMockStateReader(ctrl)
	owner := juice.Address{1}
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, owner).Return(juice.NewValue(10), nil).AnyTimes()
	o := newOverlay(snapshot)

	setIn(&o.top().balances, balanceKey{token: juice.NativeTokenID, owner: owner}, juice.NewValue(3))
	writes, err := o.writeSet()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []juice.Write{&juice.BalanceDelta{Token: juice.NativeTokenID, Owner: owner, Amount: juice.NewValue(7), Debit: true}}
	if !reflect.DeepEqual(want, writes) {
		t.Errorf("unexpected write-set %v", writes)
	}
}

func TestOverlay_WriteSetRequiresClosedFrames(t *testing.T) {
	ctrl := gomock.NewController(t)
	o := newOverlay(newMockSnapshot(ctrl))
	o.enterFrame()
	if _, err := o.writeSet(); err == nil {
		t.Errorf("write-set with open frames should fail")
	}
}

func TestOverlay_FirstReadErrorIsRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshot := juice.NewMockStateReader(ctrl)
	first, second := errors.New("first"), errors.New("second")
	snapshot.EXPECT().GetAccountCount().Return(uint32(5), nil).AnyTimes()
	snapshot.EXPECT().GetStorage(juice.AccountID(3), gomock.Any()).Return(juice.Word{}, first)
	snapshot.EXPECT().GetNonce(juice.AccountID(3)).Return(uint64(0), second)
	o := newOverlay(snapshot)

	o.getStorage(3, juice.Key{})
	o.getNonce(3)
	if o.err != first {
		t.Errorf("expected first error, got %v", o.err)
	}
	if _, err := o.writeSet(); err != first {
		t.Errorf("write-set should report read error, got %v", err)
	}
}

func TestOverlay_BaseAccountLookupsAreCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshot := juice.NewMockStateReader(ctrl)
	address := testAddress(3)
	snapshot.EXPECT().GetScriptHashByShortHash(address).Return(testScriptHash(3), true, nil).Times(1)
	snapshot.EXPECT().GetAccountIDByScriptHash(testScriptHash(3)).Return(juice.AccountID(3), true, nil).Times(1)
	o := newOverlay(snapshot)

	for i := 0; i < 3; i++ {
		if got := o.getAccount(address); !got.exists || got.id != 3 {
			t.Errorf("unexpected account %+v", got)
		}
	}
}

func TestOverlay_ReadSetHoldsObservedBaseValues(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshot := juice.NewMockStateReader(ctrl)
	payer, payee, unknown := juice.Address{1}, juice.Address{2}, juice.Address{3}
	snapshot.EXPECT().GetAccountCount().Return(uint32(5), nil).AnyTimes()
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, payer).Return(juice.NewValue(10), nil).Times(1)
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, payee).Return(juice.NewValue(3), nil).AnyTimes()
	snapshot.EXPECT().GetStorage(juice.AccountID(3), juice.Key{1}).Return(juice.Word{4}, nil).Times(1)
	snapshot.EXPECT().GetStorage(juice.AccountID(3), juice.Key{2}).Return(juice.Word{}, nil).Times(1)
	snapshot.EXPECT().GetScriptHashByShortHash(unknown).Return(juice.Hash{}, false, nil).Times(1)
	o := newOverlay(snapshot)

	o.transfer(juice.NativeTokenID, payer, payee, juice.NewValue(4))
	if got := o.getBalance(juice.NativeTokenID, payer); got != juice.NewValue(6) {
		t.Errorf("unexpected balance %v", got)
	}
	o.setStorage(3, juice.Key{1}, juice.Word{5})
	created := o.createAccount(juice.ContractScript(0, [20]byte{1}))
	o.setStorage(created, juice.Key{1}, juice.Word{6})
	o.getAccount(unknown)

	// reads of dropped frames are kept
	o.enterFrame()
	o.getStorage(3, juice.Key{2})
	o.exitFrame(false)

	want := []juice.Read{
		&juice.MissingAccountRead{Address: unknown},
		&juice.BalanceRead{Token: juice.NativeTokenID, Owner: payer, Value: juice.NewValue(10)},
		&juice.StorageRead{Account: 3, Key: juice.Key{1}, Value: juice.Word{4}},
		&juice.StorageRead{Account: 3, Key: juice.Key{2}},
	}
	if got := o.readSet(); !reflect.DeepEqual(want, got) {
		t.Errorf("unexpected read-set\nwanted %v\n   got %v", want, got)
	}
}

func TestOverlay_CreditsAreNotObserved(t *testing.T) {
	ctrl := gomock.NewController(t)
	snapshot := juice.NewMockStateReader(ctrl)
	payer, payee := juice.Address{1}, juice.Address{2}
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, payer).Return(juice.NewValue(10), nil).AnyTimes()
	snapshot.EXPECT().GetBalance(juice.NativeTokenID, payee).Return(juice.NewValue(3), nil).AnyTimes()
	o := newOverlay(snapshot)

	if !o.canTransfer(juice.NativeTokenID, payer, payee, juice.NewValue(4)) {
		t.Fatalf("transfer should be possible")
	}
	o.transfer(juice.NativeTokenID, payer, payee, juice.NewValue(4))
	for _, read := range o.readSet() {
		if balance, ok := read.(*juice.BalanceRead); ok && balance.Owner == payee {
			t.Errorf("credited balance is part of the read-set")
		}
	}

	// reading the balance afterwards makes it a dependency
	if got := o.getBalance(juice.NativeTokenID, payee); got != juice.NewValue(7) {
		t.Errorf("unexpected balance %v", got)
	}
	want := &juice.BalanceRead{Token: juice.NativeTokenID, Owner: payee, Value: juice.NewValue(3)}
	if reads := o.readSet(); len(reads) != 2 || !reflect.DeepEqual(want, reads[1]) {
		t.Errorf("unexpected read-set %v", reads)
	}
}
