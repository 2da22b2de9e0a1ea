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

import (
	"bytes"
	"reflect"
	"testing"
)

func TestScript_SerializeLayout(t *testing.T) {
	script := Script{CodeHash: Hash{1}, HashType: HashTypeType, Args: []byte{0xa, 0xb}}
	want := append(bytes.Clone(script.CodeHash[:]), 1, 2, 0, 0, 0, 0xa, 0xb)
	if got := script.Serialize(); !bytes.Equal(want, got) {
		t.Errorf("unexpected serialization\nwant %x\ngot  %x", want, got)
	}
}

func TestScript_DeserializeInvertsSerialize(t *testing.T) {
	scripts := map[string]Script{
		"eoa":      EOAScript([20]byte{1, 2, 3}),
		"contract": ContractScript(CreatorAccountID, [20]byte{9}),
		"creator":  CreatorScript(NativeTokenID),
		"token":    TokenScript(Hash{}),
		"no args":  {CodeHash: Hash{7}},
	}
	for name, script := range scripts {
		t.Run(name, func(t *testing.T) {
			restored, err := DeserializeScript(script.Serialize())
			if err != nil {
				t.Fatalf("failed to deserialize: %v", err)
			}
			if !reflect.DeepEqual(script, restored) {
				t.Errorf("unexpected script, wanted %v, got %v", script, restored)
			}
		})
	}
}

func TestScript_DeserializeRejectsInvalidInput(t *testing.T) {
	valid := EOAScript([20]byte{1}).Serialize()
	tests := map[string][]byte{
		"empty":     nil,
		"truncated": valid[:len(valid)-1],
		"too long":  append(bytes.Clone(valid), 0),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DeserializeScript(data); err == nil {
				t.Errorf("expected an error")
			}
		})
	}
}

func TestScript_HashesAreDistinct(t *testing.T) {
	seen := map[Hash]string{}
	scripts := map[string]Script{
		"eoa 1":      EOAScript([20]byte{1}),
		"eoa 2":      EOAScript([20]byte{2}),
		"contract 1": ContractScript(CreatorAccountID, [20]byte{1}),
		"contract 2": ContractScript(NativeTokenID, [20]byte{1}),
		"creator":    CreatorScript(NativeTokenID),
	}
	for name, script := range scripts {
		hash := script.Hash()
		if other, found := seen[hash]; found {
			t.Errorf("scripts %s and %s share hash %v", name, other, hash)
		}
		seen[hash] = name
	}
}

func TestScript_IsContract(t *testing.T) {
	if !ContractScript(CreatorAccountID, [20]byte{}).IsContract() {
		t.Errorf("contract script not recognized")
	}
	if EOAScript([20]byte{}).IsContract() {
		t.Errorf("eoa script reported as contract")
	}
}

func TestBlake2b_ConcatenatesInputs(t *testing.T) {
	if Blake2b([]byte("ab"), []byte("c")) != Blake2b([]byte("abc")) {
		t.Errorf("hash depends on input partitioning")
	}
	if Blake2b([]byte("abc")) == Blake2b([]byte("abd")) {
		t.Errorf("different inputs produce the same hash")
	}
}
