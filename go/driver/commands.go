// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/Fantom-foundation/Juice/go/state"
	"github.com/urfave/cli/v2"
)

var InitCmd = cli.Command{
	Action:    doInit,
	Name:      "init",
	Usage:     "Creates a fresh state with the given genesis accounts",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		AllocFlag,
	},
}

var AccountCmd = cli.Command{
	Action:    doAccount,
	Name:      "account",
	Usage:     "Registers an externally owned account for an Ethereum address",
	ArgsUsage: "<0x-address>",
	Flags: []cli.Flag{
		DepositFlag,
	},
}

var BalanceCmd = cli.Command{
	Action:    doBalance,
	Name:      "balance",
	Usage:     "Prints the native token balance of an account id or address",
	ArgsUsage: "<account-id | 0x-address>",
}

var BlockCmd = cli.Command{
	Action:    doBlock,
	Name:      "block",
	Usage:     "Attaches an empty block on top of the current tip",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		ProducerFlag,
	},
}

func doInit(context *cli.Context) error {
	dir := DataDirFlag.Fetch(context)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("data directory %s already exists", dir)
	}
	genesis := state.Genesis{Timestamp: uint64(time.Now().Unix())}
	for _, alloc := range context.StringSlice(AllocFlag.Name) {
		address, balance, err := parseAlloc(alloc)
		if err != nil {
			return err
		}
		genesis.Accounts = append(genesis.Accounts, state.GenesisAccount{
			Address: address,
			Balance: balance,
		})
	}
	s, err := state.Open(state.Options{Path: dir}, genesis)
	if err != nil {
		return err
	}
	defer s.Close()
	for i, account := range genesis.Accounts {
		id := juice.AccountID(i) + firstGenesisAccount
		fmt.Fprintf(context.App.Writer, "account %v: 0x%x, balance %v\n", id, account.Address, account.Balance.ToBig())
	}
	return nil
}

// firstGenesisAccount is the id of the first genesis account, following the
// deployment router and the native token.
const firstGenesisAccount = juice.NativeTokenID + 1

func doAccount(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return errors.New("expected exactly one address")
	}
	address, err := parseEthAddress(context.Args().First())
	if err != nil {
		return err
	}
	deposit, err := DepositFlag.Fetch(context)
	if err != nil {
		return err
	}
	return withState(context, func(s *state.State) error {
		id, err := s.CreateAccountFromScript(juice.EOAScript(address))
		if err != nil {
			return err
		}
		if !deposit.IsZero() {
			script := juice.EOAScript(address)
			if err := s.Deposit(juice.NativeTokenID, script.Hash().ShortHash(), deposit); err != nil {
				return err
			}
		}
		fmt.Fprintf(context.App.Writer, "account %v: 0x%x\n", id, address)
		return nil
	})
}

func doBalance(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return errors.New("expected exactly one account id or address")
	}
	arg := context.Args().First()
	return withState(context, func(s *state.State) error {
		txn, err := s.BeginTransaction()
		if err != nil {
			return err
		}
		defer txn.Release()

		var owner juice.Address
		if strings.HasPrefix(arg, "0x") {
			address, err := parseEthAddress(arg)
			if err != nil {
				return err
			}
			owner = address
		} else {
			id, err := parseAccountID(arg)
			if err != nil {
				return err
			}
			hash, found, err := txn.GetScriptHash(id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: %v", juice.ErrUnknownAccount, id)
			}
			owner = hash.ShortHash()
		}
		balance, err := txn.GetBalance(juice.NativeTokenID, owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(context.App.Writer, "%v\n", balance.ToBig())
		return nil
	})
}

func doBlock(context *cli.Context) error {
	producer := ProducerFlag.Fetch(context)
	return withState(context, func(s *state.State) error {
		block, err := nextBlock(s, producer)
		if err != nil {
			return err
		}
		hash, err := s.AttachBlock(block)
		if err != nil {
			return err
		}
		fmt.Fprintf(context.App.Writer, "block %d: %v\n", block.Number, hash)
		return nil
	})
}

// withState opens the state in the configured data directory, which has to
// be initialized, and runs the given function on it.
func withState(context *cli.Context, fn func(*state.State) error) error {
	dir := DataDirFlag.Fetch(context)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("data directory %s is not initialized, run init first: %w", dir, err)
	}
	s, err := state.Open(state.Options{Path: dir}, state.Genesis{})
	if err != nil {
		return err
	}
	return errors.Join(fn(s), s.Close())
}

// nextBlock describes the block following the current tip of the state.
func nextBlock(s *state.State, producer juice.AccountID) (juice.BlockInfo, error) {
	txn, err := s.BeginTransaction()
	if err != nil {
		return juice.BlockInfo{}, err
	}
	defer txn.Release()
	hash, err := txn.GetTipBlockHash()
	if err != nil {
		return juice.BlockInfo{}, err
	}
	tip, found, err := txn.GetBlockHeader(hash)
	if err != nil {
		return juice.BlockInfo{}, err
	}
	if !found {
		return juice.BlockInfo{}, fmt.Errorf("missing header of tip %v", hash)
	}
	timestamp := uint64(time.Now().Unix())
	if timestamp < tip.Timestamp {
		timestamp = tip.Timestamp
	}
	return juice.BlockInfo{
		Producer:  producer,
		Number:    tip.Number + 1,
		Timestamp: timestamp,
	}, nil
}
