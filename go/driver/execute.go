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
	"time"

	"github.com/Fantom-foundation/Juice/go/chain"
	"github.com/Fantom-foundation/Juice/go/generator"
	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/Fantom-foundation/Juice/go/state"
	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
)

var DeployCmd = cli.Command{
	Action:    doDeploy,
	Name:      "deploy",
	Usage:     "Deploys a contract from the given init code in a new block",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		FromFlag,
		CodeFlag,
		ValueFlag,
		GasFlag,
		GasPriceFlag,
		ProducerFlag,
		CyclesFlag,
	},
}

var CallCmd = cli.Command{
	Action:    doCall,
	Name:      "call",
	Usage:     "Calls an account in a new block",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		FromFlag,
		ToFlag,
		InputFlag,
		ValueFlag,
		GasFlag,
		GasPriceFlag,
		ProducerFlag,
		CyclesFlag,
		DryRunFlag,
	},
}

func doDeploy(context *cli.Context) error {
	code, err := CodeFlag.Fetch(context)
	if err != nil {
		return err
	}
	return execute(context, juice.CreatorAccountID, juice.ArgsCreate, code, false)
}

func doCall(context *cli.Context) error {
	input, err := InputFlag.Fetch(context)
	if err != nil {
		return err
	}
	return execute(context, ToFlag.Fetch(context), juice.ArgsCall, input, context.Bool(DryRunFlag.Name))
}

// execute runs a single transaction on top of the current tip. Unless it is
// a dry run, the result is applied and a block containing it is attached.
func execute(context *cli.Context, to juice.AccountID, kind juice.ArgsKind, input []byte, dryRun bool) error {
	value, err := ValueFlag.Fetch(context)
	if err != nil {
		return err
	}
	gasPrice, err := GasPriceFlag.Fetch(context)
	if err != nil {
		return err
	}
	args, err := juice.EncodeArgs(juice.Args{
		Kind:     kind,
		GasLimit: GasFlag.Fetch(context),
		GasPrice: gasPrice,
		Value:    value,
		Input:    input,
	})
	if err != nil {
		return err
	}

	config := generator.DefaultConfig()
	config.ChainID = ChainIDFlag.Fetch(context)
	gen, err := generator.New(config)
	if err != nil {
		return err
	}

	from := FromFlag.Fetch(context)
	return withState(context, func(s *state.State) error {
		block, err := nextBlock(s, ProducerFlag.Fetch(context))
		if err != nil {
			return err
		}

		txn, err := s.BeginTransaction()
		if err != nil {
			return err
		}
		nonce, err := txn.GetNonce(from)
		if err != nil {
			return errors.Join(err, txn.Release())
		}
		tip, err := txn.GetTipBlockHash()
		if err != nil {
			return errors.Join(err, txn.Release())
		}

		start := time.Now()
		result, err := gen.ExecuteTransaction(chain.NewView(txn, tip), txn, block, juice.RawTransaction{
			From:  from,
			To:    to,
			Nonce: nonce,
			Args:  args,
		}, CyclesFlag.Fetch(context))
		duration := time.Since(start)
		if err := errors.Join(err, txn.Release()); err != nil {
			var revert *juice.RevertError
			if errors.As(err, &revert) {
				fmt.Fprintf(context.App.Writer, "reverted: 0x%x, gas used %d\n", revert.Data, revert.GasUsed)
			}
			return err
		}
		printResult(context, result, duration)
		if dryRun {
			return nil
		}

		if err := s.ApplyRunResult(result); err != nil {
			return err
		}
		hash, err := s.AttachBlock(block)
		if err != nil {
			return err
		}
		log.Info("Executed transaction", "from", from, "to", to, "nonce", nonce, "block", block.Number, "hash", hash)
		for _, create := range result.CreatedAccounts() {
			fmt.Fprintf(context.App.Writer, "created account %v: %v\n", create.ID, create.Script.Hash().ShortHash())
		}
		fmt.Fprintf(context.App.Writer, "block %d: %v\n", block.Number, hash)
		return nil
	})
}

func printResult(context *cli.Context, result *juice.RunResult, duration time.Duration) {
	out := context.App.Writer
	fmt.Fprintf(out, "return data: 0x%x\n", []byte(result.ReturnData))
	fmt.Fprintf(out, "gas used: %d\n", result.GasUsed)
	fmt.Fprintf(out, "cycles: %d\n", result.Cycles)
	fmt.Fprintf(out, "writes: %d, reads: %d, logs: %d\n", len(result.Writes), len(result.Reads), len(result.Logs))
	printThroughput(context, result.Cycles, duration)
}

func printThroughput(context *cli.Context, cycles juice.Cycles, duration time.Duration) {
	if seconds := duration.Seconds(); seconds > 0 {
		rate := float64(cycles) / seconds
		fmt.Fprintf(context.App.Writer, "throughput: %scycles/s\n", unitconv.FormatPrefix(rate, unitconv.SI, 0))
	}
}
