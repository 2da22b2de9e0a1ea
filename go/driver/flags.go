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
	"fmt"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"
)

type dataDirFlagType struct {
	cli.StringFlag
}

var DataDirFlag = &dataDirFlagType{
	cli.StringFlag{
		Name:    "datadir",
		Aliases: []string{"d"},
		Usage:   "directory of the persistent state",
		Value:   "juice-data",
	},
}

func (f *dataDirFlagType) Fetch(context *cli.Context) string {
	return context.String(f.Name)
}

type verbosityFlagType struct {
	cli.IntFlag
}

var VerbosityFlag = &verbosityFlagType{
	cli.IntFlag{
		Name:  "verbosity",
		Usage: "logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		Value: 3,
	},
}

func (f *verbosityFlagType) Fetch(context *cli.Context) int {
	return context.Int(f.Name)
}

type chainIDFlagType struct {
	cli.UintFlag
}

var ChainIDFlag = &chainIDFlagType{
	cli.UintFlag{
		Name:  "chain-id",
		Usage: "chain id reported to contracts",
		Value: 42,
	},
}

func (f *chainIDFlagType) Fetch(context *cli.Context) uint32 {
	return uint32(context.Uint(f.Name))
}

type accountFlagType struct {
	cli.UintFlag
}

func (f *accountFlagType) Fetch(context *cli.Context) juice.AccountID {
	return juice.AccountID(context.Uint(f.Name))
}

var FromFlag = &accountFlagType{
	cli.UintFlag{
		Name:     "from",
		Usage:    "id of the sending account",
		Required: true,
	},
}

var ToFlag = &accountFlagType{
	cli.UintFlag{
		Name:     "to",
		Usage:    "id of the called account",
		Required: true,
	},
}

var ProducerFlag = &accountFlagType{
	cli.UintFlag{
		Name:  "producer",
		Usage: "id of the account producing the block",
		Value: uint(juice.CreatorAccountID),
	},
}

type amountFlagType struct {
	cli.StringFlag
}

func (f *amountFlagType) Fetch(context *cli.Context) (juice.Value, error) {
	return parseAmount(context.String(f.Name))
}

var ValueFlag = &amountFlagType{
	cli.StringFlag{
		Name:  "value",
		Usage: "amount of native tokens transferred",
		Value: "0",
	},
}

var GasPriceFlag = &amountFlagType{
	cli.StringFlag{
		Name:  "gas-price",
		Usage: "price per unit of gas in native tokens",
		Value: "0",
	},
}

var DepositFlag = &amountFlagType{
	cli.StringFlag{
		Name:  "deposit",
		Usage: "amount of native tokens minted to the new account",
		Value: "0",
	},
}

type gasFlagType struct {
	cli.Int64Flag
}

var GasFlag = &gasFlagType{
	cli.Int64Flag{
		Name:  "gas",
		Usage: "gas limit of the transaction",
		Value: 1_000_000,
	},
}

func (f *gasFlagType) Fetch(context *cli.Context) juice.Gas {
	return juice.Gas(context.Int64(f.Name))
}

type cyclesFlagType struct {
	cli.Uint64Flag
}

var CyclesFlag = &cyclesFlagType{
	cli.Uint64Flag{
		Name:  "cycles",
		Usage: "cycle limit of the execution",
		Value: 100_000_000,
	},
}

func (f *cyclesFlagType) Fetch(context *cli.Context) juice.Cycles {
	return juice.Cycles(context.Uint64(f.Name))
}

type hexFlagType struct {
	cli.StringFlag
}

func (f *hexFlagType) Fetch(context *cli.Context) ([]byte, error) {
	value := context.String(f.Name)
	if value == "" {
		return nil, nil
	}
	res, err := hexutil.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", f.Name, err)
	}
	return res, nil
}

var CodeFlag = &hexFlagType{
	cli.StringFlag{
		Name:     "code",
		Usage:    "0x-prefixed init code of the contract",
		Required: true,
	},
}

var InputFlag = &hexFlagType{
	cli.StringFlag{
		Name:  "input",
		Usage: "0x-prefixed call data",
	},
}

var DryRunFlag = &cli.BoolFlag{
	Name:  "dry-run",
	Usage: "execute without applying the result",
}

var AllocFlag = &cli.StringSliceFlag{
	Name:  "alloc",
	Usage: "genesis account given as <0x-address>=<balance>, may be repeated",
}

func parseAmount(value string) (juice.Value, error) {
	res, err := uint256.FromDecimal(value)
	if err != nil {
		return juice.Value{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return juice.ValueFromUint256(res), nil
}

func parseEthAddress(value string) ([20]byte, error) {
	if !common.IsHexAddress(value) {
		return [20]byte{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(value), nil
}

// parseAlloc parses a genesis allocation of the form <address>=<balance>.
func parseAlloc(value string) ([20]byte, juice.Value, error) {
	address, balance, found := strings.Cut(value, "=")
	if !found {
		return [20]byte{}, juice.Value{}, fmt.Errorf("invalid allocation %q, expected <address>=<balance>", value)
	}
	addr, err := parseEthAddress(address)
	if err != nil {
		return [20]byte{}, juice.Value{}, err
	}
	amount, err := parseAmount(balance)
	if err != nil {
		return [20]byte{}, juice.Value{}, err
	}
	return addr, amount, nil
}

// parseAccountID parses a decimal account id.
func parseAccountID(value string) (juice.AccountID, error) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid account id %q: %w", value, err)
	}
	return juice.AccountID(id), nil
}
