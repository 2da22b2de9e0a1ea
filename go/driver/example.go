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
	"strings"
	"time"

	"github.com/Fantom-foundation/Juice/go/examples"
	"github.com/Fantom-foundation/Juice/go/generator"
	"github.com/Fantom-foundation/Juice/go/juice"
	"github.com/urfave/cli/v2"
)

var ExampleCmd = cli.Command{
	Action:    doExample,
	Name:      "example",
	Usage:     "Runs a built-in example contract on a private in-memory chain",
	ArgsUsage: "<example-name>",
	Flags: []cli.Flag{
		argumentFlag,
		repeatFlag,
	},
}

var argumentFlag = &cli.IntFlag{
	Name:  "arg",
	Usage: "argument passed to the example",
	Value: 100,
}

var repeatFlag = &cli.IntFlag{
	Name:  "repeat",
	Usage: "number of times the example is run",
	Value: 1,
}

func doExample(context *cli.Context) error {
	if context.Args().Len() != 1 {
		names := []string{}
		for _, example := range examples.All() {
			names = append(names, example.Name)
		}
		return fmt.Errorf("expected one example name out of %s", strings.Join(names, ", "))
	}
	example, found := examples.Get(context.Args().First())
	if !found {
		return fmt.Errorf("unknown example %q", context.Args().First())
	}
	repeat := context.Int(repeatFlag.Name)
	if repeat < 1 {
		return errors.New("repeat must be positive")
	}

	config := generator.DefaultConfig()
	config.ChainID = ChainIDFlag.Fetch(context)
	gen, err := generator.New(config)
	if err != nil {
		return err
	}
	instance, err := example.Deploy(gen)
	if err != nil {
		return err
	}

	argument := context.Int(argumentFlag.Name)
	var last examples.Result
	var cycles juice.Cycles
	start := time.Now()
	for i := 0; i < repeat; i++ {
		last, err = instance.Run(argument)
		if err != nil {
			return errors.Join(err, instance.Close())
		}
		cycles += last.Cycles
	}
	duration := time.Since(start)
	if err := instance.Close(); err != nil {
		return err
	}

	if want := example.RunReference(argument); want != last.Result {
		return fmt.Errorf("example %s(%d) returned %d, expected %d", example.Name, argument, last.Result, want)
	}
	out := context.App.Writer
	fmt.Fprintf(out, "%s(%d) = %d\n", example.Name, argument, last.Result)
	fmt.Fprintf(out, "gas used: %d\n", last.GasUsed)
	fmt.Fprintf(out, "cycles: %d\n", last.Cycles)
	printThroughput(context, cycles, duration)
	return nil
}
