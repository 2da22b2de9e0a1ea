// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package evm implements an interpreter for EVM byte code metering both gas
// and cycles.
package evm

import (
	"fmt"

	"github.com/Fantom-foundation/Juice/go/juice"
)

func init() {
	err := juice.RegisterInterpreterFactory("evm", func(config any) (juice.Interpreter, error) {
		if config == nil {
			return NewInterpreter(Config{})
		}
		c, ok := config.(Config)
		if !ok {
			return nil, fmt.Errorf("invalid configuration type %T for evm interpreter", config)
		}
		return NewInterpreter(c)
	})
	if err != nil {
		panic(err)
	}
}

// Config parameterizes the interpreter.
type Config struct {
	// AnalysisCacheSize is the number of codes for which the jump
	// destination analysis is retained. If set to 0, a default size is used.
	// If negative, no cache is used.
	AnalysisCacheSize int
}

const defaultAnalysisCacheSize = 1 << 12

type evm struct {
	analyzer *analyzer
}

// NewInterpreter creates an EVM interpreter with the given configuration.
func NewInterpreter(config Config) (*evm, error) {
	if config.AnalysisCacheSize == 0 {
		config.AnalysisCacheSize = defaultAnalysisCacheSize
	}
	analyzer, err := newAnalyzer(config.AnalysisCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create code analysis cache: %w", err)
	}
	return &evm{analyzer: analyzer}, nil
}

func (e *evm) Run(params juice.Parameters) (juice.Result, error) {
	jumpDests := e.analyzer.analyze(params.Code, params.CodeHash)
	return run(params, jumpDests)
}
