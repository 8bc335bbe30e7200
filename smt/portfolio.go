// Copyright 2025 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package smt dispatches satisfiability queries over a portfolio of solver
// backends. Backends are redundant: any one definitive answer suffices, but
// two backends contradicting each other is an error in its own right and is
// never resolved by silently preferring one of them.
package smt

import (
	"context"
	"fmt"

	"github.com/ethereum/go-evmasm/log"
)

// Result is a solver's verdict on a query.
type Result byte

const (
	Unknown Result = iota
	Satisfiable
	Unsatisfiable
)

func (r Result) String() string {
	switch r {
	case Satisfiable:
		return "sat"
	case Unsatisfiable:
		return "unsat"
	default:
		return "unknown"
	}
}

// Checker is one solver backend. Check may block on an external process and
// must honor the context.
type Checker interface {
	Name() string
	Check(ctx context.Context, query string) (Result, error)
}

// ConflictError reports two backends giving contradicting definitive
// answers for the same query.
type ConflictError struct {
	First, Second string // backend names
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("smt: conflicting solver answers from %s and %s", e.First, e.Second)
}

// Portfolio fans a query out to every backend in order.
type Portfolio struct {
	checkers []Checker
}

func NewPortfolio(checkers ...Checker) *Portfolio {
	return &Portfolio{checkers: checkers}
}

// Check queries every backend and combines the verdicts. A crashed backend
// counts as no answer; a definitive answer wins over unknown; two
// contradicting definitive answers return a ConflictError naming both
// backends.
func (p *Portfolio) Check(ctx context.Context, query string) (Result, error) {
	result := Unknown
	answeredBy := ""
	for _, checker := range p.checkers {
		r, err := checker.Check(ctx, query)
		if err != nil {
			log.Debug("Solver backend failed", "backend", checker.Name(), "err", err)
			continue
		}
		if r == Unknown {
			continue
		}
		if result != Unknown && r != result {
			return Unknown, &ConflictError{First: answeredBy, Second: checker.Name()}
		}
		result = r
		answeredBy = checker.Name()
	}
	return result, nil
}
