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

package asm

import "fmt"

// CompilerError reports a breach of an internal invariant: a negative stack
// deposit, a mismatched stack height at a helper's return, a label referenced
// from the wrong owning scope. These are bugs in the code generator, not in
// the input program; compilation of the unit is aborted, never resumed.
type CompilerError struct {
	msg string
}

func (e *CompilerError) Error() string {
	return "compiler internal error: " + e.msg
}

// Failf aborts the compilation of the current unit with an internal error.
func Failf(format string, args ...any) {
	panic(&CompilerError{msg: fmt.Sprintf(format, args...)})
}

// Assertf aborts the compilation of the current unit unless cond holds.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		Failf(format, args...)
	}
}

// RecoverError converts a CompilerError panic into a returned error. It is
// deferred by the public entry points so that a host process survives the
// abort of a single compilation unit. Any other panic is re-raised.
func RecoverError(err *error) {
	switch r := recover().(type) {
	case nil:
	case *CompilerError:
		*err = r
	default:
		panic(r)
	}
}
