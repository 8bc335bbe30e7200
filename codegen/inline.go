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

package codegen

import (
	"strings"

	"github.com/ethereum/go-evmasm/asm"
)

// Inliner assembles a textual micro-program into items appended to the
// context's assembly. Locals are resolved by stack position in list order,
// the last name nearest the top; the optimize flag selects whether the
// inliner may run its own optimizer over the block before emission.
//
// The implementation is an external collaborator; the code generator only
// submits well-formed programs, so any returned error indicates a bug in
// the generator itself.
type Inliner interface {
	AppendInline(c *Context, program string, locals []string, optimize bool) []error
}

// SetInliner installs the micro-program assembler used by AppendInline.
func (c *Context) SetInliner(inliner Inliner) { c.inliner = inliner }

// AppendInline submits a micro-program to the configured inliner. Failure is
// a fatal internal error carrying the offending program text and every
// recorded error, since it means malformed code was generated upstream.
func (c *Context) AppendInline(program string, locals []string, optimize bool) {
	asm.Assertf(c.inliner != nil, "no inline assembler configured")
	errs := c.inliner.AppendInline(c, program, locals, optimize)
	if len(errs) == 0 {
		return
	}
	var sb strings.Builder
	sb.WriteString("error parsing/analyzing inline assembly block:\n")
	sb.WriteString("------------------ Input: -----------------\n")
	sb.WriteString(program)
	sb.WriteString("\n------------------ Errors: ----------------\n")
	for _, err := range errs {
		sb.WriteString(err.Error())
		sb.WriteByte('\n')
	}
	sb.WriteString("-------------------------------------------")
	asm.Failf("%s", sb.String())
}
