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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethereum/go-evmasm/asm"
	"github.com/ethereum/go-evmasm/log"
	"github.com/ethereum/go-evmasm/vm"
)

// Generator emits the body of a low-level function. It runs exactly once per
// distinct function name, during AppendMissingLowLevelFunctions.
type Generator func(*Context)

type lowLevelFunction struct {
	name      string
	in, out   int
	generator Generator
}

// LowLevelFunctionTag returns the entry point of the named low-level
// function as a push-tag item. The first request for a name allocates the
// tag and enqueues the generator; later requests return the same tag and
// ignore their generator argument entirely.
func (c *Context) LowLevelFunctionTag(name string, in, out int, generator Generator) asm.Item {
	if tag, ok := c.lowLevelTags[name]; ok {
		return tag
	}
	tag := c.asm.NewPushTag()
	c.lowLevelTags[name] = tag
	c.lowLevelQueue = append(c.lowLevelQueue, lowLevelFunction{
		name: name, in: in, out: out, generator: generator,
	})
	return tag
}

// CallLowLevelFunction emits a call to the named low-level function: the
// return tag is pushed and rotated below the arguments, the entry tag pushed
// and jumped to, and the tracked stack adjusted to the declared net effect.
func (c *Context) CallLowLevelFunction(name string, in, out int, generator Generator) {
	ret := c.asm.Append(c.asm.NewPushTag())
	c.moveIntoStack(in)
	c.asm.Append(c.LowLevelFunctionTag(name, in, out, generator))
	c.asm.Append(asm.NewOperation(vm.JUMP).WithJumpType(asm.JumpIntoFunction))
	c.asm.AdjustDeposit(out - 1 - in)
	c.asm.Append(ret.ToTag())
}

// AppendMissingLowLevelFunctions materializes every pending low-level
// function body, breadth first. A generator may request further helpers;
// those land at the tail of the queue and are drained in turn, so chains of
// helper-requests-helper never recurse on the native call stack. The stack
// height after each body must match the declared out-arity exactly.
func (c *Context) AppendMissingLowLevelFunctions() {
	for len(c.lowLevelQueue) > 0 {
		fn := c.lowLevelQueue[0]
		c.lowLevelQueue = c.lowLevelQueue[1:]
		log.Debug("Generating low-level function", "name", fn.name, "in", fn.in, "out", fn.out)

		c.asm.SetDeposit(fn.in + 1) // arguments plus the return address
		c.asm.Append(c.lowLevelTags[fn.name].ToTag())
		fn.generator(c)
		c.moveToStackTop(fn.out)
		c.asm.Append(asm.NewOperation(vm.JUMP).WithJumpType(asm.JumpOutOfFunction))
		asm.Assertf(c.asm.Deposit() == fn.out,
			"invalid stack height %d in low-level function %s, want %d",
			c.asm.Deposit(), fn.name, fn.out)
	}
}

// CallHelper emits a call to a named helper whose body is provided from
// outside this unit's own emission, and records the name so the surrounding
// build can tell which external helpers are actually referenced.
func (c *Context) CallHelper(name string, in, out int) {
	c.helperNames.Add(name)
	ret := c.asm.Append(c.asm.NewPushTag())
	c.moveIntoStack(in)
	c.asm.AppendJumpTo(c.asm.NamedTag(name), asm.JumpIntoFunction)
	c.asm.AdjustDeposit(out - 1 - in)
	c.asm.Append(ret.ToTag())
}

// RequestedHelpers returns the names recorded by CallHelper. It may be
// called once; helpers requested after the read would be silently lost, so a
// second call is a fatal error.
func (c *Context) RequestedHelpers() mapset.Set[string] {
	asm.Assertf(!c.helpersConsumed, "requested helpers read more than once")
	c.helpersConsumed = true
	out := c.helperNames
	c.helperNames = mapset.NewThreadUnsafeSet[string]()
	return out
}

// moveIntoStack rotates the stack top below the given number of slots.
func (c *Context) moveIntoStack(depth int) {
	for i := depth; i > 0; i-- {
		c.asm.AppendOp(vm.SwapN(i))
	}
}

// moveToStackTop rotates the slot below the given number of slots to the top.
func (c *Context) moveToStackTop(depth int) {
	for i := 1; i <= depth; i++ {
		c.asm.AppendOp(vm.SwapN(i))
	}
}
