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
	"github.com/holiman/uint256"

	"github.com/ethereum/go-evmasm/asm"
	"github.com/ethereum/go-evmasm/crypto"
	"github.com/ethereum/go-evmasm/vm"
)

// A bodyEmitter writes the instruction sequence of a rewrite helper. The
// scope binds the replaced opcode's stack arguments by position, so the
// emitter addresses them by name regardless of how deep they sit below the
// working slots.
type bodyEmitter func(*Context, *bodyScope)

// bodyScope resolves named locals to stack depths. Entry locals sit below
// the height the scope was opened at (the replaced opcode's arguments plus,
// for memoized helpers, the return address); locals declared inside the
// scope sit above it and are popped again on exit.
type bodyScope struct {
	c       *Context
	entry   int
	offsets map[string]int
}

// newBodyScope opens a scope over the given entry locals. The locals are
// listed deepest-first: the last name is nearest the stack top.
func newBodyScope(c *Context, entryLocals []string) *bodyScope {
	s := &bodyScope{c: c, entry: c.asm.Deposit(), offsets: make(map[string]int)}
	n := len(entryLocals)
	for i, name := range entryLocals {
		s.offsets[name] = s.entry - n + i
	}
	return s
}

func (s *bodyScope) depthOf(name string, lvalue bool) int {
	offset, ok := s.offsets[name]
	asm.Assertf(ok, "unbound body local %q", name)
	depth := s.c.asm.Deposit() - offset
	if lvalue {
		depth--
	}
	asm.Assertf(depth >= 1 && depth <= 16, "stack too deep accessing %q (%d slots)", name, depth)
	return depth
}

// get duplicates the local to the stack top.
func (s *bodyScope) get(name string) {
	s.c.asm.AppendOp(vm.DupN(s.depthOf(name, false)))
}

// set stores the stack top into the local's slot and pops it.
func (s *bodyScope) set(name string) {
	s.c.asm.AppendOp(vm.SwapN(s.depthOf(name, true)))
	s.c.asm.AppendOp(vm.POP)
}

// declare names the current stack top as a new scope local.
func (s *bodyScope) declare(name string) {
	s.offsets[name] = s.c.asm.Deposit() - 1
}

// exit pops every slot pushed above the scope entry height.
func (s *bodyScope) exit() {
	for s.c.asm.Deposit() > s.entry {
		s.c.asm.AppendOp(vm.POP)
	}
}

// storeWordAt stores the value left by the callback at base+disp in memory.
func (s *bodyScope) storeWordAt(base string, disp uint64, value func()) {
	value()
	s.get(base)
	if disp != 0 {
		s.c.asm.AppendPushUint64(disp)
		s.c.asm.AppendOp(vm.ADD)
	}
	s.c.asm.AppendOp(vm.MSTORE)
}

// rewriteSimple replaces an opcode of at most two inputs and one output: the
// inputs are marshalled into the scratch region, the helper invoked through
// the managed call, the single output read back and the scratch zeroed so it
// cannot leak into later memory-dependent computations.
func (c *Context) rewriteSimple(r simpleRule) {
	asm.Assertf(r.in <= 2 && r.out <= 1,
		"simple rewrite %s has arity %d/%d", r.signature, r.in, r.out)
	a := c.asm
	body := func(c *Context, s *bodyScope) {
		if r.in >= 1 {
			s.storeWordAt("callBytes", 0x04, func() { s.get("x1") })
		}
		if r.in >= 2 {
			s.storeWordAt("callBytes", 0x24, func() { s.get("x2") })
		}
		a.AppendPushUint64(uint64(r.out) * 0x20)
		s.get("callBytes")
		a.AppendPushUint64(uint64(r.in)*0x20 + 4)
		s.get("callBytes")
		c.appendManagedCall()
		if r.out > 0 {
			s.get("callBytes")
			a.AppendOp(vm.MLOAD)
			s.set("x1")
		}
		// Zero both scratch words so downstream memory users see untouched
		// memory. Widen this if inputs ever exceed two words.
		s.storeWordAt("callBytes", 0, func() { a.AppendPushUint64(0) })
		s.storeWordAt("callBytes", 0x20, func() { a.AppendPushUint64(0) })
	}
	c.rewriteComplex(r.signature, r.in, r.out, []string{"x2", "x1"}, body, !r.inline)
}

// rewriteComplex replaces an opcode of arbitrary arity. The call site is
// padded with neutral values when the helper produces more than it consumes
// and popped down when it consumes more, so the net stack delta of the whole
// replacement equals the native delta of the original opcode.
func (c *Context) rewriteComplex(signature string, in, out int, locals []string, body bodyEmitter, memoize bool) {
	for i := 0; i < out-in; i++ {
		c.asm.AppendOp(vm.GAS) // padding, the value is irrelevant
	}
	emit := func(c *Context, entryLocals []string) {
		release := c.suspendRewrites()
		defer release()
		s := newBodyScope(c, entryLocals)
		c.emitScratchPrologue(signature, s)
		body(c, s)
		s.exit()
	}
	if memoize {
		c.CallLowLevelFunction(signature, 0, 0, func(c *Context) {
			// The return address sits on top of the undeclared arguments.
			emit(c, append(append([]string(nil), locals...), "ret"))
		})
	} else {
		emit(c, locals)
	}
	for i := 0; i < in-out; i++ {
		c.asm.AppendOp(vm.POP)
	}
}

// emitScratchPrologue allocates the scratch region at the current memory
// frontier and stores the helper's method selector in its first word.
func (c *Context) emitScratchPrologue(signature string, s *bodyScope) {
	c.asm.AppendOp(vm.MSIZE)
	s.declare("callBytes")
	id := crypto.MethodID(signature)
	c.asm.AppendPush(new(uint256.Int).SetBytes(id[:]))
	c.asm.AppendPushUint64(224)
	c.asm.AppendOp(vm.SHL)
	s.get("callBytes")
	c.asm.AppendOp(vm.MSTORE)
}

// managedCallLandingOffset is the distance in bytes from the PC instruction
// to the success landing pad: the offset push, ADD and JUMPI, then the
// nine-byte failure epilogue.
const managedCallLandingOffset = 14

// appendManagedCall invokes the execution manager with the four call window
// arguments already on the stack (input offset on top, then input size,
// output offset, output size). On failure the raw return data is rethrown;
// on success execution continues at a landing pad addressed relative to the
// program counter, so no ordinary tag reference exists for it.
func (c *Context) appendManagedCall() {
	a := c.asm
	a.AppendOp(vm.CALLER)
	a.AppendPushUint64(0)
	a.AppendOp(vm.SWAP1)
	a.AppendOp(vm.GAS)
	a.AppendOp(vm.CALL)
	a.AppendOp(vm.PC)
	a.AppendPushUint64(managedCallLandingOffset)
	a.AppendOp(vm.ADD)
	a.AppendOp(vm.JUMPI)
	a.AppendOp(vm.RETURNDATASIZE)
	a.AppendPushUint64(0)
	a.AppendOp(vm.DUP1)
	a.AppendOp(vm.RETURNDATACOPY)
	a.AppendOp(vm.RETURNDATASIZE)
	a.AppendPushUint64(0)
	a.AppendOp(vm.REVERT)
	a.Append(a.NewTag()) // reachable only through the computed jump target
}

// appendSafeCopy copies return data through the identity precompile with the
// four arguments already on the stack (source offset on top, then source
// size, destination offset, destination size). The leading CALLER anchors
// the sequence against reordering passes.
func (c *Context) appendSafeCopy() {
	a := c.asm
	a.AppendOp(vm.CALLER)
	a.AppendOp(vm.POP)
	a.AppendPushUint64(0)
	a.AppendPushUint64(4)
	a.AppendOp(vm.GAS)
	a.AppendOp(vm.CALL)
	a.AppendOp(vm.POP)
}

// emitSelect reduces the two topmost values to one of them: the second slot
// survives when cmp holds for (top, second), the top otherwise.
func (c *Context) emitSelect(cmp vm.OpCode) {
	a := c.asm
	a.AppendOp(vm.DUP2)
	a.AppendOp(vm.DUP2)
	a.AppendOp(cmp)
	keep := a.AppendConditionalJump()
	a.AppendOp(vm.SWAP1)
	a.Append(keep.ToTag())
	a.AppendOp(vm.POP)
}

func (c *Context) emitMin() { c.emitSelect(vm.GT) }
func (c *Context) emitMax() { c.emitSelect(vm.LT) }

// emitWordLoop runs body with a scope local "ptr" advancing from the value
// left by init in 32-byte steps while ptr is below the value left by bound.
func (c *Context) emitWordLoop(s *bodyScope, init, bound, body func()) {
	a := c.asm
	init()
	s.declare("ptr")
	cond := a.Append(a.NewTag())
	bound()
	s.get("ptr")
	a.AppendOp(vm.LT)
	a.AppendOp(vm.ISZERO)
	done := a.AppendConditionalJump()
	body()
	s.get("ptr")
	a.AppendPushUint64(0x20)
	a.AppendOp(vm.ADD)
	s.set("ptr")
	a.AppendJumpTo(cond, asm.JumpOrdinary)
	a.Append(done.ToTag())
	a.AppendOp(vm.POP)
	delete(s.offsets, "ptr")
}

// emitManagedCallBody implements the CALL, STATICCALL and DELEGATECALL
// rewrites: the call window is abi-encoded into the scratch region, the
// manager invoked, raw return data restored for RETURNDATASIZE consistency,
// the payload copied to the caller's output window and all touched memory
// beyond it zeroed again. The success flag replaces the deepest input slot,
// which is the operation's native stack output.
func emitManagedCallBody(c *Context, s *bodyScope) {
	a := c.asm
	s.storeWordAt("callBytes", 0x04, func() { s.get("in_gas") })
	s.storeWordAt("callBytes", 0x24, func() { s.get("addr") })
	s.storeWordAt("callBytes", 0x44, func() { a.AppendPushUint64(0x60) }) // abi bytes head
	s.storeWordAt("callBytes", 0x64, func() { s.get("argsLength") })

	s.get("callBytes")
	a.AppendPushUint64(0x84)
	a.AppendOp(vm.ADD)
	s.declare("rawCallBytes")
	c.emitWordLoop(s,
		func() { a.AppendPushUint64(0) },
		func() { s.get("argsLength") },
		func() {
			s.get("argsOffset")
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MLOAD)
			s.get("rawCallBytes")
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MSTORE)
		})

	// Three return words cover the success flag and the abi header. The
	// input is overpadded by a word so abi right-padding always has room.
	a.AppendPushUint64(0x60)
	s.get("callBytes")
	s.get("argsLength")
	a.AppendPushUint64(0xa4)
	a.AppendOp(vm.ADD)
	s.get("callBytes")
	c.appendManagedCall()

	s.get("callBytes")
	a.AppendOp(vm.MLOAD)
	s.declare("wasSuccess")
	s.get("callBytes")
	a.AppendPushUint64(0x40)
	a.AppendOp(vm.ADD)
	a.AppendOp(vm.MLOAD)
	s.declare("returnedLength")

	a.AppendOp(vm.RETURNDATASIZE)
	a.AppendPushUint64(0)
	s.get("callBytes")
	a.AppendOp(vm.RETURNDATACOPY)

	s.get("retLength")
	s.get("retOffset")
	s.get("returnedLength")
	s.get("callBytes")
	a.AppendPushUint64(0x60)
	a.AppendOp(vm.ADD)
	c.appendSafeCopy()

	a.AppendOp(vm.MSIZE)
	s.declare("newMemSize")
	a.AppendOp(vm.RETURNDATASIZE)
	s.get("retLength")
	c.emitMin()
	s.get("retOffset")
	a.AppendOp(vm.ADD)
	s.declare("endOfReturnData")

	c.emitWordLoop(s,
		func() {
			s.get("callBytes")
			s.get("endOfReturnData")
			c.emitMax()
		},
		func() { s.get("newMemSize") },
		func() {
			a.AppendPushUint64(0)
			s.get("ptr")
			a.AppendOp(vm.MSTORE)
		})

	s.get("wasSuccess")
	s.set("retLength")
}

// emitRevertBody abi-encodes the revert payload and hands it to the manager,
// which performs the safe reversion itself; nothing is read back.
func emitRevertBody(c *Context, s *bodyScope) {
	a := c.asm
	s.get("callBytes")
	a.AppendPushUint64(4)
	a.AppendOp(vm.ADD)
	s.declare("dataStart")
	s.storeWordAt("dataStart", 0, func() { a.AppendPushUint64(0x20) })
	s.storeWordAt("dataStart", 0x20, func() { s.get("length") })
	c.emitWordLoop(s,
		func() { a.AppendPushUint64(0) },
		func() { s.get("length") },
		func() {
			s.get("offset")
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MLOAD)
			s.get("dataStart")
			a.AppendPushUint64(0x40)
			a.AppendOp(vm.ADD)
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MSTORE)
		})
	a.AppendPushUint64(0x20)
	s.get("callBytes")
	s.get("length")
	a.AppendPushUint64(0x64)
	a.AppendOp(vm.ADD)
	s.get("callBytes")
	c.appendManagedCall()
}

// emitCreateBody abi-encodes the init code, asks the manager to deploy it
// and leaves the created address in the deepest input slot.
func emitCreateBody(c *Context, s *bodyScope) {
	a := c.asm
	s.get("callBytes")
	a.AppendPushUint64(4)
	a.AppendOp(vm.ADD)
	s.declare("dataStart")
	s.storeWordAt("dataStart", 0, func() { a.AppendPushUint64(0x20) })
	s.storeWordAt("dataStart", 0x20, func() { s.get("length") })
	c.emitWordLoop(s,
		func() { a.AppendPushUint64(0) },
		func() { s.get("length") },
		func() {
			s.get("offset")
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MLOAD)
			s.get("dataStart")
			a.AppendPushUint64(0x40)
			a.AppendOp(vm.ADD)
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MSTORE)
		})
	a.AppendPushUint64(0x20)
	s.get("callBytes")
	s.get("length")
	a.AppendPushUint64(0x64)
	a.AppendOp(vm.ADD)
	s.get("callBytes")
	c.appendManagedCall()

	s.get("callBytes")
	a.AppendOp(vm.MLOAD)
	s.set("length")

	a.AppendOp(vm.MSIZE)
	s.declare("newMemSize")
	c.emitWordLoop(s,
		func() { s.get("callBytes") },
		func() { s.get("newMemSize") },
		func() {
			a.AppendPushUint64(0)
			s.get("ptr")
			a.AppendOp(vm.MSTORE)
		})
}

// emitCreate2Body is the salted variant of emitCreateBody.
func emitCreate2Body(c *Context, s *bodyScope) {
	a := c.asm
	s.get("callBytes")
	a.AppendPushUint64(4)
	a.AppendOp(vm.ADD)
	s.declare("dataStart")
	s.storeWordAt("dataStart", 0, func() { a.AppendPushUint64(0x40) })
	s.storeWordAt("dataStart", 0x20, func() { s.get("salt") })
	s.storeWordAt("dataStart", 0x40, func() { s.get("length") })
	c.emitWordLoop(s,
		func() { a.AppendPushUint64(0) },
		func() { s.get("length") },
		func() {
			s.get("offset")
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MLOAD)
			s.get("dataStart")
			a.AppendPushUint64(0x60)
			a.AppendOp(vm.ADD)
			s.get("ptr")
			a.AppendOp(vm.ADD)
			a.AppendOp(vm.MSTORE)
		})
	a.AppendPushUint64(0x20)
	s.get("callBytes")
	s.get("length")
	a.AppendPushUint64(0x84)
	a.AppendOp(vm.ADD)
	s.get("callBytes")
	c.appendManagedCall()

	s.get("callBytes")
	a.AppendOp(vm.MLOAD)
	s.set("salt")

	a.AppendOp(vm.MSIZE)
	s.declare("newMemSize")
	c.emitWordLoop(s,
		func() { s.get("callBytes") },
		func() { s.get("newMemSize") },
		func() {
			a.AppendPushUint64(0)
			s.get("ptr")
			a.AppendOp(vm.MSTORE)
		})
}

// emitExtcodecopyBody asks the manager for the code and lets it copy straight
// into the destination window, then zeroes scratch memory past the copy.
func emitExtcodecopyBody(c *Context, s *bodyScope) {
	a := c.asm
	s.storeWordAt("callBytes", 0x04, func() { s.get("addr") })
	s.storeWordAt("callBytes", 0x24, func() { s.get("offset") })
	s.storeWordAt("callBytes", 0x44, func() { s.get("length") })

	s.get("length")
	s.get("destOffset")
	a.AppendPushUint64(0x64)
	s.get("callBytes")
	c.appendManagedCall()

	a.AppendOp(vm.MSIZE)
	s.declare("newMemSize")
	c.emitWordLoop(s,
		func() {
			s.get("callBytes")
			s.get("destOffset")
			s.get("length")
			a.AppendOp(vm.ADD)
			c.emitMax()
		},
		func() { s.get("newMemSize") },
		func() {
			a.AppendPushUint64(0)
			s.get("ptr")
			a.AppendOp(vm.MSTORE)
		})
}
