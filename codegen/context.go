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

// Package codegen holds the per-compilation-unit state of the code
// generator: the assembly being built, variable bindings, the function
// compilation queues and the instruction rewrite policy that redirects
// selected opcodes to synthesized helper routines.
package codegen

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/uint256"

	"github.com/ethereum/go-evmasm/asm"
	"github.com/ethereum/go-evmasm/vm"
)

// generalPurposeMemoryStart is the first memory offset past the reserved
// scratch space and the free memory pointer slot.
const generalPurposeMemoryStart = 0x80

// Declaration identifies a source-level entity (a variable or a function).
// Bindings are keyed by pointer identity: the front end allocates exactly one
// Declaration per entity and reuses it for every reference.
type Declaration struct {
	Name string
	// SizeOnStack is the number of stack slots a value of the declared type
	// occupies. Locals only; zero means 1.
	SizeOnStack int
}

// StorageLocation places a state variable in contract storage.
type StorageLocation struct {
	Slot       uint256.Int
	ByteOffset int
}

// Context owns all mutable state of one compilation unit. It is confined to
// a single goroutine; independent units may compile in parallel on separate
// contexts.
type Context struct {
	asm      *asm.Assembly
	reporter *ErrorReporter
	inliner  Inliner

	locals     map[*Declaration][]int
	stateVars  map[*Declaration]StorageLocation
	immutables map[*Declaration]int

	reservedMemory     int
	reservedMemoryRead bool

	queue functionCompilationQueue

	lowLevelTags  map[string]asm.Item // name -> entry push tag
	lowLevelQueue []lowLevelFunction

	helperNames     mapset.Set[string]
	helpersConsumed bool

	rewriting        bool
	rewriteSuspended int
	buildingUserAsm  bool
	locationStack    []asm.SourceLocation
}

// New creates the context for one compilation unit, with the instruction
// rewrite policy installed and active.
func New(name string, reporter *ErrorReporter) *Context {
	asm.Assertf(reporter != nil, "code generation context without error reporter")
	c := &Context{
		asm:          asm.New(name),
		reporter:     reporter,
		locals:       make(map[*Declaration][]int),
		stateVars:    make(map[*Declaration]StorageLocation),
		immutables:   make(map[*Declaration]int),
		lowLevelTags: make(map[string]asm.Item),
		helperNames:  mapset.NewThreadUnsafeSet[string](),
		rewriting:    true,
	}
	c.asm.SetAppendHook(c.appendHook)
	return c
}

// Assembly returns the assembly owned by this context.
func (c *Context) Assembly() *asm.Assembly { return c.asm }

// Reporter returns the diagnostic sink of this unit.
func (c *Context) Reporter() *ErrorReporter { return c.reporter }

// SetRewritingEnabled switches the rewrite policy on or off for the whole
// unit. Off means every item passes through unchanged.
func (c *Context) SetRewritingEnabled(enabled bool) { c.rewriting = enabled }

// SetBuildingUserAssembly marks items appended from user-supplied inline
// assembly, which widens the set of risky-opcode diagnostics.
func (c *Context) SetBuildingUserAssembly(user bool) { c.buildingUserAsm = user }

// StackHeight returns the current stack deposit of the assembly.
func (c *Context) StackHeight() int { return c.asm.Deposit() }

// AdjustStackOffset shifts the tracked stack height without emitting code.
func (c *Context) AdjustStackOffset(adjustment int) { c.asm.AdjustDeposit(adjustment) }

// SetStackOffset sets the tracked stack height to an absolute value.
func (c *Context) SetStackOffset(offset int) { c.asm.SetDeposit(offset) }

// BindLocal records that the declaration's value starts the given number of
// slots below the current stack height; callers usually bind just before
// pushing the value, with offset zero. Re-binding an already bound
// declaration shadows it until RemoveLocal.
func (c *Context) BindLocal(d *Declaration, offsetToCurrent int) {
	h := c.asm.Deposit()
	asm.Assertf(h >= offsetToCurrent, "local %q bound above stack height", d.Name)
	size := d.SizeOnStack
	if size == 0 {
		size = 1
	}
	asm.Assertf(size == 1 || size == 2, "local %q has unsupported stack size %d", d.Name, size)
	c.locals[d] = append(c.locals[d], h-offsetToCurrent)
}

// RemoveLocal drops the innermost binding of the declaration; the entry
// disappears entirely once the last binding is gone.
func (c *Context) RemoveLocal(d *Declaration) {
	offsets := c.locals[d]
	asm.Assertf(len(offsets) > 0, "local %q removed but never bound", d.Name)
	offsets = offsets[:len(offsets)-1]
	if len(offsets) == 0 {
		delete(c.locals, d)
	} else {
		c.locals[d] = offsets
	}
}

// RemoveLocalsAboveHeight drops every binding at or above the given base
// stack height, used when unwinding a scope.
func (c *Context) RemoveLocalsAboveHeight(height int) {
	var doomed []*Declaration
	for d, offsets := range c.locals {
		asm.Assertf(len(offsets) > 0, "empty binding list for %q", d.Name)
		base := offsets[len(offsets)-1]
		asm.Assertf(base <= c.asm.Deposit(), "local %q recorded above stack height", d.Name)
		if base >= height {
			doomed = append(doomed, d)
		}
	}
	for _, d := range doomed {
		c.RemoveLocal(d)
	}
}

// IsLocal reports whether the declaration currently has a stack binding.
func (c *Context) IsLocal(d *Declaration) bool {
	return len(c.locals[d]) > 0
}

// NumberOfLocals returns the number of distinct bound locals.
func (c *Context) NumberOfLocals() int { return len(c.locals) }

// BaseStackOffsetOf returns the innermost recorded base offset of a local.
func (c *Context) BaseStackOffsetOf(d *Declaration) int {
	offsets := c.locals[d]
	asm.Assertf(len(offsets) > 0, "local %q not found on stack", d.Name)
	return offsets[len(offsets)-1]
}

// BaseToCurrentStackOffset converts a recorded base offset into the depth
// below the current stack top.
func (c *Context) BaseToCurrentStackOffset(base int) int {
	return c.asm.Deposit() - base - 1
}

// AddStateVariable places a declaration in contract storage.
func (c *Context) AddStateVariable(d *Declaration, slot *uint256.Int, byteOffset int) {
	c.stateVars[d] = StorageLocation{Slot: *slot, ByteOffset: byteOffset}
}

// StorageLocationOf returns the storage placement of a state variable.
func (c *Context) StorageLocationOf(d *Declaration) StorageLocation {
	loc, ok := c.stateVars[d]
	asm.Assertf(ok, "state variable %q not found in storage", d.Name)
	return loc
}

// AddImmutable reserves a memory word for a deploy-time immutable. Reserved
// memory grows monotonically until ReservedMemory is read.
func (c *Context) AddImmutable(d *Declaration) {
	asm.Assertf(!c.reservedMemoryRead, "immutable %q registered after reserved memory was frozen", d.Name)
	c.immutables[d] = generalPurposeMemoryStart + c.reservedMemory
	c.reservedMemory += 32
}

// ImmutableMemoryOffset returns the memory offset reserved for an immutable.
func (c *Context) ImmutableMemoryOffset(d *Declaration) int {
	offset, ok := c.immutables[d]
	asm.Assertf(ok, "memory offset of unknown immutable %q queried", d.Name)
	return offset
}

// ReservedMemory returns the total memory reserved for immutables. It can be
// read once; registering further immutables afterwards is a fatal error.
func (c *Context) ReservedMemory() int {
	asm.Assertf(!c.reservedMemoryRead, "reserved memory read more than once")
	c.reservedMemoryRead = true
	return c.reservedMemory
}

// FunctionEntryLabel returns the entry tag of a function declaration,
// allocating it and scheduling the declaration for compilation on first use.
func (c *Context) FunctionEntryLabel(d *Declaration) asm.Item {
	return c.queue.entryLabel(d, c.asm)
}

// FunctionEntryLabelIfExists returns the entry tag if one was allocated, or
// an undefined item without scheduling anything.
func (c *Context) FunctionEntryLabelIfExists(d *Declaration) (asm.Item, bool) {
	return c.queue.entryLabelIfExists(d)
}

// StartFunction marks the declaration compiled, removes it from the head of
// the compilation queue and emits its entry label.
func (c *Context) StartFunction(d *Declaration) {
	c.queue.startFunction(d)
	c.asm.Append(c.FunctionEntryLabel(d))
}

// NextFunctionToCompile returns the next pending declaration, skipping any
// that were already compiled, or nil when the queue is empty.
func (c *Context) NextFunctionToCompile() *Declaration {
	return c.queue.nextFunctionToCompile()
}

// PushSourceLocation makes loc the location stamped on appended items until
// the matching PopSourceLocation.
func (c *Context) PushSourceLocation(loc asm.SourceLocation) {
	c.locationStack = append(c.locationStack, c.asm.CurrentSourceLocation())
	c.asm.SetSourceLocation(loc)
}

// PopSourceLocation restores the location active before the matching push.
func (c *Context) PopSourceLocation() {
	n := len(c.locationStack)
	asm.Assertf(n > 0, "source location stack underflow")
	c.asm.SetSourceLocation(c.locationStack[n-1])
	c.locationStack = c.locationStack[:n-1]
}

// AppendInvalid emits the canonical aborting instruction.
func (c *Context) AppendInvalid() {
	c.asm.AppendOp(vm.INVALID)
}

// AppendConditionalInvalid aborts if the top of the stack is non-zero.
func (c *Context) AppendConditionalInvalid() {
	c.asm.AppendOp(vm.ISZERO)
	after := c.asm.AppendConditionalJump()
	c.asm.AppendOp(vm.INVALID)
	c.asm.Append(after.ToTag())
}

// AssembledObject assembles the unit once all pending helpers are drained.
func (c *Context) AssembledObject() (obj *asm.LinkerObject, err error) {
	defer asm.RecoverError(&err)
	asm.Assertf(len(c.lowLevelQueue) == 0,
		"assembling with %d pending low-level functions", len(c.lowLevelQueue))
	return c.asm.Assemble()
}
