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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-evmasm/asm"
	"github.com/ethereum/go-evmasm/vm"
)

func countTags(items []asm.Item, id uint64) (defs, refs int) {
	for _, item := range items {
		switch {
		case item.Type() == asm.Tag && item.TagID() == id:
			defs++
		case item.Type() == asm.PushTag && item.TagID() == id:
			refs++
		}
	}
	return defs, refs
}

func TestLowLevelFunctionTagIsStable(t *testing.T) {
	c := New("test", NewErrorReporter())
	calls := 0
	gen := func(*Context) { calls++ }

	tag := c.LowLevelFunctionTag("f()", 0, 0, gen)
	assert.Equal(t, asm.PushTag, tag.Type())

	// Later requests return the same tag; their generator is ignored.
	again := c.LowLevelFunctionTag("f()", 0, 0, func(*Context) { calls += 100 })
	assert.Equal(t, tag, again)

	c.AppendMissingLowLevelFunctions()
	assert.Equal(t, 1, calls)
}

// However many call sites request a function, exactly one body is emitted
// and every site jumps to the same entry label.
func TestCallLowLevelFunctionMemoization(t *testing.T) {
	c := New("test", NewErrorReporter())
	a := c.Assembly()
	calls := 0
	gen := func(c *Context) {
		calls++
		c.Assembly().AppendOp(vm.POP)
		c.Assembly().AppendOp(vm.POP)
		c.Assembly().AppendPushUint64(7)
	}

	for range [3]int{} {
		a.AppendPushUint64(1)
		a.AppendPushUint64(2)
		c.CallLowLevelFunction("f(uint256,uint256)", 2, 1, gen)
	}
	// Each call consumes two arguments and produces one result.
	assert.Equal(t, 3, a.Deposit())

	c.AppendMissingLowLevelFunctions()
	assert.Equal(t, 1, calls)

	entry := c.lowLevelTags["f(uint256,uint256)"]
	defs, refs := countTags(a.Items(), entry.TagID())
	assert.Equal(t, 1, defs)
	assert.Equal(t, 3, refs)
}

// The call site rotates the return address below the arguments and the body
// rotates its result above it, so the emitted item sequence is fixed.
func TestCallLowLevelFunctionShape(t *testing.T) {
	c := New("test", NewErrorReporter())
	a := c.Assembly()
	a.AppendPushUint64(1)
	a.AppendPushUint64(2)
	start := len(a.Items())
	c.CallLowLevelFunction("f(uint256,uint256)", 2, 1, func(c *Context) {
		c.Assembly().AppendOp(vm.ADD)
	})

	items := a.Items()[start:]
	require.Len(t, items, 6)
	assert.Equal(t, asm.PushTag, items[0].Type()) // return address
	assert.Equal(t, vm.SWAP2, items[1].Instruction())
	assert.Equal(t, vm.SWAP1, items[2].Instruction())
	assert.Equal(t, asm.PushTag, items[3].Type()) // entry
	assert.Equal(t, vm.JUMP, items[4].Instruction())
	assert.Equal(t, asm.JumpIntoFunction, items[4].GetJumpType())
	assert.Equal(t, asm.Tag, items[5].Type())
	assert.Equal(t, items[0].TagID(), items[5].TagID())
}

// A generator may request further helpers; the queue drains them iteratively.
func TestAppendMissingLowLevelFunctionsChains(t *testing.T) {
	c := New("test", NewErrorReporter())
	var order []string
	inner := func(c *Context) { order = append(order, "inner") }
	outer := func(c *Context) {
		order = append(order, "outer")
		c.CallLowLevelFunction("inner()", 0, 0, inner)
	}

	c.CallLowLevelFunction("outer()", 0, 0, outer)
	c.AppendMissingLowLevelFunctions()
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Empty(t, c.lowLevelQueue)
}

// The body must leave exactly the declared number of results.
func TestAppendMissingLowLevelFunctionsChecksArity(t *testing.T) {
	c := New("test", NewErrorReporter())
	c.LowLevelFunctionTag("bad()", 0, 1, func(*Context) {})
	require.Panics(t, func() { c.AppendMissingLowLevelFunctions() })
}

func TestAssembledObjectRequiresDrainedQueue(t *testing.T) {
	c := New("test", NewErrorReporter())
	c.CallLowLevelFunction("f()", 0, 0, func(*Context) {})

	_, err := c.AssembledObject()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pending low-level functions")

	c.AppendMissingLowLevelFunctions()
	c.Assembly().AppendOp(vm.STOP)
	_, err = c.AssembledObject()
	assert.NoError(t, err)
}

func TestCallHelperRecordsNames(t *testing.T) {
	c := New("test", NewErrorReporter())
	c.CallHelper("abi_decode", 0, 0)
	c.CallHelper("abi_decode", 0, 0)
	c.CallHelper("panic_error", 0, 0)

	helpers := c.RequestedHelpers()
	assert.ElementsMatch(t, []string{"abi_decode", "panic_error"}, helpers.ToSlice())

	// The set is consume-once.
	require.Panics(t, func() { c.RequestedHelpers() })
}
