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

func containsOp(items []asm.Item, op vm.OpCode) bool {
	for _, item := range items {
		if item.Type() == asm.Operation && item.Instruction() == op {
			return true
		}
	}
	return false
}

// Every rewritten opcode must leave the tracked stack exactly where the
// native opcode would have, or code following the rewrite site would address
// the wrong slots. The opcode itself must be gone from the item stream.
func TestRewriteNetStackEffect(t *testing.T) {
	rewritten := make(map[vm.OpCode]int)
	for op, r := range simpleRules {
		rewritten[op] = r.in
	}
	for op, r := range complexRules {
		rewritten[op] = r.in
	}

	for op, in := range rewritten {
		t.Run(op.String(), func(t *testing.T) {
			c := New("test", NewErrorReporter())
			a := c.Assembly()
			for i := 0; i < in; i++ {
				a.AppendPushUint64(uint64(i + 1))
			}
			a.AppendOp(op)
			assert.Equal(t, in+vm.StackDelta(op), a.Deposit())
			assert.False(t, containsOp(a.Items(), op), "%v survived its own rewrite", op)

			// The synthesized bodies must pass their own stack accounting.
			c.AppendMissingLowLevelFunctions()
			assert.False(t, c.Reporter().HasErrors())
		})
	}
}

// K sites rewriting the same opcode share one synthesized body.
func TestRewriteMemoization(t *testing.T) {
	c := New("test", NewErrorReporter())
	a := c.Assembly()
	for range [3]int{} {
		a.AppendPushUint64(1)
		a.AppendPushUint64(2)
		a.AppendOp(vm.SSTORE)
	}
	c.AppendMissingLowLevelFunctions()

	entry, ok := c.lowLevelTags["ovmSSTORE(bytes32,bytes32)"]
	require.True(t, ok)
	defs, refs := countTags(a.Items(), entry.TagID())
	assert.Equal(t, 1, defs)
	assert.Equal(t, 3, refs)
}

// ADDRESS expands inline: no helper is queued and every site carries its own
// copy of the expansion.
func TestRewriteAddressInline(t *testing.T) {
	c := New("test", NewErrorReporter())
	a := c.Assembly()
	a.AppendOp(vm.ADDRESS)
	assert.Equal(t, 1, a.Deposit())
	assert.Empty(t, c.lowLevelQueue)
	assert.False(t, containsOp(a.Items(), vm.ADDRESS))
	// The inline expansion performs the managed call directly.
	assert.True(t, containsOp(a.Items(), vm.CALL))
}

func TestRewriteForbiddenOpsSuppressed(t *testing.T) {
	for op := range forbiddenOps {
		c := New("test", NewErrorReporter())
		a := c.Assembly()
		a.AppendPushUint64(1) // argument for the unary ones
		before := len(a.Items())

		a.AppendOp(op)
		assert.Equal(t, before, len(a.Items()), "%v was not suppressed", op)
		assert.Equal(t, 1, a.Deposit(), "%v changed the deposit", op)

		diags := c.Reporter().Diagnostics()
		require.Len(t, diags, 1, "%v", op)
		assert.Equal(t, uint64(codeUnsupportedOpcode), diags[0].Code)
		assert.Equal(t, SeverityWarning, diags[0].Severity)
	}
}

func TestRewriteBalanceWarnsAndPasses(t *testing.T) {
	for _, op := range []vm.OpCode{vm.BALANCE, vm.SELFBALANCE} {
		c := New("test", NewErrorReporter())
		a := c.Assembly()
		a.AppendPushUint64(1)
		a.AppendOp(op)

		assert.True(t, containsOp(a.Items(), op), "%v", op)
		diags := c.Reporter().Diagnostics()
		require.Len(t, diags, 1, "%v", op)
		assert.Equal(t, uint64(codeNoNativeBalance), diags[0].Code)
		assert.False(t, c.Reporter().HasErrors())
	}
}

// The returndata warning only applies to user-written assembly; generated
// code uses the opcodes freely.
func TestRewriteReturndataWarning(t *testing.T) {
	c := New("test", NewErrorReporter())
	c.Assembly().AppendOp(vm.RETURNDATASIZE)
	assert.Empty(t, c.Reporter().Diagnostics())

	c.SetBuildingUserAssembly(true)
	c.Assembly().AppendOp(vm.RETURNDATASIZE)
	diags := c.Reporter().Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, uint64(codeReturndataInAsm), diags[0].Code)
	assert.True(t, containsOp(c.Assembly().Items(), vm.RETURNDATASIZE))
}

func TestRewriteWarnsOnJumpdestInData(t *testing.T) {
	c := New("test", NewErrorReporter())
	c.Assembly().AppendData([]byte{0x60, 0x01})
	assert.Empty(t, c.Reporter().Diagnostics())

	c.Assembly().AppendData([]byte{0x60, byte(vm.JUMPDEST)})
	diags := c.Reporter().Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, uint64(codeJumpdestInData), diags[0].Code)
}

func TestRewritingCanBeDisabled(t *testing.T) {
	c := New("test", NewErrorReporter())
	c.SetRewritingEnabled(false)
	a := c.Assembly()
	a.AppendPushUint64(1)
	a.AppendPushUint64(2)
	a.AppendOp(vm.SSTORE)

	assert.True(t, containsOp(a.Items(), vm.SSTORE))
	assert.Empty(t, c.Reporter().Diagnostics())
	assert.Empty(t, c.lowLevelQueue)
}

// The managed-call failure branch is reached through a computed jump, so the
// jumpdest remover must not strip its landing label: the label count has to
// survive an optimizer run, and the result must still assemble.
func TestRewriteSurvivesOptimizer(t *testing.T) {
	c := New("test", NewErrorReporter())
	a := c.Assembly()
	a.AppendPushUint64(1)
	a.AppendPushUint64(2)
	a.AppendOp(vm.SSTORE)
	a.AppendOp(vm.STOP)
	c.AppendMissingLowLevelFunctions()

	countDefs := func() int {
		n := 0
		for _, item := range a.Items() {
			if item.Type() == asm.Tag {
				n++
			}
		}
		return n
	}
	before := countDefs()
	a.Optimize(asm.OptimizerSettings{RunJumpdestRemover: true})
	assert.Equal(t, before, countDefs())

	obj, err := c.AssembledObject()
	require.NoError(t, err)
	assert.NotEmpty(t, obj.Bytecode)
}
