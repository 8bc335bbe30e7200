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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-evmasm/vm"
)

func TestPeepholePushPop(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  []Item
	}{
		{
			"constant push",
			[]Item{NewPushUint64(42), NewOperation(vm.POP)},
			nil,
		},
		{
			"tag push",
			[]Item{NewPushTagItem(1), NewOperation(vm.POP)},
			nil,
		},
		{
			"dup",
			[]Item{NewOperation(vm.DUP3), NewOperation(vm.POP)},
			nil,
		},
		{
			"surrounded",
			[]Item{NewOperation(vm.ADD), NewPushUint64(1), NewOperation(vm.POP), NewOperation(vm.MUL)},
			[]Item{NewOperation(vm.ADD), NewOperation(vm.MUL)},
		},
		{
			// The second POP only cancels once DUP1+POP has collapsed.
			"cascade",
			[]Item{NewPushUint64(7), NewOperation(vm.DUP1), NewOperation(vm.POP), NewOperation(vm.POP)},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed := PeepholeOptimize(tt.items)
			require.True(t, changed)
			assert.Equal(t, tt.want, emptyToNil(out))
		})
	}
}

func TestPeepholeOperationPop(t *testing.T) {
	// A removable single-result operation followed by POP pops its arguments.
	out, changed := PeepholeOptimize([]Item{NewOperation(vm.ADD), NewOperation(vm.POP)})
	require.True(t, changed)
	assert.Equal(t, []Item{NewOperation(vm.POP), NewOperation(vm.POP)}, out)

	out, changed = PeepholeOptimize([]Item{NewOperation(vm.ISZERO), NewOperation(vm.POP)})
	require.True(t, changed)
	assert.Equal(t, []Item{NewOperation(vm.POP)}, out)

	// CALLER POP anchors the safe-copy sequence and is left alone.
	anchored := []Item{NewOperation(vm.CALLER), NewOperation(vm.POP)}
	out, changed = PeepholeOptimize(anchored)
	assert.False(t, changed)
	assert.Equal(t, anchored, out)

	// An unused storage read still pops its key.
	out, changed = PeepholeOptimize([]Item{NewOperation(vm.SLOAD), NewOperation(vm.POP)})
	require.True(t, changed)
	assert.Equal(t, []Item{NewOperation(vm.POP)}, out)

	// Side-effecting operations are not touched. MLOAD and KECCAK256 count:
	// they can grow memory, which MSIZE observes.
	for _, op := range []vm.OpCode{vm.SSTORE, vm.MLOAD, vm.KECCAK256, vm.CALL} {
		items := []Item{NewOperation(op), NewOperation(vm.POP)}
		out, changed = PeepholeOptimize(items)
		assert.False(t, changed, "%v", op)
		assert.Equal(t, items, out, "%v", op)
	}
}

func TestPeepholeDoubleSwap(t *testing.T) {
	out, changed := PeepholeOptimize([]Item{NewOperation(vm.SWAP4), NewOperation(vm.SWAP4)})
	require.True(t, changed)
	assert.Nil(t, emptyToNil(out))

	// Different swaps are not inverses.
	items := []Item{NewOperation(vm.SWAP1), NewOperation(vm.SWAP2)}
	out, changed = PeepholeOptimize(items)
	assert.False(t, changed)
	assert.Equal(t, items, out)
}

func TestPeepholeSwapCommutative(t *testing.T) {
	for _, op := range []vm.OpCode{vm.ADD, vm.MUL, vm.EQ, vm.AND, vm.OR, vm.XOR} {
		out, changed := PeepholeOptimize([]Item{NewOperation(vm.SWAP1), NewOperation(op)})
		require.True(t, changed, "%v", op)
		assert.Equal(t, []Item{NewOperation(op)}, out, "%v", op)
	}
	// SUB is order-sensitive.
	items := []Item{NewOperation(vm.SWAP1), NewOperation(vm.SUB)}
	out, changed := PeepholeOptimize(items)
	assert.False(t, changed)
	assert.Equal(t, items, out)
}

func TestPeepholeJumpToNext(t *testing.T) {
	out, changed := PeepholeOptimize([]Item{
		NewPushTagItem(1), NewOperation(vm.JUMP), NewTagItem(1),
	})
	require.True(t, changed)
	assert.Equal(t, []Item{NewTagItem(1)}, out)

	// The conditional form must still consume the condition.
	out, changed = PeepholeOptimize([]Item{
		NewPushTagItem(1), NewOperation(vm.JUMPI), NewTagItem(1),
	})
	require.True(t, changed)
	assert.Equal(t, []Item{NewOperation(vm.POP), NewTagItem(1)}, out)

	// Jumps to a different tag stay.
	items := []Item{NewPushTagItem(1), NewOperation(vm.JUMP), NewTagItem(2)}
	out, changed = PeepholeOptimize(items)
	assert.False(t, changed)
	assert.Equal(t, items, out)
}

// The managed-call landing sequence contains no matching window and must
// pass through the optimizer untouched.
func TestPeepholePreservesManagedCall(t *testing.T) {
	items := []Item{
		NewOperation(vm.CALLER),
		NewPushUint64(0),
		NewOperation(vm.SWAP1),
		NewOperation(vm.GAS),
		NewOperation(vm.CALL),
		NewOperation(vm.PC),
		NewPushUint64(14),
		NewOperation(vm.ADD),
		NewOperation(vm.JUMPI),
		NewOperation(vm.RETURNDATASIZE),
		NewPushUint64(0),
		NewOperation(vm.DUP1),
		NewOperation(vm.RETURNDATACOPY),
		NewOperation(vm.RETURNDATASIZE),
		NewPushUint64(0),
		NewOperation(vm.REVERT),
	}
	out, changed := PeepholeOptimize(items)
	assert.False(t, changed)
	assert.Equal(t, items, out)
}

func emptyToNil(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	return items
}
