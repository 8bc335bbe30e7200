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

// Removing a jump-to-next leaves its tag unreferenced; the combined passes
// must chase that to a fixpoint.
func TestOptimizeFixpoint(t *testing.T) {
	a := New("test")
	tag := a.NewTag()
	a.AppendJumpTo(tag, JumpOrdinary)
	a.Append(tag)
	a.AppendOp(vm.STOP)

	a.Optimize(OptimizerSettings{RunJumpdestRemover: true, RunPeephole: true})
	assert.Equal(t, []Item{NewOperation(vm.STOP)}, a.Items())
}

// Sub-assembly labels survive exactly when the enclosing assembly pushes a
// reference to them.
func TestOptimizeSubAssemblyTags(t *testing.T) {
	sub := New("sub")
	kept := sub.NewTag()
	dead := sub.NewTag()
	sub.Append(kept)
	sub.AppendOp(vm.STOP)
	sub.Append(dead)
	sub.AppendOp(vm.STOP)

	a := New("main")
	a.Append(NewForeignPushTag(0, kept.TagID()))
	a.AppendOp(vm.POP)
	a.Append(a.NewSub(sub))
	a.AppendOp(vm.POP)

	a.Optimize(OptimizerSettings{RunJumpdestRemover: true})
	assert.Equal(t, []uint64{kept.TagID()}, tagIDs(sub.Items()))
}

func TestOptimizeAfterAssembleFails(t *testing.T) {
	a := New("test")
	a.AppendOp(vm.STOP)
	_, err := a.Assemble()
	require.NoError(t, err)
	require.Panics(t, func() {
		a.Optimize(OptimizerSettings{RunPeephole: true})
	})
}
