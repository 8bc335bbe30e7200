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

package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushDupSwapConstructors(t *testing.T) {
	assert.Equal(t, PUSH0, PushN(0))
	assert.Equal(t, PUSH1, PushN(1))
	assert.Equal(t, PUSH32, PushN(32))
	assert.Equal(t, DUP1, DupN(1))
	assert.Equal(t, DUP16, DupN(16))
	assert.Equal(t, SWAP1, SwapN(1))
	assert.Equal(t, SWAP16, SwapN(16))
}

func TestOpcodePredicates(t *testing.T) {
	for n := 1; n <= 32; n++ {
		assert.True(t, PushN(n).IsPush(), "PUSH%d", n)
	}
	for n := 1; n <= 16; n++ {
		assert.True(t, DupN(n).IsDup(), "DUP%d", n)
		assert.True(t, SwapN(n).IsSwap(), "SWAP%d", n)
		assert.False(t, DupN(n).IsSwap(), "DUP%d", n)
		assert.False(t, SwapN(n).IsDup(), "SWAP%d", n)
	}
	assert.False(t, ADD.IsPush())
	assert.False(t, ADD.IsDup())
	assert.False(t, ADD.IsSwap())
}

func TestStringToOp(t *testing.T) {
	op, ok := StringToOp("KECCAK256")
	require.True(t, ok)
	assert.Equal(t, KECCAK256, op)

	op, ok = StringToOp("SWAP12")
	require.True(t, ok)
	assert.Equal(t, SWAP12, op)

	_, ok = StringToOp("FROBNICATE")
	assert.False(t, ok)

	// Round trip over every named opcode.
	for i := 0; i < 256; i++ {
		op := OpCode(i)
		if _, defined := Info(op); !defined {
			continue
		}
		back, ok := StringToOp(op.String())
		require.True(t, ok, "%v", op)
		assert.Equal(t, op, back)
	}
}

func TestInfoConservativeForUndefined(t *testing.T) {
	info, ok := Info(OpCode(0x0c)) // gap in the arithmetic range
	assert.False(t, ok)
	assert.True(t, info.SideEffects)
	assert.Zero(t, info.Args)
	assert.Zero(t, info.Ret)
}

func TestInfoArities(t *testing.T) {
	tests := []struct {
		op        OpCode
		args, ret int
	}{
		{ADD, 2, 1},
		{CALL, 7, 1},
		{STATICCALL, 6, 1},
		{DELEGATECALL, 6, 1},
		{CREATE, 3, 1},
		{CREATE2, 4, 1},
		{EXTCODECOPY, 4, 0},
		{SSTORE, 2, 0},
		{LOG4, 6, 0},
		{PUSH7, 0, 1},
		{DUP3, 3, 4},
		{SWAP5, 6, 6},
	}
	for _, tt := range tests {
		info, ok := Info(tt.op)
		require.True(t, ok, "%v", tt.op)
		assert.Equal(t, tt.args, info.Args, "%v args", tt.op)
		assert.Equal(t, tt.ret, info.Ret, "%v ret", tt.op)
		assert.Equal(t, tt.ret-tt.args, StackDelta(tt.op), "%v delta", tt.op)
	}
}
