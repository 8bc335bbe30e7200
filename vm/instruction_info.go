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

// InstructionInfo holds the static facts of a single opcode: how many stack
// slots it pops and pushes and whether executing it has effects beyond
// producing its result. The table is built once and never mutated, so it is
// safe to share between concurrently running passes.
type InstructionInfo struct {
	Args        int  // number of stack slots popped
	Ret         int  // number of stack slots pushed
	SideEffects bool // writes to memory, storage, logs, or control flow
}

// Info returns the instruction facts for the given opcode. The second return
// value reports whether the opcode is defined in the instruction set;
// undefined opcodes are reported as zero-arity with side effects, the
// conservative reading for any optimization pass.
func Info(op OpCode) (InstructionInfo, bool) {
	switch {
	case op.IsPush():
		return InstructionInfo{Args: 0, Ret: 1}, true
	case op.IsDup():
		n := int(op-DUP1) + 1
		return InstructionInfo{Args: n, Ret: n + 1}, true
	case op.IsSwap():
		n := int(op-SWAP1) + 2
		return InstructionInfo{Args: n, Ret: n}, true
	}
	info, ok := instructionInfoTable[op]
	if !ok {
		return InstructionInfo{SideEffects: true}, false
	}
	return info, true
}

// StackDelta returns the net stack effect (pushes minus pops) of an opcode.
func StackDelta(op OpCode) int {
	info, _ := Info(op)
	return info.Ret - info.Args
}

var instructionInfoTable = map[OpCode]InstructionInfo{
	STOP:       {0, 0, true},
	ADD:        {2, 1, false},
	MUL:        {2, 1, false},
	SUB:        {2, 1, false},
	DIV:        {2, 1, false},
	SDIV:       {2, 1, false},
	MOD:        {2, 1, false},
	SMOD:       {2, 1, false},
	ADDMOD:     {3, 1, false},
	MULMOD:     {3, 1, false},
	EXP:        {2, 1, false},
	SIGNEXTEND: {2, 1, false},

	LT:     {2, 1, false},
	GT:     {2, 1, false},
	SLT:    {2, 1, false},
	SGT:    {2, 1, false},
	EQ:     {2, 1, false},
	ISZERO: {1, 1, false},
	AND:    {2, 1, false},
	OR:     {2, 1, false},
	XOR:    {2, 1, false},
	NOT:    {1, 1, false},
	BYTE:   {2, 1, false},
	SHL:    {2, 1, false},
	SHR:    {2, 1, false},
	SAR:    {2, 1, false},

	// KECCAK256 and MLOAD can grow memory, which is observable through MSIZE.
	KECCAK256: {2, 1, true},

	ADDRESS:        {0, 1, false},
	BALANCE:        {1, 1, false},
	ORIGIN:         {0, 1, false},
	CALLER:         {0, 1, false},
	CALLVALUE:      {0, 1, false},
	CALLDATALOAD:   {1, 1, false},
	CALLDATASIZE:   {0, 1, false},
	CALLDATACOPY:   {3, 0, true},
	CODESIZE:       {0, 1, false},
	CODECOPY:       {3, 0, true},
	GASPRICE:       {0, 1, false},
	EXTCODESIZE:    {1, 1, false},
	EXTCODECOPY:    {4, 0, true},
	RETURNDATASIZE: {0, 1, false},
	RETURNDATACOPY: {3, 0, true},
	EXTCODEHASH:    {1, 1, false},

	BLOCKHASH:   {1, 1, false},
	COINBASE:    {0, 1, false},
	TIMESTAMP:   {0, 1, false},
	NUMBER:      {0, 1, false},
	DIFFICULTY:  {0, 1, false},
	GASLIMIT:    {0, 1, false},
	CHAINID:     {0, 1, false},
	SELFBALANCE: {0, 1, false},
	BASEFEE:     {0, 1, false},

	POP:      {1, 0, false},
	MLOAD:    {1, 1, true},
	MSTORE:   {2, 0, true},
	MSTORE8:  {2, 0, true},
	SLOAD:    {1, 1, false},
	SSTORE:   {2, 0, true},
	JUMP:     {1, 0, true},
	JUMPI:    {2, 0, true},
	PC:       {0, 1, false},
	MSIZE:    {0, 1, false},
	GAS:      {0, 1, false},
	JUMPDEST: {0, 0, true},

	LOG0: {2, 0, true},
	LOG1: {3, 0, true},
	LOG2: {4, 0, true},
	LOG3: {5, 0, true},
	LOG4: {6, 0, true},

	CREATE:       {3, 1, true},
	CALL:         {7, 1, true},
	CALLCODE:     {7, 1, true},
	RETURN:       {2, 0, true},
	DELEGATECALL: {6, 1, true},
	CREATE2:      {4, 1, true},
	STATICCALL:   {6, 1, true},
	REVERT:       {2, 0, true},
	INVALID:      {0, 0, true},
	SELFDESTRUCT: {1, 0, true},
}
