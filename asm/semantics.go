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

import "github.com/ethereum/go-evmasm/vm"

// The semantic classifier answers, per opcode, the questions optimization
// passes must never get wrong: what may move, what may be removed, what
// reads or writes which part of the machine state. All functions here are
// pure and total over the opcode space and safe to call concurrently.

// Effect is the three-valued read/write lattice of an opcode on one part of
// the machine state.
type Effect byte

const (
	None Effect = iota
	Read
	Write
)

// BreaksCSEAnalysisBlock reports whether the item must not be moved across
// during common-subexpression elimination. msizeImportant is false when no
// memory-size-sensitive opcode exists in the surrounding program, unlocking
// hash and memory-load reordering.
func BreaksCSEAnalysisBlock(item Item, msizeImportant bool) bool {
	switch item.Type() {
	case Push, PushTag, PushSub, PushSubSize, PushProgramSize, PushData,
		PushLibraryAddress, PushImmutable:
		return false
	case Operation:
		op := item.Instruction()
		// The managed-call sequence starts with CALLER (the only way it can
		// appear); its ordering must survive reordering optimizations.
		if op == vm.CALLER {
			return true
		}
		if op.IsSwap() || op.IsDup() {
			return false
		}
		if op == vm.GAS || op == vm.PC {
			return true // GAS and PC assume a specific order of opcodes
		}
		if op == vm.MSIZE {
			return true // msize is modified already by memory access
		}
		// Storage and memory writes are ordered by the effect lattices, not
		// by block breaking.
		if op == vm.SSTORE || op == vm.MSTORE {
			return false
		}
		if !msizeImportant && (op == vm.MLOAD || op == vm.KECCAK256) {
			return false
		}
		info, _ := vm.Info(op)
		return info.SideEffects || info.Args > 2
	default:
		// Tag, AssignImmutable, PushDeployTimeAddress, UndefinedItem.
		return true
	}
}

// IsCommutativeOperation reports whether the operation's two arguments can
// be exchanged.
func IsCommutativeOperation(item Item) bool {
	if item.Type() != Operation {
		return false
	}
	switch item.Instruction() {
	case vm.ADD, vm.MUL, vm.EQ, vm.AND, vm.OR, vm.XOR:
		return true
	default:
		return false
	}
}

// IsDupInstruction reports whether the item duplicates a stack slot.
func IsDupInstruction(item Item) bool {
	return item.Type() == Operation && item.Instruction().IsDup()
}

// IsSwapInstruction reports whether the item exchanges stack slots.
func IsSwapInstruction(item Item) bool {
	return item.Type() == Operation && item.Instruction().IsSwap()
}

// IsJumpInstruction reports whether the item is JUMP or JUMPI.
func IsJumpInstruction(item Item) bool {
	if item.Type() != Operation {
		return false
	}
	op := item.Instruction()
	return op == vm.JUMP || op == vm.JUMPI
}

// AltersControlFlow reports whether execution does not plainly continue at
// the next instruction. CALL, CALLCODE and CREATE do not alter control flow
// from the caller's point of view.
func AltersControlFlow(item Item) bool {
	if item.Type() != Operation {
		return false
	}
	switch item.Instruction() {
	case vm.JUMP, vm.JUMPI, vm.RETURN, vm.SELFDESTRUCT, vm.STOP, vm.INVALID, vm.REVERT:
		return true
	default:
		return false
	}
}

// TerminatesControlFlow reports whether the opcode ends execution of the
// current code.
func TerminatesControlFlow(op vm.OpCode) bool {
	switch op {
	case vm.RETURN, vm.SELFDESTRUCT, vm.STOP, vm.INVALID, vm.REVERT:
		return true
	default:
		return false
	}
}

// Reverts reports whether the opcode rolls back all state changes.
func Reverts(op vm.OpCode) bool {
	return op == vm.INVALID || op == vm.REVERT
}

// IsDeterministic reports whether the item's result depends only on its
// stack arguments and not on external or mutable chain state.
func IsDeterministic(item Item) bool {
	if item.Type() != Operation {
		return true
	}
	switch item.Instruction() {
	case vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL,
		vm.CREATE, vm.CREATE2,
		vm.GAS, vm.PC,
		vm.MSIZE, // depends on previous writes and reads, not only on content
		vm.BALANCE, vm.SELFBALANCE, // depend on previous calls
		vm.EXTCODESIZE, vm.EXTCODEHASH,
		vm.RETURNDATACOPY, vm.RETURNDATASIZE: // depend on previous calls
		return false
	default:
		return true
	}
}

// Movable reports whether the opcode can be freely moved, i.e. is neither
// structural (dup/swap), side-effecting, nor dependent on mutable state.
func Movable(op vm.OpCode) bool {
	// Dups and swaps are not really functional.
	if op.IsDup() || op.IsSwap() {
		return false
	}
	info, _ := vm.Info(op)
	if info.SideEffects {
		return false
	}
	switch op {
	case vm.KECCAK256, vm.BALANCE, vm.SELFBALANCE, vm.EXTCODESIZE,
		vm.EXTCODEHASH, vm.RETURNDATASIZE, vm.SLOAD, vm.PC, vm.MSIZE, vm.GAS:
		return false
	default:
		return true
	}
}

// MovableApartFromEffects treats state-dependent pure reads as movable once
// the caller accounts for their read effect separately.
func MovableApartFromEffects(op vm.OpCode) bool {
	switch op {
	case vm.EXTCODEHASH, vm.EXTCODESIZE, vm.RETURNDATASIZE, vm.BALANCE,
		vm.SELFBALANCE, vm.SLOAD, vm.KECCAK256, vm.MLOAD:
		return true
	default:
		return Movable(op)
	}
}

// CanBeRemoved reports whether dropping the opcode (with its arguments
// handled by the caller) cannot change observable behavior.
func CanBeRemoved(op vm.OpCode) bool {
	// Dups and swaps are not really functional.
	Assertf(!op.IsDup() && !op.IsSwap(), "removability of %v queried", op)
	info, _ := vm.Info(op)
	return !info.SideEffects
}

// CanBeRemovedIfNoMSize additionally allows hash and memory loads when no
// memory-size query exists in the surrounding program.
func CanBeRemovedIfNoMSize(op vm.OpCode) bool {
	if op == vm.KECCAK256 || op == vm.MLOAD {
		return true
	}
	return CanBeRemoved(op)
}

// MemoryEffect returns the opcode's effect on memory.
func MemoryEffect(op vm.OpCode) Effect {
	switch op {
	case vm.CALLDATACOPY, vm.CODECOPY, vm.EXTCODECOPY, vm.RETURNDATACOPY,
		vm.MSTORE, vm.MSTORE8,
		vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL:
		return Write
	case vm.CREATE, vm.CREATE2, vm.KECCAK256, vm.MLOAD, vm.MSIZE,
		vm.RETURN, vm.REVERT,
		vm.LOG0, vm.LOG1, vm.LOG2, vm.LOG3, vm.LOG4:
		return Read
	default:
		return None
	}
}

// StorageEffect returns the opcode's effect on contract storage.
func StorageEffect(op vm.OpCode) Effect {
	switch op {
	case vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.CREATE, vm.CREATE2, vm.SSTORE:
		return Write
	case vm.SLOAD, vm.STATICCALL:
		return Read
	default:
		return None
	}
}

// OtherStateEffect returns the opcode's effect on chain state that is
// neither memory nor this contract's storage.
func OtherStateEffect(op vm.OpCode) Effect {
	switch op {
	case vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.CREATE, vm.CREATE2,
		vm.SELFDESTRUCT,
		vm.STATICCALL: // because it can affect returndatasize
		// Strictly speaking the log opcodes write to the state, but the EVM
		// cannot read it back, so they count as other side effects here.
		return Write
	case vm.EXTCODESIZE, vm.EXTCODEHASH, vm.RETURNDATASIZE, vm.BALANCE,
		vm.SELFBALANCE, vm.RETURNDATACOPY, vm.EXTCODECOPY:
		// PC and GAS are specifically excluded. CALLER, CALLVALUE and
		// ADDRESS are excluded because they cannot change during execution.
		return Read
	default:
		return None
	}
}

// InvalidInPureFunctions reports whether the opcode may not appear in code
// declared pure.
func InvalidInPureFunctions(op vm.OpCode) bool {
	switch op {
	case vm.ADDRESS, vm.SELFBALANCE, vm.BALANCE, vm.ORIGIN, vm.CALLER,
		vm.CALLVALUE, vm.CHAINID, vm.GAS, vm.GASPRICE, vm.EXTCODESIZE,
		vm.EXTCODECOPY, vm.EXTCODEHASH, vm.BLOCKHASH, vm.COINBASE,
		vm.TIMESTAMP, vm.NUMBER, vm.DIFFICULTY, vm.GASLIMIT,
		vm.STATICCALL, vm.SLOAD:
		return true
	}
	return InvalidInViewFunctions(op)
}

// InvalidInViewFunctions reports whether the opcode may not appear in code
// declared view.
func InvalidInViewFunctions(op vm.OpCode) bool {
	switch op {
	case vm.SSTORE, vm.JUMP, vm.JUMPI,
		vm.LOG0, vm.LOG1, vm.LOG2, vm.LOG3, vm.LOG4,
		vm.CREATE, vm.CREATE2, vm.CALL, vm.CALLCODE, vm.DELEGATECALL,
		vm.SELFDESTRUCT:
		return true
	default:
		return false
	}
}
