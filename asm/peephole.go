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

// PeepholeOptimize applies local window rewrites to the items until none
// matches, consulting only the semantic classifier. It returns the rewritten
// items and whether anything changed.
func PeepholeOptimize(items []Item) ([]Item, bool) {
	changed := false
	for {
		out, round := peepholeRound(items)
		if !round {
			return out, changed
		}
		items, changed = out, true
	}
}

func peepholeRound(items []Item) ([]Item, bool) {
	out := make([]Item, 0, len(items))
	changed := false
	for i := 0; i < len(items); {
		if n, repl, ok := matchWindow(items[i:]); ok {
			out = append(out, repl...)
			i += n
			changed = true
			continue
		}
		out = append(out, items[i])
		i++
	}
	return out, changed
}

// matchWindow tries every rule at the start of the slice and returns the
// number of items consumed and their replacement.
func matchWindow(items []Item) (int, []Item, bool) {
	if len(items) < 2 {
		return 0, nil, false
	}
	a, b := items[0], items[1]

	// push/dup followed by POP cancels out.
	if isPop(b) && (pushesConstant(a) || IsDupInstruction(a)) {
		return 2, nil, true
	}

	// A single-result operation without side effects followed by POP pops
	// the arguments instead. CALLER anchors the managed-call sequence and is
	// exempt even though it is otherwise removable.
	if isPop(b) && a.Type() == Operation && a.Instruction() != vm.CALLER &&
		!a.Instruction().IsDup() && !a.Instruction().IsSwap() {
		info, defined := vm.Info(a.Instruction())
		if defined && info.Ret == 1 && CanBeRemoved(a.Instruction()) {
			pops := make([]Item, info.Args)
			for i := range pops {
				pops[i] = NewOperation(vm.POP)
			}
			return 2, pops, true
		}
	}

	// Identical swaps cancel out.
	if IsSwapInstruction(a) && IsSwapInstruction(b) &&
		a.Instruction() == b.Instruction() {
		return 2, nil, true
	}

	// A commutative operation absorbs a preceding SWAP1.
	if a.Type() == Operation && a.Instruction() == vm.SWAP1 &&
		IsCommutativeOperation(b) {
		return 2, []Item{b}, true
	}

	// A jump to the immediately following tag is a no-op; the conditional
	// variant still has to drop the condition.
	if len(items) >= 3 && a.Type() == PushTag && a.SubID() == NoSub &&
		IsJumpInstruction(b) && items[2].Type() == Tag &&
		items[2].TagID() == a.TagID() {
		if b.Instruction() == vm.JUMP {
			return 3, []Item{items[2]}, true
		}
		return 3, []Item{NewOperation(vm.POP), items[2]}, true
	}

	return 0, nil, false
}

func isPop(item Item) bool {
	return item.Type() == Operation && item.Instruction() == vm.POP
}

// pushesConstant reports whether the item deterministically places one value
// on the stack without reading anything.
func pushesConstant(item Item) bool {
	switch item.Type() {
	case Push, PushTag, PushData, PushSub, PushSubSize, PushProgramSize,
		PushLibraryAddress, PushImmutable, PushDeployTimeAddress:
		return true
	default:
		return false
	}
}
