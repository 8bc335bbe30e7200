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
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethereum/go-evmasm/vm"
)

// ReferencedTags returns the ids of all tags owned by the given sub-assembly
// index (NoSub for the items' own scope) that the items push a reference to.
func ReferencedTags(items []Item, sub int) mapset.Set[uint64] {
	tags := mapset.NewThreadUnsafeSet[uint64]()
	for _, item := range items {
		if item.Type() == PushTag && item.SubID() == sub {
			tags.Add(item.TagID())
		}
	}
	return tags
}

// RemoveUnusedJumpdests deletes every Tag item whose label is neither pushed
// anywhere in the items themselves nor contained in reachable, the set of tag
// ids referenced from outside this assembly. It returns the filtered items
// and whether anything was removed; running it again on its own output is a
// no-op.
//
// A jump target computed from the program counter is invisible to the
// reference scan. The only such computation emitted anywhere is the
// managed-call landing sequence PC, PUSH, ADD, JUMP/JUMPI, so that exact
// shape keeps the next label of the same scope alive.
func RemoveUnusedJumpdests(items []Item, reachable mapset.Set[uint64]) ([]Item, bool) {
	used := ReferencedTags(items, NoSub)

	pcRelativeTarget := false
	for i, item := range items {
		if isPCRelativeJump(items, i) {
			pcRelativeTarget = true
			continue
		}
		if item.Type() != Tag {
			continue
		}
		Assertf(item.SubID() == NoSub, "tag of sub-assembly %d used as label", item.SubID())
		if pcRelativeTarget {
			used.Add(item.TagID())
			pcRelativeTarget = false
		}
	}

	out := items[:0:len(items)]
	changed := false
	for _, item := range items {
		if item.Type() == Tag && !used.Contains(item.TagID()) &&
			(reachable == nil || !reachable.Contains(item.TagID())) {
			changed = true
			continue
		}
		out = append(out, item)
	}
	return out, changed
}

// isPCRelativeJump reports whether the item at index i ends the sequence
// PC, PUSH, ADD, JUMP/JUMPI.
func isPCRelativeJump(items []Item, i int) bool {
	if i < 3 {
		return false
	}
	if !IsJumpInstruction(items[i]) {
		return false
	}
	return items[i-3].Type() == Operation && items[i-3].Instruction() == vm.PC &&
		items[i-2].Type() == Push &&
		items[i-1].Type() == Operation && items[i-1].Instruction() == vm.ADD
}
