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

import "github.com/ethereum/go-evmasm/asm"

// functionCompilationQueue tracks which function declarations still need a
// body emitted. Requesting an entry label schedules the declaration on first
// sight; a declaration requested any number of times is compiled exactly
// once, regardless of the order compilation actually happens in.
type functionCompilationQueue struct {
	entryLabels map[*Declaration]asm.Item
	toCompile   []*Declaration
	compiled    map[*Declaration]bool
}

// entryLabel returns the declaration's entry tag, allocating a fresh tag and
// enqueueing the declaration the first time it is asked for.
func (q *functionCompilationQueue) entryLabel(d *Declaration, a *asm.Assembly) asm.Item {
	if q.entryLabels == nil {
		q.entryLabels = make(map[*Declaration]asm.Item)
		q.compiled = make(map[*Declaration]bool)
	}
	if tag, ok := q.entryLabels[d]; ok {
		return tag
	}
	tag := a.NewTag()
	q.entryLabels[d] = tag
	q.toCompile = append(q.toCompile, d)
	return tag
}

func (q *functionCompilationQueue) entryLabelIfExists(d *Declaration) (asm.Item, bool) {
	tag, ok := q.entryLabels[d]
	return tag, ok
}

// startFunction pops the declaration from the queue head if it is the head
// (compilation may legitimately start out of queue order) and marks it
// permanently compiled.
func (q *functionCompilationQueue) startFunction(d *Declaration) {
	if len(q.toCompile) > 0 && q.toCompile[0] == d {
		q.toCompile = q.toCompile[1:]
	}
	if q.compiled == nil {
		q.compiled = make(map[*Declaration]bool)
	}
	q.compiled[d] = true
}

// nextFunctionToCompile discards already-compiled queue heads and returns the
// first pending declaration, or nil.
func (q *functionCompilationQueue) nextFunctionToCompile() *Declaration {
	for len(q.toCompile) > 0 {
		if q.compiled[q.toCompile[0]] {
			q.toCompile = q.toCompile[1:]
			continue
		}
		return q.toCompile[0]
	}
	return nil
}
