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

// Package asm implements the bytecode intermediate representation of the
// compiler: assembly items, the Assembly container with deferred tag linking,
// the per-opcode semantic classifier and the low-level optimization passes.
package asm

import (
	"fmt"

	"github.com/ethereum/go-evmasm/common"
	"github.com/ethereum/go-evmasm/vm"
	"github.com/holiman/uint256"
)

// ItemType discriminates the variants of an assembly item.
type ItemType byte

const (
	// Operation is a plain opcode.
	Operation ItemType = iota
	// Push places a constant on the stack.
	Push
	// PushTag pushes the bytecode position of a tag, possibly one owned by a
	// sub-assembly.
	PushTag
	// Tag defines a jump destination.
	Tag
	// PushData pushes the bytecode offset of an interned data blob.
	PushData
	// PushSub pushes the bytecode offset of a sub-assembly.
	PushSub
	// PushSubSize pushes the byte size of a sub-assembly.
	PushSubSize
	// PushProgramSize pushes the final size of the assembly itself.
	PushProgramSize
	// PushLibraryAddress pushes a library address resolved at link time.
	PushLibraryAddress
	// PushImmutable pushes the value of an immutable, bound at deploy time.
	PushImmutable
	// AssignImmutable stores the value on the stack into every occurrence of
	// an immutable in the runtime sub-assembly.
	AssignImmutable
	// PushDeployTimeAddress pushes an address patched in after deployment.
	PushDeployTimeAddress
	// UndefinedItem is the zero-information item.
	UndefinedItem
)

// JumpType annotates JUMP/JUMPI operations for control-flow-aware passes.
type JumpType byte

const (
	JumpOrdinary JumpType = iota
	JumpIntoFunction
	JumpOutOfFunction
)

func (t JumpType) String() string {
	switch t {
	case JumpIntoFunction:
		return "[in]"
	case JumpOutOfFunction:
		return "[out]"
	default:
		return ""
	}
}

// NoSub marks a PushTag as referencing a tag of the assembly it appears in.
const NoSub = -1

// SourceLocation points into the source text an item was generated for.
// The zero value is "no location".
type SourceLocation struct {
	Source string
	Start  int
	End    int
}

// IsValid reports whether the location carries any information.
func (l SourceLocation) IsValid() bool {
	return l.Source != "" || l.Start != 0 || l.End != 0
}

// Item is one entry of an Assembly. Items are immutable values; the only
// mutable annotations (location, jump type) are set through With* copies
// before the item is appended.
type Item struct {
	typ  ItemType
	op   vm.OpCode   // Operation
	data uint256.Int // Push constant / PushSubSize cache
	tag  uint64      // Tag / PushTag id
	sub  int         // PushTag owner (NoSub = own scope); PushSub/PushSubSize index
	hash common.Hash // PushData content hash
	name string      // PushLibraryAddress / PushImmutable / AssignImmutable identifier

	jumpType JumpType
	loc      SourceLocation
}

// NewOperation returns an opcode item.
func NewOperation(op vm.OpCode) Item {
	return Item{typ: Operation, op: op, sub: NoSub}
}

// NewPush returns a constant push item.
func NewPush(v *uint256.Int) Item {
	return Item{typ: Push, data: *v, sub: NoSub}
}

// NewPushUint64 returns a constant push item for a small value.
func NewPushUint64(v uint64) Item {
	return Item{typ: Push, data: *uint256.NewInt(v), sub: NoSub}
}

// NewTagItem returns a tag definition item. Tag ids are allocated by the
// owning Assembly; id 0 is reserved for the error tag.
func NewTagItem(id uint64) Item {
	return Item{typ: Tag, tag: id, sub: NoSub}
}

// NewPushTagItem returns a reference to a tag of the same assembly.
func NewPushTagItem(id uint64) Item {
	return Item{typ: PushTag, tag: id, sub: NoSub}
}

// NewForeignPushTag returns a reference to a tag owned by the sub-assembly
// with the given index.
func NewForeignPushTag(sub int, id uint64) Item {
	return Item{typ: PushTag, tag: id, sub: sub}
}

// Type returns the item variant.
func (i Item) Type() ItemType { return i.typ }

// Instruction returns the opcode of an Operation item.
func (i Item) Instruction() vm.OpCode {
	Assertf(i.typ == Operation, "instruction of non-operation item %v", i)
	return i.op
}

// Data returns the pushed constant of a Push item.
func (i Item) Data() *uint256.Int {
	d := i.data
	return &d
}

// TagID returns the tag id of a Tag or PushTag item.
func (i Item) TagID() uint64 {
	Assertf(i.typ == Tag || i.typ == PushTag, "tag id of non-tag item %v", i)
	return i.tag
}

// SubID returns the owning sub-assembly of a PushTag (NoSub for the item's
// own scope) or the sub index of a PushSub/PushSubSize item.
func (i Item) SubID() int { return i.sub }

// Name returns the identifier of a library or immutable reference.
func (i Item) Name() string { return i.name }

// Hash returns the content hash of a PushData item.
func (i Item) Hash() common.Hash { return i.hash }

// ToPushTag converts a Tag into the reference pushing its position. A PushTag
// converts to itself.
func (i Item) ToPushTag() Item {
	Assertf(i.typ == Tag || i.typ == PushTag, "push-tag of non-tag item %v", i)
	return Item{typ: PushTag, tag: i.tag, sub: i.sub}
}

// ToTag converts a tag reference back into the tag definition. Foreign
// references cannot define labels in this scope.
func (i Item) ToTag() Item {
	Assertf(i.typ == Tag || i.typ == PushTag, "tag of non-tag item %v", i)
	Assertf(i.sub == NoSub, "foreign tag reference %v used as label", i)
	return Item{typ: Tag, tag: i.tag, sub: NoSub}
}

// WithJumpType returns a copy annotated with the given jump type.
func (i Item) WithJumpType(t JumpType) Item {
	Assertf(i.typ == Operation && (i.op == vm.JUMP || i.op == vm.JUMPI),
		"jump type on non-jump item %v", i)
	i.jumpType = t
	return i
}

// GetJumpType returns the control-flow annotation of a jump operation.
func (i Item) GetJumpType() JumpType { return i.jumpType }

// WithLocation returns a copy annotated with the given source location.
func (i Item) WithLocation(loc SourceLocation) Item {
	i.loc = loc
	return i
}

// Location returns the source location the item was generated for.
func (i Item) Location() SourceLocation { return i.loc }

// Arguments returns the number of stack slots the item consumes.
func (i Item) Arguments() int {
	if i.typ == Operation {
		info, _ := vm.Info(i.op)
		return info.Args
	}
	if i.typ == AssignImmutable {
		return 2
	}
	return 0
}

// ReturnValues returns the number of stack slots the item produces.
func (i Item) ReturnValues() int {
	switch i.typ {
	case Operation:
		info, _ := vm.Info(i.op)
		return info.Ret
	case Tag, AssignImmutable, UndefinedItem:
		return 0
	default:
		// All push variants.
		return 1
	}
}

// Deposit returns the net stack effect of the item.
func (i Item) Deposit() int {
	return i.ReturnValues() - i.Arguments()
}

// SameAs reports semantic equality, ignoring location and jump annotations.
func (i Item) SameAs(o Item) bool {
	return i.typ == o.typ && i.op == o.op && i.data == o.data &&
		i.tag == o.tag && i.sub == o.sub && i.hash == o.hash && i.name == o.name
}

func (i Item) String() string {
	switch i.typ {
	case Operation:
		return i.op.String()
	case Push:
		d := i.data
		return fmt.Sprintf("PUSH %#x", &d)
	case PushTag:
		if i.sub == NoSub {
			return fmt.Sprintf("PUSH [tag%d]", i.tag)
		}
		return fmt.Sprintf("PUSH [tag%d of sub%d]", i.tag, i.sub)
	case Tag:
		return fmt.Sprintf("tag_%d:", i.tag)
	case PushData:
		return fmt.Sprintf("PUSH data %s", i.hash.TerminalString())
	case PushSub:
		return fmt.Sprintf("PUSH [sub%d]", i.sub)
	case PushSubSize:
		return fmt.Sprintf("PUSH #[sub%d]", i.sub)
	case PushProgramSize:
		return "PUSHSIZE"
	case PushLibraryAddress:
		return fmt.Sprintf("PUSHLIB %q", i.name)
	case PushImmutable:
		return fmt.Sprintf("PUSHIMMUTABLE %q", i.name)
	case AssignImmutable:
		return fmt.Sprintf("ASSIGNIMMUTABLE %q", i.name)
	case PushDeployTimeAddress:
		return "PUSHDEPLOYADDRESS"
	default:
		return "UNDEFINED"
	}
}

// typeName is the JSON debug name of an item, matching the historical
// assembly dump format.
func (i Item) typeName() string {
	switch i.typ {
	case Operation:
		return i.op.String()
	case Push:
		return "PUSH"
	case PushTag:
		return "PUSH [tag]"
	case Tag:
		return "tag"
	case PushData:
		return "PUSH data"
	case PushSub:
		return "PUSH [$]"
	case PushSubSize:
		return "PUSH #[$]"
	case PushProgramSize:
		return "PUSHSIZE"
	case PushLibraryAddress:
		return "PUSHLIB"
	case PushImmutable:
		return "PUSHIMMUTABLE"
	case AssignImmutable:
		return "ASSIGNIMMUTABLE"
	case PushDeployTimeAddress:
		return "PUSHDEPLOYADDRESS"
	default:
		return "UNDEFINED"
	}
}
