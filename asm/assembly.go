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
	"sort"

	"github.com/ethereum/go-evmasm/common"
	"github.com/ethereum/go-evmasm/crypto"
	"github.com/ethereum/go-evmasm/vm"
	"github.com/holiman/uint256"
)

// AppendHook is invoked with every item about to be appended. Returning true
// claims the item: the hook has appended replacement code (or nothing) and
// the original item is dropped.
type AppendHook func(Item) bool

// ErrorTag is the reserved tag id denoting the invalid jump destination.
const ErrorTag uint64 = 0

// Assembly is an ordered, appendable sequence of items owned by exactly one
// code generator. It tracks the running stack deposit, interns data blobs by
// content hash, holds nested sub-assemblies and resolves symbolic tags to
// byte positions when assembled.
type Assembly struct {
	name string

	usedTags  uint64 // tag id 0 is reserved for the error tag
	namedTags map[string]uint64

	items     []Item
	data      map[common.Hash][]byte
	subs      []*Assembly
	auxiliary []byte

	deposit         int
	currentLocation SourceLocation

	hook    AppendHook
	invalid bool

	// Set once by Assemble; further mutation is a fatal error.
	assembled    *LinkerObject
	tagPositions []int
}

// New creates an empty assembly. The name is only used in diagnostics.
func New(name string) *Assembly {
	return &Assembly{
		name:      name,
		usedTags:  1,
		namedTags: make(map[string]uint64),
		data:      make(map[common.Hash][]byte),
	}
}

// Name returns the internal name of the assembly.
func (a *Assembly) Name() string { return a.name }

// Items returns the item sequence. The slice is owned by the assembly;
// optimization passes mutate it through the pass entry points only.
func (a *Assembly) Items() []Item { return a.items }

// SetAppendHook installs the rewrite hook consulted by Append.
func (a *Assembly) SetAppendHook(hook AppendHook) { a.hook = hook }

// NewTag allocates a fresh tag and returns its definition item.
func (a *Assembly) NewTag() Item {
	Assertf(a.usedTags < 0xffffffff, "tag space exhausted")
	id := a.usedTags
	a.usedTags++
	return NewTagItem(id)
}

// NewPushTag allocates a fresh tag pre-wrapped as a push reference.
func (a *Assembly) NewPushTag() Item {
	return a.NewTag().ToPushTag()
}

// NamedTag returns the tag registered under the given name, creating it on
// first use. Named tags anchor well-known helper entry points.
func (a *Assembly) NamedTag(name string) Item {
	Assertf(name != "", "empty named tag")
	id, ok := a.namedTags[name]
	if !ok {
		id = a.NewTag().TagID()
		a.namedTags[name] = id
	}
	return NewTagItem(id)
}

// NewData interns a data blob and returns the push reference to its
// content-addressed offset. Identical bytes are stored once.
func (a *Assembly) NewData(data []byte) Item {
	h := crypto.Keccak256Hash(data)
	a.data[h] = data
	return Item{typ: PushData, hash: h, sub: NoSub}
}

// Data returns an interned blob by content hash.
func (a *Assembly) Data(h common.Hash) ([]byte, bool) {
	d, ok := a.data[h]
	return d, ok
}

// NewSub registers a sub-assembly and returns the item pushing its offset.
func (a *Assembly) NewSub(sub *Assembly) Item {
	a.subs = append(a.subs, sub)
	return Item{typ: PushSub, sub: len(a.subs) - 1}
}

// Sub returns the sub-assembly with the given index.
func (a *Assembly) Sub(i int) *Assembly {
	Assertf(i >= 0 && i < len(a.subs), "sub-assembly %d not found", i)
	return a.subs[i]
}

// NumSubs returns the number of registered sub-assemblies.
func (a *Assembly) NumSubs() int { return len(a.subs) }

// NewPushSubSize returns the item pushing the byte size of a sub-assembly.
func (a *Assembly) NewPushSubSize(sub int) Item {
	return Item{typ: PushSubSize, sub: sub}
}

// NewPushLibraryAddress returns the item pushing a link-time library address.
func (a *Assembly) NewPushLibraryAddress(identifier string) Item {
	return Item{typ: PushLibraryAddress, name: identifier, sub: NoSub}
}

// NewPushImmutable returns the item pushing a deploy-time immutable value.
func (a *Assembly) NewPushImmutable(identifier string) Item {
	return Item{typ: PushImmutable, name: identifier, sub: NoSub}
}

// NewImmutableAssignment returns the item assigning an immutable in the
// runtime sub-assembly.
func (a *Assembly) NewImmutableAssignment(identifier string) Item {
	return Item{typ: AssignImmutable, name: identifier, sub: NoSub}
}

// Append is the single mutation point of the item sequence. It consults the
// rewrite hook, stamps the active source location and keeps the running
// deposit, failing fast if the deposit would go negative.
func (a *Assembly) Append(item Item) Item {
	if a.hook != nil && a.hook(item) {
		if n := len(a.items); n > 0 {
			return a.items[n-1]
		}
		return item
	}
	Assertf(a.assembled == nil, "assembly %q modified after it was assembled", a.name)
	a.deposit += item.Deposit()
	Assertf(a.deposit >= 0, "stack underflow appending %v to %q", item, a.name)
	if !item.loc.IsValid() && a.currentLocation.IsValid() {
		item.loc = a.currentLocation
	}
	a.items = append(a.items, item)
	return item
}

// AppendOp appends a plain opcode.
func (a *Assembly) AppendOp(op vm.OpCode) Item {
	return a.Append(NewOperation(op))
}

// AppendPush appends a constant push.
func (a *Assembly) AppendPush(v *uint256.Int) Item {
	return a.Append(NewPush(v))
}

// AppendPushUint64 appends a small constant push.
func (a *Assembly) AppendPushUint64(v uint64) Item {
	return a.Append(NewPushUint64(v))
}

// AppendData interns the blob and appends the push of its offset.
func (a *Assembly) AppendData(data []byte) Item {
	return a.Append(a.NewData(data))
}

// AppendJump allocates a fresh tag, appends its reference followed by JUMP
// and returns the reference so the caller can later define the tag.
func (a *Assembly) AppendJump() Item {
	ret := a.Append(a.NewPushTag())
	a.AppendOp(vm.JUMP)
	return ret
}

// AppendJumpTo appends the push+jump pair targeting the given tag.
func (a *Assembly) AppendJumpTo(tag Item, jumpType JumpType) Item {
	ret := a.Append(tag.ToPushTag())
	a.Append(NewOperation(vm.JUMP).WithJumpType(jumpType))
	return ret
}

// AppendConditionalJump allocates a fresh tag and appends its reference
// followed by JUMPI.
func (a *Assembly) AppendConditionalJump() Item {
	ret := a.Append(a.NewPushTag())
	a.AppendOp(vm.JUMPI)
	return ret
}

// AppendConditionalJumpTo appends the push+JUMPI pair targeting the tag.
func (a *Assembly) AppendConditionalJumpTo(tag Item) Item {
	ret := a.Append(tag.ToPushTag())
	a.AppendOp(vm.JUMPI)
	return ret
}

// AppendProgramSize pushes the final size of this assembly. Used when the
// code is modified after compilation and CODESIZE is not an option.
func (a *Assembly) AppendProgramSize() Item {
	return a.Append(Item{typ: PushProgramSize, sub: NoSub})
}

// AppendSubroutine registers the sub-assembly and pushes its size, returning
// the PushSub item for the offset.
func (a *Assembly) AppendSubroutine(sub *Assembly) Item {
	item := a.NewSub(sub)
	a.Append(a.NewPushSubSize(item.SubID()))
	return item
}

// AppendAuxiliaryData appends raw bytes to the very end of the bytecode.
func (a *Assembly) AppendAuxiliaryData(data []byte) {
	Assertf(a.assembled == nil, "assembly %q modified after it was assembled", a.name)
	a.auxiliary = append(a.auxiliary, data...)
}

// Deposit returns the running net stack height relative to entry.
func (a *Assembly) Deposit() int { return a.deposit }

// AdjustDeposit shifts the deposit by the given amount. Going negative is a
// fatal invariant breach.
func (a *Assembly) AdjustDeposit(adjustment int) {
	a.deposit += adjustment
	Assertf(a.deposit >= 0, "negative stack deposit in %q", a.name)
}

// SetDeposit sets the deposit to an absolute value.
func (a *Assembly) SetDeposit(deposit int) {
	Assertf(deposit >= 0, "negative stack deposit in %q", a.name)
	a.deposit = deposit
}

// SetSourceLocation changes the location stamped on subsequently appended
// items.
func (a *Assembly) SetSourceLocation(loc SourceLocation) {
	a.currentLocation = loc
}

// CurrentSourceLocation returns the location stamped on appended items.
func (a *Assembly) CurrentSourceLocation() SourceLocation {
	return a.currentLocation
}

// MarkAsInvalid poisons the assembly; assembling it fails.
func (a *Assembly) MarkAsInvalid() { a.invalid = true }

// bytesNeeded returns the number of bytes required to encode n.
func bytesNeeded(n int) int {
	b := 1
	for n > 0xff {
		n >>= 8
		b++
	}
	return b
}

func putBigEndian(dst []byte, v int) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

// refWidth computes the width of reference pushes (tags, data offsets,
// program size) such that the largest possible value still fits.
func (a *Assembly) refWidth(occurrences map[string]int) int {
	maxSubTagPos := 0
	for _, sub := range a.subs {
		for _, pos := range sub.tagPositions {
			if pos > maxSubTagPos {
				maxSubTagPos = pos
			}
		}
	}
	width := bytesNeeded(maxSubTagPos)
	for {
		size := a.sizeUpperBound(width, occurrences)
		if bytesNeeded(size) <= width {
			return width
		}
		width++
	}
}

// sizeUpperBound estimates the total assembled size, including the data
// section, with all reference pushes at the given width.
func (a *Assembly) sizeUpperBound(refWidth int, occurrences map[string]int) int {
	size := 1 // trailing INVALID separator
	for _, i := range a.items {
		switch i.typ {
		case Operation, Tag:
			size++
		case Push:
			d := i.data
			size += 1 + max(1, (d.BitLen()+7)/8)
		case PushTag, PushData, PushSub, PushProgramSize:
			size += 1 + refWidth
		case PushSubSize:
			size += 1 + 4 // worst case: a 16MB sub-program
		case PushLibraryAddress, PushDeployTimeAddress:
			size += 1 + 20
		case PushImmutable:
			size += 1 + 32
		case AssignImmutable:
			occ := occurrences[i.name]
			if occ == 0 {
				size += 2
			} else {
				size += occ * (2 + 5 + 2)
			}
		}
	}
	for _, sub := range a.subs {
		size += len(sub.assembled.Bytecode)
	}
	for _, d := range a.data {
		size += len(d)
	}
	return size + len(a.auxiliary)
}

// Assemble resolves tags, data references and immutables into a linked byte
// object. The result is computed once and cached; the assembly must not be
// mutated afterwards. It fails if the assembly was marked invalid or if an
// immutable was read but never assigned.
func (a *Assembly) Assemble() (obj *LinkerObject, err error) {
	defer RecoverError(&err)
	return a.assemble(), nil
}

func (a *Assembly) assemble() *LinkerObject {
	Assertf(!a.invalid, "attempted to assemble invalid assembly %q", a.name)
	if a.assembled != nil {
		return a.assembled
	}

	// Assemble subs first; collect immutable references defined by them.
	immutableRefs := make(map[string][]int)
	for _, sub := range a.subs {
		subObj := sub.assemble()
		if len(subObj.ImmutableReferences) > 0 {
			Assertf(len(immutableRefs) == 0, "more than one sub-assembly references immutables")
			for name, offsets := range subObj.ImmutableReferences {
				immutableRefs[name] = offsets
			}
		}
	}

	setsImmutables, pushesImmutables := false, false
	occurrences := make(map[string]int)
	for _, i := range a.items {
		switch i.typ {
		case AssignImmutable:
			setsImmutables = true
			occurrences[i.name] = len(immutableRefs[i.name])
		case PushImmutable:
			pushesImmutables = true
		}
	}
	if setsImmutables || pushesImmutables {
		Assertf(setsImmutables != pushesImmutables,
			"cannot push and assign immutables in the same assembly subroutine")
	}

	width := a.refWidth(occurrences)
	refPush := vm.PushN(width)

	obj := &LinkerObject{
		LinkReferences:      make(map[int]string),
		ImmutableReferences: make(map[string][]int),
	}
	code := make([]byte, 0, a.sizeUpperBound(width, occurrences))

	a.tagPositions = make([]int, a.usedTags)
	for i := range a.tagPositions {
		a.tagPositions[i] = -1
	}

	type tagRef struct {
		sub int
		tag uint64
	}
	tagRefs := make(map[int]tagRef)      // patch offset -> referenced tag
	dataRefs := make(map[common.Hash][]int)
	subRefs := make(map[int][]int)       // sub index -> patch offsets
	var sizeRefs []int

	assigned := make(map[string]bool)
	for _, i := range a.items {
		// The error tag points at the first byte that is not a jump
		// destination.
		if i.typ != Tag && a.tagPositions[ErrorTag] == -1 {
			a.tagPositions[ErrorTag] = len(code)
		}
		switch i.typ {
		case Operation:
			code = append(code, byte(i.op))
		case Push:
			d := i.data
			n := max(1, (d.BitLen()+7)/8)
			code = append(code, byte(vm.PushN(n)))
			start := len(code)
			code = append(code, make([]byte, n)...)
			b := d.Bytes()
			copy(code[start+n-len(b):], b)
		case PushTag:
			code = append(code, byte(refPush))
			tagRefs[len(code)] = tagRef{sub: i.sub, tag: i.tag}
			code = append(code, make([]byte, width)...)
		case PushData:
			code = append(code, byte(refPush))
			dataRefs[i.hash] = append(dataRefs[i.hash], len(code))
			code = append(code, make([]byte, width)...)
		case PushSub:
			code = append(code, byte(refPush))
			subRefs[i.sub] = append(subRefs[i.sub], len(code))
			code = append(code, make([]byte, width)...)
		case PushSubSize:
			s := len(a.Sub(i.sub).assemble().Bytecode)
			n := max(1, bytesNeeded(s))
			code = append(code, byte(vm.PushN(n)))
			start := len(code)
			code = append(code, make([]byte, n)...)
			putBigEndian(code[start:], s)
		case PushProgramSize:
			code = append(code, byte(refPush))
			sizeRefs = append(sizeRefs, len(code))
			code = append(code, make([]byte, width)...)
		case PushLibraryAddress:
			code = append(code, byte(vm.PUSH20))
			obj.LinkReferences[len(code)] = i.name
			code = append(code, make([]byte, 20)...)
		case PushDeployTimeAddress:
			code = append(code, byte(vm.PUSH20))
			code = append(code, make([]byte, 20)...)
		case PushImmutable:
			code = append(code, byte(vm.PUSH32))
			obj.ImmutableReferences[i.name] = append(obj.ImmutableReferences[i.name], len(code))
			code = append(code, make([]byte, 32)...)
		case AssignImmutable:
			offsets := immutableRefs[i.name]
			for k, offset := range offsets {
				if k != len(offsets)-1 {
					code = append(code, byte(vm.DUP2), byte(vm.DUP2))
				}
				n := max(1, bytesNeeded(offset))
				code = append(code, byte(vm.PushN(n)))
				start := len(code)
				code = append(code, make([]byte, n)...)
				putBigEndian(code[start:], offset)
				code = append(code, byte(vm.ADD), byte(vm.MSTORE))
			}
			if len(offsets) == 0 {
				code = append(code, byte(vm.POP), byte(vm.POP))
			}
			assigned[i.name] = true
		case Tag:
			Assertf(i.tag != ErrorTag, "invalid tag position")
			Assertf(i.sub == NoSub, "foreign tag defined as label")
			Assertf(a.tagPositions[i.tag] == -1, "duplicate position for tag %d", i.tag)
			a.tagPositions[i.tag] = len(code)
			code = append(code, byte(vm.JUMPDEST))
		default:
			Failf("unexpected item %v while assembling", i)
		}
	}

	for name := range immutableRefs {
		if !assigned[name] {
			Failf("immutable %q was read from but never assigned, possibly because of optimization", name)
		}
	}

	if len(a.subs) > 0 || len(a.data) > 0 || len(a.auxiliary) > 0 {
		// An INVALID separates code from the data section to help tests
		// find miscompilation.
		code = append(code, byte(vm.INVALID))
	}

	for idx, sub := range a.subs {
		offset := len(code)
		for _, patch := range subRefs[idx] {
			putBigEndian(code[patch:patch+width], offset)
		}
		code = append(code, sub.assemble().Bytecode...)
	}

	hashes := make([]common.Hash, 0, len(dataRefs))
	for h := range dataRefs {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(x, y int) bool {
		return string(hashes[x].Bytes()) < string(hashes[y].Bytes())
	})
	for _, h := range hashes {
		blob, ok := a.data[h]
		Assertf(ok, "data %s not found", h)
		offset := len(code)
		for _, patch := range dataRefs[h] {
			putBigEndian(code[patch:patch+width], offset)
		}
		code = append(code, blob...)
	}

	code = append(code, a.auxiliary...)

	for _, patch := range sizeRefs {
		putBigEndian(code[patch:patch+width], len(code))
	}

	for patch, ref := range tagRefs {
		positions := a.tagPositions
		if ref.sub != NoSub {
			Assertf(ref.sub >= 0 && ref.sub < len(a.subs), "invalid sub id %d", ref.sub)
			positions = a.subs[ref.sub].tagPositions
		}
		Assertf(ref.tag < uint64(len(positions)), "reference to non-existing tag %d", ref.tag)
		pos := positions[ref.tag]
		Assertf(pos != -1, "referenced tag %d has no position", ref.tag)
		putBigEndian(code[patch:patch+width], pos)
	}

	obj.Bytecode = code
	a.assembled = obj
	return obj
}
