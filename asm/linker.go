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
	"encoding/hex"

	"github.com/ethereum/go-evmasm/common"
)

// LinkerObject is the final linked byte object of an assembly, together with
// the references left for the linker and the deploy-time immutable patch
// table.
type LinkerObject struct {
	Bytecode []byte

	// LinkReferences maps bytecode offsets of 20-byte address placeholders
	// to the library identifier to be linked there.
	LinkReferences map[int]string

	// ImmutableReferences maps immutable identifiers to the bytecode offsets
	// of their 32-byte placeholders.
	ImmutableReferences map[string][]int
}

// Link fills the placeholder at every reference of the given library with
// the address. Unknown identifiers are left untouched and reported back.
func (o *LinkerObject) Link(libraries map[string]common.Address) (unresolved []string) {
	seen := make(map[string]bool)
	for offset, name := range o.LinkReferences {
		addr, ok := libraries[name]
		if !ok {
			if !seen[name] {
				unresolved = append(unresolved, name)
				seen[name] = true
			}
			continue
		}
		copy(o.Bytecode[offset:offset+common.AddressLength], addr.Bytes())
		delete(o.LinkReferences, offset)
	}
	return unresolved
}

// Hex returns the bytecode as an unprefixed hex string.
func (o *LinkerObject) Hex() string {
	return hex.EncodeToString(o.Bytecode)
}
