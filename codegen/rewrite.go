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

import (
	"bytes"

	"github.com/ethereum/go-evmasm/asm"
	"github.com/ethereum/go-evmasm/vm"
)

// The rewrite policy intercepts every item appended to the assembly and
// classifies operations into four outcomes: pass through unchanged, warn and
// pass through, suppress entirely, or replace with a call to a synthesized
// helper that implements the operation against the execution manager. The
// policy is suspended while its own replacement code is appended and while a
// helper body is generated, so a helper may use the very primitive it
// substitutes for.

// Diagnostic codes raised by the policy.
const (
	codeNoNativeBalance   = 1633
	codeUnsupportedOpcode = 6388
	codeJumpdestInData    = 7608
	codeReturndataInAsm   = 7742
)

// simpleRule rewrites an opcode of up to two inputs and one output through
// the fixed scratch-marshalling template. Inline rules skip the memoized
// low-level function and expand at every call site.
type simpleRule struct {
	signature string
	in, out   int
	inline    bool
}

// complexRule rewrites an opcode of arbitrary arity through a caller-written
// body with positionally bound locals. Locals are listed deepest-first; the
// last name is nearest the stack top, matching the opcode's native argument
// order.
type complexRule struct {
	signature string
	in, out   int
	locals    []string
	body      bodyEmitter
}

var simpleRules = map[vm.OpCode]simpleRule{
	vm.SSTORE:      {"ovmSSTORE(bytes32,bytes32)", 2, 0, false},
	vm.SLOAD:       {"ovmSLOAD(bytes32)", 1, 1, false},
	vm.EXTCODESIZE: {"ovmEXTCODESIZE(address)", 1, 1, false},
	vm.EXTCODEHASH: {"ovmEXTCODEHASH(address)", 1, 1, false},
	vm.CALLER:      {"ovmCALLER()", 0, 1, false},
	// ADDRESS expanded inline: the block-level optimizer mishandles the
	// memoized form of this one opcode.
	vm.ADDRESS:   {"ovmADDRESS()", 0, 1, true},
	vm.TIMESTAMP: {"ovmTIMESTAMP()", 0, 1, false},
	vm.NUMBER:    {"ovmNUMBER()", 0, 1, false},
	vm.CHAINID:   {"ovmCHAINID()", 0, 1, false},
	vm.GASLIMIT:  {"ovmGASLIMIT()", 0, 1, false},
}

var complexRules = map[vm.OpCode]complexRule{
	vm.CALL: {"ovmCALL(uint256,address,bytes)", 7, 1,
		[]string{"retLength", "retOffset", "argsLength", "argsOffset", "value", "addr", "in_gas"},
		emitManagedCallBody},
	vm.STATICCALL: {"ovmSTATICCALL(uint256,address,bytes)", 6, 1,
		[]string{"retLength", "retOffset", "argsLength", "argsOffset", "addr", "in_gas"},
		emitManagedCallBody},
	vm.DELEGATECALL: {"ovmDELEGATECALL(uint256,address,bytes)", 6, 1,
		[]string{"retLength", "retOffset", "argsLength", "argsOffset", "addr", "in_gas"},
		emitManagedCallBody},
	vm.REVERT: {"ovmREVERT(bytes)", 2, 0,
		[]string{"length", "offset"},
		emitRevertBody},
	vm.CREATE: {"ovmCREATE(bytes)", 3, 1,
		[]string{"length", "offset", "value"},
		emitCreateBody},
	vm.CREATE2: {"ovmCREATE2(bytes,bytes32)", 4, 1,
		[]string{"salt", "length", "offset", "value"},
		emitCreate2Body},
	vm.EXTCODECOPY: {"ovmEXTCODECOPY(address,uint256,uint256)", 4, 0,
		[]string{"length", "offset", "destOffset", "addr"},
		emitExtcodecopyBody},
}

// forbiddenOps have no translation in the managed environment; appending one
// emits nothing and records a diagnostic.
var forbiddenOps = map[vm.OpCode]bool{
	vm.BLOCKHASH:    true,
	vm.CALLCODE:     true,
	vm.COINBASE:     true,
	vm.DIFFICULTY:   true,
	vm.GASPRICE:     true,
	vm.ORIGIN:       true,
	vm.SELFDESTRUCT: true,
}

// suspendRewrites deactivates the policy until the returned release function
// runs. The token releases at most once, so every exit path of the caller
// can run it unconditionally.
func (c *Context) suspendRewrites() (release func()) {
	c.rewriteSuspended++
	released := false
	return func() {
		if !released {
			released = true
			c.rewriteSuspended--
		}
	}
}

// appendHook is installed on the assembly and consulted for every item.
// Returning true claims the item: replacement code (possibly none) was
// appended instead.
func (c *Context) appendHook(item asm.Item) bool {
	if !c.rewriting || c.rewriteSuspended > 0 {
		return false
	}
	release := c.suspendRewrites()
	defer release()

	if item.Type() == asm.PushData {
		if blob, ok := c.asm.Data(item.Hash()); ok && bytes.IndexByte(blob, byte(vm.JUMPDEST)) >= 0 {
			c.reporter.Warning(codeJumpdestInData, c.asm.CurrentSourceLocation(),
				"JUMPDEST found in constant")
		}
		return false
	}
	if item.Type() != asm.Operation {
		return false
	}

	op := item.Instruction()
	switch {
	case op == vm.BALANCE || op == vm.SELFBALANCE:
		c.reporter.Warning(codeNoNativeBalance, c.asm.CurrentSourceLocation(),
			op.String()+" is not implemented in the managed environment; there is no native value balance, use the deposited token instead")
		return false

	case forbiddenOps[op]:
		c.reporter.Warning(codeUnsupportedOpcode, c.asm.CurrentSourceLocation(),
			op.String()+" is not implemented in the managed environment")
		return true // suppressed: nothing is appended in its place

	case op == vm.RETURNDATASIZE || op == vm.RETURNDATACOPY:
		if c.buildingUserAsm {
			c.reporter.Warning(codeReturndataInAsm, c.asm.CurrentSourceLocation(),
				"using RETURNDATASIZE or RETURNDATACOPY in user assembly is not guaranteed to work")
		}
		return false
	}

	if r, ok := simpleRules[op]; ok {
		c.rewriteSimple(r)
		return true
	}
	if r, ok := complexRules[op]; ok {
		c.rewriteComplex(r.signature, r.in, r.out, r.locals, r.body, true)
		return true
	}
	return false
}
