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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum/go-evmasm/vm"
)

func TestText(t *testing.T) {
	a := New("test")
	tag := a.NewTag()
	a.SetSourceLocation(SourceLocation{Source: "c.sol", Start: 10, End: 20})
	a.Append(tag)
	a.AppendPushUint64(0x42)
	a.AppendJumpTo(tag, JumpOrdinary)

	sub := New("sub")
	sub.AppendOp(vm.STOP)
	a.Append(a.NewSub(sub))

	text := a.Text()
	assert.Contains(t, text, "tag_1:")
	assert.Contains(t, text, "  PUSH 0x42")
	assert.Contains(t, text, "PUSH [tag1]")
	assert.Contains(t, text, "// c.sol [10:20]")
	assert.Contains(t, text, "sub_0: assembly {")
	assert.Contains(t, text, "    STOP")
}

func TestJSON(t *testing.T) {
	a := New("test")
	a.SetSourceLocation(SourceLocation{Source: "c.sol", Start: 1, End: 5})
	a.AppendPushUint64(0x42)
	a.AppendJumpTo(a.NamedTag("f"), JumpIntoFunction)
	a.AppendData([]byte{0xca, 0xfe})

	out, err := a.JSON()
	require.NoError(t, err)

	var decoded struct {
		Code []struct {
			Begin    int    `json:"begin"`
			End      int    `json:"end"`
			Name     string `json:"name"`
			Source   string `json:"source"`
			Value    string `json:"value"`
			JumpType string `json:"jumpType"`
		} `json:".code"`
		Data map[string]any `json:".data"`
	}
	require.NoError(t, json.Unmarshal(out, &decoded))

	require.Len(t, decoded.Code, 4)
	assert.Equal(t, "PUSH", decoded.Code[0].Name)
	assert.Equal(t, "0x42", decoded.Code[0].Value)
	assert.Equal(t, 1, decoded.Code[0].Begin)
	assert.Equal(t, "c.sol", decoded.Code[0].Source)

	assert.Equal(t, "PUSH [tag]", decoded.Code[1].Name)
	assert.Equal(t, "1", decoded.Code[1].Value)
	assert.Equal(t, "JUMP", decoded.Code[2].Name)
	assert.Equal(t, "[in]", decoded.Code[2].JumpType)
	assert.Equal(t, "PUSH data", decoded.Code[3].Name)

	require.Len(t, decoded.Data, 1)
}
