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
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Text renders the assembly as a human-readable listing, one item per line,
// with source locations as trailing comments and sub-assemblies indented
// below their parent.
func (a *Assembly) Text() string {
	var sb strings.Builder
	a.writeText(&sb, "")
	return sb.String()
}

func (a *Assembly) writeText(sb *strings.Builder, indent string) {
	for _, item := range a.items {
		if item.Type() == Tag {
			sb.WriteString(indent)
		} else {
			sb.WriteString(indent + "  ")
		}
		sb.WriteString(item.String())
		if loc := item.Location(); loc.IsValid() {
			fmt.Fprintf(sb, "\t\t// %s [%d:%d]", loc.Source, loc.Start, loc.End)
		}
		sb.WriteByte('\n')
	}
	for idx, sub := range a.subs {
		fmt.Fprintf(sb, "%ssub_%d: assembly {\n", indent, idx)
		sub.writeText(sb, indent+"    ")
		sb.WriteString(indent + "}\n")
	}
	if len(a.data) > 0 {
		sb.WriteString(indent + "data:\n")
		for h, blob := range a.data {
			fmt.Fprintf(sb, "%s  %s: 0x%s\n", indent, h.TerminalString(), hex.EncodeToString(blob))
		}
	}
	if len(a.auxiliary) > 0 {
		fmt.Fprintf(sb, "%sauxdata: 0x%s\n", indent, hex.EncodeToString(a.auxiliary))
	}
}

type jsonItem struct {
	Begin    int    `json:"begin"`
	End      int    `json:"end"`
	Name     string `json:"name"`
	Source   string `json:"source,omitempty"`
	Value    string `json:"value,omitempty"`
	JumpType string `json:"jumpType,omitempty"`
}

// JSON renders the assembly in the historical compiler debug shape: a
// ".code" item array and a ".data" object of sub-assemblies and interned
// blobs.
func (a *Assembly) JSON() ([]byte, error) {
	return json.MarshalIndent(a.jsonValue(), "", "  ")
}

func (a *Assembly) jsonValue() map[string]any {
	code := make([]jsonItem, 0, len(a.items))
	for _, item := range a.items {
		loc := item.Location()
		ji := jsonItem{
			Begin:    loc.Start,
			End:      loc.End,
			Name:     item.typeName(),
			Source:   loc.Source,
			Value:    itemJSONValue(item),
			JumpType: item.GetJumpType().String(),
		}
		code = append(code, ji)
	}
	out := map[string]any{".code": code}

	data := make(map[string]any)
	for idx, sub := range a.subs {
		data[strconv.Itoa(idx)] = sub.jsonValue()
	}
	for h, blob := range a.data {
		data[h.Hex()] = hex.EncodeToString(blob)
	}
	if len(a.auxiliary) > 0 {
		data[".auxdata"] = hex.EncodeToString(a.auxiliary)
	}
	if len(data) > 0 {
		out[".data"] = data
	}
	return out
}

func itemJSONValue(item Item) string {
	switch item.Type() {
	case Push:
		return item.Data().Hex()
	case PushTag, Tag:
		if item.SubID() != NoSub {
			return fmt.Sprintf("%d:%d", item.SubID(), item.TagID())
		}
		return strconv.FormatUint(item.TagID(), 10)
	case PushSub, PushSubSize:
		return strconv.Itoa(item.SubID())
	case PushData:
		return item.Hash().Hex()
	case PushLibraryAddress, PushImmutable, AssignImmutable:
		return item.Name()
	default:
		return ""
	}
}
