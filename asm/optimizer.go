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

	"github.com/ethereum/go-evmasm/log"
)

// OptimizerSettings selects the low-level passes run by Optimize. There is
// no global default; callers pass the settings explicitly.
type OptimizerSettings struct {
	RunJumpdestRemover bool
	RunPeephole        bool
}

// Optimize runs the selected passes over the assembly and all of its
// sub-assemblies until no pass makes progress. Each sub-assembly keeps the
// tags the enclosing scopes push references to.
func (a *Assembly) Optimize(settings OptimizerSettings) {
	a.optimizeInternal(settings, mapset.NewThreadUnsafeSet[uint64]())
}

func (a *Assembly) optimizeInternal(settings OptimizerSettings, reachable mapset.Set[uint64]) {
	Assertf(a.assembled == nil, "assembly %q optimized after it was assembled", a.name)

	for idx, sub := range a.subs {
		sub.optimizeInternal(settings, ReferencedTags(a.items, idx))
	}

	before := len(a.items)
	for {
		changed := false
		if settings.RunPeephole {
			items, c := PeepholeOptimize(a.items)
			a.items, changed = items, changed || c
		}
		if settings.RunJumpdestRemover {
			items, c := RemoveUnusedJumpdests(a.items, reachable)
			a.items, changed = items, changed || c
		}
		if !changed {
			break
		}
	}
	if removed := before - len(a.items); removed > 0 {
		log.Debug("Optimized assembly", "name", a.name, "items", len(a.items), "removed", removed)
	}
}
