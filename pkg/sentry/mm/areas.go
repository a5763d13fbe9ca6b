// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mm

import (
	"github.com/google/btree"

	"gvisor.dev/vmem/pkg/hostarch"
)

// areaSetDegree is the btree degree of the area set.
const areaSetDegree = 8

// heapName is the name given to the program break area.
const heapName = "[heap]"

// area is a contiguous range of mapped pages sharing one set of permissions.
type area struct {
	hostarch.AddrRange

	// perms are the permissions of every page in the area.
	perms hostarch.AccessType

	// name is shown in the maps listing. It is empty for anonymous
	// mappings.
	name string
}

// AreaInfo describes one mapped area.
type AreaInfo struct {
	// Range is the page-aligned range covered by the area.
	Range hostarch.AddrRange

	// Perms are the permissions of the pages in the area.
	Perms hostarch.AccessType

	// Name is the area's label, e.g. "[heap]", or empty.
	Name string
}

func newAreaSet() *btree.BTreeG[*area] {
	return btree.NewG(areaSetDegree, func(a, b *area) bool {
		return a.Start < b.Start
	})
}

// insertArea records a newly mapped range, merging it with adjacent
// areas that have the same permissions and name.
//
// Preconditions: ar does not overlap any existing area.
func (mm *MemoryManager) insertArea(ar hostarch.AddrRange, perms hostarch.AccessType, name string) {
	a := &area{AddrRange: ar, perms: perms, name: name}
	if prev := mm.areaBefore(ar.Start); prev != nil && prev.End == ar.Start && prev.perms == perms && prev.name == name {
		mm.areas.Delete(prev)
		a.Start = prev.Start
	}
	if next, ok := mm.areas.Get(&area{AddrRange: hostarch.AddrRange{Start: ar.End}}); ok && next.perms == perms && next.name == name {
		mm.areas.Delete(next)
		a.End = next.End
	}
	mm.areas.ReplaceOrInsert(a)
}

// areaBefore returns the area with the greatest start address less than
// addr, or nil.
func (mm *MemoryManager) areaBefore(addr hostarch.Addr) *area {
	var prev *area
	mm.areas.DescendLessOrEqual(&area{AddrRange: hostarch.AddrRange{Start: addr}}, func(a *area) bool {
		if a.Start == addr {
			return true
		}
		prev = a
		return false
	})
	return prev
}

// removeAreas drops ar from the area set, splitting areas that straddle its
// boundaries.
func (mm *MemoryManager) removeAreas(ar hostarch.AddrRange) {
	var overlapping []*area
	visit := func(a *area) bool {
		if a.Start >= ar.End {
			return false
		}
		if a.Overlaps(ar) {
			overlapping = append(overlapping, a)
		}
		return true
	}
	if prev := mm.areaBefore(ar.Start); prev != nil {
		visit(prev)
	}
	mm.areas.AscendGreaterOrEqual(&area{AddrRange: hostarch.AddrRange{Start: ar.Start}}, visit)

	for _, a := range overlapping {
		mm.areas.Delete(a)
		if a.Start < ar.Start {
			mm.areas.ReplaceOrInsert(&area{
				AddrRange: hostarch.AddrRange{Start: a.Start, End: ar.Start},
				perms:     a.perms,
				name:      a.name,
			})
		}
		if a.End > ar.End {
			mm.areas.ReplaceOrInsert(&area{
				AddrRange: hostarch.AddrRange{Start: ar.End, End: a.End},
				perms:     a.perms,
				name:      a.name,
			})
		}
	}
}

// Areas returns the mapped areas of mm in address order.
func (mm *MemoryManager) Areas() []AreaInfo {
	infos := make([]AreaInfo, 0, mm.areas.Len())
	mm.areas.Ascend(func(a *area) bool {
		infos = append(infos, AreaInfo{
			Range: a.AddrRange,
			Perms: a.perms,
			Name:  a.name,
		})
		return true
	})
	return infos
}
