// Copyright 2018 The gVisor Authors.
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

// Package pagetables provides a generic implementation of pagetables.
//
// The tables are a four-level radix tree indexed by nine bits of the virtual
// address per level, covering the lower half of a 48-bit address space. Only
// last-level entries map frames; interior levels exist only while some page
// beneath them is mapped.
package pagetables

import (
	"fmt"

	"gvisor.dev/vmem/pkg/hostarch"
)

const (
	// levelBits is the number of address bits consumed per level.
	levelBits = 9

	// entriesPerPage is the number of entries in each node.
	entriesPerPage = 1 << levelBits

	// numLevels is the depth of the tree.
	numLevels = 4

	// pteSize is the span of a single last-level entry.
	pteSize = hostarch.PageSize

	// MaxUserAddress is the first address beyond the user half of the
	// address space.
	MaxUserAddress hostarch.Addr = 1 << (hostarch.PageShift + levelBits*numLevels - 1)
)

// Node is a single node within a set of page tables.
type Node struct {
	// ptes holds the entries of a last-level node. Unused in interior nodes.
	ptes PTEs

	// next holds the children of an interior node. Unused in last-level
	// nodes.
	next [entriesPerPage]*Node

	// count is the number of valid ptes (last level) or non-nil children
	// (interior). A node whose count drops to zero is freed by its parent.
	count int
}

// PageTables is a set of page tables.
//
// PageTables is not synchronized; the owning address space serializes all
// access.
type PageTables struct {
	// root is the pagetable root.
	root *Node

	// nodes is the number of nodes, including root.
	nodes int
}

// New returns new PageTables.
func New() *PageTables {
	return &PageTables{
		root:  &Node{},
		nodes: 1,
	}
}

// Visitor is called for each last-level entry in a range. [start, end) is the
// intersection of the entry's page with the iterated range. The visitor may
// modify pte.
type Visitor func(start, end uintptr, pte *PTE)

// entryShift returns the address shift of entries at the given level.
func entryShift(level int) uint {
	return hostarch.PageShift + levelBits*uint(numLevels-1-level)
}

// iterateRange calls fn for each last-level entry overlapping [start, end).
// If alloc is true, missing nodes are allocated; otherwise entries beneath
// missing nodes are skipped. Nodes left empty are freed.
//
// Preconditions: start <= end <= MaxUserAddress.
func (p *PageTables) iterateRange(start, end uintptr, alloc bool, fn Visitor) {
	if start > end || end > uintptr(MaxUserAddress) {
		panic(fmt.Sprintf("pagetables: invalid range [%#x, %#x)", start, end))
	}
	if start == end {
		return
	}
	p.iterateNode(p.root, 0, 0, start, end, alloc, fn)
}

func (p *PageTables) iterateNode(n *Node, level int, base, start, end uintptr, alloc bool, fn Visitor) {
	shift := entryShift(level)
	span := uintptr(1) << shift
	for i := int((start - base) >> shift); i < entriesPerPage; i++ {
		entryStart := base + uintptr(i)<<shift
		if entryStart >= end {
			break
		}
		s := max(start, entryStart)
		e := min(end, entryStart+span)

		if level == numLevels-1 {
			pte := &n.ptes[i]
			wasValid := pte.Valid()
			fn(s, e, pte)
			switch isValid := pte.Valid(); {
			case wasValid && !isValid:
				n.count--
			case !wasValid && isValid:
				n.count++
			}
			continue
		}

		child := n.next[i]
		if child == nil {
			if !alloc {
				continue
			}
			child = &Node{}
			n.next[i] = child
			n.count++
			p.nodes++
		}
		p.iterateNode(child, level+1, entryStart, s, e, alloc, fn)
		if child.count == 0 {
			n.next[i] = nil
			n.count--
			p.nodes--
		}
	}
}

// Map installs a mapping with the given physical address. The range is mapped
// to physically contiguous memory starting at physical.
//
// True is returned iff there was a previous mapping in the range.
//
// Precondition: addr & length must be aligned, their sum must not overflow and
// must not exceed MaxUserAddress.
func (p *PageTables) Map(addr hostarch.Addr, length uintptr, opts MapOpts, physical uintptr) bool {
	if !opts.AccessType.Any() {
		return p.Unmap(addr, length)
	}
	end, ok := addr.AddLength(uint64(length))
	if !ok {
		panic("pagetables.Map: overflow")
	}
	prev := false
	p.iterateRange(uintptr(addr), uintptr(end), true, func(s, e uintptr, pte *PTE) {
		prev = prev || pte.Valid()
		pte.Set(physical+(s-uintptr(addr)), opts)
	})
	return prev
}

// Unmap unmaps the given range.
//
// True is returned iff there was a previous mapping in the range.
func (p *PageTables) Unmap(addr hostarch.Addr, length uintptr) bool {
	end, ok := addr.AddLength(uint64(length))
	if !ok {
		panic("pagetables.Unmap: overflow")
	}
	count := 0
	p.iterateRange(uintptr(addr), uintptr(end), false, func(s, e uintptr, pte *PTE) {
		if pte.Valid() {
			pte.Clear()
			count++
		}
	})
	return count > 0
}

// Lookup returns the physical address for the given virtual address, and the
// options of the mapping. ok is false if addr is not mapped.
func (p *PageTables) Lookup(addr hostarch.Addr) (physical uintptr, opts MapOpts, ok bool) {
	if addr >= MaxUserAddress {
		return 0, MapOpts{}, false
	}
	n := p.root
	for level := 0; level < numLevels-1; level++ {
		n = n.next[(uintptr(addr)>>entryShift(level))%entriesPerPage]
		if n == nil {
			return 0, MapOpts{}, false
		}
	}
	pte := &n.ptes[(uintptr(addr)>>hostarch.PageShift)%entriesPerPage]
	if !pte.Valid() {
		return 0, MapOpts{}, false
	}
	return pte.Address() + uintptr(addr.PageOffset()), pte.Opts(), true
}

// Walk calls fn for each mapped page in [start, end), in address order.
//
// Preconditions: start and end are page-aligned; end <= MaxUserAddress.
func (p *PageTables) Walk(start, end hostarch.Addr, fn func(addr hostarch.Addr, physical uintptr, opts MapOpts)) {
	p.iterateRange(uintptr(start), uintptr(end), false, func(s, e uintptr, pte *PTE) {
		if pte.Valid() {
			fn(hostarch.Addr(s), pte.Address(), pte.Opts())
		}
	})
}

// Release drops all mappings and nodes. Frames referenced by the tables are
// not touched; the caller must release them first.
func (p *PageTables) Release() {
	p.root = &Node{}
	p.nodes = 1
}

// NumNodes returns the number of nodes currently allocated, including the
// root.
func (p *PageTables) NumNodes() int {
	return p.nodes
}
