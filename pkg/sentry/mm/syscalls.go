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

package mm

import (
	"gvisor.dev/vmem/pkg/cleanup"
	"gvisor.dev/vmem/pkg/errors/linuxerr"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/ring0/pagetables"
	"gvisor.dev/vmem/pkg/sentry/context"
	"gvisor.dev/vmem/pkg/sentry/memmap"
)

// pageRange returns the page-aligned range of length bytes starting at addr.
//
// Preconditions: addr is page-aligned; length != 0.
func pageRange(addr hostarch.Addr, length uint64) (hostarch.AddrRange, error) {
	la, ok := hostarch.PageRoundUp(length)
	if !ok {
		return hostarch.AddrRange{}, ErrRange
	}
	ar, ok := addr.ToRange(la)
	if !ok || ar.End > pagetables.MaxUserAddress {
		return hostarch.AddrRange{}, ErrRange
	}
	return ar, nil
}

// mappedPages returns the number of pages in ar that are mapped.
func (mm *MemoryManager) mappedPages(ar hostarch.AddrRange) uint64 {
	var n uint64
	mm.pt.Walk(ar.Start, ar.End, func(hostarch.Addr, uintptr, pagetables.MapOpts) {
		n++
	})
	return n
}

// MMap maps length bytes at addr with protections prot. Each page of the
// range receives a fresh zeroed frame.
//
// A zero length succeeds without changing anything, provided addr and prot
// are valid. The call fails without changing anything if any page in the
// range is already mapped or if frames run out.
func (mm *MemoryManager) MMap(ctx context.Context, addr hostarch.Addr, length, prot uint64) error {
	if !addr.IsPageAligned() {
		return ErrMisaligned
	}
	opts, ok := memmap.UserMapOpts(prot)
	if !ok {
		return ErrInvalidPermission
	}
	if length == 0 {
		return nil
	}
	ar, err := pageRange(addr, length)
	if err != nil {
		return err
	}
	if mm.mappedPages(ar) != 0 {
		return ErrConflict
	}
	if err := mm.mapRange(ctx, ar, opts, ""); err != nil {
		return err
	}
	ctx.Debugf("Mapped %v %v", ar, opts.AccessType)
	return nil
}

// mapRange backs every page in ar with a new frame.
//
// Preconditions: ar is page-aligned, non-empty and entirely unmapped.
func (mm *MemoryManager) mapRange(ctx context.Context, ar hostarch.AddrRange, opts pagetables.MapOpts, name string) error {
	npages := ar.NumPages()
	frames := make([]uintptr, 0, npages)
	cu := cleanup.Make(func() {
		for _, f := range frames {
			mm.mf.Free(f)
		}
	})
	defer cu.Clean()

	for i := uint64(0); i < npages; i++ {
		f, err := mm.mf.Allocate()
		if err != nil {
			ctx.Debugf("Failed to allocate frame %d of %d for %v: %v", i+1, npages, ar, err)
			return ErrNoMemory
		}
		frames = append(frames, f)
	}
	cu.Release()

	for i, f := range frames {
		mm.pt.Map(ar.Start+hostarch.Addr(i)*hostarch.PageSize, hostarch.PageSize, opts, f)
	}
	mm.insertArea(ar, opts.AccessType, name)
	mm.usageAS += uint64(ar.Length())
	return nil
}

// MUnmap unmaps length bytes at addr and returns their frames.
//
// A zero length succeeds without changing anything, provided addr is
// page-aligned. The call fails without changing anything if any page in the
// range is not mapped.
func (mm *MemoryManager) MUnmap(ctx context.Context, addr hostarch.Addr, length uint64) error {
	if !addr.IsPageAligned() {
		return ErrMisaligned
	}
	if length == 0 {
		return nil
	}
	ar, err := pageRange(addr, length)
	if err != nil {
		return err
	}
	if mm.mappedPages(ar) != ar.NumPages() {
		return ErrNotMapped
	}
	mm.unmapRange(ar)
	ctx.Debugf("Unmapped %v", ar)
	return nil
}

// unmapRange clears every mapped page in ar and frees its frame.
func (mm *MemoryManager) unmapRange(ar hostarch.AddrRange) {
	var frames []uintptr
	mm.pt.Walk(ar.Start, ar.End, func(_ hostarch.Addr, physical uintptr, _ pagetables.MapOpts) {
		frames = append(frames, physical)
	})
	mm.pt.Unmap(ar.Start, uintptr(ar.Length()))
	for _, f := range frames {
		mm.mf.Free(f)
	}
	mm.removeAreas(ar)
	mm.usageAS -= uint64(len(frames)) * hostarch.PageSize
}

// BrkSetup sets mm's brk address to addr and its brk size to 0.
func (mm *MemoryManager) BrkSetup(ctx context.Context, addr hostarch.Addr) {
	// Unmap the existing brk.
	if start, end := mm.brk.Start.MustRoundUp(), mm.brk.End.MustRoundUp(); start < end {
		mm.unmapRange(hostarch.AddrRange{Start: start, End: end})
	}
	mm.brk = hostarch.AddrRange{Start: addr, End: addr}
}

// Brk returns the current program break.
func (mm *MemoryManager) Brk() hostarch.Addr {
	return mm.brk.End
}

// HeapBottom returns the lowest value the program break may take.
func (mm *MemoryManager) HeapBottom() hostarch.Addr {
	return mm.brk.Start
}

// Sbrk moves the program break by delta bytes and returns the previous
// break. Pages newly covered by the heap are mapped read/write; pages no
// longer covered are unmapped.
//
// The break never moves below the heap bottom. On failure the break and the
// address space are unchanged.
func (mm *MemoryManager) Sbrk(ctx context.Context, delta int64) (hostarch.Addr, error) {
	oldBrk := mm.brk.End
	var newBrk hostarch.Addr
	if delta < 0 {
		shrink := uint64(-delta)
		if shrink > uint64(oldBrk-mm.brk.Start) {
			return oldBrk, linuxerr.EINVAL
		}
		newBrk = oldBrk - hostarch.Addr(shrink)
	} else {
		end, ok := oldBrk.AddLength(uint64(delta))
		if !ok {
			return oldBrk, ErrRange
		}
		newBrk = end
	}

	oldbrkpg := oldBrk.MustRoundUp()
	newbrkpg, ok := newBrk.RoundUp()
	if !ok || newbrkpg > pagetables.MaxUserAddress {
		return oldBrk, ErrRange
	}

	switch {
	case oldbrkpg < newbrkpg:
		ar := hostarch.AddrRange{Start: oldbrkpg, End: newbrkpg}
		if mm.mappedPages(ar) != 0 {
			return oldBrk, ErrConflict
		}
		opts := pagetables.MapOpts{AccessType: hostarch.ReadWrite, User: true}
		if err := mm.mapRange(ctx, ar, opts, heapName); err != nil {
			return oldBrk, err
		}
	case newbrkpg < oldbrkpg:
		mm.unmapRange(hostarch.AddrRange{Start: newbrkpg, End: oldbrkpg})
	}
	mm.brk.End = newBrk
	return oldBrk, nil
}
