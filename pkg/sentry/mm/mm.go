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

// Package mm provides a memory management subsystem.
//
// A MemoryManager owns the page tables of one address space and the frames
// installed in them. Frames are borrowed from a shared pgalloc.MemoryFile and
// returned to it when pages are unmapped.
//
// Every mutating operation validates its whole range before changing
// anything, so a failed operation leaves the address space unchanged.
package mm

import (
	"github.com/google/btree"
	"golang.org/x/sys/unix"

	"gvisor.dev/vmem/pkg/errors"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/ring0/pagetables"
	"gvisor.dev/vmem/pkg/sentry/context"
	"gvisor.dev/vmem/pkg/sentry/pgalloc"
)

// Errors returned by MemoryManager operations.
var (
	// ErrMisaligned is returned when a start address is not page-aligned.
	ErrMisaligned = errors.New(unix.EINVAL, "address is not page-aligned")

	// ErrInvalidPermission is returned when protection bits are empty or
	// carry undefined bits.
	ErrInvalidPermission = errors.New(unix.EINVAL, "invalid protection bits")

	// ErrConflict is returned when mapping over a page that is already
	// mapped.
	ErrConflict = errors.New(unix.EEXIST, "range overlaps an existing mapping")

	// ErrNotMapped is returned when unmapping a page that is not mapped.
	ErrNotMapped = errors.New(unix.EINVAL, "range is not fully mapped")

	// ErrPageFault is returned when user memory cannot be accessed.
	ErrPageFault = errors.New(unix.EFAULT, "bad address")

	// ErrRange is returned when a range wraps or extends beyond the user
	// address space.
	ErrRange = errors.New(unix.ENOMEM, "range outside the user address space")

	// ErrNoMemory is returned when frames cannot be allocated.
	ErrNoMemory = errors.New(unix.ENOMEM, "out of memory")
)

// MemoryManager implements a virtual address space.
//
// MemoryManager is not synchronized. It is mutated only by the task that owns
// it; distinct MemoryManagers may be used concurrently.
type MemoryManager struct {
	// mf provides frames. mf is immutable and shared between address
	// spaces.
	mf *pgalloc.MemoryFile

	// pt holds the page mappings.
	pt *pagetables.PageTables

	// areas records mapped ranges with their permissions, ordered by start
	// address. Areas never overlap; every page in an area is mapped in pt.
	areas *btree.BTreeG[*area]

	// usageAS is the total size of all mapped pages in bytes.
	usageAS uint64

	// brk is the program break. brk.Start is the heap bottom and brk.End is
	// the current break. Pages in [RoundUp(brk.Start), RoundUp(brk.End)) are
	// mapped.
	brk hostarch.AddrRange
}

// NewMemoryManager returns a new, empty MemoryManager that allocates frames
// from mf.
func NewMemoryManager(mf *pgalloc.MemoryFile) *MemoryManager {
	return &MemoryManager{
		mf:    mf,
		pt:    pagetables.New(),
		areas: newAreaSet(),
	}
}

// MemoryFile returns the frame allocator used by mm.
func (mm *MemoryManager) MemoryFile() *pgalloc.MemoryFile {
	return mm.mf
}

// VirtualMemorySize returns the size in bytes of all mapped pages.
func (mm *MemoryManager) VirtualMemorySize() uint64 {
	return mm.usageAS
}

// ResidentSetSize returns the number of bytes backed by frames. Every mapped
// page owns a frame, so this equals VirtualMemorySize.
func (mm *MemoryManager) ResidentSetSize() uint64 {
	return mm.usageAS
}

// Release unmaps every page and returns all frames to the MemoryFile. mm may
// be reused as an empty address space afterward.
func (mm *MemoryManager) Release(ctx context.Context) {
	var frames []uintptr
	mm.pt.Walk(0, pagetables.MaxUserAddress, func(_ hostarch.Addr, physical uintptr, _ pagetables.MapOpts) {
		frames = append(frames, physical)
	})
	for _, f := range frames {
		mm.mf.Free(f)
	}
	mm.pt.Release()
	mm.areas.Clear(false)
	mm.usageAS = 0
	mm.brk = hostarch.AddrRange{}
	ctx.Debugf("Released address space: %d frames returned", len(frames))
}
