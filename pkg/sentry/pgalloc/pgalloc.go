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

// Package pgalloc contains the page allocator subsystem, which provides
// allocatable memory that may be mapped into user address spaces.
package pgalloc

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"

	"gvisor.dev/vmem/pkg/errors"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/log"
)

// ErrOutOfFrames is returned by Allocate when every frame is in use.
var ErrOutOfFrames = errors.New(unix.ENOMEM, "out of physical frames")

// MemoryFile is a fixed pool of page-sized frames whose pages may be allocated
// to arbitrary users.
//
// A frame is identified by its physical address: its byte offset into the
// pool. Each frame is either free or used; used frames are owned by exactly
// one page table entry.
type MemoryFile struct {
	// mu protects the fields below.
	mu sync.Mutex

	// mapping is the host mapping backing every frame. It is nil after
	// Destroy.
	mapping mmap.MMap

	// used has one bit per frame, set iff the frame is allocated.
	used *bitset.BitSet

	// frames is the total number of frames.
	frames uint

	// next is the frame index at which the next search starts.
	next uint

	// allocations and frees count calls to Allocate and Free over the
	// lifetime of the file.
	allocations uint64
	frees       uint64
}

// MemoryFileOpts provides options to NewMemoryFile.
type MemoryFileOpts struct {
	// Frames is the number of frames in the pool. It must be non-zero.
	Frames uint
}

// NewMemoryFile creates a MemoryFile backed by an anonymous host mapping.
func NewMemoryFile(opts MemoryFileOpts) (*MemoryFile, error) {
	if opts.Frames == 0 {
		return nil, fmt.Errorf("memory file must contain at least one frame")
	}
	size := opts.Frames * hostarch.PageSize
	if size/hostarch.PageSize != opts.Frames {
		return nil, fmt.Errorf("memory file size overflows: %d frames", opts.Frames)
	}
	m, err := mmap.MapRegion(nil, int(size), mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to map %d bytes of frame memory: %w", size, err)
	}
	log.Debugf("Created memory file with %d frames", opts.Frames)
	return &MemoryFile{
		mapping: m,
		used:    bitset.New(opts.Frames),
		frames:  opts.Frames,
	}, nil
}

// Allocate returns the physical address of a zeroed frame.
func (f *MemoryFile) Allocate() (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mapping == nil {
		panic("pgalloc: Allocate on destroyed MemoryFile")
	}

	idx, ok := f.used.NextClear(f.next)
	if !ok || idx >= f.frames {
		idx, ok = f.used.NextClear(0)
		if !ok || idx >= f.frames {
			return 0, ErrOutOfFrames
		}
	}
	f.used.Set(idx)
	f.next = idx + 1
	f.allocations++

	physical := uintptr(idx) * hostarch.PageSize
	clear(f.mapping[physical : physical+hostarch.PageSize])
	return physical, nil
}

// Free returns the frame at physical to the pool.
//
// Preconditions: physical was returned by Allocate and has not been freed
// since.
func (f *MemoryFile) Free(physical uintptr) {
	idx := f.checkFrame(physical)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.used.Test(idx) {
		panic(fmt.Sprintf("pgalloc: double free of frame %#x", physical))
	}
	f.used.Clear(idx)
	f.frees++
}

// Slice returns the bytes of the frame containing physical, starting at
// physical and extending length bytes.
//
// Preconditions: [physical, physical+length) lies within a single frame.
func (f *MemoryFile) Slice(physical uintptr, length uint64) []byte {
	f.checkFrame(physical &^ (hostarch.PageSize - 1))
	if physical%hostarch.PageSize+uintptr(length) > hostarch.PageSize {
		panic(fmt.Sprintf("pgalloc: slice [%#x, +%#x) crosses a frame boundary", physical, length))
	}
	f.mu.Lock()
	m := f.mapping
	f.mu.Unlock()
	return m[physical : physical+uintptr(length) : physical+uintptr(length)]
}

func (f *MemoryFile) checkFrame(physical uintptr) uint {
	if physical%hostarch.PageSize != 0 {
		panic(fmt.Sprintf("pgalloc: unaligned frame address %#x", physical))
	}
	idx := uint(physical / hostarch.PageSize)
	if idx >= f.frames {
		panic(fmt.Sprintf("pgalloc: frame %#x out of range", physical))
	}
	return idx
}

// Stats describes the usage of a MemoryFile.
type Stats struct {
	// Total is the number of frames in the file.
	Total uint64

	// Used is the number of frames currently allocated.
	Used uint64

	// Allocations and Frees count calls to Allocate and Free.
	Allocations uint64
	Frees       uint64
}

// Stats returns the current usage of f.
func (f *MemoryFile) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Total:       uint64(f.frames),
		Used:        uint64(f.used.Count()),
		Allocations: f.allocations,
		Frees:       f.frees,
	}
}

// TotalSize returns the size of the file in bytes.
func (f *MemoryFile) TotalSize() uint64 {
	return uint64(f.frames) * hostarch.PageSize
}

// Destroy releases the host mapping. f must not be used afterward.
func (f *MemoryFile) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mapping == nil {
		return
	}
	if n := f.used.Count(); n != 0 {
		log.Warningf("Destroying memory file with %d frames still in use", n)
	}
	if err := f.mapping.Unmap(); err != nil {
		log.Warningf("Failed to unmap memory file: %v", err)
	}
	f.mapping = nil
}
