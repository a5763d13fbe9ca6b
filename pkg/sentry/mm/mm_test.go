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
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"gvisor.dev/vmem/pkg/abi/linux"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/ring0/pagetables"
	"gvisor.dev/vmem/pkg/sentry/context"
	"gvisor.dev/vmem/pkg/sentry/context/contexttest"
	"gvisor.dev/vmem/pkg/sentry/pgalloc"
	"gvisor.dev/vmem/pkg/usermem"
)

const page = hostarch.PageSize

func testMemoryManager(ctx context.Context) *MemoryManager {
	return NewMemoryManager(pgalloc.MemoryFileFromContext(ctx))
}

// snapshot returns every mapped page of mm with its frame and options.
func (mm *MemoryManager) snapshot() map[hostarch.Addr]pagetables.MapOpts {
	pages := make(map[hostarch.Addr]pagetables.MapOpts)
	mm.pt.Walk(0, pagetables.MaxUserAddress, func(addr hostarch.Addr, _ uintptr, opts pagetables.MapOpts) {
		pages[addr] = opts
	})
	return pages
}

func (mm *MemoryManager) realUsageAS() uint64 {
	return uint64(len(mm.snapshot())) * page
}

func mustMMap(ctx context.Context, t *testing.T, mm *MemoryManager, addr hostarch.Addr, length, prot uint64) {
	t.Helper()
	if err := mm.MMap(ctx, addr, length, prot); err != nil {
		t.Fatalf("MMap(%#x, %#x, %#x) failed: %v", addr, length, prot, err)
	}
}

func TestExampleScenario(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	if err := mm.MMap(ctx, 0x1000, 0x2000, linux.PROT_READ|linux.PROT_WRITE); err != nil {
		t.Fatalf("MMap(0x1000, 0x2000, RW) = %v, want nil", err)
	}
	rwu := pagetables.MapOpts{AccessType: hostarch.ReadWrite, User: true}
	want := map[hostarch.Addr]pagetables.MapOpts{0x1000: rwu, 0x2000: rwu}
	if diff := cmp.Diff(want, mm.snapshot()); diff != "" {
		t.Fatalf("pages after MMap mismatch (-want +got):\n%s", diff)
	}

	if err := mm.MMap(ctx, 0x2000, 0x1000, linux.PROT_READ); err != ErrConflict {
		t.Errorf("MMap(0x2000, 0x1000, R) = %v, want %v", err, ErrConflict)
	}
	if err := mm.MUnmap(ctx, 0x1000, 0x2000); err != nil {
		t.Errorf("MUnmap(0x1000, 0x2000) = %v, want nil", err)
	}
	if err := mm.MUnmap(ctx, 0x1000, 0x2000); err != ErrNotMapped {
		t.Errorf("second MUnmap(0x1000, 0x2000) = %v, want %v", err, ErrNotMapped)
	}
	if got := mm.MemoryFile().Stats().Used; got != 0 {
		t.Errorf("frames in use after unmap = %d, want 0", got)
	}
}

func TestMMapEveryPermission(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	for prot := uint64(1); prot <= 7; prot++ {
		addr := hostarch.Addr(prot) * 0x10000
		mustMMap(ctx, t, mm, addr, 3*page, prot)
		want := pagetables.MapOpts{
			AccessType: hostarch.AccessType{
				Read:    prot&1 != 0,
				Write:   prot&2 != 0,
				Execute: prot&4 != 0,
			},
			User: true,
		}
		for i := hostarch.Addr(0); i < 3; i++ {
			_, opts, ok := mm.pt.Lookup(addr + i*page)
			if !ok {
				t.Fatalf("page %#x not mapped", addr+i*page)
			}
			if opts != want {
				t.Errorf("page %#x opts = %v, want %v", addr+i*page, opts, want)
			}
		}
		if _, err := mm.Translate(ctx, addr, 3*page); err != nil {
			t.Errorf("Translate(%#x, 3 pages) = %v, want nil", addr, err)
		}
	}
	if got, want := mm.VirtualMemorySize(), uint64(7*3*page); got != want {
		t.Errorf("VirtualMemorySize() = %d, want %d", got, want)
	}
}

func TestMMapUnalignedLengthCoversPartialPage(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x4000, page+1, linux.PROT_READ)
	if got := len(mm.snapshot()); got != 2 {
		t.Errorf("mapped pages = %d, want 2", got)
	}
}

func TestMMapZeroLength(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	for _, addr := range []hostarch.Addr{0, 0x1000, 0x7fff0000} {
		if err := mm.MMap(ctx, addr, 0, linux.PROT_READ); err != nil {
			t.Errorf("MMap(%#x, 0, R) = %v, want nil", addr, err)
		}
	}
	if got := len(mm.snapshot()); got != 0 {
		t.Errorf("mapped pages = %d, want 0", got)
	}
	if bs, err := mm.Translate(ctx, 0x1000, 0); err != nil || !bs.IsEmpty() {
		t.Errorf("Translate(0x1000, 0) = (%v, %v), want empty sequence", bs, err)
	}
}

func TestMMapValidationOrder(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)
	mustMMap(ctx, t, mm, 0x10000, page, linux.PROT_READ)

	for _, tc := range []struct {
		name   string
		addr   hostarch.Addr
		length uint64
		prot   uint64
		want   error
	}{
		{"misaligned", 0x10001, page, linux.PROT_READ, ErrMisaligned},
		{"misaligned beats bad prot", 0x10001, page, 0, ErrMisaligned},
		{"misaligned zero length", 0x10001, 0, linux.PROT_READ, ErrMisaligned},
		{"no permission", 0x20000, page, 0, ErrInvalidPermission},
		{"undefined bit", 0x20000, page, 1 << 3, ErrInvalidPermission},
		{"high bit", 0x20000, page, linux.PROT_READ | 1<<40, ErrInvalidPermission},
		{"bad prot zero length", 0x20000, 0, 8, ErrInvalidPermission},
		{"bad prot beats conflict", 0x10000, page, 0, ErrInvalidPermission},
		{"conflict", 0x10000, page, linux.PROT_WRITE, ErrConflict},
		{"beyond user space", pagetables.MaxUserAddress - page, 2 * page, linux.PROT_READ, ErrRange},
		{"wraps", ^hostarch.Addr(page - 1), 2 * page, linux.PROT_READ, ErrRange},
	} {
		t.Run(tc.name, func(t *testing.T) {
			before := mm.snapshot()
			if err := mm.MMap(ctx, tc.addr, tc.length, tc.prot); err != tc.want {
				t.Errorf("MMap(%#x, %#x, %#x) = %v, want %v", tc.addr, tc.length, tc.prot, err, tc.want)
			}
			if diff := cmp.Diff(before, mm.snapshot()); diff != "" {
				t.Errorf("failed MMap changed the address space (-before +after):\n%s", diff)
			}
		})
	}
}

func TestMMapOverlapLeavesOriginalIntact(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x8000, 2*page, linux.PROT_READ|linux.PROT_WRITE)
	if _, err := mm.CopyOut(ctx, 0x8000, []byte("original"), usermem.IOOpts{}); err != nil {
		t.Fatalf("CopyOut failed: %v", err)
	}
	before := mm.snapshot()
	used := mm.MemoryFile().Stats().Used

	// The new range starts before and ends inside the original mapping.
	if err := mm.MMap(ctx, 0x6000, 3*page, linux.PROT_EXEC); err != ErrConflict {
		t.Fatalf("overlapping MMap = %v, want %v", err, ErrConflict)
	}
	if diff := cmp.Diff(before, mm.snapshot()); diff != "" {
		t.Errorf("overlapping MMap changed the address space (-before +after):\n%s", diff)
	}
	if got := mm.MemoryFile().Stats().Used; got != used {
		t.Errorf("frames in use = %d, want %d", got, used)
	}
	buf := make([]byte, len("original"))
	if _, err := mm.CopyIn(ctx, 0x8000, buf, usermem.IOOpts{}); err != nil || string(buf) != "original" {
		t.Errorf("CopyIn = (%q, %v), want original contents", buf, err)
	}
}

func TestMMapOutOfFrames(t *testing.T) {
	ctx := contexttest.WithFrames(t, 4)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x1000, 2*page, linux.PROT_READ)
	if err := mm.MMap(ctx, 0x10000, 3*page, linux.PROT_READ); err != ErrNoMemory {
		t.Fatalf("MMap beyond frame supply = %v, want %v", err, ErrNoMemory)
	}
	if got := len(mm.snapshot()); got != 2 {
		t.Errorf("mapped pages = %d, want 2", got)
	}
	if got := mm.MemoryFile().Stats().Used; got != 2 {
		t.Errorf("frames in use = %d, want 2", got)
	}
	// The remaining frames are still usable.
	mustMMap(ctx, t, mm, 0x10000, 2*page, linux.PROT_READ)
}

func TestMUnmapThenTranslateFaults(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x30000, 4*page, linux.PROT_READ|linux.PROT_WRITE)
	if err := mm.MUnmap(ctx, 0x30000, 4*page); err != nil {
		t.Fatalf("MUnmap failed: %v", err)
	}
	for addr := hostarch.Addr(0x30000); addr < 0x34000; addr += 0x800 {
		if _, err := mm.Translate(ctx, addr, 1); err != ErrPageFault {
			t.Errorf("Translate(%#x, 1) = %v, want %v", addr, err, ErrPageFault)
		}
	}
	if got := mm.VirtualMemorySize(); got != 0 {
		t.Errorf("VirtualMemorySize() = %d, want 0", got)
	}
}

func TestMUnmapPartiallyMapped(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x1000, page, linux.PROT_READ)
	mustMMap(ctx, t, mm, 0x3000, page, linux.PROT_READ)
	before := mm.snapshot()

	if err := mm.MUnmap(ctx, 0x1000, 3*page); err != ErrNotMapped {
		t.Fatalf("MUnmap over hole = %v, want %v", err, ErrNotMapped)
	}
	if diff := cmp.Diff(before, mm.snapshot()); diff != "" {
		t.Errorf("failed MUnmap changed the address space (-before +after):\n%s", diff)
	}
}

func TestMUnmapValidation(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	for _, tc := range []struct {
		addr   hostarch.Addr
		length uint64
		want   error
	}{
		{0x1001, page, ErrMisaligned},
		{0x1001, 0, ErrMisaligned},
		{0x1000, 0, nil},
		{pagetables.MaxUserAddress, page, ErrRange},
		{0x1000, page, ErrNotMapped},
	} {
		if err := mm.MUnmap(ctx, tc.addr, tc.length); err != tc.want {
			t.Errorf("MUnmap(%#x, %#x) = %v, want %v", tc.addr, tc.length, err, tc.want)
		}
	}
}

func TestMUnmapSubrangeSplitsArea(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x10000, 4*page, linux.PROT_READ|linux.PROT_WRITE)
	if err := mm.MUnmap(ctx, 0x11000, 2*page); err != nil {
		t.Fatalf("MUnmap failed: %v", err)
	}
	want := []AreaInfo{
		{Range: hostarch.AddrRange{Start: 0x10000, End: 0x11000}, Perms: hostarch.ReadWrite},
		{Range: hostarch.AddrRange{Start: 0x13000, End: 0x14000}, Perms: hostarch.ReadWrite},
	}
	if diff := cmp.Diff(want, mm.Areas()); diff != "" {
		t.Errorf("Areas mismatch (-want +got):\n%s", diff)
	}
	if got, want := mm.VirtualMemorySize(), mm.realUsageAS(); got != want {
		t.Errorf("usageAS believes %d bytes are mapped; %d bytes are actually mapped", got, want)
	}
}

func TestAdjacentAreasMerge(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x12000, page, linux.PROT_READ)
	mustMMap(ctx, t, mm, 0x10000, 2*page, linux.PROT_READ)
	mustMMap(ctx, t, mm, 0x13000, page, linux.PROT_WRITE)
	want := []AreaInfo{
		{Range: hostarch.AddrRange{Start: 0x10000, End: 0x13000}, Perms: hostarch.Read},
		{Range: hostarch.AddrRange{Start: 0x13000, End: 0x14000}, Perms: hostarch.Write},
	}
	if diff := cmp.Diff(want, mm.Areas()); diff != "" {
		t.Errorf("Areas mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateSpansFrames(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	// Interleave a second mapping so the two pages get non-adjacent frames.
	mustMMap(ctx, t, mm, 0x1000, page, linux.PROT_READ|linux.PROT_WRITE)
	mustMMap(ctx, t, mm, 0x9000, page, linux.PROT_READ)
	mustMMap(ctx, t, mm, 0x2000, page, linux.PROT_READ|linux.PROT_WRITE)

	p1, _, _ := mm.pt.Lookup(0x1000)
	p2, _, _ := mm.pt.Lookup(0x2000)
	if p2 == p1+page {
		t.Fatalf("pages backed by adjacent frames %#x and %#x", p1, p2)
	}

	data := []byte("straddles a page boundary")
	addr := hostarch.Addr(0x2000 - 10)
	if n, err := mm.CopyOut(ctx, addr, data, usermem.IOOpts{}); n != len(data) || err != nil {
		t.Fatalf("CopyOut = (%d, %v), want (%d, nil)", n, err, len(data))
	}

	bs, err := mm.Translate(ctx, addr, uint64(len(data)))
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got := bs.NumBlocks(); got != 2 {
		t.Fatalf("Translate returned %d blocks, want 2", got)
	}
	var got []byte
	var lens []int
	for _, b := range bs.Blocks() {
		got = append(got, b.ToSlice()...)
		lens = append(lens, b.Len())
	}
	if !bytes.Equal(got, data) {
		t.Errorf("concatenated blocks = %q, want %q", got, data)
	}
	if diff := cmp.Diff([]int{10, len(data) - 10}, lens); diff != "" {
		t.Errorf("block lengths mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateUnmappedMiddlePage(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x1000, page, linux.PROT_READ)
	mustMMap(ctx, t, mm, 0x3000, page, linux.PROT_READ)
	bs, err := mm.Translate(ctx, 0x1800, 2*page)
	if err != ErrPageFault {
		t.Errorf("Translate over hole = %v, want %v", err, ErrPageFault)
	}
	if !bs.IsEmpty() {
		t.Errorf("Translate over hole returned partial view %v", bs)
	}
}

func TestTranslateOutOfRange(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	for _, tc := range []struct {
		addr   hostarch.Addr
		length uint64
	}{
		{pagetables.MaxUserAddress, 1},
		{pagetables.MaxUserAddress - 1, 2},
		{^hostarch.Addr(0), 2},
	} {
		if _, err := mm.Translate(ctx, tc.addr, tc.length); err != ErrPageFault {
			t.Errorf("Translate(%#x, %d) = %v, want %v", tc.addr, tc.length, err, ErrPageFault)
		}
	}
}

func TestRoundTripLargeRecord(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	// Read+Write without Execute.
	mustMMap(ctx, t, mm, 0x40000, 4*page, linux.PROT_READ|linux.PROT_WRITE)

	info := linux.TaskInfo{Status: linux.TaskRunning, Time: 0x1122334455667788}
	for i := range info.SyscallTimes {
		info.SyscallTimes[i] = uint32(i * 3)
	}
	addr := hostarch.Addr(0x41000 - 7)
	if n, err := mm.CopyOutObject(ctx, addr, &info, usermem.IOOpts{}); n != linux.SizeOfTaskInfo || err != nil {
		t.Fatalf("CopyOutObject = (%d, %v), want (%d, nil)", n, err, linux.SizeOfTaskInfo)
	}
	var got linux.TaskInfo
	if n, err := mm.CopyInObject(ctx, addr, &got, usermem.IOOpts{}); n != linux.SizeOfTaskInfo || err != nil {
		t.Fatalf("CopyInObject = (%d, %v), want (%d, nil)", n, err, linux.SizeOfTaskInfo)
	}
	if diff := cmp.Diff(info, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyPermissions(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x1000, page, linux.PROT_READ)
	mustMMap(ctx, t, mm, 0x2000, page, linux.PROT_WRITE)

	// Spans a read-only page.
	if n, err := mm.CopyOut(ctx, 0x1ffc, []byte("abcdefgh"), usermem.IOOpts{}); n != 0 || err != ErrPageFault {
		t.Errorf("CopyOut to read-only page = (%d, %v), want (0, %v)", n, err, ErrPageFault)
	}
	if n, err := mm.CopyOut(ctx, 0x1ffc, []byte("abcdefgh"), usermem.IOOpts{IgnorePermissions: true}); n != 8 || err != nil {
		t.Errorf("CopyOut ignoring permissions = (%d, %v), want (8, nil)", n, err)
	}
	buf := make([]byte, 4)
	if _, err := mm.CopyIn(ctx, 0x2000, buf, usermem.IOOpts{}); err != ErrPageFault {
		t.Errorf("CopyIn from write-only page = %v, want %v", err, ErrPageFault)
	}
	if _, err := mm.CopyIn(ctx, 0x1ffc, buf, usermem.IOOpts{}); err != nil || string(buf) != "abcd" {
		t.Errorf("CopyIn = (%q, %v), want (\"abcd\", nil)", buf, err)
	}
	if n, err := mm.ZeroOut(ctx, 0x2000, 4, usermem.IOOpts{}); n != 4 || err != nil {
		t.Errorf("ZeroOut = (%d, %v), want (4, nil)", n, err)
	}
}

func TestSbrk(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	const bottom = hostarch.Addr(0x100000)
	mm.BrkSetup(ctx, bottom)

	if old, err := mm.Sbrk(ctx, 100); old != bottom || err != nil {
		t.Fatalf("Sbrk(100) = (%#x, %v), want (%#x, nil)", old, err, bottom)
	}
	if got := len(mm.snapshot()); got != 1 {
		t.Errorf("mapped pages after Sbrk(100) = %d, want 1", got)
	}
	if old, err := mm.Sbrk(ctx, 2*page); old != bottom+100 || err != nil {
		t.Fatalf("Sbrk(2 pages) = (%#x, %v), want (%#x, nil)", old, err, bottom+100)
	}
	if got := mm.Brk(); got != bottom+100+2*page {
		t.Errorf("Brk() = %#x, want %#x", got, bottom+100+2*page)
	}
	want := []AreaInfo{{
		Range: hostarch.AddrRange{Start: bottom, End: bottom + 3*page},
		Perms: hostarch.ReadWrite,
		Name:  "[heap]",
	}}
	if diff := cmp.Diff(want, mm.Areas()); diff != "" {
		t.Errorf("Areas mismatch (-want +got):\n%s", diff)
	}

	// Heap memory is usable.
	if _, err := mm.CopyOut(ctx, bottom+page, []byte("heap"), usermem.IOOpts{}); err != nil {
		t.Errorf("CopyOut to heap failed: %v", err)
	}

	// Shrinking unmaps pages no longer covered.
	if _, err := mm.Sbrk(ctx, -int64(2*page)); err != nil {
		t.Fatalf("Sbrk(-2 pages) failed: %v", err)
	}
	if got := len(mm.snapshot()); got != 1 {
		t.Errorf("mapped pages after shrink = %d, want 1", got)
	}

	// The break cannot move below the heap bottom.
	if old, err := mm.Sbrk(ctx, -200); err == nil || old != bottom+100 {
		t.Errorf("Sbrk(-200) = (%#x, %v), want (%#x, error)", old, err, bottom+100)
	}
	if got := mm.Brk(); got != bottom+100 {
		t.Errorf("Brk() after failed shrink = %#x, want %#x", got, bottom+100)
	}

	if _, err := mm.Sbrk(ctx, -100); err != nil {
		t.Fatalf("Sbrk(-100) failed: %v", err)
	}
	if got := len(mm.snapshot()); got != 0 {
		t.Errorf("mapped pages with empty heap = %d, want 0", got)
	}
}

func TestSbrkConflict(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mm.BrkSetup(ctx, 0x100000)
	mustMMap(ctx, t, mm, 0x101000, page, linux.PROT_READ)
	if _, err := mm.Sbrk(ctx, 2*page); err != ErrConflict {
		t.Errorf("Sbrk into mapping = %v, want %v", err, ErrConflict)
	}
	if got := mm.Brk(); got != 0x100000 {
		t.Errorf("Brk() after failed Sbrk = %#x, want 0x100000", got)
	}
	if got := len(mm.snapshot()); got != 1 {
		t.Errorf("mapped pages = %d, want 1", got)
	}
}

func TestWriteMaps(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)
	defer mm.Release(ctx)

	mustMMap(ctx, t, mm, 0x10000, 2*page, linux.PROT_READ|linux.PROT_EXEC)
	mm.BrkSetup(ctx, 0x20000)
	if _, err := mm.Sbrk(ctx, page); err != nil {
		t.Fatalf("Sbrk failed: %v", err)
	}

	var b strings.Builder
	if err := mm.WriteMaps(&b); err != nil {
		t.Fatalf("WriteMaps failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("WriteMaps wrote %d lines, want 2:\n%s", len(lines), b.String())
	}
	if want := "00010000-00012000 r-xp 00000000 00:00 0 "; lines[0] != want {
		t.Errorf("line 0 = %q, want %q", lines[0], want)
	}
	prefix := "00020000-00021000 rw-p 00000000 00:00 0 "
	if !strings.HasPrefix(lines[1], prefix) || !strings.HasSuffix(lines[1], "[heap]") {
		t.Errorf("line 1 = %q, want %q...[heap]", lines[1], prefix)
	}
	if got := strings.Index(lines[1], "[heap]"); got != 73 {
		t.Errorf("[heap] at column %d, want 73", got)
	}
}

func TestRelease(t *testing.T) {
	ctx := contexttest.Context(t)
	mm := testMemoryManager(ctx)

	mustMMap(ctx, t, mm, 0x1000, 8*page, linux.PROT_READ)
	mm.BrkSetup(ctx, 0x100000)
	mm.Sbrk(ctx, 3*page)
	mm.Release(ctx)

	if got := mm.MemoryFile().Stats().Used; got != 0 {
		t.Errorf("frames in use after Release = %d, want 0", got)
	}
	if got := len(mm.Areas()); got != 0 {
		t.Errorf("areas after Release = %d, want 0", got)
	}
	// The address space is reusable.
	mustMMap(ctx, t, mm, 0x1000, page, linux.PROT_READ)
	mm.Release(ctx)
}

func TestIndependentAddressSpaces(t *testing.T) {
	ctx := contexttest.WithFrames(t, 1024)
	const spaces = 8

	var g errgroup.Group
	for i := 0; i < spaces; i++ {
		g.Go(func() error {
			mm := testMemoryManager(ctx)
			defer mm.Release(context.Background())
			msg := []byte(fmt.Sprintf("address space %d", i))
			for round := 0; round < 20; round++ {
				if err := mm.MMap(context.Background(), 0x1000, 4*page, linux.PROT_READ|linux.PROT_WRITE); err != nil {
					return fmt.Errorf("space %d round %d: MMap: %w", i, round, err)
				}
				if _, err := mm.CopyOut(context.Background(), 0x2ff8, msg, usermem.IOOpts{}); err != nil {
					return fmt.Errorf("space %d round %d: CopyOut: %w", i, round, err)
				}
				got := make([]byte, len(msg))
				if _, err := mm.CopyIn(context.Background(), 0x2ff8, got, usermem.IOOpts{}); err != nil {
					return fmt.Errorf("space %d round %d: CopyIn: %w", i, round, err)
				}
				if !bytes.Equal(got, msg) {
					return fmt.Errorf("space %d round %d: read %q, want %q", i, round, got, msg)
				}
				if err := mm.MUnmap(context.Background(), 0x1000, 4*page); err != nil {
					return fmt.Errorf("space %d round %d: MUnmap: %w", i, round, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := pgalloc.MemoryFileFromContext(ctx).Stats().Used; got != 0 {
		t.Errorf("frames in use = %d, want 0", got)
	}
}
