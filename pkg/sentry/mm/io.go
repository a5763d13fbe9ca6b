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
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/marshal"
	"gvisor.dev/vmem/pkg/ring0/pagetables"
	"gvisor.dev/vmem/pkg/safemem"
	"gvisor.dev/vmem/pkg/sentry/context"
	"gvisor.dev/vmem/pkg/usermem"
)

// Translate returns the frame memory backing [addr, addr+length) as one block
// per page touched, in address order. The first and last blocks are clipped
// to the range. A zero length yields an empty sequence.
//
// Translate does not consult page permissions. If any page in the range is
// unmapped, or the range leaves the user address space, Translate returns
// ErrPageFault and no blocks.
func (mm *MemoryManager) Translate(ctx context.Context, addr hostarch.Addr, length uint64) (safemem.BlockSeq, error) {
	return mm.translate(addr, length, hostarch.NoAccess, true)
}

// translate implements Translate. Unless ignorePermissions is true, every
// page must also permit at.
func (mm *MemoryManager) translate(addr hostarch.Addr, length uint64, at hostarch.AccessType, ignorePermissions bool) (safemem.BlockSeq, error) {
	if length == 0 {
		return safemem.BlockSeq{}, nil
	}
	end, ok := addr.AddLength(length)
	if !ok || end > pagetables.MaxUserAddress {
		return safemem.BlockSeq{}, ErrPageFault
	}

	blocks := make([]safemem.Block, 0, hostarch.AddrRange{Start: addr.RoundDown(), End: end}.NumPages())
	for cur := addr; cur < end; {
		next := min(cur.RoundDown()+hostarch.PageSize, end)
		physical, opts, ok := mm.pt.Lookup(cur)
		if !ok {
			return safemem.BlockSeq{}, ErrPageFault
		}
		if !ignorePermissions && !opts.AccessType.SupersetOf(at) {
			return safemem.BlockSeq{}, ErrPageFault
		}
		blocks = append(blocks, safemem.BlockFromSafeSlice(mm.mf.Slice(physical, uint64(next-cur))))
		cur = next
	}
	return safemem.BlockSeqFromSlice(blocks), nil
}

// CopyOut implements usermem.IO.CopyOut. Either all of src is copied or no
// user memory is modified.
func (mm *MemoryManager) CopyOut(ctx context.Context, addr hostarch.Addr, src []byte, opts usermem.IOOpts) (int, error) {
	ims, err := mm.translate(addr, uint64(len(src)), hostarch.Write, opts.IgnorePermissions)
	if err != nil {
		return 0, err
	}
	n, err := safemem.CopySeq(ims, safemem.BlockSeqOf(safemem.BlockFromSafeSlice(src)))
	return int(n), err
}

// CopyIn implements usermem.IO.CopyIn. Either all of dst is filled or dst is
// untouched.
func (mm *MemoryManager) CopyIn(ctx context.Context, addr hostarch.Addr, dst []byte, opts usermem.IOOpts) (int, error) {
	ims, err := mm.translate(addr, uint64(len(dst)), hostarch.Read, opts.IgnorePermissions)
	if err != nil {
		return 0, err
	}
	n, err := safemem.CopySeq(safemem.BlockSeqOf(safemem.BlockFromSafeSlice(dst)), ims)
	return int(n), err
}

// ZeroOut implements usermem.IO.ZeroOut.
func (mm *MemoryManager) ZeroOut(ctx context.Context, addr hostarch.Addr, toZero int64, opts usermem.IOOpts) (int64, error) {
	if toZero < 0 {
		return 0, ErrPageFault
	}
	ims, err := mm.translate(addr, uint64(toZero), hostarch.Write, opts.IgnorePermissions)
	if err != nil {
		return 0, err
	}
	n, err := safemem.ZeroSeq(ims)
	return int64(n), err
}

// CopyOutObject marshals src into the memory at addr. Records spanning
// several pages are split across their frames.
func (mm *MemoryManager) CopyOutObject(ctx context.Context, addr hostarch.Addr, src marshal.Marshallable, opts usermem.IOOpts) (int, error) {
	return usermem.CopyObjectOut(ctx, mm, addr, src, opts)
}

// CopyInObject unmarshals dst from the memory at addr.
func (mm *MemoryManager) CopyInObject(ctx context.Context, addr hostarch.Addr, dst marshal.Marshallable, opts usermem.IOOpts) (int, error) {
	return usermem.CopyObjectIn(ctx, mm, addr, dst, opts)
}
