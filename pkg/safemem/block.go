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

// Package safemem provides scatter-gather views over kernel-accessible memory.
//
// A user buffer that crosses a page boundary is generally backed by frames
// that are not adjacent in physical memory. safemem represents such a buffer
// as a BlockSeq, an ordered list of Blocks, and all copying is performed
// Block by Block; callers must never assume that a BlockSeq is contiguous.
package safemem

import (
	"fmt"
)

// A Block is a range of contiguous bytes.
//
// Blocks are immutable and may be copied by value. The zero value of Block
// represents an empty range.
type Block struct {
	data []byte
}

// BlockFromSafeSlice returns a Block equivalent to slice.
func BlockFromSafeSlice(slice []byte) Block {
	return Block{data: slice}
}

// DropFirst returns a Block equivalent to b, but with the first n bytes
// omitted. It is analogous to the [n:] operation on a slice, except that if n
// > b.Len(), DropFirst returns an empty Block instead of panicking.
//
// Preconditions: n >= 0.
func (b Block) DropFirst(n int) Block {
	if n < 0 {
		panic(fmt.Sprintf("invalid n: %d", n))
	}
	return b.DropFirst64(uint64(n))
}

// DropFirst64 is equivalent to DropFirst but takes a uint64.
func (b Block) DropFirst64(n uint64) Block {
	if n >= uint64(len(b.data)) {
		return Block{}
	}
	return Block{data: b.data[n:]}
}

// TakeFirst returns a Block equivalent to the first n bytes of b. It is
// analogous to the [:n] operation on a slice, except that if n > b.Len(),
// TakeFirst returns a copy of b instead of panicking.
//
// Preconditions: n >= 0.
func (b Block) TakeFirst(n int) Block {
	if n < 0 {
		panic(fmt.Sprintf("invalid n: %d", n))
	}
	return b.TakeFirst64(uint64(n))
}

// TakeFirst64 is equivalent to TakeFirst but takes a uint64.
func (b Block) TakeFirst64(n uint64) Block {
	if n == 0 {
		return Block{}
	}
	if n >= uint64(len(b.data)) {
		return b
	}
	return Block{data: b.data[:n:n]}
}

// ToSlice returns a []byte equivalent to b.
func (b Block) ToSlice() []byte {
	return b.data
}

// Len returns the length of b in bytes.
func (b Block) Len() int {
	return len(b.data)
}

// String implements fmt.Stringer.String.
func (b Block) String() string {
	if len(b.data) == 0 {
		return "<nil>"
	}
	return fmt.Sprintf("[%p:%p]", &b.data[0], &b.data[len(b.data)-1])
}

// Copy copies src.Len() or dst.Len() bytes, whichever is less, from src
// to dst and returns the number of bytes copied.
//
// If src and dst overlap, the data stored in dst is unspecified.
func Copy(dst, src Block) (int, error) {
	return copy(dst.data, src.data), nil
}

// Zero sets all bytes in dst to 0 and returns the number of bytes zeroed.
func Zero(dst Block) (int, error) {
	clear(dst.data)
	return len(dst.data), nil
}
