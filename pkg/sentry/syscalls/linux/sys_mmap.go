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

package linux

import (
	"gvisor.dev/vmem/pkg/sentry/arch"
	"gvisor.dev/vmem/pkg/sentry/kernel"
)

// Mmap implements mmap(2) for anonymous fixed mappings: map length bytes at
// addr with protection prot.
func Mmap(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	addr := args[0].Pointer()
	length := args[1].Uint64()
	prot := args[2].Uint64()

	return 0, t.MemoryManager().MMap(t, addr, length, prot)
}

// Munmap implements munmap(2).
func Munmap(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	return 0, t.MemoryManager().MUnmap(t, args[0].Pointer(), args[1].Uint64())
}

// Sbrk implements sbrk: move the program break by a signed delta and return
// the previous break.
func Sbrk(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	old, err := t.MemoryManager().Sbrk(t, int64(args[0].Int()))
	if err != nil {
		return 0, err
	}
	return uintptr(old), nil
}
