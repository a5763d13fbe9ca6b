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

// Package linux provides the syscall table and the syscall implementations
// that operate on user memory.
package linux

import (
	"gvisor.dev/vmem/pkg/errors/linuxerr"
	"gvisor.dev/vmem/pkg/sentry/kernel"
	"gvisor.dev/vmem/pkg/sentry/syscalls"
)

// TableName is the name under which Table is registered.
const TableName = "linux"

// Table is the syscall table, keyed by syscall number. The numbers follow the
// RISC-V Linux ABI. The entries returning ENOSYS are those syscalls we don't
// currently support.
var Table = &kernel.SyscallTable{
	Name: TableName,
	Table: map[uintptr]kernel.Syscall{
		64:  syscalls.ErrorWithEvent("write", linuxerr.ENOSYS, "No file descriptors."),
		93:  syscalls.PartiallySupported("exit", Exit, "Exit code is logged and discarded."),
		124: syscalls.PartiallySupported("sched_yield", SchedYield, "No scheduler; returns immediately."),
		140: syscalls.Error("setpriority", linuxerr.ENOSYS, "No scheduler."),
		169: syscalls.PartiallySupported("get_time", GetTime, "Time zone argument is ignored."),
		172: syscalls.Supported("getpid", Getpid),
		214: syscalls.Supported("sbrk", Sbrk),
		215: syscalls.Supported("munmap", Munmap),
		220: syscalls.ErrorWithEvent("fork", linuxerr.ENOSYS, "Tasks are created by the kernel."),
		221: syscalls.ErrorWithEvent("exec", linuxerr.ENOSYS, "No program loader."),
		222: syscalls.PartiallySupported("mmap", Mmap, "Anonymous fixed mappings only."),
		260: syscalls.ErrorWithEvent("waitpid", linuxerr.ENOSYS, "Tasks are reaped by the kernel."),
		400: syscalls.ErrorWithEvent("spawn", linuxerr.ENOSYS, "No program loader."),
		410: syscalls.Supported("task_info", TaskInfo),
	},
}

func init() {
	kernel.RegisterSyscallTable(Table)
}
