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

// Package syscalls is the interface from the application to the kernel.
//
// Note that the stubs in this package may merely provide the interface, not
// the actual implementation. It just makes writing syscall stubs
// straightforward.
package syscalls

import (
	"time"

	"gvisor.dev/vmem/pkg/errors/linuxerr"
	"gvisor.dev/vmem/pkg/log"
	"gvisor.dev/vmem/pkg/sentry/arch"
	"gvisor.dev/vmem/pkg/sentry/kernel"
)

// Supported returns a syscall that is fully supported.
func Supported(name string, fn kernel.SyscallFn) kernel.Syscall {
	return kernel.Syscall{
		Name:         name,
		Fn:           fn,
		SupportLevel: kernel.SupportFull,
		Note:         "Fully Supported.",
	}
}

// PartiallySupported returns a syscall that has a partial implementation.
func PartiallySupported(name string, fn kernel.SyscallFn, note string) kernel.Syscall {
	return kernel.Syscall{
		Name:         name,
		Fn:           fn,
		SupportLevel: kernel.SupportPartial,
		Note:         note,
	}
}

// Error returns a syscall handler that will always give the passed error.
func Error(name string, err error, note string) kernel.Syscall {
	if note != "" {
		note = note + "; "
	}
	return kernel.Syscall{
		Name: name,
		Fn: func(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
			return 0, err
		},
		SupportLevel: kernel.SupportUnimplemented,
		Note:         note + "Returns " + err.Error() + ".",
	}
}

// ErrorWithEvent gives a syscall function that logs the unimplemented call
// and returns the passed error.
func ErrorWithEvent(name string, err error, note string) kernel.Syscall {
	sc := Error(name, err, note)
	sc.Fn = func(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
		UnimplementedEvent(t, sysno)
		return 0, err
	}
	return sc
}

// unimplementedLog limits warnings about unimplemented syscalls to one per
// second.
var unimplementedLog = log.BasicRateLimitedLogger(time.Second)

// UnimplementedEvent records a call to an unimplemented syscall.
func UnimplementedEvent(t *kernel.Task, sysno uintptr) {
	if unimplementedLog.IsLogging(log.Warning) {
		unimplementedLog.Warningf(log.TaskPrefix(int32(t.ThreadID()))+"Unimplemented syscall %d", sysno)
	}
}

// NotImplemented is the error returned for syscalls with no entry in a table.
var NotImplemented = linuxerr.ENOSYS
