// Copyright 2026 The gVisor Authors.
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

// TaskInfo writes the calling task's status record at args[0].
func TaskInfo(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	info := t.TaskInfo()
	if _, err := t.CopyOut(args[0].Pointer(), &info); err != nil {
		return 0, err
	}
	return 0, nil
}

// Getpid returns the calling task's thread ID.
func Getpid(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	return uintptr(t.ThreadID()), nil
}

// SchedYield returns immediately.
func SchedYield(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	return 0, nil
}

// Exit terminates the calling task and releases its address space.
func Exit(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	t.Debugf("Exit with code %d", args[0].Int())
	t.Exit()
	return 0, nil
}
