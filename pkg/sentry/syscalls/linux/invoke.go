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
	"gvisor.dev/vmem/pkg/abi/linux"
	"gvisor.dev/vmem/pkg/errors/linuxerr"
	"gvisor.dev/vmem/pkg/log"
	"gvisor.dev/vmem/pkg/sentry/arch"
	"gvisor.dev/vmem/pkg/sentry/kernel"
)

// Invoke executes syscall sysno on behalf of t and returns the value seen by
// user code. Every failure, whatever its cause, is reported as -1; the
// underlying error is logged at debug level.
//
// The invocation is counted before it executes, so task_info includes the
// call that requested it.
func Invoke(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) int64 {
	t.CountSyscall(sysno)
	if s := t.Status(); s != linux.TaskRunning {
		t.Debugf("Syscall %d from task in state %v", sysno, s)
		return -1
	}
	fn := Table.Lookup(sysno)
	if fn == nil {
		t.Debugf("Unknown syscall %d", sysno)
		return -1
	}
	rval, err := fn(t, sysno, args)
	if err != nil {
		if t.IsLogging(log.Debug) {
			t.Debugf("%s(%v) failed: %v (errno %d)", Table.LookupName(sysno), args, err, linuxerr.ErrnoOf(err))
		}
		return -1
	}
	return int64(rval)
}
