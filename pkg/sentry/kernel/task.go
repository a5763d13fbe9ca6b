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

package kernel

import (
	"fmt"
	"sync"
	"time"

	"gvisor.dev/vmem/pkg/abi/linux"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/log"
	"gvisor.dev/vmem/pkg/marshal"
	"gvisor.dev/vmem/pkg/sentry/ktime"
	"gvisor.dev/vmem/pkg/sentry/mm"
	"gvisor.dev/vmem/pkg/sentry/pgalloc"
	"gvisor.dev/vmem/pkg/usermem"
)

// Task represents a thread of execution and its address space.
//
// A Task's address space is only touched by the goroutine acting on the
// task's behalf. The fields under mu may be read by others.
type Task struct {
	k *Kernel

	// tid is immutable.
	tid ThreadID

	// logPrefix is prepended to log messages emitted on t's behalf.
	// logPrefix is immutable.
	logPrefix string

	// mm is the task's address space.
	mm *mm.MemoryManager

	// mu protects the fields below.
	mu sync.Mutex

	// status is the task's lifecycle state.
	status linux.TaskStatus

	// startTime is the time at which the task started running.
	startTime ktime.Time

	// syscallTimes counts invocations of each syscall number below
	// linux.MaxSyscallNum.
	syscallTimes [linux.MaxSyscallNum]uint32
}

func newTask(k *Kernel, tid ThreadID) *Task {
	return &Task{
		k:         k,
		tid:       tid,
		logPrefix: log.TaskPrefix(int32(tid)),
		mm:        mm.NewMemoryManager(k.mf),
		status:    linux.TaskReady,
	}
}

// ThreadID returns t's thread ID.
func (t *Task) ThreadID() ThreadID {
	return t.tid
}

// Kernel returns the Kernel containing t.
func (t *Task) Kernel() *Kernel {
	return t.k
}

// MemoryManager returns t's address space.
func (t *Task) MemoryManager() *mm.MemoryManager {
	return t.mm
}

// Status returns t's lifecycle state.
func (t *Task) Status() linux.TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Start marks t as running and records its start time. Starting a running
// task has no effect.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.status {
	case linux.TaskRunning:
		return nil
	case linux.TaskExited:
		return fmt.Errorf("task %d has exited", t.tid)
	}
	t.status = linux.TaskRunning
	t.startTime = t.k.clock.Now()
	return nil
}

// Exit releases t's address space, marks t as exited and removes it from
// the task table.
func (t *Task) Exit() {
	t.mu.Lock()
	if t.status == linux.TaskExited {
		t.mu.Unlock()
		return
	}
	t.status = linux.TaskExited
	t.mu.Unlock()

	t.mm.Release(t)
	t.k.removeTask(t)
	t.Debugf("Exited")
}

// CountSyscall records one invocation of sysno. Numbers at or above
// linux.MaxSyscallNum are not counted.
func (t *Task) CountSyscall(sysno uintptr) {
	if sysno >= linux.MaxSyscallNum {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syscallTimes[sysno]++
}

// SyscallTimes returns a copy of t's per-syscall invocation counts.
func (t *Task) SyscallTimes() [linux.MaxSyscallNum]uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syscallTimes
}

// RunningTime returns the time elapsed since t started. It is zero if t has
// not started.
func (t *Task) RunningTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == linux.TaskReady || t.status == linux.TaskUnInit {
		return 0
	}
	return t.k.clock.Now().Sub(t.startTime)
}

// TaskInfo returns t's status record.
func (t *Task) TaskInfo() linux.TaskInfo {
	running := t.RunningTime()
	t.mu.Lock()
	defer t.mu.Unlock()
	return linux.TaskInfo{
		Status:       t.status,
		SyscallTimes: t.syscallTimes,
		Time:         uint64(running.Milliseconds()),
	}
}

// CopyOutBytes implements marshal.CopyContext.CopyOutBytes.
func (t *Task) CopyOutBytes(addr hostarch.Addr, src []byte) (int, error) {
	return t.mm.CopyOut(t, addr, src, usermem.IOOpts{})
}

// CopyInBytes implements marshal.CopyContext.CopyInBytes.
func (t *Task) CopyInBytes(addr hostarch.Addr, dst []byte) (int, error) {
	return t.mm.CopyIn(t, addr, dst, usermem.IOOpts{})
}

// CopyOut marshals src into t's memory at addr. The record may span pages
// backed by non-contiguous frames.
func (t *Task) CopyOut(addr hostarch.Addr, src marshal.Marshallable) (int, error) {
	return marshal.CopyOut(t, addr, src)
}

// CopyIn unmarshals dst from t's memory at addr.
func (t *Task) CopyIn(addr hostarch.Addr, dst marshal.Marshallable) (int, error) {
	return marshal.CopyIn(t, addr, dst)
}

// Value implements context.Context.Value.
func (t *Task) Value(key any) any {
	switch key {
	case pgalloc.CtxMemoryFile:
		return t.k.mf
	case ktime.CtxClock:
		return t.k.clock
	default:
		return nil
	}
}

// Debugf creates a debug log on behalf of t.
func (t *Task) Debugf(format string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.Log().DebugfAtDepth(1, t.logPrefix+format, v...)
	}
}

// Infof logs at the info level on behalf of t.
func (t *Task) Infof(format string, v ...any) {
	if log.IsLogging(log.Info) {
		log.Log().InfofAtDepth(1, t.logPrefix+format, v...)
	}
}

// Warningf logs a warning string on behalf of t.
func (t *Task) Warningf(format string, v ...any) {
	if log.IsLogging(log.Warning) {
		log.Log().WarningfAtDepth(1, t.logPrefix+format, v...)
	}
}

// IsLogging returns true iff this level is being logged.
func (t *Task) IsLogging(level log.Level) bool {
	return log.IsLogging(level)
}
