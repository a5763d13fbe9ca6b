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
	"fmt"

	"gvisor.dev/vmem/pkg/hostarch"
)

// MaxSyscallNum bounds the syscall numbers whose invocations are counted per
// task.
const MaxSyscallNum = 500

// TaskStatus is the lifecycle state of a task.
type TaskStatus uint32

// Task states.
const (
	TaskUnInit TaskStatus = iota
	TaskReady
	TaskRunning
	TaskExited
)

// String implements fmt.Stringer.String.
func (s TaskStatus) String() string {
	switch s {
	case TaskUnInit:
		return "UnInit"
	case TaskReady:
		return "Ready"
	case TaskRunning:
		return "Running"
	case TaskExited:
		return "Exited"
	default:
		return fmt.Sprintf("TaskStatus(%d)", uint32(s))
	}
}

// Layout of TaskInfo in user memory.
const (
	taskInfoStatusOffset = 0
	taskInfoTimesOffset  = 4
	taskInfoTimeOffset   = 2008

	// SizeOfTaskInfo is the size of a TaskInfo struct in bytes.
	SizeOfTaskInfo = 2016
)

// TaskInfo is the record written by task_info.
//
// Layout: Status at 0, SyscallTimes at 4, 4 bytes of padding, Time at 2008.
type TaskInfo struct {
	// Status is the task's lifecycle state.
	Status TaskStatus

	// SyscallTimes counts invocations per syscall number.
	SyscallTimes [MaxSyscallNum]uint32

	// Time is the task's running time in milliseconds.
	Time uint64
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (ti *TaskInfo) SizeBytes() int {
	return SizeOfTaskInfo
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (ti *TaskInfo) MarshalBytes(dst []byte) {
	dst = dst[:SizeOfTaskInfo]
	clear(dst)
	hostarch.ByteOrder.PutUint32(dst[taskInfoStatusOffset:], uint32(ti.Status))
	for i, n := range ti.SyscallTimes {
		hostarch.ByteOrder.PutUint32(dst[taskInfoTimesOffset+4*i:], n)
	}
	hostarch.ByteOrder.PutUint64(dst[taskInfoTimeOffset:], ti.Time)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (ti *TaskInfo) UnmarshalBytes(src []byte) {
	src = src[:SizeOfTaskInfo]
	ti.Status = TaskStatus(hostarch.ByteOrder.Uint32(src[taskInfoStatusOffset:]))
	for i := range ti.SyscallTimes {
		ti.SyscallTimes[i] = hostarch.ByteOrder.Uint32(src[taskInfoTimesOffset+4*i:])
	}
	ti.Time = hostarch.ByteOrder.Uint64(src[taskInfoTimeOffset:])
}
