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

// Package kernel provides an emulation of the parts of a kernel that drive
// user memory: tasks, their address spaces, and the clock.
//
// Each Task owns one mm.MemoryManager. Tasks are identified by ThreadID; the
// Kernel's task table maps IDs to tasks so callers can select an address
// space by ID.
package kernel

import (
	"fmt"
	"sort"
	"sync"

	"gvisor.dev/vmem/pkg/sentry/ktime"
	"gvisor.dev/vmem/pkg/sentry/pgalloc"
)

// ThreadID is a generic thread identifier.
type ThreadID int32

// Kernel represents an emulated kernel.
type Kernel struct {
	// mf provides frames to every task's address space. mf is immutable
	// after Init.
	mf *pgalloc.MemoryFile

	// clock is the kernel's time source. clock is immutable after Init.
	clock ktime.Clock

	// mu protects the task table.
	mu sync.Mutex

	// tasks maps IDs to live tasks.
	tasks map[ThreadID]*Task

	// lastTID is the last thread ID handed out.
	lastTID ThreadID
}

// InitKernelArgs holds arguments to Init.
type InitKernelArgs struct {
	// MemoryFile provides frames for all address spaces. It is required.
	MemoryFile *pgalloc.MemoryFile

	// Clock is the kernel's time source. If nil, a MonotonicClock started
	// by Init is used.
	Clock ktime.Clock
}

// Init initialize the Kernel with no tasks.
func (k *Kernel) Init(args InitKernelArgs) error {
	if args.MemoryFile == nil {
		return fmt.Errorf("args.MemoryFile is nil")
	}
	k.mf = args.MemoryFile
	k.clock = args.Clock
	if k.clock == nil {
		k.clock = ktime.NewMonotonicClock()
	}
	k.tasks = make(map[ThreadID]*Task)
	return nil
}

// MemoryFile returns the MemoryFile that provides frames to tasks.
func (k *Kernel) MemoryFile() *pgalloc.MemoryFile {
	return k.mf
}

// Clock returns the kernel's time source.
func (k *Kernel) Clock() ktime.Clock {
	return k.clock
}

// NewTask creates a task with an empty address space. The task is Ready; it
// must be started with Task.Start before it can make syscalls.
func (k *Kernel) NewTask() *Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lastTID++
	t := newTask(k, k.lastTID)
	k.tasks[t.tid] = t
	return t
}

// TaskWithID returns the live task with the given ID, or nil.
func (k *Kernel) TaskWithID(tid ThreadID) *Task {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tasks[tid]
}

// Tasks returns all live tasks ordered by ID.
func (k *Kernel) Tasks() []*Task {
	k.mu.Lock()
	tasks := make([]*Task, 0, len(k.tasks))
	for _, t := range k.tasks {
		tasks = append(tasks, t)
	}
	k.mu.Unlock()
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].tid < tasks[j].tid })
	return tasks
}

// removeTask drops t from the task table.
func (k *Kernel) removeTask(t *Task) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.tasks, t.tid)
}
