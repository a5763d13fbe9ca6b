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

// Package script runs YAML descriptions of tasks and the memory operations
// they perform.
//
// A script looks like:
//
//	tasks:
//	  - name: writer
//	    heap: 0x80000
//	    ops:
//	      - {op: mmap, addr: 0x10000, len: 0x2000, prot: 3}
//	      - {op: write, addr: 0x10ffc, data: "straddle"}
//	      - {op: get_time, addr: 0x10ff8}
//	      - {op: maps}
//
// Each task gets its own address space. Tasks run concurrently.
package script

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"gvisor.dev/vmem/pkg/abi/linux"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/sentry/arch"
	"gvisor.dev/vmem/pkg/sentry/kernel"
	sys "gvisor.dev/vmem/pkg/sentry/syscalls/linux"
)

// Op names that are not syscalls.
const (
	OpWrite   = "write"
	OpRead    = "read"
	OpMaps    = "maps"
	OpSyscall = "syscall"
)

// syscallOps are ops that invoke the syscall of the same name.
var syscallOps = map[string]bool{
	"mmap":      true,
	"munmap":    true,
	"sbrk":      true,
	"get_time":  true,
	"task_info": true,
	"exit":      true,
}

// Op is one step of a task.
type Op struct {
	Op    string   `yaml:"op"`
	Addr  uint64   `yaml:"addr,omitempty"`
	Len   uint64   `yaml:"len,omitempty"`
	Prot  uint64   `yaml:"prot,omitempty"`
	Delta int32    `yaml:"delta,omitempty"`
	Data  string   `yaml:"data,omitempty"`
	Code  int32    `yaml:"code,omitempty"`
	Sysno uint64   `yaml:"sysno,omitempty"`
	Args  []uint64 `yaml:"args,omitempty"`
}

// Task is the list of operations performed by one task.
type Task struct {
	Name string `yaml:"name"`

	// Heap is the initial program break. Zero leaves the heap empty at
	// address zero.
	Heap uint64 `yaml:"heap,omitempty"`

	Ops []Op `yaml:"ops"`
}

// Script is a set of tasks.
type Script struct {
	Tasks []Task `yaml:"tasks"`
}

// Parse reads a script from r. Unknown fields and unknown ops are errors.
// Unnamed tasks are named after their position.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	names := make(map[string]bool)
	for i := range s.Tasks {
		task := &s.Tasks[i]
		if task.Name == "" {
			task.Name = fmt.Sprintf("task%d", i)
		}
		if names[task.Name] {
			return nil, fmt.Errorf("duplicate task name %q", task.Name)
		}
		names[task.Name] = true
		for j, op := range task.Ops {
			if err := op.check(); err != nil {
				return nil, fmt.Errorf("task %q op %d: %w", task.Name, j, err)
			}
		}
	}
	return &s, nil
}

func (op *Op) check() error {
	switch {
	case syscallOps[op.Op]:
	case op.Op == OpWrite, op.Op == OpRead, op.Op == OpMaps:
	case op.Op == OpSyscall:
		if len(op.Args) > len(arch.SyscallArguments{}) {
			return fmt.Errorf("syscall takes at most %d arguments, got %d", len(arch.SyscallArguments{}), len(op.Args))
		}
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	return nil
}

// Result is the outcome of one op.
type Result struct {
	Op string `json:"op"`

	// Ret is the value user code would see. Failures are -1.
	Ret int64 `json:"ret"`

	// Detail describes what the op observed, such as bytes read or the
	// decoded record written by a syscall.
	Detail string `json:"detail,omitempty"`
}

// TaskResult holds the results of one task.
type TaskResult struct {
	Name    string   `json:"name"`
	TID     int32    `json:"tid"`
	Results []Result `json:"results"`

	// VirtualSize and ResidentSize describe the address space after the
	// last op, before the task exits.
	VirtualSize  uint64 `json:"virtual_size"`
	ResidentSize uint64 `json:"resident_size"`
}

// Run creates a task in k for every task of s and runs them concurrently.
// Each task exits once its ops are done. Results are in script order.
func Run(ctx context.Context, k *kernel.Kernel, s *Script) ([]TaskResult, error) {
	results := make([]TaskResult, len(s.Tasks))
	g, gctx := errgroup.WithContext(ctx)
	for i := range s.Tasks {
		task := &s.Tasks[i]
		res := &results[i]
		g.Go(func() error {
			return runTask(gctx, k, task, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func runTask(ctx context.Context, k *kernel.Kernel, task *Task, res *TaskResult) error {
	t := k.NewTask()
	defer t.Exit()
	if err := t.Start(); err != nil {
		return err
	}
	t.MemoryManager().BrkSetup(t, hostarch.Addr(task.Heap))
	t.Debugf("Running script task %q with %d ops", task.Name, len(task.Ops))

	res.Name = task.Name
	res.TID = int32(t.ThreadID())
	for _, op := range task.Ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := runOp(t, &op)
		if err != nil {
			return fmt.Errorf("task %q: %w", task.Name, err)
		}
		res.Results = append(res.Results, r)
	}
	res.VirtualSize = t.MemoryManager().VirtualMemorySize()
	res.ResidentSize = t.MemoryManager().ResidentSetSize()
	return nil
}

func runOp(t *kernel.Task, op *Op) (Result, error) {
	r := Result{Op: op.Op}
	addr := hostarch.Addr(op.Addr)
	switch op.Op {
	case "mmap":
		r.Ret = invoke(t, op.Op, uintptr(op.Addr), uintptr(op.Len), uintptr(op.Prot))
	case "munmap":
		r.Ret = invoke(t, op.Op, uintptr(op.Addr), uintptr(op.Len))
	case "sbrk":
		r.Ret = invoke(t, op.Op, uintptr(op.Delta))
		if r.Ret != -1 {
			r.Detail = fmt.Sprintf("brk=%#x", uintptr(t.MemoryManager().Brk()))
		}
	case "get_time":
		r.Ret = invoke(t, op.Op, uintptr(op.Addr), 0)
		if r.Ret == 0 {
			var tv linux.Timeval
			if _, err := t.CopyIn(addr, &tv); err == nil {
				r.Detail = fmt.Sprintf("sec=%d usec=%d", tv.Sec, tv.Usec)
			}
		}
	case "task_info":
		r.Ret = invoke(t, op.Op, uintptr(op.Addr))
		if r.Ret == 0 {
			var info linux.TaskInfo
			if _, err := t.CopyIn(addr, &info); err == nil {
				r.Detail = describeTaskInfo(&info)
			}
		}
	case "exit":
		r.Ret = invoke(t, op.Op, uintptr(op.Code))
	case OpSyscall:
		r.Ret = sys.Invoke(t, uintptr(op.Sysno), argsOf(op.Args))
	case OpWrite:
		n, err := t.CopyOutBytes(addr, []byte(op.Data))
		r.Ret, r.Detail = copyResult(n, err)
	case OpRead:
		buf := make([]byte, op.Len)
		n, err := t.CopyInBytes(addr, buf)
		r.Ret, r.Detail = copyResult(n, err)
		if err == nil {
			r.Detail = fmt.Sprintf("%q", buf[:n])
		}
	case OpMaps:
		var b bytes.Buffer
		if err := t.MemoryManager().WriteMaps(&b); err != nil {
			return r, err
		}
		r.Detail = strings.TrimSuffix(b.String(), "\n")
	default:
		return r, fmt.Errorf("unknown op %q", op.Op)
	}
	return r, nil
}

// invoke calls the named syscall through the syscall table.
func invoke(t *kernel.Task, name string, args ...uintptr) int64 {
	sysno, err := sys.Table.LookupNo(name)
	if err != nil {
		panic(fmt.Sprintf("syscall %q missing from table: %v", name, err))
	}
	return sys.Invoke(t, sysno, arch.Args(args...))
}

func argsOf(values []uint64) arch.SyscallArguments {
	args := make([]uintptr, len(values))
	for i, v := range values {
		args[i] = uintptr(v)
	}
	return arch.Args(args...)
}

func copyResult(n int, err error) (int64, string) {
	if err != nil {
		return -1, fmt.Sprintf("copied %d bytes: %v", n, err)
	}
	return int64(n), ""
}

func describeTaskInfo(info *linux.TaskInfo) string {
	var calls []string
	for sysno, n := range info.SyscallTimes {
		if n != 0 {
			calls = append(calls, fmt.Sprintf("%s:%d", sys.Table.LookupName(uintptr(sysno)), n))
		}
	}
	return fmt.Sprintf("status=%v time=%dms calls=%s", info.Status, info.Time, strings.Join(calls, ","))
}
