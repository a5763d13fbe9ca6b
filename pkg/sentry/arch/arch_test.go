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

package arch

import (
	"testing"
)

func TestArgumentConversions(t *testing.T) {
	a := SyscallArgument{Value: ^uintptr(0)}
	if got := a.Int(); got != -1 {
		t.Errorf("Int() = %d, want -1", got)
	}
	if got := a.Int64(); got != -1 {
		t.Errorf("Int64() = %d, want -1", got)
	}
	if got := a.Uint(); got != ^uint32(0) {
		t.Errorf("Uint() = %#x, want %#x", got, ^uint32(0))
	}
	if got := a.Uint64(); got != ^uint64(0) {
		t.Errorf("Uint64() = %#x, want %#x", got, ^uint64(0))
	}
}

func TestArgs(t *testing.T) {
	args := Args(0x1000, 0x2000, 3)
	if got := args[0].Pointer(); got != 0x1000 {
		t.Errorf("args[0].Pointer() = %v, want 0x1000", got)
	}
	if got := args[1].SizeT(); got != 0x2000 {
		t.Errorf("args[1].SizeT() = %#x, want 0x2000", got)
	}
	if got := args[3].Value; got != 0 {
		t.Errorf("args[3] = %#x, want 0", got)
	}
	if got, want := args.String(), "0x1000, 0x2000, 0x3, 0x0, 0x0, 0x0"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestArgsTooMany(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Args with 7 values did not panic")
		}
	}()
	Args(1, 2, 3, 4, 5, 6, 7)
}
