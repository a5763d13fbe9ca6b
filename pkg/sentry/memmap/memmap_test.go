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

package memmap

import (
	"testing"

	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/ring0/pagetables"
)

func TestProtIsValid(t *testing.T) {
	for prot := uint64(0); prot < 16; prot++ {
		want := prot >= 1 && prot <= 7
		if got := ProtIsValid(prot); got != want {
			t.Errorf("ProtIsValid(%#x) = %v, want %v", prot, got, want)
		}
	}
	for _, prot := range []uint64{1 << 3, 1<<3 | 1, 1 << 63, ^uint64(0)} {
		if ProtIsValid(prot) {
			t.Errorf("ProtIsValid(%#x) = true, want false", prot)
		}
	}
}

func TestProtRoundTrip(t *testing.T) {
	for prot := uint64(1); prot <= 7; prot++ {
		at := ProtToAccessType(prot)
		if !at.Any() {
			t.Errorf("ProtToAccessType(%#x) = %v, want some access", prot, at)
		}
		if got := AccessTypeToProt(at); got != prot {
			t.Errorf("AccessTypeToProt(ProtToAccessType(%#x)) = %#x", prot, got)
		}
	}
}

func TestProtBits(t *testing.T) {
	for _, tc := range []struct {
		prot uint64
		want hostarch.AccessType
	}{
		{1, hostarch.Read},
		{2, hostarch.Write},
		{4, hostarch.Execute},
		{3, hostarch.ReadWrite},
		{7, hostarch.AnyAccess},
	} {
		if got := ProtToAccessType(tc.prot); got != tc.want {
			t.Errorf("ProtToAccessType(%#x) = %v, want %v", tc.prot, got, tc.want)
		}
	}
}

func TestUserMapOpts(t *testing.T) {
	opts, ok := UserMapOpts(3)
	if !ok {
		t.Fatalf("UserMapOpts(3) not ok")
	}
	if want := (pagetables.MapOpts{AccessType: hostarch.ReadWrite, User: true}); opts != want {
		t.Errorf("UserMapOpts(3) = %v, want %v", opts, want)
	}
	for _, prot := range []uint64{0, 8, 0xf} {
		if _, ok := UserMapOpts(prot); ok {
			t.Errorf("UserMapOpts(%#x) ok, want invalid", prot)
		}
	}
}
