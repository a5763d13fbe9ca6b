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

// Package memmap defines semantics for memory mappings.
//
// It is the only place where raw protection bits supplied by user code are
// interpreted; everything else deals in hostarch.AccessType and
// pagetables.MapOpts.
package memmap

import (
	"gvisor.dev/vmem/pkg/abi/linux"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/ring0/pagetables"
)

// ProtIsValid returns true iff prot requests at least one permission and sets
// no bits outside PROT_READ|PROT_WRITE|PROT_EXEC.
func ProtIsValid(prot uint64) bool {
	return prot&^linux.PROT_MASK == 0 && prot != linux.PROT_NONE
}

// ProtToAccessType decodes the permission bits of prot. Bits outside
// PROT_MASK are ignored.
func ProtToAccessType(prot uint64) hostarch.AccessType {
	return hostarch.AccessType{
		Read:    prot&linux.PROT_READ != 0,
		Write:   prot&linux.PROT_WRITE != 0,
		Execute: prot&linux.PROT_EXEC != 0,
	}
}

// AccessTypeToProt is the inverse of ProtToAccessType.
func AccessTypeToProt(at hostarch.AccessType) uint64 {
	var prot uint64
	if at.Read {
		prot |= linux.PROT_READ
	}
	if at.Write {
		prot |= linux.PROT_WRITE
	}
	if at.Execute {
		prot |= linux.PROT_EXEC
	}
	return prot
}

// UserMapOpts returns the page options for a user mapping with permissions
// prot. User is always set. ok is false if prot is not valid.
func UserMapOpts(prot uint64) (opts pagetables.MapOpts, ok bool) {
	if !ProtIsValid(prot) {
		return pagetables.MapOpts{}, false
	}
	return pagetables.MapOpts{
		AccessType: ProtToAccessType(prot),
		User:       true,
	}, true
}
