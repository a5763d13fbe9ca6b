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

package pagetables

import (
	"fmt"

	"gvisor.dev/vmem/pkg/hostarch"
)

// MapOpts are the options for a page mapping: the capability set of the page.
type MapOpts struct {
	// AccessType defines permissions.
	AccessType hostarch.AccessType

	// User indicates the page is a user page.
	User bool
}

// String implements fmt.Stringer.String.
func (opts MapOpts) String() string {
	u := '-'
	if opts.User {
		u = 'u'
	}
	return fmt.Sprintf("%s%c", opts.AccessType, u)
}

// PTE is a page table entry.
//
// The layout follows the Sv-style format: bit 0 is the valid bit, bits 1-4
// are read, write, execute and user, and the physical page number starts at
// bit 10.
type PTE uint64

const (
	pteValid   PTE = 1 << 0
	pteRead    PTE = 1 << 1
	pteWrite   PTE = 1 << 2
	pteExecute PTE = 1 << 3
	pteUser    PTE = 1 << 4

	ppnShift = 10
	flagMask = PTE(1)<<ppnShift - 1
)

// PTEs is a collection of entries.
type PTEs [entriesPerPage]PTE

// Clear clears this PTE.
func (p *PTE) Clear() {
	*p = 0
}

// Valid returns true iff this entry is valid.
func (p *PTE) Valid() bool {
	return *p&pteValid != 0
}

// Opts returns the PTE options.
//
// These are all options except Valid.
func (p *PTE) Opts() MapOpts {
	v := *p
	return MapOpts{
		AccessType: hostarch.AccessType{
			Read:    v&pteRead != 0,
			Write:   v&pteWrite != 0,
			Execute: v&pteExecute != 0,
		},
		User: v&pteUser != 0,
	}
}

// Address extracts the address. This should only be used if Valid returns
// true.
func (p *PTE) Address() uintptr {
	return uintptr(*p>>ppnShift) << hostarch.PageShift
}

// Set sets this PTE value.
//
// Precondition: addr is page-aligned.
func (p *PTE) Set(addr uintptr, opts MapOpts) {
	if addr&(hostarch.PageSize-1) != 0 {
		panic(fmt.Sprintf("pagetables: unaligned physical address %#x", addr))
	}
	v := pteValid | PTE(addr>>hostarch.PageShift)<<ppnShift
	if opts.AccessType.Read {
		v |= pteRead
	}
	if opts.AccessType.Write {
		v |= pteWrite
	}
	if opts.AccessType.Execute {
		v |= pteExecute
	}
	if opts.User {
		v |= pteUser
	}
	*p = v
}

// String implements fmt.Stringer.String.
func (p *PTE) String() string {
	if !p.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%#x %s flags=%#x", p.Address(), p.Opts(), uint64(*p&flagMask))
}
