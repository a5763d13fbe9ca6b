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

package mm

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// WriteMaps writes one /proc/[pid]/maps line per area of mm to w.
func (mm *MemoryManager) WriteMaps(w io.Writer) error {
	var b bytes.Buffer
	mm.areas.Ascend(func(a *area) bool {
		mm.areaMapsEntry(&b, a)
		return true
	})
	_, err := w.Write(b.Bytes())
	return err
}

// areaMapsEntry appends the maps entry for a, including the trailing newline,
// to b. All areas are private and anonymous.
func (mm *MemoryManager) areaMapsEntry(b *bytes.Buffer, a *area) {
	lineStart := b.Len()
	fmt.Fprintf(b, "%08x-%08x %sp %08x %02x:%02x %d ", uintptr(a.Start), uintptr(a.End), a.perms, 0, 0, 0, 0)
	if a.name != "" {
		// Per linux, we pad until the 74th character.
		if pad := 73 - (b.Len() - lineStart); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		b.WriteString(a.name)
	}
	b.WriteString("\n")
}
