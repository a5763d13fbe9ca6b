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

package linux

import (
	"gvisor.dev/vmem/pkg/abi/linux"
	"gvisor.dev/vmem/pkg/sentry/arch"
	"gvisor.dev/vmem/pkg/sentry/kernel"
)

// GetTime writes the current time as a Timeval at args[0]. The record may
// straddle a page boundary; the second argument (time zone) is ignored.
func GetTime(t *kernel.Task, sysno uintptr, args arch.SyscallArguments) (uintptr, error) {
	addr := args[0].Pointer()

	ms := t.Kernel().Clock().Now().Milliseconds()
	tv := linux.MillisecondsToTimeval(uint64(ms))
	if _, err := t.CopyOut(addr, &tv); err != nil {
		return 0, err
	}
	return 0, nil
}
