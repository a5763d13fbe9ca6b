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

package linuxerr_test

import (
	"fmt"
	"testing"

	"golang.org/x/sys/unix"

	"gvisor.dev/vmem/pkg/errors"
	"gvisor.dev/vmem/pkg/errors/linuxerr"
)

func TestErrorFromUnix(t *testing.T) {
	for errno, want := range map[unix.Errno]error{
		0:           nil,
		unix.EINVAL: linuxerr.EINVAL,
		unix.EFAULT: linuxerr.EFAULT,
		unix.ENOMEM: linuxerr.ENOMEM,
		unix.EEXIST: linuxerr.EEXIST,
	} {
		if got := linuxerr.ErrorFromUnix(errno); got != want {
			t.Errorf("ErrorFromUnix(%v) = %v, want %v", errno, got, want)
		}
	}
}

func TestEquals(t *testing.T) {
	if !linuxerr.Equals(linuxerr.EINVAL, linuxerr.EINVAL) {
		t.Errorf("EINVAL does not equal itself")
	}
	if !linuxerr.Equals(linuxerr.EINVAL, unix.EINVAL) {
		t.Errorf("EINVAL does not equal unix.EINVAL")
	}
	if linuxerr.Equals(linuxerr.EINVAL, linuxerr.EFAULT) {
		t.Errorf("EINVAL equals EFAULT")
	}
	if !linuxerr.Equals(nil, nil) {
		t.Errorf("nil does not equal nil")
	}
}

func TestErrnoOf(t *testing.T) {
	custom := errors.New(unix.EEXIST, "range already mapped")
	for _, tc := range []struct {
		err  error
		want unix.Errno
	}{
		{nil, 0},
		{linuxerr.EFAULT, unix.EFAULT},
		{custom, unix.EEXIST},
		{unix.ENOSYS, unix.ENOSYS},
		{fmt.Errorf("opaque"), unix.EINVAL},
	} {
		if got := linuxerr.ErrnoOf(tc.err); got != tc.want {
			t.Errorf("ErrnoOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestToUnix(t *testing.T) {
	if got := linuxerr.ToUnix(linuxerr.ENOMEM); got != unix.ENOMEM {
		t.Errorf("ToUnix(ENOMEM) = %v, want %v", got, unix.ENOMEM)
	}
	if got := linuxerr.ToUnix(nil); got != 0 {
		t.Errorf("ToUnix(nil) = %v, want 0", got)
	}
	if got := linuxerr.ToError(nil); got != nil {
		t.Errorf("ToError(nil) = %v, want nil", got)
	}
}
