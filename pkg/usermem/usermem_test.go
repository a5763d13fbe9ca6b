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

package usermem

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"gvisor.dev/vmem/pkg/abi/linux"
	"gvisor.dev/vmem/pkg/errors/linuxerr"
	"gvisor.dev/vmem/pkg/hostarch"
	"gvisor.dev/vmem/pkg/sentry/context"
)

// ioOp applies one IO method to uio and returns the byte count,
// the bytes read (for CopyIn) and the error.
type ioOp func(uio IO, addr hostarch.Addr, n int) (int64, []byte, error)

func copyOutOp(uio IO, addr hostarch.Addr, n int) (int64, []byte, error) {
	src := make([]byte, n)
	for i := range src {
		src[i] = byte('a' + i)
	}
	c, err := uio.CopyOut(context.Background(), addr, src, IOOpts{})
	return int64(c), nil, err
}

func copyInOp(uio IO, addr hostarch.Addr, n int) (int64, []byte, error) {
	dst := make([]byte, n)
	c, err := uio.CopyIn(context.Background(), addr, dst, IOOpts{})
	return int64(c), dst, err
}

func zeroOutOp(uio IO, addr hostarch.Addr, n int) (int64, []byte, error) {
	c, err := uio.ZeroOut(context.Background(), addr, int64(n), IOOpts{})
	return c, nil, err
}

func TestBytesIO(t *testing.T) {
	for _, tc := range []struct {
		name      string
		op        ioOp
		addr      hostarch.Addr
		n         int
		wantN     int64
		wantErr   error
		wantBytes string
		wantRead  string
	}{
		{name: "copy out", op: copyOutOp, addr: 1, n: 3, wantN: 3, wantBytes: "0abc4"},
		{name: "copy out past end", op: copyOutOp, addr: 3, n: 3, wantN: 2, wantErr: linuxerr.EFAULT, wantBytes: "012ab"},
		{name: "copy out at end", op: copyOutOp, addr: 5, n: 1, wantErr: linuxerr.EFAULT, wantBytes: "01234"},
		{name: "copy in", op: copyInOp, addr: 2, n: 2, wantN: 2, wantBytes: "01234", wantRead: "23"},
		{name: "copy in past end", op: copyInOp, addr: 4, n: 3, wantN: 1, wantErr: linuxerr.EFAULT, wantBytes: "01234", wantRead: "4\x00\x00"},
		{name: "zero out", op: zeroOutOp, addr: 1, n: 2, wantN: 2, wantBytes: "0\x00\x0034"},
		{name: "zero out past end", op: zeroOutOp, addr: 3, n: 4, wantN: 2, wantErr: linuxerr.EFAULT, wantBytes: "012\x00\x00"},
		{name: "zero length", op: zeroOutOp, addr: 9, n: 0, wantBytes: "01234"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := &BytesIO{[]byte("01234")}
			n, read, err := tc.op(b, tc.addr, tc.n)
			if n != tc.wantN || err != tc.wantErr {
				t.Errorf("got (%d, %v), want (%d, %v)", n, err, tc.wantN, tc.wantErr)
			}
			if got := string(b.Bytes); got != tc.wantBytes {
				t.Errorf("Bytes: got %q, want %q", got, tc.wantBytes)
			}
			if read != nil && string(read) != tc.wantRead {
				t.Errorf("read: got %q, want %q", read, tc.wantRead)
			}
		})
	}
}

func TestBytesIOZeroOutTooLarge(t *testing.T) {
	b := &BytesIO{make([]byte, 4)}
	if _, err := b.ZeroOut(context.Background(), 0, int64(maxInt)+1, IOOpts{}); err != linuxerr.EINVAL {
		t.Errorf("ZeroOut(maxInt+1): got err %v, want %v", err, linuxerr.EINVAL)
	}
}

func TestCopyTaskInfo(t *testing.T) {
	// Place the record at an odd offset so it is not aligned to anything.
	b := &BytesIO{make([]byte, 3+linux.SizeOfTaskInfo)}
	src := linux.TaskInfo{Status: linux.TaskRunning, Time: 1500}
	src.SyscallTimes[169] = 2
	src.SyscallTimes[410] = 1

	cc := &IOCopyContext{Ctx: context.Background(), IO: b}
	if n, err := cc.CopyOutBytes(0, []byte{0xff, 0xff, 0xff}); n != 3 || err != nil {
		t.Fatalf("CopyOutBytes: got (%d, %v)", n, err)
	}
	if n, err := CopyObjectOut(context.Background(), b, 3, &src, IOOpts{}); n != linux.SizeOfTaskInfo || err != nil {
		t.Fatalf("CopyObjectOut: got (%d, %v), want (%d, nil)", n, err, linux.SizeOfTaskInfo)
	}
	if got := b.Bytes[:3]; !cmp.Equal(got, []byte{0xff, 0xff, 0xff}) {
		t.Errorf("bytes before the record were modified: %x", got)
	}

	var dst linux.TaskInfo
	if n, err := CopyObjectIn(context.Background(), b, 3, &dst, IOOpts{}); n != linux.SizeOfTaskInfo || err != nil {
		t.Fatalf("CopyObjectIn: got (%d, %v), want (%d, nil)", n, err, linux.SizeOfTaskInfo)
	}
	if diff := cmp.Diff(src, dst); diff != "" {
		t.Errorf("TaskInfo mismatch (-want +got):\n%s", diff)
	}
}

func TestCopyObjectShortBuffer(t *testing.T) {
	b := &BytesIO{make([]byte, linux.SizeOfTimeval+4)}
	src := linux.Timeval{Sec: 1, Usec: 2}
	if n, err := CopyObjectOut(context.Background(), b, 8, &src, IOOpts{}); n != 12 || err != linuxerr.EFAULT {
		t.Errorf("CopyObjectOut: got (%d, %v), want (12, %v)", n, err, linuxerr.EFAULT)
	}

	dst := linux.Timeval{Sec: 7}
	if _, err := CopyObjectIn(context.Background(), b, 8, &dst, IOOpts{}); err != linuxerr.EFAULT {
		t.Errorf("CopyObjectIn: got err %v, want %v", err, linuxerr.EFAULT)
	}
	if dst.Sec != 7 {
		t.Errorf("CopyObjectIn modified dst on failure: %+v", dst)
	}
}
