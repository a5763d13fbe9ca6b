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
	"time"

	"gvisor.dev/vmem/pkg/hostarch"
)

// SizeOfTimeval is the size of a Timeval struct in bytes.
const SizeOfTimeval = 16

// Timeval is the record written by get_time: seconds and microseconds.
type Timeval struct {
	Sec  uint64
	Usec uint64
}

// MillisecondsToTimeval splits a millisecond count into a Timeval.
func MillisecondsToTimeval(ms uint64) Timeval {
	return Timeval{
		Sec:  ms / 1000,
		Usec: (ms % 1000) * 1000,
	}
}

// ToDuration returns the Timeval as a time.Duration.
func (tv Timeval) ToDuration() time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// SizeBytes implements marshal.Marshallable.SizeBytes.
func (tv *Timeval) SizeBytes() int {
	return SizeOfTimeval
}

// MarshalBytes implements marshal.Marshallable.MarshalBytes.
func (tv *Timeval) MarshalBytes(dst []byte) {
	hostarch.ByteOrder.PutUint64(dst[0:8], tv.Sec)
	hostarch.ByteOrder.PutUint64(dst[8:16], tv.Usec)
}

// UnmarshalBytes implements marshal.Marshallable.UnmarshalBytes.
func (tv *Timeval) UnmarshalBytes(src []byte) {
	tv.Sec = hostarch.ByteOrder.Uint64(src[0:8])
	tv.Usec = hostarch.ByteOrder.Uint64(src[8:16])
}
