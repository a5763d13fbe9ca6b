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

package log

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// GoogleEmitter emits logs in the format of github.com/golang/glog:
//
//	Lmmdd hh:mm:ss.uuuuuu threadid file:line] msg...
//
// The threadid column holds the task ID for messages carrying a TaskPrefix
// and the host PID otherwise.
type GoogleEmitter struct {
	*Writer
}

// glogThreadIDWidth is the padding glog uses for the threadid column.
const glogThreadIDWidth = 7

var hostPID = int32(os.Getpid())

// appendPadded appends v right-aligned in a field of width columns.
func appendPadded(b []byte, v int64, width int) []byte {
	var digits [20]byte
	d := strconv.AppendInt(digits[:0], v, 10)
	for i := len(d); i < width; i++ {
		b = append(b, ' ')
	}
	return append(b, d...)
}

// appendZeroPadded appends v with leading zeros to width digits.
func appendZeroPadded(b []byte, v, width int) []byte {
	var digits [20]byte
	d := strconv.AppendInt(digits[:0], int64(v), 10)
	for i := len(d); i < width; i++ {
		b = append(b, '0')
	}
	return append(b, d...)
}

func levelLetter(level Level) byte {
	switch level {
	case Debug:
		return 'D'
	case Info:
		return 'I'
	case Warning:
		return 'W'
	}
	return '?'
}

// Emit emits the message, google-style.
func (g GoogleEmitter) Emit(depth int, level Level, timestamp time.Time, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	threadID := hostPID
	if tid, rest, ok := splitTaskPrefix(msg); ok {
		threadID, msg = tid, rest
	}

	b := make([]byte, 0, 64+len(msg))
	b = append(b, levelLetter(level))
	_, month, day := timestamp.Date()
	hour, minute, second := timestamp.Clock()
	b = appendZeroPadded(b, int(month), 2)
	b = appendZeroPadded(b, day, 2)
	b = append(b, ' ')
	b = appendZeroPadded(b, hour, 2)
	b = append(b, ':')
	b = appendZeroPadded(b, minute, 2)
	b = append(b, ':')
	b = appendZeroPadded(b, second, 2)
	b = append(b, '.')
	b = appendZeroPadded(b, timestamp.Nanosecond()/1000, 6)
	b = append(b, ' ')
	b = appendPadded(b, int64(threadID), glogThreadIDWidth)
	b = append(b, ' ')

	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		if slash := strings.LastIndexByte(file, '/'); slash >= 0 {
			file = file[slash+1:]
		}
		b = append(b, file...)
		b = append(b, ':')
		b = strconv.AppendInt(b, int64(line), 10)
	} else {
		b = append(b, "???:0"...)
	}
	b = append(b, "] "...)
	b = append(b, msg...)
	b = append(b, '\n')

	// The message is already formatted.
	g.Writer.Emit(depth+1, level, timestamp, "%s", b)
}
