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
	"encoding/json"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// TaskPrefix returns the prefix prepended to messages logged on behalf of the
// task with the given thread ID.
func TaskPrefix(tid int32) string {
	return fmt.Sprintf("[% 4d] ", tid)
}

// splitTaskPrefix undoes TaskPrefix. ok is false if msg has no task prefix.
func splitTaskPrefix(msg string) (tid int32, rest string, ok bool) {
	if !strings.HasPrefix(msg, "[") {
		return 0, msg, false
	}
	end := strings.Index(msg, "] ")
	if end < 0 {
		return 0, msg, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(msg[1:end]), 10, 32)
	if err != nil || n <= 0 {
		return 0, msg, false
	}
	return int32(n), msg[end+2:], true
}

// jsonLog is one line of JSONEmitter output.
type jsonLog struct {
	Time   time.Time `json:"time"`
	Level  Level     `json:"level"`
	Caller string    `json:"caller,omitempty"`
	TID    int32     `json:"tid,omitempty"`
	Msg    string    `json:"msg"`
}

var levelNames = map[Level]string{
	Warning: "warning",
	Info:    "info",
	Debug:   "debug",
}

// MarshalJSON implements json.Marshaler.MarshalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	name, ok := levelNames[l]
	if !ok {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return json.Marshal(name)
}

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON. It accepts the
// names written by MarshalJSON as well as raw level numbers.
func (l *Level) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		for lv, n := range levelNames {
			if n == name {
				*l = lv
				return nil
			}
		}
		return fmt.Errorf("unknown level %q", name)
	}
	var n uint32
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("unknown level %s", b)
	}
	if _, ok := levelNames[Level(n)]; !ok {
		return fmt.Errorf("unknown level %d", n)
	}
	*l = Level(n)
	return nil
}

// JSONEmitter logs one JSON object per line. Messages carrying a TaskPrefix
// have the thread ID split out into the "tid" field.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	j := jsonLog{
		Time:  timestamp,
		Level: level,
		Msg:   fmt.Sprintf(format, v...),
	}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		if slash := strings.LastIndexByte(file, '/'); slash >= 0 {
			file = file[slash+1:]
		}
		j.Caller = fmt.Sprintf("%s:%d", file, line)
	}
	if tid, rest, ok := splitTaskPrefix(j.Msg); ok {
		j.TID, j.Msg = tid, rest
	}
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	e.Writer.Write(append(b, '\n'))
}
